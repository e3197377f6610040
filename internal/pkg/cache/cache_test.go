package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupCacheUnreachableRedisLeavesClientNil(t *testing.T) {
	t.Setenv("CACHE_HOST", "127.0.0.1")
	// Port 1 is never listening; the dial must fail fast.
	t.Setenv("CACHE_PORT", "1")

	SetupCache()

	assert.Nil(t, GetClient())
}
