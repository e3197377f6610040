package middleware

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergift/evergift/internal/pkg/ratelimit"
)

func limitedApp(limit int, window time.Duration) *fiber.App {
	limiter := ratelimit.New(ratelimit.NewMemoryStore())
	app := fiber.New()
	app.Post("/login", RateLimit(limiter, nil, "login", limit, window), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRateLimitHeaders(t *testing.T) {
	app := limitedApp(2, time.Minute)

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("User-Agent", "test-client")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))

	_, err = time.Parse(time.RFC3339, resp.Header.Get("X-RateLimit-Reset"))
	assert.NoError(t, err)
}

func TestRateLimitBlocksOverQuota(t *testing.T) {
	app := limitedApp(2, time.Minute)

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		req.Header.Set("User-Agent", "test-client")
		r, err := app.Test(req)
		require.NoError(t, err)
		last = r.StatusCode

		if i == 2 {
			assert.Equal(t, "0", r.Header.Get("X-RateLimit-Remaining"))

			retryAfter, err := strconv.Atoi(r.Header.Get("Retry-After"))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, retryAfter, 1)
			assert.LessOrEqual(t, retryAfter, 60)
		}
	}
	assert.Equal(t, fiber.StatusTooManyRequests, last)
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	app := limitedApp(1, time.Minute)

	first := httptest.NewRequest("POST", "/login", nil)
	first.Header.Set("User-Agent", "client-a")
	r, err := app.Test(first)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, r.StatusCode)

	// Different user agent hashes to a different window.
	second := httptest.NewRequest("POST", "/login", nil)
	second.Header.Set("User-Agent", "client-b")
	r, err = app.Test(second)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, r.StatusCode)

	third := httptest.NewRequest("POST", "/login", nil)
	third.Header.Set("User-Agent", "client-a")
	r, err = app.Test(third)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, r.StatusCode)
}
