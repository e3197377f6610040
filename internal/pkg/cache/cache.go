package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/evergift/evergift/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis cache server. When
// Redis is unreachable the client stays nil so callers can fall back to
// process-local alternatives instead of failing every call later.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	addr := fmt.Sprintf("%s:%s", host, port)

	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0, // use default DB
	})

	pong, err := c.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache at %s: %v", addr, err)
		_ = c.Close()
		client = nil
		return
	}

	log.Printf("Successfully connected to Redis cache: %s", pong)
	client = c
}

// GetClient returns the Redis client instance, or nil when SetupCache
// could not reach Redis.
func GetClient() *redis.Client {
	return client
}
