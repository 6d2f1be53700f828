package redis

import (
	"context"
	"time"
)

// Pinger is an interface for health check operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is an interface for graceful shutdown.
type Closer interface {
	Close() error
}

// CacheStore defines the interface for cache operations.
// Use this interface in application code for better testability.
type CacheStore[T any] interface {
	// Get retrieves a cached value by key.
	// Returns ErrCacheMiss if the key does not exist.
	Get(ctx context.Context, key string) (*T, error)

	// Set stores a value in the cache with the default TTL.
	Set(ctx context.Context, key string, value T) error

	// SetWithTTL stores a value in the cache with a custom TTL.
	SetWithTTL(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet retrieves from cache or calls loader and caches the result.
	GetOrSet(ctx context.Context, key string, loader func(ctx context.Context) (*T, error)) (*T, error)
}

// RateLimiterStore defines the interface for rate limiting operations.
type RateLimiterStore interface {
	// Allow checks if a request is allowed and consumes one token.
	Allow(ctx context.Context, key string) (*RateLimitResult, error)

	// Status returns the current rate limit status without consuming a token.
	Status(ctx context.Context, key string) (*RateLimitResult, error)

	// Reset removes the rate limit for a key.
	Reset(ctx context.Context, key string) error

	// Limit returns the configured limit.
	Limit() int

	// Window returns the configured window duration.
	Window() time.Duration
}

// Ensure implementations satisfy interfaces.
var (
	_ Pinger           = (*Client)(nil)
	_ Closer           = (*Client)(nil)
	_ RateLimiterStore = (*RateLimiter)(nil)
)
