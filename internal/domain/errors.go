package domain

import "errors"

var (
	// ErrProviderUnavailable is returned when the search provider cannot be used at all
	// (credentials missing). It is the only error Discover surfaces to callers.
	ErrProviderUnavailable = errors.New("search provider unavailable")

	// ErrProviderFailure is returned when a single provider call fails (non-2xx, malformed payload)
	ErrProviderFailure = errors.New("search provider request failed")

	// ErrProviderUnreachable is returned when a provider call fails at the transport level
	ErrProviderUnreachable = errors.New("search provider unreachable")

	// ErrCallBudgetExhausted is returned when a request has used up its provider call budget
	ErrCallBudgetExhausted = errors.New("provider call budget exhausted")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheCorrupted is returned when a cached payload cannot be decoded
	ErrCacheCorrupted = errors.New("cached payload corrupted")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
