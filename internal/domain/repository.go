package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for a byte-oriented cache backend
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)
}

// ResponseCache memoizes full discovery results keyed by normalized request content
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]Product, bool)
	Set(ctx context.Context, key string, products []Product, ttl time.Duration)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) CacheStats
}

// SearchQuery is a single request to the search provider
type SearchQuery struct {
	Query       string
	ResultCount int
}

// SearchProvider defines the interface for the external web search API
type SearchProvider interface {
	// Ready reports ErrProviderUnavailable when the provider cannot be used at all.
	Ready() error
	Search(ctx context.Context, query SearchQuery) ([]RawHit, error)
}

// DomainTrust answers trust questions about result hosts
type DomainTrust interface {
	// Score returns the trust class for host. brandSlug is the candidate's
	// own brand (e.g. "nike"); a host on {brandSlug}.com is brand-official.
	Score(host, brandSlug string) TrustClass
	IsBlacklisted(host string) bool
	IsNonCommerce(host string) bool
	// Retailers returns the major-retailer allow-list in table order.
	Retailers() []string
}
