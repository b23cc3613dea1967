package domain

import "time"

// ExtractionStrategy identifies how a candidate was found in recommendation prose
type ExtractionStrategy string

const (
	StrategyStructured   ExtractionStrategy = "structured"    // **Title** - $Price
	StrategyBold         ExtractionStrategy = "bold"          // emphasized span heuristic
	StrategyBrandMention ExtractionStrategy = "brand_mention" // lexical brand scan
)

// SourceTier tells the caller whether a product was matched or synthesized
type SourceTier string

const (
	SourceMatched  SourceTier = "matched"
	SourceFallback SourceTier = "fallback"
)

// Candidate is one item named in recommendation prose
type Candidate struct {
	Index      int                // Position in extraction order
	Title      string             // e.g., "Nike Air Force 1"
	PriceHint  string             // e.g., "$100", empty when unknown
	BrandGuess string             // Lowercased first 1-2 title tokens, e.g., "nike"
	Brand      string             // Display form of the brand tokens, e.g., "Nike"
	Strategy   ExtractionStrategy // Which extraction strategy produced it
}

// QueryTier is one search attempt strategy for a candidate
type QueryTier struct {
	Query    string `json:"query"`
	Priority int    `json:"priority"`
	Label    string `json:"label"`
	Site     string `json:"site,omitempty"` // Host the query is restricted to, if any
}

// RawHit is one result returned by the search provider
type RawHit struct {
	Position int    `json:"position"` // Original provider order, 0-based
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	ImageURL string `json:"imageUrl,omitempty"`
	Host     string `json:"host"` // Lowercased, without leading "www."
}

// ScoredHit is a filtered hit with its trust score
type ScoredHit struct {
	RawHit
	Score TrustClass `json:"score"`
}

// Product is the final, caller-facing recommendation
type Product struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Image       string     `json:"image"`
	Price       string     `json:"price"`
	Description string     `json:"description"`
	Brand       string     `json:"brand"`
	SourceTier  SourceTier `json:"sourceTier"`
}

// ConversationTurn is one message of the conversation excerpt
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DiscoveryRequest is the input of one product discovery call
type DiscoveryRequest struct {
	Message        string             `json:"message"`        // Latest user message
	Recommendation string             `json:"recommendation"` // Assistant prose naming products
	Conversation   []ConversationTurn `json:"conversation,omitempty"`
}

// DiscoveryResponse is the caller-facing output contract
type DiscoveryResponse struct {
	Products    []Product `json:"products"`    // Initial display slice
	AllProducts []Product `json:"allProducts"` // Everything found
	HasMore     bool      `json:"hasMore"`
	HasProducts bool      `json:"hasProducts"`
	TotalFound  int       `json:"totalFound"`
	Cached      bool      `json:"cached"`
}

// CacheEntry is a memoized discovery result
type CacheEntry struct {
	Key                 string        `json:"key"`
	Payload             []Product     `json:"payload"`
	CreatedAt           time.Time     `json:"createdAt"`
	TTL                 time.Duration `json:"ttl"`
	TokensSavedEstimate int           `json:"tokensSavedEstimate"`
}

// Expired reports whether the entry must no longer be served
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// CacheStats reports response cache performance
type CacheStats struct {
	Size        int     `json:"size"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hitRate"`
	TokensSaved int64   `json:"tokensSaved"`
}
