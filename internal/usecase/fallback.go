package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/productlens/backend/internal/domain"
)

// DefaultFallbackSearchURL is the marketplace search used for fallback links
const DefaultFallbackSearchURL = "https://www.amazon.com/s?k="

// FallbackSynthesizer builds placeholder products for unmatched candidates
type FallbackSynthesizer struct {
	searchURL string
	audience  string
}

// NewFallbackSynthesizer creates a synthesizer. searchURL is a query prefix
// the encoded search text is appended to.
func NewFallbackSynthesizer(searchURL, audience string) (*FallbackSynthesizer, error) {
	if searchURL == "" {
		searchURL = DefaultFallbackSearchURL
	}
	u, err := url.Parse(searchURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid fallback search url %q", searchURL)
	}
	return &FallbackSynthesizer{
		searchURL: searchURL,
		audience:  strings.TrimSpace(audience),
	}, nil
}

// Synthesize returns a fallback product whose link searches the marketplace
// for "{title} {audience} buy online".
func (f *FallbackSynthesizer) Synthesize(c domain.Candidate) domain.Product {
	terms := []string{c.Title}
	if f.audience != "" {
		terms = append(terms, f.audience)
	}
	terms = append(terms, "buy online")

	return domain.Product{
		Title:       c.Title,
		Link:        f.searchURL + url.QueryEscape(strings.Join(terms, " ")),
		Image:       "",
		Price:       c.PriceHint,
		Description: fmt.Sprintf("Shop for %s online", c.Title),
		Brand:       displayBrand(c),
		SourceTier:  domain.SourceFallback,
	}
}
