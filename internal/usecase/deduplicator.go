package usecase

import "github.com/productlens/backend/internal/domain"

// Deduplicator drops products whose normalized title or exact link was
// already seen. First occurrence wins and order is preserved.
type Deduplicator struct {
	titles map[string]bool
	links  map[string]bool
}

// NewDeduplicator creates an empty deduplicator for one response
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		titles: make(map[string]bool),
		links:  make(map[string]bool),
	}
}

// Add records p and reports whether it was kept
func (d *Deduplicator) Add(p domain.Product) bool {
	title := NormalizeTitle(p.Title)
	if d.titles[title] || d.links[p.Link] {
		return false
	}
	d.titles[title] = true
	d.links[p.Link] = true
	return true
}

// Filter returns the products of ps not seen before, in order
func (d *Deduplicator) Filter(ps []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(ps))
	for _, p := range ps {
		if d.Add(p) {
			out = append(out, p)
		}
	}
	return out
}

// Dedupe removes duplicates from a single list
func Dedupe(ps []domain.Product) []domain.Product {
	return NewDeduplicator().Filter(ps)
}
