package search

import (
	"net/url"
	"strings"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/trust"
)

// searchResponse is the subset of the Custom Search response we read
type searchResponse struct {
	Items []searchItem `json:"items"`
	Error *apiError    `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type searchItem struct {
	Title   string  `json:"title"`
	Link    string  `json:"link"`
	Snippet string  `json:"snippet"`
	Pagemap pagemap `json:"pagemap"`
}

type pagemap struct {
	CSEImage     []imageRef `json:"cse_image"`
	CSEThumbnail []imageRef `json:"cse_thumbnail"`
}

type imageRef struct {
	Src string `json:"src"`
}

// MapToRawHits converts provider items to hits, dropping items without a usable link.
// Position keeps the provider's original order.
func MapToRawHits(items []searchItem) []domain.RawHit {
	hits := make([]domain.RawHit, 0, len(items))
	for _, item := range items {
		host := HostOf(item.Link)
		if host == "" {
			continue
		}
		hits = append(hits, domain.RawHit{
			Position: len(hits),
			Title:    strings.TrimSpace(item.Title),
			Link:     item.Link,
			Snippet:  strings.TrimSpace(item.Snippet),
			ImageURL: previewImage(item.Pagemap),
			Host:     host,
		})
	}
	return hits
}

// HostOf returns the normalized host of an absolute http(s) URL, or "" if invalid
func HostOf(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return trust.NormalizeHost(u.Host)
}

// previewImage prefers the full page image over the thumbnail
func previewImage(p pagemap) string {
	for _, img := range p.CSEImage {
		if img.Src != "" {
			return img.Src
		}
	}
	for _, img := range p.CSEThumbnail {
		if img.Src != "" {
			return img.Src
		}
	}
	return ""
}
