package usecase

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/metrics"
	"github.com/productlens/backend/internal/infrastructure/trust"
	"go.uber.org/zap"
)

// Rejection reasons, also used as metric labels
const (
	RejectBlacklisted = "blacklisted"
	RejectOffSite     = "off_site"
	RejectNonCommerce = "non_commerce"
	RejectNoCommerce  = "no_commerce_intent"
	RejectHomepage    = "homepage"
	RejectIrrelevant  = "irrelevant"
	RejectInvalidLink = "invalid_link"
)

// minRelevantTokenLen is the shortest title token that counts as overlap
const minRelevantTokenLen = 3

// commerceKeywords signal purchase intent in a hit's title or snippet
var commerceKeywords = []string{
	"shop", "store", "buy", "product", "item", "clothing", "apparel",
}

var (
	// Paths of blogs, forums and videos on otherwise commercial hosts
	nonCommercePathRegex = regexp.MustCompile(`(?i)/(blogs?|forums?|videos?|threads?|community)(/|$)`)

	// Site roots and landing pages
	homepagePathRegex = regexp.MustCompile(`(?i)^/(home|index)(\.[a-z]+)?/?$`)
)

// ResultScorer filters provider hits and picks the most trusted survivor
type ResultScorer struct {
	trust  domain.DomainTrust
	logger *zap.Logger
}

// NewResultScorer creates a scorer backed by the given trust table
func NewResultScorer(trust domain.DomainTrust, logger *zap.Logger) *ResultScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultScorer{
		trust:  trust,
		logger: logger,
	}
}

// Best returns the highest-scoring accepted hit, or nil when every hit is rejected.
// Ties keep the provider's original order.
func (s *ResultScorer) Best(c domain.Candidate, tier domain.QueryTier, hits []domain.RawHit) *domain.ScoredHit {
	survivors := s.Score(c, tier, hits)
	if len(survivors) == 0 {
		return nil
	}
	best := survivors[0]
	return &best
}

// Score filters hits and returns survivors sorted by trust score, highest first
func (s *ResultScorer) Score(c domain.Candidate, tier domain.QueryTier, hits []domain.RawHit) []domain.ScoredHit {
	slug := brandSlug(c.BrandGuess)

	var survivors []domain.ScoredHit
	for _, hit := range hits {
		if reason := s.rejectReason(c, tier, hit); reason != "" {
			metrics.HitsRejected.WithLabelValues(reason).Inc()
			s.logger.Debug("Hit rejected",
				zap.String("candidate", c.Title),
				zap.String("link", hit.Link),
				zap.String("reason", reason))
			continue
		}
		survivors = append(survivors, domain.ScoredHit{
			RawHit: hit,
			Score:  s.trust.Score(hitHost(hit), slug),
		})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].Score != survivors[j].Score {
			return survivors[i].Score > survivors[j].Score
		}
		return survivors[i].Position < survivors[j].Position
	})
	return survivors
}

// rejectReason returns why a hit is rejected, or "" when it passes every filter
func (s *ResultScorer) rejectReason(c domain.Candidate, tier domain.QueryTier, hit domain.RawHit) string {
	u, err := url.Parse(hit.Link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return RejectInvalidLink
	}

	host := hitHost(hit)

	if s.trust.IsBlacklisted(host) {
		return RejectBlacklisted
	}
	if tier.Site != "" && !onSite(host, tier.Site) {
		return RejectOffSite
	}
	if s.trust.IsNonCommerce(host) || nonCommercePathRegex.MatchString(u.Path) {
		return RejectNonCommerce
	}

	text := strings.ToLower(hit.Title + " " + hit.Snippet)
	if !hasCommerceIntent(text) {
		return RejectNoCommerce
	}
	if isHomepage(u, hit.Title) {
		return RejectHomepage
	}
	if !isRelevant(c, text+" "+host) {
		return RejectIrrelevant
	}
	return ""
}

func hasCommerceIntent(text string) bool {
	for _, kw := range commerceKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// isHomepage reports bare domains, /home, /index pages and category landing pages
func isHomepage(u *url.URL, title string) bool {
	path := strings.TrimSuffix(u.Path, "/")
	if path == "" || homepagePathRegex.MatchString(u.Path) {
		return true
	}
	lowerTitle := strings.ToLower(title)
	return strings.Contains(lowerTitle, "category") || strings.Contains(lowerTitle, "shop all")
}

// isRelevant reports whether the brand guess or any title token longer than
// two characters appears in the haystack.
func isRelevant(c domain.Candidate, haystack string) bool {
	normalized := brandKey(haystack)
	compact := strings.ReplaceAll(normalized, " ", "")

	if c.BrandGuess != "" {
		if strings.Contains(normalized, c.BrandGuess) || strings.Contains(compact, brandSlug(c.BrandGuess)) {
			return true
		}
	}
	for _, tok := range strings.Fields(brandKey(c.Title)) {
		if len(tok) < minRelevantTokenLen {
			continue
		}
		if strings.Contains(normalized, tok) {
			return true
		}
	}
	return false
}

// hitHost returns the normalized host, deriving it from the link when unset
func hitHost(hit domain.RawHit) string {
	if hit.Host != "" {
		return trust.NormalizeHost(hit.Host)
	}
	u, err := url.Parse(hit.Link)
	if err != nil {
		return ""
	}
	return trust.NormalizeHost(u.Host)
}

func onSite(host, site string) bool {
	site = trust.NormalizeHost(site)
	return host == site || strings.HasSuffix(host, "."+site)
}
