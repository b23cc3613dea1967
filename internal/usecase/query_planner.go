package usecase

import (
	"fmt"
	"strings"

	"github.com/productlens/backend/internal/domain"
)

// Tier priorities, highest first
const (
	PriorityBrandProduct  = 100
	PriorityBrandCategory = 80
	PriorityRetailer      = 60
	PriorityGeneric       = 10
)

// Tier labels
const (
	LabelBrandProduct  = "brand_product"
	LabelBrandCategory = "brand_category"
	LabelRetailer      = "retailer"
	LabelGeneric       = "generic"
)

// QueryPlanner builds the ordered search tiers for one candidate
type QueryPlanner struct {
	trust    domain.DomainTrust
	audience string
}

// NewQueryPlanner creates a planner. Retailer tiers follow trust.Retailers()
// at planning time, so a reloaded trust table takes effect immediately.
func NewQueryPlanner(trust domain.DomainTrust, audience string) *QueryPlanner {
	return &QueryPlanner{
		trust:    trust,
		audience: strings.TrimSpace(audience),
	}
}

// Plan returns tiers ordered by decreasing specificity:
// brand product page, brand category page, one per major retailer, generic web.
// Brand tiers are omitted when no brand or product type can be derived.
func (p *QueryPlanner) Plan(c domain.Candidate) []domain.QueryTier {
	productType := ProductType(c)
	slug := brandSlug(c.BrandGuess)

	var tiers []domain.QueryTier

	if slug != "" && productType != "" {
		site := slug + ".com"
		tiers = append(tiers,
			domain.QueryTier{
				Query:    p.join("site:"+site, quote(productType), p.audience),
				Priority: PriorityBrandProduct,
				Label:    LabelBrandProduct,
				Site:     site,
			},
			domain.QueryTier{
				Query:    p.join("site:"+site, p.audience, quote(productType)),
				Priority: PriorityBrandCategory,
				Label:    LabelBrandCategory,
				Site:     site,
			},
		)
	}

	subject := productType
	if subject == "" {
		subject = c.Title
	}
	for _, retailer := range p.trust.Retailers() {
		tiers = append(tiers, domain.QueryTier{
			Query:    p.join("site:"+retailer, quote(subject), p.audience),
			Priority: PriorityRetailer,
			Label:    fmt.Sprintf("%s:%s", LabelRetailer, retailer),
			Site:     retailer,
		})
	}

	tiers = append(tiers, domain.QueryTier{
		Query:    p.join(quote(c.Title), p.audience, "buy"),
		Priority: PriorityGeneric,
		Label:    LabelGeneric,
	})

	return tiers
}

// ProductType is the title without its brand tokens and descriptive stopwords,
// e.g., "Levi's 511 Slim Fit Jeans" -> "511 Jeans".
func ProductType(c domain.Candidate) string {
	tokens := strings.Fields(c.Title)
	skip := len(strings.Fields(c.Brand))
	if c.BrandGuess == "" {
		skip = 0
	}
	if skip > len(tokens) {
		skip = len(tokens)
	}

	var kept []string
	for _, tok := range tokens[skip:] {
		if descriptiveStopWords[brandKey(tok)] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// TierKind strips the retailer domain from a label for low-cardinality metrics
func TierKind(label string) string {
	if i := strings.IndexByte(label, ':'); i >= 0 {
		return label[:i]
	}
	return label
}

func (p *QueryPlanner) join(parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}
