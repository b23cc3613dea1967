// Package trust holds the Domain Trust Table: an ordered host-pattern to
// trust-class mapping plus the blacklist and non-commerce host sets that the
// result scorer consults once per hit.
package trust

import (
	"strings"

	"github.com/productlens/backend/internal/domain"
)

// Rule maps a host pattern to a trust class. A pattern matches the host
// itself and any of its subdomains.
type Rule struct {
	Pattern string
	Class   domain.TrustClass
}

// Table is an immutable, ordered trust table. First matching rule wins.
type Table struct {
	rules       []Rule
	blacklist   []string
	nonCommerce []string
	retailers   []string
}

// NewTable builds a table from rules and host lists, normalizing patterns
func NewTable(rules []Rule, blacklist, nonCommerce []string) *Table {
	t := &Table{
		rules:       make([]Rule, 0, len(rules)),
		blacklist:   normalizePatterns(blacklist),
		nonCommerce: normalizePatterns(nonCommerce),
	}
	for _, r := range rules {
		p := NormalizeHost(r.Pattern)
		if p == "" {
			continue
		}
		t.rules = append(t.rules, Rule{Pattern: p, Class: r.Class})
		if r.Class == domain.TrustMajorRetailer {
			t.retailers = append(t.retailers, p)
		}
	}
	return t
}

// Score returns the trust class for host. Hosts on {brandSlug}.com are brand-official.
func (t *Table) Score(host, brandSlug string) domain.TrustClass {
	host = NormalizeHost(host)
	if brandSlug != "" && matchHost(host, brandSlug+".com") {
		return domain.TrustBrandOfficial
	}
	for _, r := range t.rules {
		if matchHost(host, r.Pattern) {
			return r.Class
		}
	}
	return domain.TrustOther
}

// IsBlacklisted reports whether host must be rejected before scoring
func (t *Table) IsBlacklisted(host string) bool {
	return matchAny(NormalizeHost(host), t.blacklist)
}

// IsNonCommerce reports whether host is a video, social, forum or blog site
func (t *Table) IsNonCommerce(host string) bool {
	return matchAny(NormalizeHost(host), t.nonCommerce)
}

// Retailers returns the major-retailer patterns in table order
func (t *Table) Retailers() []string {
	out := make([]string, len(t.retailers))
	copy(out, t.retailers)
	return out
}

// Rules returns a copy of the ordered rules
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// NormalizeHost lowercases a host and strips a port and leading "www."
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.LastIndex(host, ":"); idx > 0 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

func matchHost(host, pattern string) bool {
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

func matchAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if matchHost(host, p) {
			return true
		}
	}
	return false
}

func normalizePatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if n := NormalizeHost(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}
