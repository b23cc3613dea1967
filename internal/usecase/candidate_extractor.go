package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/productlens/backend/internal/domain"
)

// Compiled regex patterns for candidate extraction
var (
	// Matches "**Title** - $100", "**Title** – $1,299.99", "**Title**: $40"
	structuredPattern = regexp.MustCompile(`\*\*([^*\n]+?)\*\*\s*[-–—:]\s*(\$\d[\d,]*(?:\.\d{2})?)`)

	// Matches **span** or __span__ on a single line
	boldPattern = regexp.MustCompile(`\*\*([^*\n]+?)\*\*|__([^_\n]+?)__`)

	// Multiple whitespace cleanup
	multipleSpacesRegex = regexp.MustCompile(`\s+`)

	// Anything that is not a letter, digit or whitespace
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// minBoldSpanLength is the shortest emphasized span considered a product name
const minBoldSpanLength = 6

// DefaultBrands is the brand list used for brand-mention scanning and
// multi-word brand detection when none is configured.
var DefaultBrands = []string{
	"Nike", "Adidas", "Uniqlo", "Levi's", "Gap", "J.Crew", "Banana Republic",
	"Ralph Lauren", "Polo Ralph Lauren", "Tommy Hilfiger", "Calvin Klein",
	"Patagonia", "North Face", "Columbia", "Carhartt", "Everlane", "Bonobos",
	"Lululemon", "Under Armour", "New Balance", "Converse", "Vans", "Puma",
	"Reebok", "Allbirds", "Hoka", "Brooks", "Timberland", "Dr. Martens",
	"Clarks", "Red Wing", "Ray-Ban", "Oakley", "Hugo Boss", "Zara", "H&M",
	"Abercrombie", "Hollister", "American Eagle", "Old Navy", "Lacoste",
	"Brooks Brothers", "Vineyard Vines", "Todd Snyder", "Buck Mason",
	"Outerknown", "Arc'teryx", "Champion", "Hanes", "Fruit of the Loom",
}

// descriptiveStopWords are words that describe a product rather than name it
var descriptiveStopWords = map[string]bool{
	"men": true, "mens": true, "man": true, "women": true, "womens": true,
	"unisex": true, "slim": true, "skinny": true, "straight": true, "relaxed": true,
	"classic": true, "regular": true, "fit": true, "modern": true, "tailored": true,
	"original": true, "new": true, "premium": true, "essential": true, "essentials": true,
	"casual": true, "basic": true, "lightweight": true, "the": true, "a": true,
	"an": true, "and": true, "or": true, "for": true, "with": true, "of": true,
	"in": true, "by": true,
}

// brandEntry is one configured brand prepared for matching
type brandEntry struct {
	name    string         // Display form, e.g., "Levi's"
	key     string         // Normalized form, e.g., "levis"
	pattern *regexp.Regexp // Case-insensitive word-boundary match
}

// CandidateExtractor parses recommendation prose into ordered candidates
type CandidateExtractor struct {
	brands     []brandEntry
	brandByKey map[string]brandEntry
}

// NewCandidateExtractor creates an extractor for the given brand list.
// An empty list falls back to DefaultBrands.
func NewCandidateExtractor(brands []string) *CandidateExtractor {
	if len(brands) == 0 {
		brands = DefaultBrands
	}

	e := &CandidateExtractor{
		brandByKey: make(map[string]brandEntry, len(brands)),
	}
	for _, name := range brands {
		name = strings.TrimSpace(name)
		key := brandKey(name)
		if key == "" {
			continue
		}
		if _, dup := e.brandByKey[key]; dup {
			continue
		}
		entry := brandEntry{
			name:    name,
			key:     key,
			pattern: regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(name) + `(?:$|[^\p{L}\p{N}])`),
		}
		e.brands = append(e.brands, entry)
		e.brandByKey[key] = entry
	}
	return e
}

// Extract returns candidates in first-seen order, deduplicated by normalized title.
// Strategies apply in priority order: structured markers, then bold spans, then
// a brand-mention scan. Returns an empty slice when nothing is found.
func (e *CandidateExtractor) Extract(text string) []domain.Candidate {
	if strings.TrimSpace(text) == "" {
		return []domain.Candidate{}
	}

	candidates := e.extractStructured(text)
	if len(candidates) == 0 {
		candidates = e.extractBold(text)
	}
	if len(candidates) == 0 {
		candidates = e.extractBrandMentions(text)
	}

	return dedupeCandidates(candidates)
}

func (e *CandidateExtractor) extractStructured(text string) []domain.Candidate {
	var out []domain.Candidate
	for _, m := range structuredPattern.FindAllStringSubmatch(text, -1) {
		title := cleanTitle(m[1])
		if title == "" {
			continue
		}
		out = append(out, e.newCandidate(title, m[2], domain.StrategyStructured))
	}
	return out
}

func (e *CandidateExtractor) extractBold(text string) []domain.Candidate {
	var out []domain.Candidate
	for _, m := range boldPattern.FindAllStringSubmatch(text, -1) {
		span := m[1]
		if span == "" {
			span = m[2]
		}
		title := cleanTitle(span)
		if utf8.RuneCountInString(title) < minBoldSpanLength {
			continue
		}
		if !strings.Contains(title, " ") && !e.containsBrandToken(title) {
			continue
		}
		out = append(out, e.newCandidate(title, "", domain.StrategyBold))
	}
	return out
}

func (e *CandidateExtractor) extractBrandMentions(text string) []domain.Candidate {
	type mention struct {
		brand brandEntry
		at    int
	}

	var mentions []mention
	for _, b := range e.brands {
		if loc := b.pattern.FindStringIndex(text); loc != nil {
			mentions = append(mentions, mention{brand: b, at: loc[0]})
		}
	}
	sort.SliceStable(mentions, func(i, j int) bool {
		if mentions[i].at != mentions[j].at {
			return mentions[i].at < mentions[j].at
		}
		return len(mentions[i].brand.key) > len(mentions[j].brand.key)
	})

	out := make([]domain.Candidate, 0, len(mentions))
	var taken []string
	for _, m := range mentions {
		// "Ralph Lauren" inside "Polo Ralph Lauren" is the same mention
		if containsAny(taken, m.brand.key) {
			continue
		}
		taken = append(taken, m.brand.key)
		_, guess := e.deriveBrand(m.brand.name)
		if guess == "" {
			guess = guessFromTokens(strings.Fields(m.brand.name)[:1])
		}
		out = append(out, domain.Candidate{
			Title:      m.brand.name,
			BrandGuess: guess,
			Brand:      m.brand.name,
			Strategy:   domain.StrategyBrandMention,
		})
	}
	return out
}

func (e *CandidateExtractor) newCandidate(title, price string, strategy domain.ExtractionStrategy) domain.Candidate {
	display, guess := e.deriveBrand(title)
	return domain.Candidate{
		Title:      title,
		PriceHint:  price,
		BrandGuess: guess,
		Brand:      display,
		Strategy:   strategy,
	}
}

// deriveBrand returns the display brand and the lowercased, punctuation-free
// brand guess. Two tokens are used only when they form a known brand.
// A title that opens with a descriptive word has no derivable brand.
func (e *CandidateExtractor) deriveBrand(title string) (display, guess string) {
	tokens := strings.Fields(title)
	if len(tokens) == 0 {
		return "", ""
	}

	if len(tokens) >= 2 {
		pair := tokens[:2]
		if _, ok := e.brandByKey[brandKey(strings.Join(pair, " "))]; ok {
			return strings.Join(pair, " "), guessFromTokens(pair)
		}
	}

	first := tokens[:1]
	g := guessFromTokens(first)
	if g == "" || descriptiveStopWords[g] || isNumeric(g) {
		return "", ""
	}
	if b, ok := e.brandByKey[brandKey(first[0])]; ok {
		return b.name, g
	}
	return first[0], g
}

func (e *CandidateExtractor) containsBrandToken(title string) bool {
	for _, tok := range strings.Fields(title) {
		if _, ok := e.brandByKey[brandKey(tok)]; ok {
			return true
		}
	}
	return false
}

func containsAny(keys []string, key string) bool {
	for _, k := range keys {
		if strings.Contains(k, key) {
			return true
		}
	}
	return false
}

// NormalizeTitle lowercases, trims and collapses whitespace
func NormalizeTitle(title string) string {
	return strings.TrimSpace(multipleSpacesRegex.ReplaceAllString(strings.ToLower(title), " "))
}

func dedupeCandidates(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := NormalizeTitle(c.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		c.Index = len(out)
		out = append(out, c)
	}
	return out
}

// cleanTitle trims separators and surrounding punctuation left by markdown
func cleanTitle(s string) string {
	s = multipleSpacesRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " :-–—,.")
}

// brandKey normalizes a brand name for lookup: "Levi's" -> "levis", "J.Crew" -> "jcrew"
func brandKey(s string) string {
	s = punctuationRegex.ReplaceAllString(strings.ToLower(s), "")
	return strings.Join(strings.Fields(s), " ")
}

func guessFromTokens(tokens []string) string {
	return brandKey(strings.Join(tokens, " "))
}

// brandSlug removes spaces from a brand guess: "ralph lauren" -> "ralphlauren"
func brandSlug(guess string) string {
	return strings.ReplaceAll(guess, " ", "")
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
