package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Discovery defaults
const (
	DefaultConcurrency        = 3
	DefaultMaxCallsPerRequest = 12
	DefaultProviderDownAfter  = 3
	DefaultInitialDisplay     = 3
	DefaultCacheTTL           = 24 * time.Hour
	DefaultExcerptTurns       = 4
	DefaultAudience           = "men"
)

// DiscoveryServiceConfig holds configuration for the discovery service
type DiscoveryServiceConfig struct {
	Concurrency          int
	MaxCallsPerRequest   int
	ProviderDownAfter    int // Non-positive uses DefaultProviderDownAfter
	InitialDisplay       int
	CacheTTL             time.Duration
	ExcerptTurns         int
	Audience             string
	Brands               []string
	FallbackSearchURL    string
	CallTimeout          time.Duration
	ResultCount          int
	MaxTiersPerCandidate int
}

// DiscoveryService resolves recommendation prose into products with caching
type DiscoveryService struct {
	cache     domain.ResponseCache
	provider  domain.SearchProvider
	extractor *CandidateExtractor
	planner   *QueryPlanner
	executor  *SearchExecutor
	fallback  *FallbackSynthesizer
	logger    *zap.Logger

	concurrency        int
	maxCallsPerRequest int
	providerDownAfter  int
	initialDisplay     int
	cacheTTL           time.Duration
	excerptTurns       int
}

// NewDiscoveryService creates a discovery service with dependencies
func NewDiscoveryService(
	cache domain.ResponseCache,
	provider domain.SearchProvider,
	trust domain.DomainTrust,
	logger *zap.Logger,
	config DiscoveryServiceConfig,
) (*DiscoveryService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	audience := config.Audience
	if audience == "" {
		audience = DefaultAudience
	}

	fallback, err := NewFallbackSynthesizer(config.FallbackSearchURL, audience)
	if err != nil {
		return nil, err
	}

	scorer := NewResultScorer(trust, logger)
	executor := NewSearchExecutor(provider, scorer, logger, ExecutorConfig{
		CallTimeout:          config.CallTimeout,
		ResultCount:          config.ResultCount,
		MaxTiersPerCandidate: config.MaxTiersPerCandidate,
	})

	s := &DiscoveryService{
		cache:              cache,
		provider:           provider,
		extractor:          NewCandidateExtractor(config.Brands),
		planner:            NewQueryPlanner(trust, audience),
		executor:           executor,
		fallback:           fallback,
		logger:             logger,
		concurrency:        config.Concurrency,
		maxCallsPerRequest: config.MaxCallsPerRequest,
		providerDownAfter:  config.ProviderDownAfter,
		initialDisplay:     config.InitialDisplay,
		cacheTTL:           config.CacheTTL,
		excerptTurns:       config.ExcerptTurns,
	}

	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}
	if s.maxCallsPerRequest <= 0 {
		s.maxCallsPerRequest = DefaultMaxCallsPerRequest
	}
	if s.providerDownAfter <= 0 {
		s.providerDownAfter = DefaultProviderDownAfter
	}
	if s.initialDisplay <= 0 {
		s.initialDisplay = DefaultInitialDisplay
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = DefaultCacheTTL
	}
	if s.excerptTurns <= 0 {
		s.excerptTurns = DefaultExcerptTurns
	}

	return s, nil
}

// Discover looks up products for the recommendation in request.
// Flow: check cache -> extract candidates -> search concurrently ->
// dedupe -> synthesize fallbacks -> cache -> return.
// The only error returned wraps domain.ErrProviderUnavailable.
func (s *DiscoveryService) Discover(
	ctx context.Context,
	request *domain.DiscoveryRequest,
) (*domain.DiscoveryResponse, error) {
	start := time.Now()
	defer func() {
		metrics.DiscoveryDuration.Observe(time.Since(start).Seconds())
	}()

	if request == nil {
		s.recordOutcome("no_candidates")
		return buildResponse(nil, s.initialDisplay, false), nil
	}

	cacheKey := CacheKey(request, s.excerptTurns)

	// Try cache first
	if products, ok := s.cache.Get(ctx, cacheKey); ok {
		s.recordOutcome("cache_hit")
		return buildResponse(products, s.initialDisplay, true), nil
	}

	candidates := s.extractor.Extract(request.Recommendation)
	if len(candidates) == 0 {
		s.recordOutcome("no_candidates")
		s.logger.Debug("No candidates extracted")
		return buildResponse(nil, s.initialDisplay, false), nil
	}

	if err := s.provider.Ready(); err != nil {
		s.recordOutcome("provider_unavailable")
		s.logger.Error("Search provider unavailable", zap.Error(err))
		return nil, err
	}

	budget := NewCallBudget(s.maxCallsPerRequest, s.providerDownAfter)
	outcomes := s.searchAll(ctx, candidates, budget)

	if ctx.Err() == nil && budget.AllUnreachable() {
		s.recordOutcome("provider_unreachable")
		s.logger.Error("Search provider unreachable for every call",
			zap.Int("candidates", len(candidates)),
			zap.Int("calls", budget.Used()))
		return buildResponse(nil, s.initialDisplay, false), nil
	}

	products := s.assemble(candidates, outcomes)

	s.logger.Info("Discovery completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("products", len(products)),
		zap.Int("calls", budget.Used()),
		zap.Duration("elapsed", time.Since(start)))

	if ctx.Err() != nil {
		// Partial results are returned but never cached
		s.recordOutcome("cancelled")
		return buildResponse(products, s.initialDisplay, false), nil
	}

	if len(products) > 0 {
		s.cache.Set(ctx, cacheKey, products, s.cacheTTL)
	}
	s.recordOutcome("completed")

	return buildResponse(products, s.initialDisplay, false), nil
}

// CacheStats returns response cache statistics
func (s *DiscoveryService) CacheStats(ctx context.Context) domain.CacheStats {
	return s.cache.Stats(ctx)
}

// ClearCache empties the response cache
func (s *DiscoveryService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// searchAll runs each candidate's pipeline on a bounded pool. Results are
// index-addressed so their order equals extraction order.
func (s *DiscoveryService) searchAll(
	ctx context.Context,
	candidates []domain.Candidate,
	budget *CallBudget,
) []SearchOutcome {
	outcomes := make([]SearchOutcome, len(candidates))
	sem := semaphore.NewWeighted(int64(s.concurrency))

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(index int, candidate domain.Candidate) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				// Context cancelled before this candidate started
				return
			}
			defer sem.Release(1)

			tiers := s.planner.Plan(candidate)
			outcomes[index] = s.executor.Execute(ctx, candidate, tiers, budget)
		}(i, c)
	}
	wg.Wait()

	return outcomes
}

// assemble dedupes matched products in extraction order, then appends a
// fallback for every candidate the executor could not match.
func (s *DiscoveryService) assemble(candidates []domain.Candidate, outcomes []SearchOutcome) []domain.Product {
	dedup := NewDeduplicator()
	products := make([]domain.Product, 0, len(candidates))
	needsFallback := make([]bool, len(candidates))

	for i, c := range candidates {
		p := outcomes[i].Product
		if p == nil {
			needsFallback[i] = true
			continue
		}
		if !dedup.Add(*p) {
			// Another candidate already claimed this page
			s.logger.Debug("Dropped duplicate match",
				zap.String("candidate", c.Title), zap.String("link", p.Link))
			continue
		}
		products = append(products, *p)
		metrics.CandidateOutcomes.WithLabelValues(string(domain.SourceMatched), string(c.Strategy)).Inc()
	}

	for i, c := range candidates {
		if !needsFallback[i] {
			continue
		}
		fb := s.fallback.Synthesize(c)
		if !dedup.Add(fb) {
			continue
		}
		products = append(products, fb)
		metrics.CandidateOutcomes.WithLabelValues(string(domain.SourceFallback), string(c.Strategy)).Inc()
	}

	return products
}

func (s *DiscoveryService) recordOutcome(outcome string) {
	metrics.DiscoveryRequests.WithLabelValues(outcome).Inc()
}

// buildResponse shapes products into the caller contract
func buildResponse(products []domain.Product, initialDisplay int, cached bool) *domain.DiscoveryResponse {
	all := make([]domain.Product, len(products))
	copy(all, products)

	shown := all
	if len(shown) > initialDisplay {
		shown = all[:initialDisplay:initialDisplay]
	}

	return &domain.DiscoveryResponse{
		Products:    shown,
		AllProducts: all,
		HasMore:     len(all) > len(shown),
		HasProducts: len(all) > 0,
		TotalFound:  len(all),
		Cached:      cached,
	}
}

// CacheKey derives the response cache key from the normalized user message
// and the last turns of the conversation. The recommendation text stands in
// when the message is empty.
// Format: "discovery:{sha256 hex}"
func CacheKey(request *domain.DiscoveryRequest, turns int) string {
	message := normalizeForCacheKey(request.Message)
	if message == "" {
		message = normalizeForCacheKey(request.Recommendation)
	}

	excerpt := request.Conversation
	if turns > 0 && len(excerpt) > turns {
		excerpt = excerpt[len(excerpt)-turns:]
	}

	h := sha256.New()
	h.Write([]byte(message))
	for _, turn := range excerpt {
		h.Write([]byte{0})
		h.Write([]byte(normalizeForCacheKey(turn.Role)))
		h.Write([]byte{0})
		h.Write([]byte(normalizeForCacheKey(turn.Content)))
	}
	return "discovery:" + hex.EncodeToString(h.Sum(nil))
}

// normalizeForCacheKey lowercases, strips punctuation and collapses whitespace
func normalizeForCacheKey(s string) string {
	return brandKey(s)
}
