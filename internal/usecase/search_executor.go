package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// Executor defaults
const (
	DefaultCallTimeout          = 6 * time.Second
	DefaultResultCount          = 6
	DefaultMaxTiersPerCandidate = 5
)

// searchState is the per-candidate state machine:
// Pending -> TierAttempt(n) -> {Accepted | TierAttempt(n+1) | Exhausted}
type searchState int

const (
	statePending searchState = iota
	stateTierAttempt
	stateAccepted
	stateExhausted
)

// ExecutorConfig holds configuration for the search executor
type ExecutorConfig struct {
	CallTimeout          time.Duration
	ResultCount          int
	MaxTiersPerCandidate int
}

// SearchOutcome is the result of searching for one candidate
type SearchOutcome struct {
	Product  *domain.Product // nil when every tier was exhausted
	Tier     string          // Label of the tier that produced Product
	Attempts int             // Tiers attempted
}

// SearchExecutor runs a candidate's tiers against the provider in order,
// stopping at the first tier that yields an accepted hit.
type SearchExecutor struct {
	provider    domain.SearchProvider
	scorer      *ResultScorer
	logger      *zap.Logger
	callTimeout time.Duration
	resultCount int
	maxTiers    int
}

// NewSearchExecutor creates an executor with defaults for unset config values
func NewSearchExecutor(
	provider domain.SearchProvider,
	scorer *ResultScorer,
	logger *zap.Logger,
	config ExecutorConfig,
) *SearchExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}

	callTimeout := config.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	resultCount := config.ResultCount
	if resultCount <= 0 {
		resultCount = DefaultResultCount
	}
	maxTiers := config.MaxTiersPerCandidate
	if maxTiers <= 0 || maxTiers > DefaultMaxTiersPerCandidate {
		maxTiers = DefaultMaxTiersPerCandidate
	}

	return &SearchExecutor{
		provider:    provider,
		scorer:      scorer,
		logger:      logger,
		callTimeout: callTimeout,
		resultCount: resultCount,
		maxTiers:    maxTiers,
	}
}

// Execute searches tiers strictly in order. A failing tier never aborts the
// candidate; the next tier is tried until one is accepted, the tiers run out,
// the budget is spent or ctx is done.
func (e *SearchExecutor) Execute(
	ctx context.Context,
	c domain.Candidate,
	tiers []domain.QueryTier,
	budget *CallBudget,
) SearchOutcome {
	if budget == nil {
		budget = NewCallBudget(e.maxTiers, 0)
	}

	var outcome SearchOutcome
	n := 0
	state := statePending

	for {
		switch state {
		case statePending:
			tiers = e.limitTiers(tiers)
			if len(tiers) == 0 {
				state = stateExhausted
			} else {
				state = stateTierAttempt
			}

		case stateTierAttempt:
			if ctx.Err() != nil {
				state = stateExhausted
				continue
			}
			outcome.Attempts++
			hit, err := e.attempt(ctx, c, tiers[n], budget)
			if hit != nil {
				outcome.Product = matchedProduct(c, hit)
				outcome.Tier = tiers[n].Label
				state = stateAccepted
				continue
			}
			if err != nil {
				// Budget spent or provider down: later tiers cannot be called either
				e.logger.Debug("Stopping tier search",
					zap.String("candidate", c.Title), zap.Error(err))
				state = stateExhausted
				continue
			}
			n++
			if n >= len(tiers) {
				state = stateExhausted
			}

		case stateAccepted:
			e.logger.Debug("Candidate matched",
				zap.String("candidate", c.Title),
				zap.String("tier", outcome.Tier),
				zap.String("link", outcome.Product.Link))
			return outcome

		case stateExhausted:
			e.logger.Debug("Candidate exhausted",
				zap.String("candidate", c.Title),
				zap.Int("attempts", outcome.Attempts))
			return outcome
		}
	}
}

// attempt issues one provider call. It returns the accepted hit, or a non-nil
// error only when no further calls are allowed for this request.
func (e *SearchExecutor) attempt(
	ctx context.Context,
	c domain.Candidate,
	tier domain.QueryTier,
	budget *CallBudget,
) (*domain.ScoredHit, error) {
	kind := TierKind(tier.Label)

	if err := budget.Acquire(); err != nil {
		metrics.ProviderCalls.WithLabelValues(kind, "skipped").Inc()
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	hits, err := e.provider.Search(callCtx, domain.SearchQuery{
		Query:       tier.Query,
		ResultCount: e.resultCount,
	})
	metrics.ProviderCallDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		// A slow provider is still up: the timeout is an ordinary tier error
		err = fmt.Errorf("%w: call timed out after %v", domain.ErrProviderFailure, e.callTimeout)
		metrics.ProviderCalls.WithLabelValues(kind, "timeout").Inc()
	} else if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrProviderUnreachable) {
			status = "unreachable"
		}
		metrics.ProviderCalls.WithLabelValues(kind, status).Inc()
	}
	budget.Record(err)

	if err != nil {
		e.logger.Warn("Provider call failed, trying next tier",
			zap.String("candidate", c.Title),
			zap.String("tier", tier.Label),
			zap.String("query", tier.Query),
			zap.Error(err))
		return nil, nil
	}

	hit := e.scorer.Best(c, tier, hits)
	if hit == nil {
		metrics.ProviderCalls.WithLabelValues(kind, "no_accepted_hit").Inc()
		e.logger.Debug("No accepted hit",
			zap.String("candidate", c.Title),
			zap.String("tier", tier.Label),
			zap.Int("hits", len(hits)))
		return nil, nil
	}

	metrics.ProviderCalls.WithLabelValues(kind, "accepted").Inc()
	return hit, nil
}

// limitTiers caps the plan at maxTiers, keeping the final unrestricted tier
func (e *SearchExecutor) limitTiers(tiers []domain.QueryTier) []domain.QueryTier {
	if len(tiers) <= e.maxTiers {
		return tiers
	}
	limited := make([]domain.QueryTier, 0, e.maxTiers)
	limited = append(limited, tiers[:e.maxTiers-1]...)
	return append(limited, tiers[len(tiers)-1])
}

func matchedProduct(c domain.Candidate, hit *domain.ScoredHit) *domain.Product {
	return &domain.Product{
		Title:       c.Title,
		Link:        hit.Link,
		Image:       hit.ImageURL,
		Price:       c.PriceHint,
		Description: hit.Snippet,
		Brand:       displayBrand(c),
		SourceTier:  domain.SourceMatched,
	}
}

func displayBrand(c domain.Candidate) string {
	if c.Brand != "" {
		return c.Brand
	}
	return c.BrandGuess
}
