package usecase

import (
	"errors"
	"sync"

	"github.com/productlens/backend/internal/domain"
)

// CallBudget bounds provider calls across all candidates of one request.
// It also detects a provider that is down: once the first calls all fail at
// the transport level, the rest of the request stops calling it.
type CallBudget struct {
	mu             sync.Mutex
	remaining      int
	downAfter      int
	used           int
	answered       int
	unreachable    int
	unreachableRun int
	down           bool
}

// NewCallBudget creates a budget of max calls. downAfter consecutive
// unreachable failures with no success declare the provider down; zero disables it.
func NewCallBudget(max, downAfter int) *CallBudget {
	return &CallBudget{
		remaining: max,
		downAfter: downAfter,
	}
}

// Acquire reserves one call. It fails with ErrCallBudgetExhausted when the
// budget is spent, or ErrProviderUnreachable once the provider is considered down.
func (b *CallBudget) Acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.down {
		return domain.ErrProviderUnreachable
	}
	if b.remaining <= 0 {
		return domain.ErrCallBudgetExhausted
	}
	b.remaining--
	b.used++
	return nil
}

// Record reports the outcome of a call made after Acquire
func (b *CallBudget) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !errors.Is(err, domain.ErrProviderUnreachable) {
		// Any answer from the provider, even a failing one, proves it is reachable
		b.answered++
		b.unreachableRun = 0
		return
	}

	b.unreachable++
	b.unreachableRun++
	if b.downAfter > 0 && b.answered == 0 && b.unreachableRun >= b.downAfter {
		b.down = true
	}
}

// Used returns the number of calls issued
func (b *CallBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// AllUnreachable reports whether at least one call was made and every call
// failed at the transport level.
func (b *CallBudget) AllUnreachable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used > 0 && b.answered == 0 && b.unreachable == b.used
}
