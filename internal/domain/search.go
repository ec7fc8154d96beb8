package domain

import (
	"context"

	m "mend.dev/pkg/mend/internal/model"
)

// Strategy is one search algorithm over the mutation space. Implementations
// keep their own state; the driver advances them step by step so each
// algorithm's invariants stay independently testable.
type Strategy interface {
	// Step advances the search by one unit of work: one generation for the
	// genetic strategy, one candidate for the bounded strategy.
	Step(ctx context.Context) error

	// Done reports whether the search finished, either by success or by
	// exhausting its budget.
	Done() bool

	// Best returns the zero-fitness candidates found, in discovery order.
	// Empty when the budget ran out without a repair.
	Best() []m.Candidate
}

// RunSearch drives a strategy to completion and returns its results. Budget
// exhaustion without a repair is not an error; the result list is empty.
func RunSearch(ctx context.Context, strategy Strategy) ([]m.Candidate, error) {
	for !strategy.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := strategy.Step(ctx); err != nil {
			return nil, err
		}
	}

	return strategy.Best(), nil
}
