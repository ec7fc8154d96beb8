package domain

import (
	"context"

	m "mend.dev/pkg/mend/internal/model"
)

// BoundedConfig tunes the deterministic bounded-exhaustive strategy.
type BoundedConfig struct {
	// MaxOperators is the maximum number of operators per candidate (k).
	MaxOperators int
	// TopStatements bounds the pool to the highest-ranked statements.
	TopStatements int
	// Observer, when set, is called after every evaluated candidate.
	Observer func(evaluated uint64)
}

func (c BoundedConfig) withDefaults() BoundedConfig {
	if c.MaxOperators <= 0 {
		c.MaxOperators = 1
	}

	if c.TopStatements <= 0 {
		c.TopStatements = 10
	}

	return c
}

// BoundedStrategy enumerates every candidate of up to k operators over the
// pool restricted to the highest-ranked statements, in a fixed order: pool
// order is target id ascending, then operator kind, then donor id, and
// combinations are generated in lexicographic index order. Identical inputs
// always yield identical output, with no randomness and no population.
type BoundedStrategy struct {
	cfg  BoundedConfig
	pool []m.Operator
	eval Evaluator

	size      int
	indices   []int
	evaluated uint64
	successes []m.Candidate
	done      bool
}

// NewBoundedStrategy restricts the space to the top-ranked statements and
// prepares the deterministic enumeration.
func NewBoundedStrategy(space *Space, scores m.SuspiciousnessScore, eval Evaluator, cfg BoundedConfig) *BoundedStrategy {
	cfg = cfg.withDefaults()

	ranked := scores.Ranked()
	if len(ranked) > cfg.TopStatements {
		ranked = ranked[:cfg.TopStatements]
	}

	targets := make(map[m.StatementID]bool, len(ranked))
	for _, id := range ranked {
		targets[id] = true
	}

	pool := space.Restrict(targets)

	strategy := &BoundedStrategy{
		cfg:  cfg,
		pool: pool,
		eval: eval,
		size: 1,
	}

	if len(pool) == 0 {
		strategy.done = true
	} else {
		strategy.indices = []int{0}
	}

	return strategy
}

// Done implements Strategy.
func (b *BoundedStrategy) Done() bool {
	return b.done
}

// Best implements Strategy. It is a singleton on success: the enumeration
// stops at the first candidate reaching fitness zero.
func (b *BoundedStrategy) Best() []m.Candidate {
	return b.successes
}

// Evaluated returns the number of candidates tried so far.
func (b *BoundedStrategy) Evaluated() uint64 {
	return b.evaluated
}

// Step evaluates the current candidate and advances the enumeration.
func (b *BoundedStrategy) Step(ctx context.Context) error {
	if b.done {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ops := make([]m.Operator, len(b.indices))
	for i, index := range b.indices {
		ops[i] = b.pool[index]
	}

	candidate := m.NewCandidate(ops...)

	result := b.eval.Evaluate(ctx, candidate)
	b.evaluated++

	if b.cfg.Observer != nil {
		b.cfg.Observer(b.evaluated)
	}

	if result.Repairs() {
		b.successes = []m.Candidate{candidate}
		b.done = true

		return nil
	}

	if !b.advance() {
		b.done = true
	}

	return nil
}

// advance moves to the next combination of the current size, growing the
// size when the current one is exhausted. Reports false when the whole
// enumeration is spent.
func (b *BoundedStrategy) advance() bool {
	n := len(b.pool)

	// Increment the combination like a counter with strictly increasing
	// digits.
	i := len(b.indices) - 1
	for i >= 0 {
		b.indices[i]++
		if b.indices[i] <= n-(len(b.indices)-i) {
			for j := i + 1; j < len(b.indices); j++ {
				b.indices[j] = b.indices[j-1] + 1
			}

			return true
		}

		i--
	}

	b.size++
	if b.size > b.cfg.MaxOperators || b.size > n {
		return false
	}

	b.indices = make([]int, b.size)
	for j := range b.indices {
		b.indices[j] = j
	}

	return true
}
