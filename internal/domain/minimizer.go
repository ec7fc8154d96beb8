package domain

import (
	"context"
	"fmt"
	"log/slog"

	m "mend.dev/pkg/mend/internal/model"
)

// Minimizer shrinks a successful candidate to a 1-minimal operator subset
// using delta debugging. It runs strictly sequentially: every chunk decision
// depends on the previous trial.
type Minimizer struct {
	eval Evaluator
}

// NewMinimizer constructs a Minimizer on top of the shared evaluator, whose
// cache makes re-testing an already-seen subset free.
func NewMinimizer(eval Evaluator) *Minimizer {
	return &Minimizer{eval: eval}
}

// Minimize returns a new candidate whose operators are a subset of the
// input's, still reach fitness zero, and cannot lose any single operator
// without losing that property. The input candidate is never mutated.
func (mz *Minimizer) Minimize(ctx context.Context, candidate m.Candidate) (m.Candidate, error) {
	if !mz.repairs(ctx, candidate) {
		return m.Candidate{}, fmt.Errorf("candidate %q does not repair the fault", candidate.Signature())
	}

	ops := candidate.Canonical()
	n := 2

	for len(ops) > 1 {
		reduced := false

		for chunk := 0; chunk < n; chunk++ {
			if err := ctx.Err(); err != nil {
				return m.Candidate{}, err
			}

			complement := withoutChunk(ops, chunk, n)
			if len(complement) == len(ops) {
				continue
			}

			// A trial that crashes or times out simply does not preserve the
			// repair; the reduction is rejected, never escalated.
			if mz.repairs(ctx, m.NewCandidate(complement...)) {
				ops = complement
				n = max(n-1, 2)
				reduced = true

				break
			}
		}

		if !reduced {
			if n >= len(ops) {
				break
			}

			n = min(n*2, len(ops))
		}
	}

	slog.Debug("minimized candidate",
		"from", candidate.Len(), "to", len(ops))

	return m.NewCandidate(ops...), nil
}

func (mz *Minimizer) repairs(ctx context.Context, candidate m.Candidate) bool {
	return mz.eval.Evaluate(ctx, candidate).Repairs()
}

// withoutChunk removes the chunk-th of n nearly equal slices of ops.
func withoutChunk(ops []m.Operator, chunk, n int) []m.Operator {
	start := chunk * len(ops) / n
	end := (chunk + 1) * len(ops) / n

	complement := make([]m.Operator, 0, len(ops)-(end-start))
	complement = append(complement, ops[:start]...)
	complement = append(complement, ops[end:]...)

	return complement
}
