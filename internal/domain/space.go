package domain

import (
	"errors"
	"fmt"
	"math/rand"

	m "mend.dev/pkg/mend/internal/model"
)

// ErrSetup is the base error for fatal failures before the search starts.
var ErrSetup = errors.New("setup failed")

// SpaceOptions scopes the mutation space.
type SpaceOptions struct {
	// LineMode restricts mutation targets to atomic statements.
	LineMode bool
	// SameFileDonors restricts donors to statements from the target's file.
	SameFileDonors bool
	// Exclude lists statement ids that may appear neither as target nor as
	// donor.
	Exclude map[m.StatementID]bool
}

// WeightedOperator pairs an operator with its sampling weight, the
// suspiciousness of its target. The weight biases sampling and never filters
// the pool.
type WeightedOperator struct {
	Op     m.Operator
	Weight float64
}

// Space is the candidate operator pool, built once per run and read-only
// thereafter. Its order is deterministic: target id ascending, then operator
// kind, then donor id ascending.
type Space struct {
	Operators []WeightedOperator

	totalWeight float64
}

var operatorKinds = []m.OperatorKind{m.OpInsertBefore, m.OpInsertAfter, m.OpReplace, m.OpDelete}

// BuildSpace enumerates one operator per legal (kind, target, donor) tuple
// over the baseline, weighted by the target's suspiciousness.
func BuildSpace(baseline *m.Baseline, scores m.SuspiciousnessScore, opts SpaceOptions) (*Space, error) {
	if baseline == nil || baseline.Len() == 0 {
		return nil, fmt.Errorf("%w: baseline holds no statements", ErrSetup)
	}

	space := &Space{}

	for _, target := range baseline.Statements {
		if opts.Exclude[target.ID] {
			continue
		}

		if opts.LineMode && !target.Atomic {
			continue
		}

		weight := scores[target.ID]

		for _, kind := range operatorKinds {
			if kind == m.OpDelete {
				space.add(m.Operator{Kind: kind, Target: target.ID, Donor: m.NoDonor}, weight)
				continue
			}

			for _, donor := range baseline.Statements {
				if donor.ID == target.ID || opts.Exclude[donor.ID] {
					continue
				}

				if opts.SameFileDonors && donor.File != target.File {
					continue
				}

				space.add(m.Operator{Kind: kind, Target: target.ID, Donor: donor.ID}, weight)
			}
		}
	}

	if len(space.Operators) == 0 {
		return nil, fmt.Errorf("%w: empty mutation space", ErrSetup)
	}

	return space, nil
}

func (s *Space) add(op m.Operator, weight float64) {
	s.Operators = append(s.Operators, WeightedOperator{Op: op, Weight: weight})
	s.totalWeight += weight
}

// Len returns the pool size.
func (s *Space) Len() int {
	return len(s.Operators)
}

// Sample draws one operator with probability proportional to its weight.
// When every weight is zero the draw is uniform, so suspiciousness biases the
// search without ever making a statement unreachable.
func (s *Space) Sample(rng *rand.Rand) m.Operator {
	if s.totalWeight <= 0 {
		return s.Operators[rng.Intn(len(s.Operators))].Op
	}

	roll := rng.Float64() * s.totalWeight
	for _, weighted := range s.Operators {
		roll -= weighted.Weight
		if roll < 0 {
			return weighted.Op
		}
	}

	return s.Operators[len(s.Operators)-1].Op
}

// SwapDonor picks a different donor for the operator's kind and target. It
// reports false when the pool holds no alternative.
func (s *Space) SwapDonor(rng *rand.Rand, op m.Operator) (m.Operator, bool) {
	if !op.HasDonor() {
		return op, false
	}

	alternatives := make([]m.Operator, 0)

	for _, weighted := range s.Operators {
		candidate := weighted.Op
		if candidate.Kind == op.Kind && candidate.Target == op.Target && candidate.Donor != op.Donor {
			alternatives = append(alternatives, candidate)
		}
	}

	if len(alternatives) == 0 {
		return op, false
	}

	return alternatives[rng.Intn(len(alternatives))], true
}

// Restrict returns the deterministic sub-pool whose targets are among the
// given statement ids, preserving the canonical order.
func (s *Space) Restrict(targets map[m.StatementID]bool) []m.Operator {
	ops := make([]m.Operator, 0)

	for _, weighted := range s.Operators {
		if targets[weighted.Op.Target] {
			ops = append(ops, weighted.Op)
		}
	}

	return ops
}
