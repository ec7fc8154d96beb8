package model

import (
	"sort"
	"strings"
)

// Candidate is one repair attempt: an ordered sequence of operators against
// the baseline. Candidates own their operator slice but never the statements
// the operators reference.
type Candidate struct {
	Operators []Operator
}

// NewCandidate builds a candidate from the given operators. The slice is
// copied so callers can keep mutating their own.
func NewCandidate(operators ...Operator) Candidate {
	ops := make([]Operator, len(operators))
	copy(ops, operators)

	return Candidate{Operators: ops}
}

// Len returns the number of operators in the candidate.
func (c Candidate) Len() int {
	return len(c.Operators)
}

// Clone returns a deep copy of the candidate.
func (c Candidate) Clone() Candidate {
	return NewCandidate(c.Operators...)
}

// Append returns a new candidate with the operator appended; the receiver is
// left untouched.
func (c Candidate) Append(op Operator) Candidate {
	ops := make([]Operator, 0, len(c.Operators)+1)
	ops = append(ops, c.Operators...)
	ops = append(ops, op)

	return Candidate{Operators: ops}
}

// Canonical collapses operators sharing a target to the later one in the
// sequence. Every operator addresses the original baseline position, so the
// last edit of a target is the one that takes effect when rendering.
func (c Candidate) Canonical() []Operator {
	byTarget := make(map[StatementID]Operator, len(c.Operators))
	for _, op := range c.Operators {
		byTarget[op.Target] = op
	}

	ops := make([]Operator, 0, len(byTarget))
	for _, op := range byTarget {
		ops = append(ops, op)
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].Less(ops[j]) })

	return ops
}

// Signature returns the canonical identity of the candidate's edit set.
// Candidates with equal signatures render the same program and share one
// fitness result.
func (c Candidate) Signature() string {
	ops := c.Canonical()
	parts := make([]string, len(ops))

	for i, op := range ops {
		parts[i] = op.String()
	}

	return strings.Join(parts, "|")
}
