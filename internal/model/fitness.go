package model

import "sort"

// EvalStatus distinguishes how a fitness evaluation ended.
type EvalStatus int

// Available EvalStatus values.
const (
	// EvalCompleted indicates the oracle ran the whole suite.
	EvalCompleted EvalStatus = iota
	// EvalTimedOut indicates the oracle exceeded its per-invocation timeout.
	EvalTimedOut
	// EvalCrashed indicates the oracle aborted without per-test outcomes.
	EvalCrashed
)

// String returns the human-readable status name.
func (s EvalStatus) String() string {
	switch s {
	case EvalCompleted:
		return "completed"
	case EvalTimedOut:
		return "timed-out"
	case EvalCrashed:
		return "crashed"
	}

	return "unknown"
}

// TestOutcome is the oracle's verdict for a single test case.
type TestOutcome struct {
	Name     string
	Passed   bool
	Crashed  bool
	TimedOut bool
}

// FitnessResult is the immutable outcome of evaluating one candidate:
// per-test verdicts, the derived scalar fitness (lower is better, zero means
// every test passes), and how the evaluation ended.
type FitnessResult struct {
	Fitness  float64
	Status   EvalStatus
	Outcomes []TestOutcome
}

// Repairs reports whether the result denotes a full repair.
func (r FitnessResult) Repairs() bool {
	return r.Status == EvalCompleted && r.Fitness == 0
}

// CoverageRecord holds the coverage and verdict of one test against the
// baseline program.
type CoverageRecord struct {
	Test    string
	Passed  bool
	Covered []StatementID
}

// SuspiciousnessScore maps statement ids to fault suspiciousness in [0, 1].
// It is computed once per run and read-only afterwards.
type SuspiciousnessScore map[StatementID]float64

// Ranked returns statement ids ordered by descending score; ties break by
// ascending id so the order is deterministic.
func (s SuspiciousnessScore) Ranked() []StatementID {
	ids := make([]StatementID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if s[ids[i]] != s[ids[j]] {
			return s[ids[i]] > s[ids[j]]
		}

		return ids[i] < ids[j]
	})

	return ids
}
