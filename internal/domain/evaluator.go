package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"mend.dev/pkg/mend/internal/adapter"
	m "mend.dev/pkg/mend/internal/model"
	"mend.dev/pkg/mend/pkg"
)

// Evaluator computes the fitness of candidates. Evaluation failures are
// data, not errors: a crash or timeout of the oracle yields a
// maximal-failure result and the search continues.
type Evaluator interface {
	// Evaluate returns the candidate's fitness, reusing the cached result
	// when an equivalent edit set was seen before. Safe to call concurrently
	// for distinct candidates.
	Evaluate(ctx context.Context, candidate m.Candidate) m.FitnessResult

	// Evaluations counts all Evaluate calls of the run.
	Evaluations() uint64

	// OracleRuns counts actual oracle invocations; at most one per distinct
	// candidate signature.
	OracleRuns() uint64
}

// EvalRecord is the journaled trace of one oracle invocation.
type EvalRecord struct {
	Signature string
	Fitness   float64
	Status    string
	Duration  time.Duration
}

type evaluator struct {
	baseline *m.Baseline
	renderer adapter.Renderer
	oracle   adapter.TestOracle
	fs       adapter.SourceFSAdapter
	suite    []string
	timeout  time.Duration
	journal  pkg.Journal[EvalRecord]

	cache       sync.Map // signature -> m.FitnessResult
	flight      singleflight.Group
	evaluations atomic.Uint64
	oracleRuns  atomic.Uint64
}

// NewEvaluator constructs the cached fitness evaluator. The journal is
// optional; when nil, evaluations are not traced.
func NewEvaluator(
	baseline *m.Baseline,
	renderer adapter.Renderer,
	oracle adapter.TestOracle,
	fs adapter.SourceFSAdapter,
	suite []string,
	timeout time.Duration,
	journal pkg.Journal[EvalRecord],
) Evaluator {
	return &evaluator{
		baseline: baseline,
		renderer: renderer,
		oracle:   oracle,
		fs:       fs,
		suite:    suite,
		timeout:  timeout,
		journal:  journal,
	}
}

func (e *evaluator) Evaluations() uint64 {
	return e.evaluations.Load()
}

func (e *evaluator) OracleRuns() uint64 {
	return e.oracleRuns.Load()
}

// Evaluate canonicalizes the candidate to its signature and runs the oracle
// at most once per signature. Concurrent lookups of the same signature share
// one in-flight execution; unrelated candidates never serialize on each
// other.
func (e *evaluator) Evaluate(ctx context.Context, candidate m.Candidate) m.FitnessResult {
	e.evaluations.Add(1)

	signature := candidate.Signature()

	if cached, ok := e.cache.Load(signature); ok {
		return cached.(m.FitnessResult)
	}

	result, _, _ := e.flight.Do(signature, func() (any, error) {
		// A concurrent flight may have completed between the lookup miss and
		// entering the critical section for this signature.
		if cached, ok := e.cache.Load(signature); ok {
			return cached, nil
		}

		computed := e.run(ctx, signature, candidate)
		e.cache.Store(signature, computed)

		return computed, nil
	})

	return result.(m.FitnessResult)
}

func (e *evaluator) run(ctx context.Context, signature string, candidate m.Candidate) m.FitnessResult {
	started := time.Now()

	e.oracleRuns.Add(1)

	workspace, err := e.renderer.Render(ctx, e.baseline, candidate)
	if err != nil {
		slog.Warn("rendering candidate failed", "signature", signature, "error", err)
		return e.record(signature, e.failEverything(m.EvalCrashed), started)
	}

	defer func() {
		if err := e.fs.RemoveAll(context.WithoutCancel(ctx), workspace); err != nil {
			slog.Error("failed to remove workspace", "workspace", workspace, "error", err)
		}
	}()

	outcomes, err := e.oracle.Run(ctx, workspace, e.suite, e.timeout)

	switch {
	case errors.Is(err, adapter.ErrOracleTimeout):
		slog.Debug("candidate timed out", "signature", signature)
		return e.record(signature, e.failEverything(m.EvalTimedOut), started)
	case err != nil:
		slog.Debug("candidate crashed", "signature", signature, "error", err)
		return e.record(signature, e.failEverything(m.EvalCrashed), started)
	case len(outcomes) == 0:
		return e.record(signature, e.failEverything(m.EvalCrashed), started)
	}

	failing := 0

	for _, outcome := range outcomes {
		if !outcome.Passed {
			failing++
		}
	}

	result := m.FitnessResult{
		Fitness:  float64(failing) / float64(len(outcomes)),
		Status:   m.EvalCompleted,
		Outcomes: outcomes,
	}

	return e.record(signature, result, started)
}

// failEverything builds the maximal-failure result used for crashed or
// timed-out evaluations: every test of the suite counts as failing.
func (e *evaluator) failEverything(status m.EvalStatus) m.FitnessResult {
	outcomes := make([]m.TestOutcome, len(e.suite))
	for i, test := range e.suite {
		outcomes[i] = m.TestOutcome{
			Name:     test,
			Passed:   false,
			Crashed:  status == m.EvalCrashed,
			TimedOut: status == m.EvalTimedOut,
		}
	}

	return m.FitnessResult{Fitness: 1, Status: status, Outcomes: outcomes}
}

func (e *evaluator) record(signature string, result m.FitnessResult, started time.Time) m.FitnessResult {
	if e.journal != nil {
		record := EvalRecord{
			Signature: signature,
			Fitness:   result.Fitness,
			Status:    result.Status.String(),
			Duration:  time.Since(started),
		}

		if err := e.journal.Append(record); err != nil {
			slog.Error("failed to journal evaluation", "signature", signature, "error", err)
		}
	}

	return result
}
