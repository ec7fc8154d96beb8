package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mend.dev/pkg/mend/internal/adapter"
	"mend.dev/pkg/mend/internal/controller"
	m "mend.dev/pkg/mend/internal/model"
	"mend.dev/pkg/mend/pkg"
)

// Strategy names accepted by RepairConfig.
const (
	StrategyGenetic = "genetic"
	StrategyBounded = "bounded"
)

// Patch is one minimized repair: the candidate plus its rendered diff.
type Patch struct {
	Candidate m.Candidate
	Diff      string
}

// RepairConfig configures one repair run.
type RepairConfig struct {
	Strategy          string
	Formula           string
	Excludes          []string
	ExcludeStatements []m.StatementID
	LineMode          bool
	SameFileDonors    bool
	TestTimeout       time.Duration
	OutputDir         m.Path
	Genetic           GeneticConfig
	Bounded           BoundedConfig
}

// RepairDeps are the collaborators of the repair pipeline. Store, UI and
// Journal are optional.
type RepairDeps struct {
	Extractor adapter.StatementExtractor
	Coverage  adapter.CoverageCollector
	Renderer  adapter.Renderer
	Oracle    adapter.TestOracle
	FS        adapter.SourceFSAdapter
	Differ    adapter.DiffExporter
	Store     adapter.ReportStore
	UI        controller.UI
	Journal   pkg.Journal[EvalRecord]
}

// Repairer wires localization, mutation space construction, search and
// minimization into the produced repair surface.
type Repairer struct {
	deps RepairDeps
	cfg  RepairConfig
}

// NewRepairer constructs a Repairer.
func NewRepairer(deps RepairDeps, cfg RepairConfig) *Repairer {
	return &Repairer{deps: deps, cfg: cfg}
}

// Repair runs the whole pipeline against the program under root and returns
// the minimized patches sorted by operator count ascending, then discovery
// order. An exhausted search budget yields an empty list and a nil error.
func (r *Repairer) Repair(ctx context.Context, root m.Path) ([]Patch, error) {
	started := time.Now()

	baseline, records, err := r.prepare(ctx, root)
	if err != nil {
		return nil, err
	}

	suite := make([]string, 0, len(records))
	failing := 0

	for _, record := range records {
		suite = append(suite, record.Test)

		if !record.Passed {
			failing++
		}
	}

	r.displayBaseline(ctx, baseline, suite, failing)

	formula, err := FormulaByName(r.cfg.Formula)
	if err != nil {
		return nil, err
	}

	scores, err := Localize(records, formula)
	if err != nil {
		return nil, err
	}

	space, err := BuildSpace(baseline, scores, SpaceOptions{
		LineMode:       r.cfg.LineMode,
		SameFileDonors: r.cfg.SameFileDonors,
		Exclude:        excludeSet(r.cfg.ExcludeStatements),
	})
	if err != nil {
		return nil, err
	}

	slog.Info("mutation space built",
		"statements", baseline.Len(), "operators", space.Len(), "tests", len(suite), "failing", failing)

	evaluator := NewEvaluator(baseline, r.deps.Renderer, r.deps.Oracle, r.deps.FS,
		suite, r.cfg.TestTimeout, r.deps.Journal)

	strategy, err := r.strategy(space, scores, evaluator)
	if err != nil {
		return nil, err
	}

	successes, err := RunSearch(ctx, strategy)
	if err != nil {
		return nil, err
	}

	patches, err := r.minimizeAll(ctx, baseline, evaluator, successes)
	if err != nil {
		return nil, err
	}

	r.displayPatches(ctx, patches)

	if err := r.saveReport(ctx, root, baseline, suite, failing, evaluator, patches, started); err != nil {
		slog.Error("failed to persist run report", "error", err)
	}

	return patches, nil
}

func (r *Repairer) prepare(ctx context.Context, root m.Path) (*m.Baseline, []m.CoverageRecord, error) {
	baseline, err := r.deps.Extractor.Extract(ctx, root, r.cfg.Excludes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}

	if baseline.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: baseline holds no statements", ErrSetup)
	}

	records, err := r.deps.Coverage.Collect(ctx, baseline)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: collect coverage: %v", ErrSetup, err)
	}

	return baseline, records, nil
}

func (r *Repairer) strategy(space *Space, scores m.SuspiciousnessScore, evaluator Evaluator) (Strategy, error) {
	switch r.cfg.Strategy {
	case "", StrategyGenetic:
		cfg := r.cfg.Genetic

		if r.deps.UI != nil {
			ui := r.deps.UI
			inner := cfg.Observer

			cfg.Observer = func(stats GenerationStats) {
				ui.DisplayGeneration(context.Background(),
					stats.Generation, stats.Budget, stats.BestFitness, stats.Evaluations)

				if inner != nil {
					inner(stats)
				}
			}
		}

		return NewGeneticStrategy(space, evaluator, cfg), nil
	case StrategyBounded:
		return NewBoundedStrategy(space, scores, evaluator, r.cfg.Bounded), nil
	}

	return nil, fmt.Errorf("unknown search strategy: %q", r.cfg.Strategy)
}

// minimizeAll shrinks every success to a 1-minimal patch, deduplicates by
// signature and sorts by operator count while preserving discovery order
// within equal counts.
func (r *Repairer) minimizeAll(ctx context.Context, baseline *m.Baseline, evaluator Evaluator, successes []m.Candidate) ([]Patch, error) {
	minimizer := NewMinimizer(evaluator)

	seen := make(map[string]bool)
	candidates := make([]m.Candidate, 0, len(successes))

	for _, success := range successes {
		minimized, err := minimizer.Minimize(ctx, success)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}

			slog.Warn("skipping non-minimizable candidate", "signature", success.Signature(), "error", err)

			continue
		}

		signature := minimized.Signature()
		if seen[signature] {
			continue
		}

		seen[signature] = true

		candidates = append(candidates, minimized)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Canonical()) < len(candidates[j].Canonical())
	})

	patches := make([]Patch, 0, len(candidates))

	for _, candidate := range candidates {
		diff := ""

		if r.deps.Differ != nil {
			text, err := r.deps.Differ.ToPatchText(ctx, baseline, candidate)
			if err != nil {
				return nil, fmt.Errorf("render patch text: %w", err)
			}

			diff = text
		}

		patches = append(patches, Patch{Candidate: candidate, Diff: diff})
	}

	return patches, nil
}

func excludeSet(ids []m.StatementID) map[m.StatementID]bool {
	if len(ids) == 0 {
		return nil
	}

	set := make(map[m.StatementID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	return set
}

func (r *Repairer) displayBaseline(ctx context.Context, baseline *m.Baseline, suite []string, failing int) {
	if r.deps.UI == nil {
		return
	}

	r.deps.UI.DisplayBaseline(ctx, baseline.Len(), len(suite), failing)
}

func (r *Repairer) displayPatches(ctx context.Context, patches []Patch) {
	if r.deps.UI == nil {
		return
	}

	if len(patches) == 0 {
		r.deps.UI.DisplayNoRepair(ctx)
		return
	}

	views := make([]controller.PatchView, 0, len(patches))

	for i, patch := range patches {
		ops := patch.Candidate.Canonical()

		names := make([]string, len(ops))
		for j, op := range ops {
			names[j] = op.String()
		}

		views = append(views, controller.PatchView{
			Index:     i + 1,
			Operators: names,
			Diff:      patch.Diff,
		})
	}

	if err := r.deps.UI.DisplayPatches(ctx, views); err != nil {
		slog.Error("failed to display patches", "error", err)
	}
}

func (r *Repairer) saveReport(
	ctx context.Context,
	root m.Path,
	baseline *m.Baseline,
	suite []string,
	failing int,
	evaluator Evaluator,
	patches []Patch,
	started time.Time,
) error {
	if r.deps.Store == nil || r.cfg.OutputDir == "" {
		return nil
	}

	report := adapter.RunReport{
		RunID:       adapter.NewRunID(),
		CreatedAt:   time.Now().UTC(),
		Root:        string(root),
		Strategy:    r.strategyName(),
		Statements:  baseline.Len(),
		Tests:       len(suite),
		FailingAt0:  failing,
		OracleRuns:  evaluator.OracleRuns(),
		Evaluations: evaluator.Evaluations(),
		Elapsed:     time.Since(started),
	}

	for _, patch := range patches {
		ops := patch.Candidate.Canonical()

		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = op.String()
		}

		report.Patches = append(report.Patches, adapter.PatchReport{
			Signature: patch.Candidate.Signature(),
			Operators: names,
			Diff:      patch.Diff,
		})
	}

	path, err := r.deps.Store.Save(ctx, r.cfg.OutputDir, report)
	if err != nil {
		return err
	}

	slog.Info("run report saved", "path", path)

	return nil
}

func (r *Repairer) strategyName() string {
	if r.cfg.Strategy == "" {
		return StrategyGenetic
	}

	return r.cfg.Strategy
}
