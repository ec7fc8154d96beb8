package domain

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend.dev/pkg/mend/internal/adapter"
	m "mend.dev/pkg/mend/internal/model"
)

type fakeExtractor struct {
	baseline *m.Baseline
}

func (e *fakeExtractor) Extract(_ context.Context, _ m.Path, _ []string) (*m.Baseline, error) {
	return e.baseline, nil
}

type fakeCoverage struct {
	records []m.CoverageRecord
}

func (c *fakeCoverage) Collect(_ context.Context, _ *m.Baseline) ([]m.CoverageRecord, error) {
	return c.records, nil
}

func repairBaseline() *m.Baseline {
	lines := []string{"alpha", "beta", "gamma"}

	statements := make([]m.Statement, len(lines))
	for i, line := range lines {
		statements[i] = m.Statement{
			ID:        m.StatementID(i),
			File:      "main.go",
			StartLine: i + 1,
			EndLine:   i + 1,
			Text:      line,
			Atomic:    true,
		}
	}

	return m.NewBaseline("/project", statements, map[m.Path][]string{"main.go": lines})
}

func TestRepair_EndToEnd(t *testing.T) {
	baseline := repairBaseline()
	suite := []string{"TestFail", "TestPass"}

	// The failing test executes statement 1; replacing it with statement 0
	// makes the whole suite pass.
	fixing := m.NewCandidate(m.Operator{Kind: m.OpReplace, Target: 1, Donor: 0})

	oracle := &sigOracle{
		suite: suite,
		responses: map[string]oracleResponse{
			fixing.Signature(): {outcomes: outcomes(suite, 0)},
		},
	}

	outputDir := t.TempDir()
	store := adapter.NewYAMLReportStore(adapter.NewLocalSourceFSAdapter())

	repairer := NewRepairer(RepairDeps{
		Extractor: &fakeExtractor{baseline: baseline},
		Coverage: &fakeCoverage{records: []m.CoverageRecord{
			{Test: "TestFail", Passed: false, Covered: []m.StatementID{1}},
			{Test: "TestPass", Passed: true, Covered: []m.StatementID{0, 2}},
		}},
		Renderer: &sigRenderer{},
		Oracle:   oracle,
		FS:       nopFS{},
		Differ:   adapter.NewUnifiedDiffExporter(),
		Store:    store,
	}, RepairConfig{
		Strategy:    StrategyBounded,
		TestTimeout: time.Second,
		OutputDir:   m.Path(outputDir),
		Bounded:     BoundedConfig{MaxOperators: 1},
	})

	patches, err := repairer.Repair(context.Background(), baseline.Root)
	require.NoError(t, err)

	require.Len(t, patches, 1)
	assert.Equal(t, fixing.Signature(), patches[0].Candidate.Signature())
	assert.Contains(t, patches[0].Diff, "-beta")
	assert.Contains(t, patches[0].Diff, "+alpha")

	reports, err := store.List(context.Background(), m.Path(outputDir))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StrategyBounded, reports[0].Strategy)
	require.Len(t, reports[0].Patches, 1)
	assert.Equal(t, fixing.Signature(), reports[0].Patches[0].Signature)
	assert.Positive(t, reports[0].OracleRuns)
}

// TestRepair_MedianExample drives the full pipeline with the real adapters
// against the examples/median fixture. The seeded fault is the wrong return
// in one branch; the repair is a single insertion of "return x" before it,
// which the minimizer leaves untouched.
func TestRepair_MedianExample(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end repair in short mode")
	}

	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}

	root, err := filepath.Abs(filepath.Join("..", "..", "examples", "median"))
	require.NoError(t, err)

	fs := adapter.NewLocalSourceFSAdapter()
	oracle := adapter.NewGoTestOracle()

	repairer := NewRepairer(RepairDeps{
		Extractor: adapter.NewGoStatementExtractor(fs),
		Coverage:  adapter.NewGoCoverCollector(oracle, time.Minute),
		Renderer:  adapter.NewLineRenderer(fs),
		Oracle:    oracle,
		FS:        fs,
		Differ:    adapter.NewUnifiedDiffExporter(),
	}, RepairConfig{
		Strategy:    StrategyBounded,
		Formula:     "ochiai",
		TestTimeout: time.Minute,
		Bounded:     BoundedConfig{MaxOperators: 1, TopStatements: 2},
	})

	patches, err := repairer.Repair(context.Background(), m.Path(root))
	require.NoError(t, err)

	require.Len(t, patches, 1)

	ops := patches[0].Candidate.Canonical()
	require.Len(t, ops, 1)
	assert.Equal(t, m.OpInsertBefore, ops[0].Kind)

	assert.Contains(t, patches[0].Diff, "median.go")
	assert.Contains(t, patches[0].Diff, "+\t\t\treturn x")
}

func TestRepair_GeneticStrategyFindsRepair(t *testing.T) {
	baseline := repairBaseline()
	suite := []string{"TestFail", "TestPass"}

	fixing := m.Operator{Kind: m.OpReplace, Target: 1, Donor: 0}

	oracle := &sigOracle{
		suite: suite,
		responses: map[string]oracleResponse{
			m.NewCandidate(fixing).Signature(): {outcomes: outcomes(suite, 0)},
		},
		fallback: func(string) oracleResponse {
			return oracleResponse{outcomes: outcomes(suite, 1)}
		},
	}

	repairer := NewRepairer(RepairDeps{
		Extractor: &fakeExtractor{baseline: baseline},
		Coverage: &fakeCoverage{records: []m.CoverageRecord{
			{Test: "TestFail", Passed: false, Covered: []m.StatementID{1}},
			{Test: "TestPass", Passed: true, Covered: []m.StatementID{0, 2}},
		}},
		Renderer: &sigRenderer{},
		Oracle:   oracle,
		FS:       nopFS{},
		Differ:   adapter.NewUnifiedDiffExporter(),
	}, RepairConfig{
		Strategy:    StrategyGenetic,
		TestTimeout: time.Second,
		Genetic: GeneticConfig{
			PopulationSize: 30,
			Generations:    60,
			Seed:           4,
		},
	})

	patches, err := repairer.Repair(context.Background(), baseline.Root)
	require.NoError(t, err)

	require.NotEmpty(t, patches)

	for _, patch := range patches {
		assert.Equal(t, m.NewCandidate(fixing).Signature(), patch.Candidate.Signature())
	}
}

func TestRepair_NoRepairWithinBudget(t *testing.T) {
	baseline := repairBaseline()
	suite := []string{"TestFail", "TestPass"}

	oracle := &sigOracle{suite: suite, fallback: func(string) oracleResponse {
		return oracleResponse{outcomes: outcomes(suite, 1)}
	}}

	repairer := NewRepairer(RepairDeps{
		Extractor: &fakeExtractor{baseline: baseline},
		Coverage: &fakeCoverage{records: []m.CoverageRecord{
			{Test: "TestFail", Passed: false, Covered: []m.StatementID{1}},
			{Test: "TestPass", Passed: true, Covered: []m.StatementID{0, 2}},
		}},
		Renderer: &sigRenderer{},
		Oracle:   oracle,
		FS:       nopFS{},
	}, RepairConfig{
		Strategy:    StrategyBounded,
		TestTimeout: time.Second,
		Bounded:     BoundedConfig{MaxOperators: 1},
	})

	patches, err := repairer.Repair(context.Background(), baseline.Root)
	require.NoError(t, err)
	assert.Empty(t, patches)
}

func TestRepair_NoFailingTestsIsSetupError(t *testing.T) {
	baseline := repairBaseline()

	repairer := NewRepairer(RepairDeps{
		Extractor: &fakeExtractor{baseline: baseline},
		Coverage: &fakeCoverage{records: []m.CoverageRecord{
			{Test: "TestPass", Passed: true, Covered: []m.StatementID{0}},
		}},
		Renderer: &sigRenderer{},
		Oracle:   &sigOracle{suite: []string{"TestPass"}},
		FS:       nopFS{},
	}, RepairConfig{Strategy: StrategyBounded})

	_, err := repairer.Repair(context.Background(), baseline.Root)
	require.ErrorIs(t, err, ErrNoFailingTests)
}

func TestRepair_UnknownStrategy(t *testing.T) {
	baseline := repairBaseline()

	repairer := NewRepairer(RepairDeps{
		Extractor: &fakeExtractor{baseline: baseline},
		Coverage: &fakeCoverage{records: []m.CoverageRecord{
			{Test: "TestFail", Passed: false, Covered: []m.StatementID{1}},
		}},
		Renderer: &sigRenderer{},
		Oracle:   &sigOracle{suite: []string{"TestFail"}},
		FS:       nopFS{},
	}, RepairConfig{Strategy: "simulated-annealing"})

	_, err := repairer.Repair(context.Background(), baseline.Root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown search strategy")
}
