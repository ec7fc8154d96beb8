package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mend.dev/pkg/mend/internal/model"
)

func newTestBounded(t *testing.T, oracle *sigOracle, scores m.SuspiciousnessScore, cfg BoundedConfig) *BoundedStrategy {
	t.Helper()

	baseline := testBaseline(3)

	space, err := BuildSpace(baseline, scores, SpaceOptions{})
	require.NoError(t, err)

	eval := testEvaluator(baseline, &sigRenderer{}, oracle)

	return NewBoundedStrategy(space, scores, eval, cfg)
}

func TestBounded_DeterministicEnumeration(t *testing.T) {
	scores := m.SuspiciousnessScore{0: 0.5, 1: 1}

	run := func() []string {
		oracle := &sigOracle{suite: testSuite}
		strategy := newTestBounded(t, oracle, scores, BoundedConfig{MaxOperators: 2})

		_, err := RunSearch(context.Background(), strategy)
		require.NoError(t, err)

		return oracle.runs
	}

	first := run()
	second := run()

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestBounded_ExhaustionYieldsEmpty(t *testing.T) {
	oracle := &sigOracle{suite: testSuite}
	strategy := newTestBounded(t, oracle, m.SuspiciousnessScore{0: 1}, BoundedConfig{MaxOperators: 1})

	successes, err := RunSearch(context.Background(), strategy)
	require.NoError(t, err)

	assert.Empty(t, successes)
	assert.True(t, strategy.Done())

	// Pool: one delete plus three kinds with two donors each, all size one.
	assert.Equal(t, uint64(7), strategy.Evaluated())
}

func TestBounded_StopsAtFirstRepair(t *testing.T) {
	fixing := m.NewCandidate(m.Operator{Kind: m.OpInsertBefore, Target: 0, Donor: 2})

	oracle := &sigOracle{suite: testSuite, responses: map[string]oracleResponse{
		fixing.Signature(): {outcomes: outcomes(testSuite, 0)},
	}}
	strategy := newTestBounded(t, oracle, m.SuspiciousnessScore{0: 1}, BoundedConfig{MaxOperators: 1})

	successes, err := RunSearch(context.Background(), strategy)
	require.NoError(t, err)

	require.Len(t, successes, 1)
	assert.Equal(t, fixing.Signature(), successes[0].Signature())
}

func TestBounded_GrowsToLargerCombinations(t *testing.T) {
	// The repair needs two simultaneous edits; no single operator suffices.
	fixing := m.NewCandidate(
		m.Operator{Kind: m.OpDelete, Target: 0, Donor: m.NoDonor},
		m.Operator{Kind: m.OpDelete, Target: 1, Donor: m.NoDonor},
	)

	oracle := &sigOracle{suite: testSuite, responses: map[string]oracleResponse{
		fixing.Signature(): {outcomes: outcomes(testSuite, 0)},
	}}
	strategy := newTestBounded(t, oracle, m.SuspiciousnessScore{0: 1, 1: 0.5}, BoundedConfig{MaxOperators: 2})

	successes, err := RunSearch(context.Background(), strategy)
	require.NoError(t, err)

	require.Len(t, successes, 1)
	assert.Equal(t, fixing.Signature(), successes[0].Signature())
}

func TestBounded_RestrictsPoolToTopStatements(t *testing.T) {
	oracle := &sigOracle{suite: testSuite}
	strategy := newTestBounded(t, oracle, m.SuspiciousnessScore{2: 1, 0: 0.1}, BoundedConfig{
		MaxOperators:  1,
		TopStatements: 1,
	})

	_, err := RunSearch(context.Background(), strategy)
	require.NoError(t, err)

	for _, op := range strategy.pool {
		assert.Equal(t, m.StatementID(2), op.Target)
	}
}

func TestBounded_EmptyPoolIsDoneImmediately(t *testing.T) {
	oracle := &sigOracle{suite: testSuite}
	strategy := newTestBounded(t, oracle, m.SuspiciousnessScore{}, BoundedConfig{MaxOperators: 1})

	assert.True(t, strategy.Done())
	assert.Empty(t, strategy.Best())
}
