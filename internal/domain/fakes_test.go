package domain

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	m "mend.dev/pkg/mend/internal/model"
)

// workspacePrefix marks the fake workspaces handed out by sigRenderer.
const workspacePrefix = "ws:"

// sigRenderer renders a candidate into a fake workspace named after its
// signature, so the fake oracle can key its verdicts on the edit set.
type sigRenderer struct {
	fail map[string]bool

	mu      sync.Mutex
	renders []string
}

func (r *sigRenderer) Render(_ context.Context, _ *m.Baseline, candidate m.Candidate) (m.Path, error) {
	signature := candidate.Signature()

	r.mu.Lock()
	r.renders = append(r.renders, signature)
	r.mu.Unlock()

	if r.fail[signature] {
		return "", os.ErrInvalid
	}

	return m.Path(workspacePrefix + signature), nil
}

type oracleResponse struct {
	outcomes []m.TestOutcome
	err      error
}

// sigOracle resolves verdicts from the candidate signature embedded in the
// workspace path. Unknown signatures fall back to the fallback function, or
// to failing the whole suite when no fallback is set.
type sigOracle struct {
	suite     []string
	responses map[string]oracleResponse
	fallback  func(signature string) oracleResponse

	mu   sync.Mutex
	runs []string
}

func (o *sigOracle) List(_ context.Context, _ m.Path) ([]string, error) {
	return o.suite, nil
}

func (o *sigOracle) Run(_ context.Context, dir m.Path, tests []string, _ time.Duration) ([]m.TestOutcome, error) {
	signature := strings.TrimPrefix(string(dir), workspacePrefix)

	o.mu.Lock()
	o.runs = append(o.runs, signature)
	o.mu.Unlock()

	if response, ok := o.responses[signature]; ok {
		return response.outcomes, response.err
	}

	if o.fallback != nil {
		response := o.fallback(signature)
		return response.outcomes, response.err
	}

	return outcomes(tests, len(tests)), nil
}

func (o *sigOracle) runCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.runs)
}

// outcomes builds a suite verdict where the first `failing` tests fail.
func outcomes(tests []string, failing int) []m.TestOutcome {
	result := make([]m.TestOutcome, len(tests))
	for i, test := range tests {
		result[i] = m.TestOutcome{Name: test, Passed: i >= failing}
	}

	return result
}

// nopFS satisfies the filesystem dependency of the evaluator; fake workspaces
// need no cleanup.
type nopFS struct{}

func (nopFS) Walk(_ context.Context, _ m.Path, _ func(path m.Path, isDir bool) error) error {
	return nil
}

func (nopFS) ReadFile(_ context.Context, _ m.Path) ([]byte, error) { return nil, os.ErrNotExist }

func (nopFS) WriteFile(_ context.Context, _ m.Path, _ []byte, _ os.FileMode) error { return nil }

func (nopFS) CreateTempDir(_ context.Context, _ string) (m.Path, error) { return "", os.ErrInvalid }

func (nopFS) RemoveAll(_ context.Context, _ m.Path) error { return nil }

func (nopFS) CopyDir(_ context.Context, _, _ m.Path) error { return nil }

func (nopFS) RelPath(_ context.Context, _, _ m.Path) (m.Path, error) { return "", nil }

func (nopFS) JoinPath(_ context.Context, elem ...string) m.Path {
	return m.Path(strings.Join(elem, "/"))
}

// testBaseline builds a single-file baseline of n one-line statements.
func testBaseline(n int) *m.Baseline {
	statements := make([]m.Statement, n)
	lines := make([]string, n)

	for i := 0; i < n; i++ {
		lines[i] = "line"
		statements[i] = m.Statement{
			ID:        m.StatementID(i),
			File:      "main.go",
			StartLine: i + 1,
			EndLine:   i + 1,
			Text:      lines[i],
			Atomic:    true,
		}
	}

	return m.NewBaseline("/project", statements, map[m.Path][]string{"main.go": lines})
}

func testEvaluator(baseline *m.Baseline, renderer *sigRenderer, oracle *sigOracle) Evaluator {
	return NewEvaluator(baseline, renderer, oracle, nopFS{}, oracle.suite, time.Second, nil)
}
