// Package adapter contains the infrastructure collaborators of the repair
// pipeline: statement extraction, coverage collection, test execution,
// candidate rendering, diffing and report storage. The domain layer depends
// only on the interfaces so every collaborator can be faked in tests.
package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	m "mend.dev/pkg/mend/internal/model"
)

// ErrOracleTimeout indicates the oracle exceeded its per-invocation timeout.
var ErrOracleTimeout = errors.New("test oracle timed out")

// ErrOracleCrash indicates the oracle aborted without per-test outcomes,
// e.g. because the candidate does not compile.
var ErrOracleCrash = errors.New("test oracle crashed")

// TestOracle runs a test suite against a program directory and reports one
// outcome per test.
type TestOracle interface {
	// List discovers the test names of the program under dir.
	List(ctx context.Context, dir m.Path) ([]string, error)

	// Run executes the given tests under dir with the provided timeout.
	// Failing tests are data, not an error: the returned error is reserved
	// for timeouts (ErrOracleTimeout) and aborts (ErrOracleCrash).
	Run(ctx context.Context, dir m.Path, tests []string, timeout time.Duration) ([]m.TestOutcome, error)
}

// GoTestOracle runs `go test -json` as the external test oracle.
type GoTestOracle struct{}

// NewGoTestOracle constructs a GoTestOracle.
func NewGoTestOracle() *GoTestOracle {
	return &GoTestOracle{}
}

// testEvent mirrors the subset of the `go test -json` event stream the
// oracle consumes.
type testEvent struct {
	Action string `json:"Action"`
	Test   string `json:"Test"`
}

// List discovers test names via `go test -list`.
func (o *GoTestOracle) List(ctx context.Context, dir m.Path) ([]string, error) {
	cmd := exec.CommandContext(ctx, "go", "test", "-list", ".*", "./...")
	cmd.Dir = string(dir)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list tests in %s: %w", dir, err)
	}

	tests := make([]string, 0)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "Test") || strings.HasPrefix(line, "Example") {
			tests = append(tests, line)
		}
	}

	sort.Strings(tests)

	return tests, nil
}

// Run executes the tests and folds the JSON event stream into per-test
// outcomes.
func (o *GoTestOracle) Run(ctx context.Context, dir m.Path, tests []string, timeout time.Duration) ([]m.TestOutcome, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := []string{"test", "-json", "-count=1"}
	if len(tests) > 0 {
		args = append(args, "-run", runPattern(tests))
	}
	args = append(args, "./...")

	cmd := exec.CommandContext(runCtx, "go", args...)
	cmd.Dir = string(dir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runCtx.Err() != nil {
		slog.Debug("oracle run timed out", "dir", dir, "timeout", timeout)
		return nil, fmt.Errorf("%w after %s", ErrOracleTimeout, timeout)
	}

	outcomes := parseEvents(stdout.Bytes())
	if len(outcomes) == 0 {
		// No per-test events at all means the run never reached the tests,
		// typically a build failure of the mutated program.
		slog.Debug("oracle produced no test events", "dir", dir, "stderr", stderr.String())
		return nil, fmt.Errorf("%w: %v", ErrOracleCrash, runErr)
	}

	return outcomes, nil
}

// runPattern anchors every test name so -run matches exactly the suite.
func runPattern(tests []string) string {
	anchored := make([]string, len(tests))
	for i, test := range tests {
		anchored[i] = "^" + test + "$"
	}

	return strings.Join(anchored, "|")
}

func parseEvents(stream []byte) []m.TestOutcome {
	verdicts := make(map[string]bool)
	order := make([]string, 0)

	decoder := json.NewDecoder(bytes.NewReader(stream))

	for {
		var event testEvent
		if err := decoder.Decode(&event); err != nil {
			break
		}

		if event.Test == "" {
			continue
		}

		switch event.Action {
		case "pass":
			if _, seen := verdicts[event.Test]; !seen {
				order = append(order, event.Test)
			}

			verdicts[event.Test] = true
		case "fail":
			if _, seen := verdicts[event.Test]; !seen {
				order = append(order, event.Test)
			}

			verdicts[event.Test] = false
		}
	}

	outcomes := make([]m.TestOutcome, 0, len(order))
	for _, test := range order {
		outcomes = append(outcomes, m.TestOutcome{Name: test, Passed: verdicts[test]})
	}

	return outcomes
}
