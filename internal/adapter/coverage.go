package adapter

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	m "mend.dev/pkg/mend/internal/model"
)

// CoverageCollector runs the test suite against the baseline and reports,
// per test, its verdict and the set of statements it executed.
type CoverageCollector interface {
	Collect(ctx context.Context, baseline *m.Baseline) ([]m.CoverageRecord, error)
}

// GoCoverCollector collects per-test statement coverage by running each test
// individually with a coverage profile.
type GoCoverCollector struct {
	oracle  TestOracle
	timeout time.Duration
}

// NewGoCoverCollector constructs a GoCoverCollector. The timeout bounds each
// individual test run.
func NewGoCoverCollector(oracle TestOracle, timeout time.Duration) *GoCoverCollector {
	return &GoCoverCollector{oracle: oracle, timeout: timeout}
}

// Collect discovers the suite and runs every test on its own so the profile
// attributes coverage to exactly one test.
func (c *GoCoverCollector) Collect(ctx context.Context, baseline *m.Baseline) ([]m.CoverageRecord, error) {
	tests, err := c.oracle.List(ctx, baseline.Root)
	if err != nil {
		return nil, fmt.Errorf("discover suite: %w", err)
	}

	if len(tests) == 0 {
		return nil, fmt.Errorf("no tests found under %s", baseline.Root)
	}

	records := make([]m.CoverageRecord, 0, len(tests))

	for _, test := range tests {
		record, err := c.collectOne(ctx, baseline, test)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

func (c *GoCoverCollector) collectOne(ctx context.Context, baseline *m.Baseline, test string) (m.CoverageRecord, error) {
	profile, err := os.CreateTemp("", "mend-cover-*.out")
	if err != nil {
		return m.CoverageRecord{}, err
	}

	profilePath := profile.Name()
	_ = profile.Close()

	defer func() {
		_ = os.Remove(profilePath)
	}()

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "go", "test", "-count=1",
		"-run", "^"+test+"$", "-coverprofile", profilePath, "./...")
	cmd.Dir = string(baseline.Root)

	runErr := cmd.Run()
	passed := runErr == nil

	if runErr != nil {
		slog.Debug("baseline test failed", "test", test, "error", runErr)
	}

	content, err := os.ReadFile(profilePath)
	if err != nil {
		return m.CoverageRecord{}, fmt.Errorf("read coverage profile for %s: %w", test, err)
	}

	covered := coveredStatements(baseline, content)

	return m.CoverageRecord{Test: test, Passed: passed, Covered: covered}, nil
}

// coveredStatements maps executed profile blocks onto baseline statement ids
// by line overlap.
func coveredStatements(baseline *m.Baseline, profile []byte) []m.StatementID {
	type span struct {
		start, end int
	}

	executed := make(map[m.Path][]span)

	scanner := bufio.NewScanner(bytes.NewReader(profile))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "mode:") || line == "" {
			continue
		}

		file, block, ok := parseProfileLine(line)
		if !ok {
			continue
		}

		for rel := range baseline.Files {
			if file == string(rel) || strings.HasSuffix(file, "/"+string(rel)) {
				executed[rel] = append(executed[rel], span{start: block[0], end: block[1]})
			}
		}
	}

	ids := make([]m.StatementID, 0)

	for _, stmt := range baseline.Statements {
		for _, s := range executed[stmt.File] {
			if stmt.StartLine <= s.end && stmt.EndLine >= s.start {
				ids = append(ids, stmt.ID)
				break
			}
		}
	}

	return ids
}

// parseProfileLine parses one coverprofile entry
// ("path/file.go:12.2,14.16 1 1") and reports the executed line range. Blocks
// with a zero hit count are skipped.
func parseProfileLine(line string) (string, [2]int, bool) {
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		return "", [2]int{}, false
	}

	file := line[:colon]
	rest := line[colon+1:]

	var startLine, startCol, endLine, endCol, statements, count int

	if _, err := fmt.Sscanf(rest, "%d.%d,%d.%d %d %d",
		&startLine, &startCol, &endLine, &endCol, &statements, &count); err != nil {
		return "", [2]int{}, false
	}

	if count == 0 {
		return "", [2]int{}, false
	}

	return file, [2]int{startLine, endLine}, true
}
