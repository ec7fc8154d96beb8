package adapter

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	m "mend.dev/pkg/mend/internal/model"
)

// PatchReport describes one minimized repair in a run report.
type PatchReport struct {
	Signature string   `yaml:"signature"`
	Operators []string `yaml:"operators"`
	Diff      string   `yaml:"diff"`
}

// RunReport is the persisted record of one repair run.
type RunReport struct {
	RunID       string        `yaml:"run_id"`
	CreatedAt   time.Time     `yaml:"created_at"`
	Root        string        `yaml:"root"`
	Strategy    string        `yaml:"strategy"`
	Statements  int           `yaml:"statements"`
	Tests       int           `yaml:"tests"`
	FailingAt0  int           `yaml:"failing_at_start"`
	OracleRuns  uint64        `yaml:"oracle_runs"`
	Evaluations uint64        `yaml:"evaluations"`
	Elapsed     time.Duration `yaml:"elapsed"`
	Patches     []PatchReport `yaml:"patches"`
}

// ReportStore persists run reports and lists past runs.
type ReportStore interface {
	Save(ctx context.Context, dir m.Path, report RunReport) (m.Path, error)
	List(ctx context.Context, dir m.Path) ([]RunReport, error)
}

// YAMLReportStore stores one YAML file per run in the output directory.
type YAMLReportStore struct {
	fs SourceFSAdapter
}

// NewYAMLReportStore constructs a YAMLReportStore.
func NewYAMLReportStore(fs SourceFSAdapter) *YAMLReportStore {
	return &YAMLReportStore{fs: fs}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Save writes the report as run-<id>.yaml under dir, creating dir if needed.
func (s *YAMLReportStore) Save(ctx context.Context, dir m.Path, report RunReport) (m.Path, error) {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	content, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal run report: %w", err)
	}

	path := s.fs.JoinPath(ctx, string(dir), "run-"+report.RunID+".yaml")
	if err := s.fs.WriteFile(ctx, path, content, 0o600); err != nil {
		return "", fmt.Errorf("write run report: %w", err)
	}

	return path, nil
}

// List loads every run report under dir, newest first.
func (s *YAMLReportStore) List(ctx context.Context, dir m.Path) ([]RunReport, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read report dir: %w", err)
	}

	reports := make([]RunReport, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !isRunReport(entry.Name()) {
			continue
		}

		content, err := s.fs.ReadFile(ctx, s.fs.JoinPath(ctx, string(dir), entry.Name()))
		if err != nil {
			return nil, err
		}

		var report RunReport
		if err := yaml.Unmarshal(content, &report); err != nil {
			return nil, fmt.Errorf("parse run report %s: %w", entry.Name(), err)
		}

		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	return reports, nil
}

func isRunReport(name string) bool {
	return len(name) > len("run-.yaml") &&
		name[:4] == "run-" && name[len(name)-5:] == ".yaml"
}
