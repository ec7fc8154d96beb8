package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	m "mend.dev/pkg/mend/internal/model"
)

// DiffExporter renders a candidate as unified-diff text against the
// baseline. Used only for presenting final results, never by the search.
type DiffExporter interface {
	ToPatchText(ctx context.Context, baseline *m.Baseline, candidate m.Candidate) (string, error)
}

// UnifiedDiffExporter produces one unified diff per changed file.
type UnifiedDiffExporter struct{}

// NewUnifiedDiffExporter constructs a UnifiedDiffExporter.
func NewUnifiedDiffExporter() *UnifiedDiffExporter {
	return &UnifiedDiffExporter{}
}

// ToPatchText applies the candidate's edits in memory and diffs every
// changed file, concatenating the per-file diffs in path order.
func (e *UnifiedDiffExporter) ToPatchText(ctx context.Context, baseline *m.Baseline, candidate m.Candidate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mutated, err := ApplyEdits(baseline, candidate)
	if err != nil {
		return "", err
	}

	files := make([]m.Path, 0, len(mutated))
	for file := range mutated {
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

	var out strings.Builder

	for _, file := range files {
		diff := difflib.UnifiedDiff{
			A:        asDiffLines(baseline.Files[file]),
			B:        asDiffLines(mutated[file]),
			FromFile: "a/" + string(file),
			ToFile:   "b/" + string(file),
			Context:  3,
		}

		text, err := difflib.GetUnifiedDiffString(diff)
		if err != nil {
			return "", fmt.Errorf("diff %s: %w", file, err)
		}

		out.WriteString(text)
	}

	return out.String(), nil
}

func asDiffLines(lines []string) []string {
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = line + "\n"
	}

	return result
}
