package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	m "mend.dev/pkg/mend/internal/model"
)

// workspacePattern names the throwaway directories candidates are rendered
// into.
const workspacePattern = "mend-eval-*"

// Renderer materializes a candidate: it applies the candidate's edits to the
// baseline program and produces a runnable program directory. Rendering is
// deterministic for a given candidate signature.
type Renderer interface {
	Render(ctx context.Context, baseline *m.Baseline, candidate m.Candidate) (m.Path, error)
}

// LineRenderer renders candidates by splicing statement spans at line
// granularity into a fresh copy of the baseline project.
type LineRenderer struct {
	fs SourceFSAdapter
}

// NewLineRenderer constructs a LineRenderer backed by the given filesystem
// adapter.
func NewLineRenderer(fs SourceFSAdapter) *LineRenderer {
	return &LineRenderer{fs: fs}
}

// Render copies the baseline tree into a new workspace and rewrites every
// mutated file. The caller owns the returned directory and removes it when
// the evaluation is done.
func (r *LineRenderer) Render(ctx context.Context, baseline *m.Baseline, candidate m.Candidate) (m.Path, error) {
	workspace, err := r.fs.CreateTempDir(ctx, workspacePattern)
	if err != nil {
		return "", err
	}

	if err := r.fs.CopyDir(ctx, baseline.Root, workspace); err != nil {
		_ = r.fs.RemoveAll(ctx, workspace)
		return "", fmt.Errorf("copy baseline: %w", err)
	}

	mutated, err := ApplyEdits(baseline, candidate)
	if err != nil {
		_ = r.fs.RemoveAll(ctx, workspace)
		return "", err
	}

	for file, lines := range mutated {
		path := r.fs.JoinPath(ctx, string(workspace), string(file))

		content := strings.Join(lines, "\n") + "\n"
		if err := r.fs.WriteFile(ctx, path, []byte(content), 0o600); err != nil {
			_ = r.fs.RemoveAll(ctx, workspace)
			return "", fmt.Errorf("write mutated file %s: %w", file, err)
		}
	}

	return workspace, nil
}

// ApplyEdits computes the mutated line content per changed file for the
// candidate's canonical operator set. Edits are applied bottom-up so earlier
// spans keep their original line numbers.
func ApplyEdits(baseline *m.Baseline, candidate m.Candidate) (map[m.Path][]string, error) {
	ops := candidate.Canonical()

	byFile := make(map[m.Path][]m.Operator)

	for _, op := range ops {
		target, err := baseline.Statement(op.Target)
		if err != nil {
			return nil, err
		}

		byFile[target.File] = append(byFile[target.File], op)
	}

	mutated := make(map[m.Path][]string, len(byFile))

	for file, fileOps := range byFile {
		original, ok := baseline.Files[file]
		if !ok {
			return nil, fmt.Errorf("no baseline content for %s", file)
		}

		lines := make([]string, len(original))
		copy(lines, original)

		targets := make([]m.Statement, len(fileOps))
		for i, op := range fileOps {
			target, err := baseline.Statement(op.Target)
			if err != nil {
				return nil, err
			}

			targets[i] = target
		}

		order := make([]int, 0, len(fileOps))
		for i := range fileOps {
			if nestedInRewrite(i, fileOps, targets) {
				continue
			}

			order = append(order, i)
		}

		sort.Slice(order, func(i, j int) bool {
			return targets[order[i]].StartLine > targets[order[j]].StartLine
		})

		for _, index := range order {
			var err error

			lines, err = applyEdit(baseline, lines, fileOps[index], targets[index])
			if err != nil {
				return nil, err
			}
		}

		mutated[file] = lines
	}

	return mutated, nil
}

// nestedInRewrite reports whether the i-th target lies strictly inside the
// span of another operator that rewrites its whole span. Applying both would
// splice the outer span by line numbers the inner edit already shifted; the
// outer edit wins.
func nestedInRewrite(i int, ops []m.Operator, targets []m.Statement) bool {
	inner := targets[i]

	for j := range ops {
		if j == i || (ops[j].Kind != m.OpDelete && ops[j].Kind != m.OpReplace) {
			continue
		}

		outer := targets[j]

		if outer.StartLine <= inner.StartLine && inner.EndLine <= outer.EndLine &&
			(outer.StartLine < inner.StartLine || inner.EndLine < outer.EndLine) {
			return true
		}
	}

	return false
}

func applyEdit(baseline *m.Baseline, lines []string, op m.Operator, target m.Statement) ([]string, error) {
	start := target.StartLine - 1
	end := target.EndLine

	var donorLines []string

	if op.HasDonor() {
		donor, err := baseline.Statement(op.Donor)
		if err != nil {
			return nil, err
		}

		donorLines = reindent(donor, target.Indent)
	}

	switch op.Kind {
	case m.OpDelete:
		return splice(lines, start, end, nil), nil
	case m.OpReplace:
		return splice(lines, start, end, donorLines), nil
	case m.OpInsertBefore:
		return splice(lines, start, start, donorLines), nil
	case m.OpInsertAfter:
		return splice(lines, end, end, donorLines), nil
	}

	return nil, fmt.Errorf("unsupported operator kind %v", op.Kind)
}

// splice replaces lines[from:to] with replacement.
func splice(lines []string, from, to int, replacement []string) []string {
	result := make([]string, 0, len(lines)-(to-from)+len(replacement))
	result = append(result, lines[:from]...)
	result = append(result, replacement...)
	result = append(result, lines[to:]...)

	return result
}

// reindent rewrites the donor's lines from its own indentation to the
// target's.
func reindent(donor m.Statement, indent string) []string {
	lines := strings.Split(donor.Text, "\n")

	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = indent + strings.TrimPrefix(line, donor.Indent)
	}

	return result
}
