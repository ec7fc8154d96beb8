package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// SimpleUI implements UI using cobra Command's output stream. It prints
// plain text and never blocks, which makes it the right choice for CI runs
// and piped output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayBaseline prints the shape of the program under repair.
func (s *SimpleUI) DisplayBaseline(ctx context.Context, statements, tests, failing int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", headerStyle.Render("Baseline"))
	s.printf("Statements: %d | Tests: %d | Failing: %d\n\n", statements, tests, failing)
}

// DisplayGeneration prints one progress line per finished generation.
func (s *SimpleUI) DisplayGeneration(ctx context.Context, generation, budget int, bestFitness float64, evaluations uint64) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Generation %d/%d | best fitness %.4f | %d evaluations\n",
		generation, budget, bestFitness, evaluations)
}

// DisplayPatches prints a summary table followed by each patch's diff.
func (s *SimpleUI) DisplayPatches(ctx context.Context, patches []PatchView) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s\n\n%s", headerStyle.Render(fmt.Sprintf("Found %d patch(es)", len(patches))),
		renderPatchTable(patches))

	for _, patch := range patches {
		s.printf("\n%s\n", headerStyle.Render(fmt.Sprintf("Patch #%d", patch.Index)))
		s.printf("%s\n", colorizeDiff(patch.Diff))
	}

	return nil
}

// DisplayNoRepair prints the empty-result message.
func (s *SimpleUI) DisplayNoRepair(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("No repair found within the search budget.\n")
}

func renderPatchTable(patches []PatchView) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"#", "Operators", "Edits"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, patch := range patches {
		for i, op := range patch.Operators {
			index := ""
			edits := ""

			if i == 0 {
				index = fmt.Sprintf("%d", patch.Index)
				edits = fmt.Sprintf("%d", len(patch.Operators))
			}

			table.Append([]string{index, op, edits})
		}
	}

	table.Render()

	return tableBuffer.String()
}

func colorizeDiff(diff string) string {
	var out bytes.Buffer

	start := 0

	for start < len(diff) {
		end := start

		for end < len(diff) && diff[end] != '\n' {
			end++
		}

		line := diff[start:end]

		switch {
		case len(line) > 0 && line[0] == '+':
			out.WriteString(addedStyle.Render(line))
		case len(line) > 0 && line[0] == '-':
			out.WriteString(removedStyle.Render(line))
		default:
			out.WriteString(line)
		}

		out.WriteByte('\n')

		start = end + 1
	}

	return out.String()
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
