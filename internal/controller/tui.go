package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI implements UI using Bubble Tea: a live progress bar while the search
// runs, then a scrollable pager for the resulting patches.
type TUI struct {
	output   io.Writer
	program  *tea.Program
	finished chan struct{}
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the progress view in the background.
func (t *TUI) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.program = tea.NewProgram(newSearchModel(), tea.WithOutput(t.output))
	t.finished = make(chan struct{})

	go func() {
		defer close(t.finished)

		_, _ = t.program.Run()
	}()

	return nil
}

// Close stops the progress view if it is still running.
func (t *TUI) Close(_ context.Context) {
	t.stopProgress()
}

// DisplayBaseline feeds the baseline shape into the progress view.
func (t *TUI) DisplayBaseline(ctx context.Context, statements, tests, failing int) {
	if ctx.Err() != nil || t.program == nil {
		return
	}

	t.program.Send(baselineMsg{statements: statements, tests: tests, failing: failing})
}

// DisplayGeneration advances the progress bar.
func (t *TUI) DisplayGeneration(ctx context.Context, generation, budget int, bestFitness float64, evaluations uint64) {
	if ctx.Err() != nil || t.program == nil {
		return
	}

	t.program.Send(generationMsg{
		generation:  generation,
		budget:      budget,
		bestFitness: bestFitness,
		evaluations: evaluations,
	})
}

// DisplayPatches tears down the progress view and opens the patch pager.
func (t *TUI) DisplayPatches(ctx context.Context, patches []PatchView) error {
	t.stopProgress()

	if err := ctx.Err(); err != nil {
		return err
	}

	content := renderPatchContent(patches)

	pager := tea.NewProgram(newPagerModel(content), tea.WithOutput(t.output), tea.WithAltScreen())
	if _, err := pager.Run(); err != nil {
		// Fall back to plain output when the terminal rejects the alt screen.
		_, printErr := fmt.Fprint(t.output, content)

		return printErr
	}

	return nil
}

// DisplayNoRepair tears down the progress view and prints the empty result.
func (t *TUI) DisplayNoRepair(ctx context.Context) {
	t.stopProgress()

	if ctx.Err() != nil {
		return
	}

	_, _ = fmt.Fprintln(t.output, "No repair found within the search budget.")
}

func (t *TUI) stopProgress() {
	if t.program == nil {
		return
	}

	t.program.Send(searchDoneMsg{})
	<-t.finished
	t.program = nil
}

func renderPatchContent(patches []PatchView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", headerStyle.Render(fmt.Sprintf("Found %d patch(es)", len(patches))))
	b.WriteString(renderPatchTable(patches))

	for _, patch := range patches {
		fmt.Fprintf(&b, "\n%s\n", headerStyle.Render(fmt.Sprintf("Patch #%d", patch.Index)))
		b.WriteString(colorizeDiff(patch.Diff))
	}

	return b.String()
}

type baselineMsg struct {
	statements int
	tests      int
	failing    int
}

type generationMsg struct {
	generation  int
	budget      int
	bestFitness float64
	evaluations uint64
}

type searchDoneMsg struct{}

// searchModel renders the running search: the baseline summary, a progress
// bar over the generation budget and the best fitness so far.
type searchModel struct {
	bar      progress.Model
	baseline baselineMsg
	latest   generationMsg
	seeded   bool
}

func newSearchModel() searchModel {
	return searchModel{bar: progress.New(progress.WithDefaultGradient())}
}

func (sm searchModel) Init() tea.Cmd {
	return nil
}

func (sm searchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case baselineMsg:
		sm.baseline = msg
		sm.seeded = true

		return sm, nil

	case generationMsg:
		sm.latest = msg

		return sm, nil

	case searchDoneMsg:
		return sm, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return sm, tea.Quit
		}
	}

	return sm, nil
}

func (sm searchModel) View() string {
	var b strings.Builder

	if sm.seeded {
		fmt.Fprintf(&b, "Statements: %d | Tests: %d | Failing: %d\n",
			sm.baseline.statements, sm.baseline.tests, sm.baseline.failing)
	}

	if sm.latest.budget > 0 {
		ratio := float64(sm.latest.generation) / float64(sm.latest.budget)

		fmt.Fprintf(&b, "%s\n", sm.bar.ViewAs(ratio))
		fmt.Fprintf(&b, "Generation %d/%d | best fitness %.4f | %d evaluations\n",
			sm.latest.generation, sm.latest.budget, sm.latest.bestFitness, sm.latest.evaluations)
	} else {
		b.WriteString("Searching...\n")
	}

	return b.String()
}

// pagerModel scrolls static patch content in a viewport.
type pagerModel struct {
	view    viewport.Model
	content string
	ready   bool
}

func newPagerModel(content string) pagerModel {
	return pagerModel{content: content}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !pm.ready {
			pm.view = viewport.New(msg.Width, msg.Height-1)
			pm.view.SetContent(pm.content)
			pm.ready = true
		} else {
			pm.view.Width = msg.Width
			pm.view.Height = msg.Height - 1
		}

		return pm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return pm, tea.Quit
		}
	}

	var cmd tea.Cmd
	pm.view, cmd = pm.view.Update(msg)

	return pm, cmd
}

func (pm pagerModel) View() string {
	if !pm.ready {
		return "Loading..."
	}

	help := lipgloss.NewStyle().Faint(true).Render("↑/↓: scroll | q: quit")

	return pm.view.View() + "\n" + help
}
