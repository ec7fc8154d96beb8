package controller

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedUI() (*SimpleUI, *bytes.Buffer) {
	out := &bytes.Buffer{}

	cmd := &cobra.Command{}
	cmd.SetOut(out)

	return NewSimpleUI(cmd), out
}

func TestSimpleUI_DisplayBaseline(t *testing.T) {
	ui, out := newBufferedUI()

	ui.DisplayBaseline(context.Background(), 42, 10, 3)

	assert.Contains(t, out.String(), "Statements: 42")
	assert.Contains(t, out.String(), "Failing: 3")
}

func TestSimpleUI_DisplayGeneration(t *testing.T) {
	ui, out := newBufferedUI()

	ui.DisplayGeneration(context.Background(), 2, 10, 0.25, 80)

	assert.Contains(t, out.String(), "Generation 2/10")
	assert.Contains(t, out.String(), "0.2500")
	assert.Contains(t, out.String(), "80 evaluations")
}

func TestSimpleUI_DisplayPatches(t *testing.T) {
	ui, out := newBufferedUI()

	err := ui.DisplayPatches(context.Background(), []PatchView{
		{
			Index:     1,
			Operators: []string{"replace(1<-0)"},
			Diff:      "--- a/main.go\n+++ b/main.go\n-beta\n+alpha\n",
		},
		{
			Index:     2,
			Operators: []string{"delete(2)", "insert-after(0<-3)"},
			Diff:      "",
		},
	})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Found 2 patch(es)")
	assert.Contains(t, output, "Patch #1")
	assert.Contains(t, output, "replace(1<-0)")
	assert.Contains(t, output, "insert-after(0<-3)")
}

func TestSimpleUI_DisplayNoRepair(t *testing.T) {
	ui, out := newBufferedUI()

	ui.DisplayNoRepair(context.Background())

	assert.Contains(t, out.String(), "No repair found")
}

func TestSimpleUI_RespectsCancelledContext(t *testing.T) {
	ui, out := newBufferedUI()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui.DisplayBaseline(ctx, 1, 1, 1)
	ui.DisplayNoRepair(ctx)

	assert.Empty(t, out.String())
}

func TestColorizeDiff_KeepsEveryLine(t *testing.T) {
	diff := "--- a/main.go\n+++ b/main.go\n-old\n+new\n context\n"

	colored := colorizeDiff(diff)

	assert.Contains(t, colored, "old")
	assert.Contains(t, colored, "new")
	assert.Contains(t, colored, " context")
}

func TestRenderPatchTable(t *testing.T) {
	table := renderPatchTable([]PatchView{
		{Index: 1, Operators: []string{"delete(0)", "replace(1<-2)"}},
	})

	assert.Contains(t, table, "delete(0)")
	assert.Contains(t, table, "replace(1<-2)")
	assert.Contains(t, table, "2")
}
