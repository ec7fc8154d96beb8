// Package controller provides output adapters for displaying repair progress
// and results.
package controller

import (
	"context"
	"os"

	"golang.org/x/term"
)

// PatchView is the display form of one minimized repair.
type PatchView struct {
	Index     int
	Operators []string
	Diff      string
}

// UI defines the interface for presenting a repair run. Implementations can
// use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
	DisplayBaseline(ctx context.Context, statements, tests, failing int)
	DisplayGeneration(ctx context.Context, generation, budget int, bestFitness float64, evaluations uint64)
	DisplayPatches(ctx context.Context, patches []PatchView) error
	DisplayNoRepair(ctx context.Context)
}

// IsTTY reports whether stdout is attached to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
