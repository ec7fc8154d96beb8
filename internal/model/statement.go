// Package model defines the data structures for automatic program repair.
package model

import "fmt"

// Path represents a file system path.
type Path string

// StatementID identifies one statement of the baseline program. Identifiers
// are assigned in extraction order and never reused within a run.
type StatementID int

// Statement is an opaque handle to one program element. Statements are
// immutable once extracted and are owned exclusively by the Baseline; all
// other components refer to them by id.
type Statement struct {
	ID        StatementID
	File      Path
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive
	Indent    string
	Text      string
	// Atomic is true when the statement contains no nested block. Line mode
	// restricts mutation targets to atomic statements.
	Atomic bool
}

// Baseline is the immutable snapshot of the program under repair: an arena of
// statements indexed by id plus the original file contents for rendering.
type Baseline struct {
	Root       Path
	Statements []Statement
	Files      map[Path][]string // original content split into lines

	byID map[StatementID]int
}

// NewBaseline builds a baseline from extracted statements and file contents.
func NewBaseline(root Path, statements []Statement, files map[Path][]string) *Baseline {
	byID := make(map[StatementID]int, len(statements))
	for i, stmt := range statements {
		byID[stmt.ID] = i
	}

	return &Baseline{
		Root:       root,
		Statements: statements,
		Files:      files,
		byID:       byID,
	}
}

// Statement returns the statement with the given id.
func (b *Baseline) Statement(id StatementID) (Statement, error) {
	index, ok := b.byID[id]
	if !ok {
		return Statement{}, fmt.Errorf("unknown statement id %d", id)
	}

	return b.Statements[index], nil
}

// Len returns the number of statements in the baseline.
func (b *Baseline) Len() int {
	return len(b.Statements)
}
