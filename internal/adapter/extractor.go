package adapter

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strings"

	m "mend.dev/pkg/mend/internal/model"
)

// StatementExtractor turns a program source tree into the baseline snapshot:
// an ordered arena of statements with stable ids.
type StatementExtractor interface {
	Extract(ctx context.Context, root m.Path, excludes []string) (*m.Baseline, error)
}

// GoStatementExtractor extracts statements from the function bodies of a Go
// project using go/parser.
type GoStatementExtractor struct {
	fs SourceFSAdapter
}

// NewGoStatementExtractor constructs a GoStatementExtractor backed by the
// given filesystem adapter.
func NewGoStatementExtractor(fs SourceFSAdapter) *GoStatementExtractor {
	return &GoStatementExtractor{fs: fs}
}

// Extract parses every non-test Go file under root and collects its
// statements in source order. Ids are assigned in that order and stay stable
// for the whole run.
func (e *GoStatementExtractor) Extract(ctx context.Context, root m.Path, excludes []string) (*m.Baseline, error) {
	paths, err := e.sourceFiles(ctx, root, excludes)
	if err != nil {
		return nil, err
	}

	statements := make([]m.Statement, 0)
	files := make(map[m.Path][]string, len(paths))
	nextID := m.StatementID(0)

	for _, path := range paths {
		content, err := e.fs.ReadFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := e.fs.RelPath(ctx, root, path)
		if err != nil {
			return nil, err
		}

		fset := token.NewFileSet()

		file, err := parser.ParseFile(fset, string(path), content, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
		files[rel] = lines

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}

			collectStatements(fn.Body.List, func(stmt ast.Stmt) {
				statements = append(statements, newStatement(nextID, rel, fset, lines, stmt))
				nextID++
			})
		}
	}

	return m.NewBaseline(root, statements, files), nil
}

// sourceFiles returns the non-test Go files under root in deterministic
// order, skipping excluded patterns and vendored trees.
func (e *GoStatementExtractor) sourceFiles(ctx context.Context, root m.Path, excludes []string) ([]m.Path, error) {
	paths := make([]m.Path, 0)

	err := e.fs.Walk(ctx, root, func(path m.Path, isDir bool) error {
		if isDir {
			return nil
		}

		name := filepath.Base(string(path))
		if filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			return nil
		}

		rel, err := e.fs.RelPath(ctx, root, path)
		if err != nil {
			return err
		}

		if skipPath(rel) || matchesAny(rel, excludes) {
			return nil
		}

		paths = append(paths, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	return paths, nil
}

func skipPath(rel m.Path) bool {
	for _, part := range strings.Split(string(rel), string(filepath.Separator)) {
		if part == "vendor" || part == "testdata" || strings.HasPrefix(part, ".") {
			return true
		}
	}

	return false
}

func matchesAny(rel m.Path, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, string(rel)); ok {
			return true
		}

		if ok, _ := filepath.Match(pattern, filepath.Base(string(rel))); ok {
			return true
		}
	}

	return false
}

// collectStatements visits every statement of a body in source order:
// each statement first, then the statements of its nested blocks.
func collectStatements(list []ast.Stmt, visit func(ast.Stmt)) {
	for _, stmt := range list {
		visit(stmt)
		descend(stmt, visit)
	}
}

func descend(stmt ast.Stmt, visit func(ast.Stmt)) {
	switch s := stmt.(type) {
	case *ast.IfStmt:
		collectStatements(s.Body.List, visit)

		if s.Else != nil {
			switch elseStmt := s.Else.(type) {
			case *ast.BlockStmt:
				collectStatements(elseStmt.List, visit)
			default:
				visit(elseStmt)
				descend(elseStmt, visit)
			}
		}
	case *ast.ForStmt:
		collectStatements(s.Body.List, visit)
	case *ast.RangeStmt:
		collectStatements(s.Body.List, visit)
	case *ast.SwitchStmt:
		for _, clause := range s.Body.List {
			if c, ok := clause.(*ast.CaseClause); ok {
				collectStatements(c.Body, visit)
			}
		}
	case *ast.TypeSwitchStmt:
		for _, clause := range s.Body.List {
			if c, ok := clause.(*ast.CaseClause); ok {
				collectStatements(c.Body, visit)
			}
		}
	case *ast.SelectStmt:
		for _, clause := range s.Body.List {
			if c, ok := clause.(*ast.CommClause); ok {
				collectStatements(c.Body, visit)
			}
		}
	case *ast.LabeledStmt:
		descend(s.Stmt, visit)
	case *ast.BlockStmt:
		collectStatements(s.List, visit)
	}
}

func newStatement(id m.StatementID, file m.Path, fset *token.FileSet, lines []string, stmt ast.Stmt) m.Statement {
	start := fset.Position(stmt.Pos()).Line
	end := fset.Position(stmt.End()).Line

	text := strings.Join(lines[start-1:end], "\n")

	return m.Statement{
		ID:        id,
		File:      file,
		StartLine: start,
		EndLine:   end,
		Indent:    leadingWhitespace(lines[start-1]),
		Text:      text,
		Atomic:    isAtomic(stmt),
	}
}

func leadingWhitespace(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}

	return line
}

// isAtomic reports whether the statement contains no nested block.
func isAtomic(stmt ast.Stmt) bool {
	atomic := true

	ast.Inspect(stmt, func(n ast.Node) bool {
		if _, ok := n.(*ast.BlockStmt); ok {
			atomic = false
			return false
		}

		return atomic
	})

	return atomic
}
