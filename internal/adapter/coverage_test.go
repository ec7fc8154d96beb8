package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mend.dev/pkg/mend/internal/model"
)

func TestParseProfileLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantFile  string
		wantSpan  [2]int
		wantMatch bool
	}{
		{"executed block", "example.com/pkg/main.go:12.2,14.16 1 1", "example.com/pkg/main.go", [2]int{12, 14}, true},
		{"unexecuted block", "example.com/pkg/main.go:12.2,14.16 1 0", "", [2]int{}, false},
		{"no colon", "garbage", "", [2]int{}, false},
		{"malformed span", "main.go:x.y,z.w 1 1", "", [2]int{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, span, ok := parseProfileLine(tt.line)
			assert.Equal(t, tt.wantMatch, ok)

			if tt.wantMatch {
				assert.Equal(t, tt.wantFile, file)
				assert.Equal(t, tt.wantSpan, span)
			}
		})
	}
}

func TestCoveredStatements(t *testing.T) {
	statements := []m.Statement{
		{ID: 0, File: "main.go", StartLine: 3, EndLine: 5},
		{ID: 1, File: "main.go", StartLine: 7, EndLine: 7},
		{ID: 2, File: "other.go", StartLine: 3, EndLine: 3},
	}
	baseline := m.NewBaseline("/project", statements, map[m.Path][]string{
		"main.go":  nil,
		"other.go": nil,
	})

	profile := []byte(`mode: set
example.com/pkg/main.go:3.2,4.10 2 1
example.com/pkg/main.go:7.2,7.20 1 0
example.com/pkg/other.go:3.2,3.15 1 1
`)

	covered := coveredStatements(baseline, profile)

	require.Len(t, covered, 2)
	assert.Contains(t, covered, m.StatementID(0))
	assert.Contains(t, covered, m.StatementID(2))
	assert.NotContains(t, covered, m.StatementID(1))
}

func TestCoveredStatements_EmptyProfile(t *testing.T) {
	baseline := m.NewBaseline("/project", []m.Statement{
		{ID: 0, File: "main.go", StartLine: 1, EndLine: 1},
	}, map[m.Path][]string{"main.go": nil})

	assert.Empty(t, coveredStatements(baseline, []byte("mode: set\n")))
}
