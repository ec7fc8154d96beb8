package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mend.dev/pkg/mend/internal/model"
)

func TestReportStore_SaveAndList(t *testing.T) {
	dir := m.Path(t.TempDir())
	store := NewYAMLReportStore(NewLocalSourceFSAdapter())

	older := RunReport{
		RunID:     NewRunID(),
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		Root:      "/project",
		Strategy:  "genetic",
		Patches: []PatchReport{{
			Signature: "replace(1<-0)",
			Operators: []string{"replace(1<-0)"},
			Diff:      "--- a/main.go\n+++ b/main.go\n",
		}},
	}
	newer := RunReport{
		RunID:     NewRunID(),
		CreatedAt: time.Now().UTC(),
		Root:      "/project",
		Strategy:  "bounded",
	}

	_, err := store.Save(context.Background(), dir, older)
	require.NoError(t, err)

	path, err := store.Save(context.Background(), dir, newer)
	require.NoError(t, err)
	assert.Contains(t, string(path), "run-"+newer.RunID+".yaml")

	reports, err := store.List(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Newest first.
	assert.Equal(t, newer.RunID, reports[0].RunID)
	assert.Equal(t, older.RunID, reports[1].RunID)

	require.Len(t, reports[1].Patches, 1)
	assert.Equal(t, older.Patches[0], reports[1].Patches[0])
}

func TestReportStore_ListMissingDir(t *testing.T) {
	store := NewYAMLReportStore(NewLocalSourceFSAdapter())

	reports, err := store.List(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestIsRunReport(t *testing.T) {
	assert.True(t, isRunReport("run-abc.yaml"))
	assert.False(t, isRunReport("run-.yaml"))
	assert.False(t, isRunReport("notes.yaml"))
	assert.False(t, isRunReport("run-abc.json"))
}
