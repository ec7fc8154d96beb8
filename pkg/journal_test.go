package pkg

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string
	Value int
}

func TestJournal_AppendAndRange(t *testing.T) {
	journal, err := NewJournal[entry]()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = journal.Close()
	})

	require.NoError(t, journal.Append(entry{Name: "a", Value: 1}))
	require.NoError(t, journal.Append(entry{Name: "b", Value: 2}))

	assert.Equal(t, uint64(2), journal.Len())

	var replayed []entry

	err = journal.Range(func(index uint64, item entry) error {
		assert.Equal(t, uint64(len(replayed)), index)
		replayed = append(replayed, item)

		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []entry{{Name: "a", Value: 1}, {Name: "b", Value: 2}}, replayed)
}

func TestJournal_ConcurrentAppend(t *testing.T) {
	journal, err := NewJournal[entry]()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = journal.Close()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)

		i := i
		go func() {
			defer wg.Done()
			assert.NoError(t, journal.Append(entry{Value: i}))
		}()
	}

	wg.Wait()

	assert.Equal(t, uint64(50), journal.Len())
}

func TestJournal_CloseRemovesBackingFile(t *testing.T) {
	journal, err := NewJournal[entry]()
	require.NoError(t, err)

	path := journal.Path()
	require.FileExists(t, path)

	require.NoError(t, journal.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Closing twice is harmless.
	assert.NoError(t, journal.Close())
}
