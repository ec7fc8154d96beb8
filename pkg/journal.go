// Package pkg provides small generic utilities for mend.
package pkg

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Journal is a generic append-only on-disk log. The evaluator uses it to
// record every fitness evaluation of a run without holding them in memory.
type Journal[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Range(fn func(index uint64, item T) error) error
	Close() error
}

type journalImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// NewJournal creates a journal backed by a temporary gob-encoded file.
func NewJournal[T any]() (Journal[T], error) {
	file, err := os.CreateTemp("", "mend-journal-*.gob")
	if err != nil {
		return nil, fmt.Errorf("create journal file: %w", err)
	}

	return &journalImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Path returns the backing file path.
func (j *journalImpl[T]) Path() string {
	return j.path
}

// Len returns the number of appended items.
func (j *journalImpl[T]) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.length
}

// Append encodes one item at the end of the journal. Safe for concurrent
// callers.
func (j *journalImpl[T]) Append(item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.encoder.Encode(item); err != nil {
		slog.Error("failed to append journal item", "path", j.path, "index", j.length, "error", err)
		return fmt.Errorf("append journal item: %w", err)
	}

	j.length++

	return nil
}

// Range replays every item in append order.
func (j *journalImpl[T]) Range(fn func(index uint64, item T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := gob.NewDecoder(file)

	for i := uint64(0); i < j.length; i++ {
		var item T
		if err := decoder.Decode(&item); err != nil {
			return fmt.Errorf("decode journal item %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close closes and removes the backing file.
func (j *journalImpl[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	if err := j.file.Close(); err != nil {
		return err
	}

	j.file = nil

	return os.Remove(j.path)
}
