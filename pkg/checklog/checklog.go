// Package checklog persists emitted cross-check records to disk so two runs
// of a program pair can be compared offline.
package checklog

import (
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Entry is one cross-check record as stored on disk.
type Entry struct {
	Tag  uint8
	Hash uint64
}

// Log is an append-only, gob-encoded record log. It is safe for concurrent
// appends from multiple goroutines of the instrumented program.
type Log struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// Create opens a fresh log at path, truncating any previous contents.
func Create(path string) (*Log, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create check log: %w", err)
	}

	return &Log{path: path, file: f, encoder: gob.NewEncoder(f)}, nil
}

// Path returns the log's on-disk location.
func (l *Log) Path() string { return l.path }

// Len returns the number of appended records.
func (l *Log) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.length
}

// Append writes one record to the log.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(e); err != nil {
		slog.Error("failed to encode check record", "path", l.path, "index", l.length, "error", err)
		return fmt.Errorf("failed to encode check record: %w", err)
	}

	l.length++

	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil

	if err != nil {
		slog.Error("failed to close check log", "path", l.path, "error", err)
		return fmt.Errorf("failed to close check log: %w", err)
	}

	return nil
}

// Replay reads a log back, invoking f for every record in append order.
func Replay(path string, f func(index uint64, e Entry) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open check log: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	dec := gob.NewDecoder(file)

	for index := uint64(0); ; index++ {
		var e Entry

		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				return nil
			}

			return fmt.Errorf("failed to decode check record %d: %w", index, err)
		}

		if err := f(index, e); err != nil {
			return err
		}
	}
}
