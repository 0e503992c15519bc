// Package storage provides the append-only operation journal: one JSON
// line per committed lifecycle operation, written after the state
// transition has been durably recorded. The journal is an audit trail,
// not a recovery mechanism; the order store is already durable.
package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/escrowlabs/orderd/pkg/engine"
)

// NopJournal discards everything. Used in tests and when journaling is
// disabled by config.
type NopJournal struct{}

func NewNopJournal() *NopJournal { return &NopJournal{} }

func (j *NopJournal) Append(_ string) {}

// FileJournal appends lines to a file, one operation per line.
type FileJournal struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileJournal opens (or creates) the journal at path in append mode.
func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{f: f}, nil
}

func (j *FileJournal) Append(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintln(j.f, line)
}

// Close flushes and closes the underlying file.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ engine.Journal = (*NopJournal)(nil)
var _ engine.Journal = (*FileJournal)(nil)
