package memory

import (
	"context"
	"sync"
)

// Table collects appended rows.
type Table struct {
	mu   sync.RWMutex
	rows [][]any
	// Err, when set, fails every Append.
	Err error
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Append records a copy of row.
func (t *Table) Append(_ context.Context, row []any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.rows = append(t.rows, append([]any(nil), row...))
	return nil
}

// Rows returns the appended rows.
func (t *Table) Rows() [][]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([][]any, len(t.rows))
	copy(out, t.rows)
	return out
}
