package history

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRecorder keeps records in process memory.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records []TaskRecord
}

// NewMemoryRecorder returns an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (mr *MemoryRecorder) Append(ctx context.Context, r TaskRecord) (err error) {
	_, finish := startAppend(ctx, BackendMemory, "memory")
	defer func() { finish(err) }()

	if err := validateRecord(r); err != nil {
		return fmt.Errorf("invalid task record: %w", err)
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.records = append(mr.records, r.Clone())
	return nil
}

func (mr *MemoryRecorder) Records(ctx context.Context) ([]TaskRecord, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return cloneRecords(mr.records), nil
}

// Len returns the number of stored records.
func (mr *MemoryRecorder) Len() int {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return len(mr.records)
}

func (mr *MemoryRecorder) Close() error {
	return nil
}
