package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a process-local Checkpointer. It never fails and does not
// survive restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]*Checkpoint
	seqs    map[string]int64
}

var _ Checkpointer = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string][]*Checkpoint),
		seqs:    make(map[string]int64),
	}
}

// Put stores a copy of cp. Putting an existing ID replaces that checkpoint and
// moves it to the end of the thread, as the Redis store does.
func (m *MemoryStore) Put(ctx context.Context, cp *Checkpoint) error {
	if err := cp.prepare(time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seqs[cp.ThreadID]++
	cp.Seq = m.seqs[cp.ThreadID]

	cps := m.threads[cp.ThreadID]
	for i, existing := range cps {
		if existing.ID == cp.ID {
			cps = append(cps[:i:i], cps[i+1:]...)
			break
		}
	}
	m.threads[cp.ThreadID] = append(cps, cp.clone())
	return nil
}

// Get returns a copy of the checkpoint with the given ID.
func (m *MemoryStore) Get(ctx context.Context, threadID, id string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, cp := range m.threads[threadID] {
		if cp.ID == id {
			return cp.clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Latest returns a copy of the most recent checkpoint in the thread.
func (m *MemoryStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.threads[threadID]
	if len(cps) == 0 {
		return nil, ErrNotFound
	}
	return cps[len(cps)-1].clone(), nil
}

// List returns copies of every checkpoint in the thread, oldest first.
func (m *MemoryStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.threads[threadID]
	out := make([]*Checkpoint, len(cps))
	for i, cp := range cps {
		out[i] = cp.clone()
	}
	return out, nil
}

// Kind returns KindMemory.
func (m *MemoryStore) Kind() Kind {
	return KindMemory
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
