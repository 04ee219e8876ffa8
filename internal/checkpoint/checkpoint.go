// Package checkpoint persists pipeline state so a run can be resumed by thread ID
// after a process restart.
//
// Two backends implement Checkpointer: an in-process MemoryStore and a
// Redis-backed RedisStore. The Factory selects between them from the
// environment, builds the shared instance once, and owns its connection pool.
//
// # Redis Schema
//
// Schema marker: spendcube:checkpoint:schema
// Checkpoints:   spendcube:thread:{thread_id}:checkpoint:{checkpoint_id} (hash)
// Thread index:  spendcube:thread:{thread_id}:checkpoints (ZSET, score = seq)
// Sequence:      spendcube:thread:{thread_id}:seq
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Checkpoint is a snapshot of pipeline state for one thread.
type Checkpoint struct {
	ThreadID    string `json:"thread_id"`           // Pipeline thread the snapshot belongs to
	ID          string `json:"id"`                  // UUID, assigned by Put when empty
	ParentID    string `json:"parent_id,omitempty"` // Previous checkpoint in the thread, if any
	Seq         int64  `json:"seq"`                 // Position within the thread, assigned by Put
	Stage       string `json:"stage"`               // Pipeline stage that produced the snapshot
	State       []byte `json:"state"`               // Opaque encoded state
	CreatedAtMs int64  `json:"created_at_ms"`       // Unix milliseconds, assigned by Put when zero
}

// Checkpointer stores and retrieves checkpoints.
// Implementations are safe for concurrent use.
type Checkpointer interface {
	// Put stores cp, filling ID, Seq and CreatedAtMs.
	Put(ctx context.Context, cp *Checkpoint) error

	// Get returns a single checkpoint. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, threadID, id string) (*Checkpoint, error)

	// Latest returns the checkpoint with the highest Seq in the thread.
	// Returns ErrNotFound if the thread has no checkpoints.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)

	// List returns every checkpoint of the thread in Seq order.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// Kind reports which backend this is.
	Kind() Kind

	// Close releases resources owned by the store.
	Close() error
}

var (
	// ErrNotFound is returned when a checkpoint or thread doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrMissingConnectionString is returned when the durable backend is selected without a URL.
	ErrMissingConnectionString = errors.New("durable checkpoint backend requires a connection string")

	// ErrFactoryReset is returned to callers whose construction was overtaken by Reset or Shutdown.
	ErrFactoryReset = errors.New("checkpoint factory was reset during construction")
)

// InitError reports a failure to bring up the durable backend.
// Stage is "pool" for connection-pool construction and "setup" for schema setup.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("checkpoint backend initialization failed at %s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Validate checks if the Checkpoint has valid field values.
func (c *Checkpoint) Validate() error {
	if c.ThreadID == "" {
		return fmt.Errorf("thread ID cannot be empty")
	}

	if !isValidUUID(c.ID) {
		return fmt.Errorf("invalid checkpoint ID: not a valid UUID")
	}

	if c.ParentID != "" && !isValidUUID(c.ParentID) {
		return fmt.Errorf("invalid parent ID: not a valid UUID")
	}

	if c.Stage == "" {
		return fmt.Errorf("stage cannot be empty")
	}

	return nil
}

// prepare assigns the ID and creation time if unset and validates the result.
func (c *Checkpoint) prepare(nowMs int64) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAtMs == 0 {
		c.CreatedAtMs = nowMs
	}
	return c.Validate()
}

// clone returns a deep copy so stored checkpoints never alias caller memory.
func (c *Checkpoint) clone() *Checkpoint {
	out := *c
	out.State = append([]byte(nil), c.State...)
	return &out
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
