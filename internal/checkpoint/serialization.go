package checkpoint

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between checkpoints and Redis hashes.
// State is stored as a single string field; it is opaque to this package.

// CheckpointToHash converts a Checkpoint to a Redis hash format.
func CheckpointToHash(c *Checkpoint) map[string]interface{} {
	return map[string]interface{}{
		"id":            c.ID,
		"thread_id":     c.ThreadID,
		"parent_id":     c.ParentID,
		"seq":           c.Seq,
		"stage":         c.Stage,
		"state":         string(c.State),
		"created_at_ms": c.CreatedAtMs,
	}
}

// HashToCheckpoint converts a Redis hash back to a Checkpoint.
func HashToCheckpoint(hash map[string]string) (*Checkpoint, error) {
	seq, err := strconv.ParseInt(hash["seq"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seq field: %w", err)
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	cp := &Checkpoint{
		ID:          hash["id"],
		ThreadID:    hash["thread_id"],
		ParentID:    hash["parent_id"],
		Seq:         seq,
		Stage:       hash["stage"],
		State:       []byte(hash["state"]),
		CreatedAtMs: createdAtMs,
	}

	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint hash: %w", err)
	}

	return cp, nil
}
