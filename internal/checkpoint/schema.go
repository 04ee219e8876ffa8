package checkpoint

import "fmt"

// Redis key pattern helpers
//
// Checkpoints are namespaced by thread so that a thread's history can be
// listed and resumed without scanning.
//
// Key pattern: spendcube:thread:{thread_id}:{entity}

// SchemaVersion is written to SchemaKey by Setup.
const SchemaVersion = "1"

// SchemaKey is the Redis key holding the checkpoint schema version.
const SchemaKey = "spendcube:checkpoint:schema"

// CheckpointKey returns the Redis key for a checkpoint hash.
// Pattern: spendcube:thread:{thread_id}:checkpoint:{checkpoint_id}
func CheckpointKey(threadID, checkpointID string) string {
	return fmt.Sprintf("spendcube:thread:%s:checkpoint:%s", threadID, checkpointID)
}

// ThreadIndexKey returns the Redis key for a thread's checkpoint ZSET.
// Pattern: spendcube:thread:{thread_id}:checkpoints
func ThreadIndexKey(threadID string) string {
	return fmt.Sprintf("spendcube:thread:%s:checkpoints", threadID)
}

// ThreadSeqKey returns the Redis key for a thread's sequence counter.
// Pattern: spendcube:thread:{thread_id}:seq
func ThreadSeqKey(threadID string) string {
	return fmt.Sprintf("spendcube:thread:%s:seq", threadID)
}
