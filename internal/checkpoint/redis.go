package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the durable Checkpointer.
// It is thread-safe; the underlying go-redis client is a bounded connection pool.
type RedisStore struct {
	rdb      *redis.Client
	ownsPool bool
}

var _ Checkpointer = (*RedisStore)(nil)

// NewPool builds the bounded connection pool for cfg.
// No connection is made until the pool is first used.
func NewPool(cfg BackendConfig) (*redis.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(cfg.ConnectionString)
	if err != nil {
		return nil, &InitError{Stage: "pool", Err: fmt.Errorf("invalid connection string: %w", err)}
	}

	opts.PoolSize = cfg.poolSize()
	opts.ConnMaxIdleTime = IdleTimeout
	opts.DialTimeout = ConnectTimeout

	return redis.NewClient(opts), nil
}

// NewRedisStore wraps an existing pool. When ownsPool is true, Close closes the pool.
// Call Setup before first use.
func NewRedisStore(rdb *redis.Client, ownsPool bool) *RedisStore {
	return &RedisStore{rdb: rdb, ownsPool: ownsPool}
}

// Setup idempotently writes the schema marker and verifies it matches SchemaVersion.
// Safe to run any number of times against the same database.
func (s *RedisStore) Setup(ctx context.Context) error {
	if err := s.rdb.SetNX(ctx, SchemaKey, SchemaVersion, 0).Err(); err != nil {
		return fmt.Errorf("failed to write schema marker: %w", err)
	}

	version, err := s.rdb.Get(ctx, SchemaKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read schema marker: %w", err)
	}

	if version != SchemaVersion {
		return fmt.Errorf("unsupported checkpoint schema version %q (expected %q)", version, SchemaVersion)
	}

	return nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Put writes the checkpoint hash and adds it to the thread index.
func (s *RedisStore) Put(ctx context.Context, cp *Checkpoint) error {
	if err := cp.prepare(time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	seq, err := s.rdb.Incr(ctx, ThreadSeqKey(cp.ThreadID)).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate checkpoint sequence: %w", err)
	}
	cp.Seq = seq

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, CheckpointKey(cp.ThreadID, cp.ID), CheckpointToHash(cp))
		pipe.ZAdd(ctx, ThreadIndexKey(cp.ThreadID), redis.Z{Score: float64(seq), Member: cp.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write checkpoint to Redis: %w", err)
	}

	return nil
}

// Get retrieves a checkpoint by thread and ID.
func (s *RedisStore) Get(ctx context.Context, threadID, id string) (*Checkpoint, error) {
	hashData, err := s.rdb.HGetAll(ctx, CheckpointKey(threadID, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, ErrNotFound
	}

	cp, err := HashToCheckpoint(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}
	return cp, nil
}

// Latest retrieves the highest-sequence checkpoint in the thread.
func (s *RedisStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	ids, err := s.rdb.ZRevRange(ctx, ThreadIndexKey(threadID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread index: %w", err)
	}

	if len(ids) == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, threadID, ids[0])
}

// List retrieves every checkpoint in the thread in sequence order.
func (s *RedisStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	ids, err := s.rdb.ZRange(ctx, ThreadIndexKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread index: %w", err)
	}

	out := make([]*Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := s.Get(ctx, threadID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Kind returns KindDurable.
func (s *RedisStore) Kind() Kind {
	return KindDurable
}

// Close closes the pool if this store owns it. Shared stores are closed by their Factory.
func (s *RedisStore) Close() error {
	if !s.ownsPool {
		return nil
	}
	return s.rdb.Close()
}
