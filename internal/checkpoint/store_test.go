package checkpoint

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedisStore creates a RedisStore connected to a miniredis instance
func setupTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), true)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Setup(context.Background()))
	return store, mr
}

// storeContract runs the behaviour every Checkpointer must share
func storeContract(t *testing.T, store Checkpointer) {
	ctx := context.Background()
	thread := "thread-" + uuid.NewString()

	t.Run("latest on empty thread is not found", func(t *testing.T) {
		_, err := store.Latest(ctx, thread)
		assert.True(t, IsNotFound(err))

		list, err := store.List(ctx, thread)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("put assigns id, seq and timestamp", func(t *testing.T) {
		cp := &Checkpoint{ThreadID: thread, Stage: "extraction", State: []byte(`{"a":1}`)}
		require.NoError(t, store.Put(ctx, cp))

		_, err := uuid.Parse(cp.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), cp.Seq)
		assert.NotZero(t, cp.CreatedAtMs)

		got, err := store.Get(ctx, thread, cp.ID)
		require.NoError(t, err)
		assert.Equal(t, cp, got)
	})

	t.Run("latest follows sequence", func(t *testing.T) {
		first, err := store.Latest(ctx, thread)
		require.NoError(t, err)

		second := &Checkpoint{ThreadID: thread, ParentID: first.ID, Stage: "classification", State: []byte(`{"b":2}`)}
		require.NoError(t, store.Put(ctx, second))
		assert.Equal(t, int64(2), second.Seq)

		latest, err := store.Latest(ctx, thread)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
		assert.Equal(t, first.ID, latest.ParentID)

		list, err := store.List(ctx, thread)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "extraction", list[0].Stage)
		assert.Equal(t, "classification", list[1].Stage)
	})

	t.Run("get unknown id is not found", func(t *testing.T) {
		_, err := store.Get(ctx, thread, uuid.NewString())
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects invalid checkpoint", func(t *testing.T) {
		err := store.Put(ctx, &Checkpoint{Stage: "x"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "thread ID cannot be empty")

		err = store.Put(ctx, &Checkpoint{ThreadID: thread, ID: "not-a-uuid", Stage: "x"})
		assert.Error(t, err)
	})

	t.Run("put with existing id replaces it", func(t *testing.T) {
		before, err := store.List(ctx, thread)
		require.NoError(t, err)
		first := before[0]

		first.Stage = "qa"
		first.State = []byte(`{"c":3}`)
		require.NoError(t, store.Put(ctx, first))

		got, err := store.Get(ctx, thread, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "qa", got.Stage)
		assert.Equal(t, []byte(`{"c":3}`), got.State)
		assert.Equal(t, int64(3), got.Seq)

		after, err := store.List(ctx, thread)
		require.NoError(t, err)
		require.Len(t, after, len(before))
		assert.Equal(t, first.ID, after[len(after)-1].ID)

		latest, err := store.Latest(ctx, thread)
		require.NoError(t, err)
		assert.Equal(t, first.ID, latest.ID)
	})

	t.Run("threads are isolated", func(t *testing.T) {
		other := "other-" + uuid.NewString()
		require.NoError(t, store.Put(ctx, &Checkpoint{ThreadID: other, Stage: "qa"}))

		list, err := store.List(ctx, thread)
		require.NoError(t, err)
		for _, cp := range list {
			assert.Equal(t, thread, cp.ThreadID)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	assert.Equal(t, KindMemory, store.Kind())
	storeContract(t, store)

	t.Run("returned checkpoints do not alias storage", func(t *testing.T) {
		ctx := context.Background()
		cp := &Checkpoint{ThreadID: "alias", Stage: "qa", State: []byte("abc")}
		require.NoError(t, store.Put(ctx, cp))

		cp.State[0] = 'X'
		got, err := store.Latest(ctx, "alias")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got.State)
	})
}

func TestRedisStore(t *testing.T) {
	store, _ := setupTestRedisStore(t)
	assert.Equal(t, KindDurable, store.Kind())
	storeContract(t, store)
}

func TestRedisStore_SetupIsIdempotent(t *testing.T) {
	store, mr := setupTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Setup(ctx))
	require.NoError(t, store.Setup(ctx))

	version, err := mr.Get(SchemaKey)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestRedisStore_SetupRejectsForeignSchema(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set(SchemaKey, "99"))

	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), true)
	defer store.Close()

	err := store.Setup(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported checkpoint schema version")
}

func TestRedisStore_SharedPoolNotClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, false)
	require.NoError(t, store.Close())
	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestHashToCheckpoint_Corrupt(t *testing.T) {
	_, err := HashToCheckpoint(map[string]string{"seq": "x", "created_at_ms": "1"})
	assert.Error(t, err)

	_, err = HashToCheckpoint(map[string]string{"seq": "1", "created_at_ms": "1", "id": "bad", "thread_id": "t", "stage": "qa"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt checkpoint hash")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "spendcube:thread:t1:checkpoint:c1", CheckpointKey("t1", "c1"))
	assert.Equal(t, "spendcube:thread:t1:checkpoints", ThreadIndexKey("t1"))
	assert.Equal(t, "spendcube:thread:t1:seq", ThreadSeqKey("t1"))
}
