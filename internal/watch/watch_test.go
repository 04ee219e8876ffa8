package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/YvodeRooij/spendcube/internal/checkpoint"
	"github.com/YvodeRooij/spendcube/internal/progress"
	"github.com/YvodeRooij/spendcube/pkg/spend"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a Source backed by buffered channels
type fakeSource struct {
	events chan progress.WireEvent
	errors chan error
}

func newFakeSource(events ...progress.WireEvent) *fakeSource {
	s := &fakeSource{
		events: make(chan progress.WireEvent, len(events)),
		errors: make(chan error, 1),
	}
	for _, e := range events {
		s.events <- e
	}
	return s
}

func (s *fakeSource) Events() <-chan progress.WireEvent { return s.events }
func (s *fakeSource) Errors() <-chan error             { return s.errors }

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputFormatDefault, "default": OutputFormatDefault, "jsonl": OutputFormatJSON, "json": OutputFormatJSON} {
		got, err := ParseOutputFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	classified := &progress.RecordClassified{
		Type:       progress.WireTypeClassification,
		ID:         "ev-1",
		RecordID:   "r1",
		Vendor:     "Dell",
		Code:       "43211503",
		Category:   "Notebook computers",
		Confidence: 0.9,
		Status:     spend.StatusClassified,
	}

	t.Run("defaultFormatter formats classification events", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&defaultFormatter{writer: &buf}).Format(classified))

		output := buf.String()
		assert.Contains(t, output, "Classified:")
		assert.Contains(t, output, "record=r1")
		assert.Contains(t, output, "code=43211503")
		assert.Contains(t, output, "confidence=0.90")
		assert.Contains(t, output, "status=classified")
	})

	t.Run("defaultFormatter formats progress, stage and error events", func(t *testing.T) {
		var buf bytes.Buffer
		f := &defaultFormatter{writer: &buf}
		require.NoError(t, f.Format(&progress.ProgressTick{Completed: 1, Total: 3, Progress: 33}))
		require.NoError(t, f.Format(&progress.StageUpdate{Stage: "qa"}))
		require.NoError(t, f.Format(&progress.ErrorNotice{Stage: "classification", Message: "boom"}))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "Progress: 1/3 (33%)")
		assert.Contains(t, lines[1], "Stage: qa")
		assert.Contains(t, lines[2], "stage=classification boom")
	})

	t.Run("jsonFormatter adds event name", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&jsonFormatter{writer: &buf}).Format(classified))

		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
		assert.Equal(t, "classification", fields["event"])
		assert.Equal(t, "r1", fields["record_id"])
		assert.Equal(t, "43211503", fields["code"])
	})
}

func TestStream(t *testing.T) {
	t.Run("renders until source closes", func(t *testing.T) {
		src := newFakeSource(&progress.StageUpdate{Stage: "extraction"}, &progress.StageUpdate{Stage: "classification"})
		close(src.events)

		var buf bytes.Buffer
		require.NoError(t, Stream(context.Background(), src, &buf, OutputFormatDefault, false))
		assert.Equal(t, 2, strings.Count(buf.String(), "Stage:"))
	})

	t.Run("exits on failure when asked", func(t *testing.T) {
		src := newFakeSource(&progress.ErrorNotice{Stage: "extraction", Message: "bad record"}, &progress.StageUpdate{Stage: "qa"})

		var buf bytes.Buffer
		err := Stream(context.Background(), src, &buf, OutputFormatDefault, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad record")
		assert.NotContains(t, buf.String(), "Stage: qa")
	})

	t.Run("malformed events are skipped", func(t *testing.T) {
		src := newFakeSource(&progress.StageUpdate{Stage: "qa"})
		src.errors <- assert.AnError
		close(src.events)

		var buf bytes.Buffer
		require.NoError(t, Stream(context.Background(), src, &buf, OutputFormatJSON, false))
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, Stream(ctx, newFakeSource(), &bytes.Buffer{}, OutputFormatDefault, false))
	})
}

func TestStream_RedisSubscription(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := progress.Subscribe(ctx, rdb, "s1")
	require.NoError(t, err)
	defer sub.Close()

	pub, err := progress.NewPublisher(rdb, "s1")
	require.NoError(t, err)

	bridge := progress.NewBridge()
	bridge.Subscribe("s1", progress.Forward(progress.NewAdapter(), pub.Send))
	bridge.Emit("s1", progress.StageChanged{Stage: "classification"})
	bridge.Emit("s1", progress.PipelineFailed{Stage: "classification", Message: "interrupted"})

	var buf bytes.Buffer
	err = Stream(ctx, sub, &buf, OutputFormatJSON, true)
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"event":"stage"`)
	assert.Contains(t, lines[1], `"event":"error"`)
}

func TestPollForStage(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	t.Run("returns once stage is reached", func(t *testing.T) {
		go func() {
			time.Sleep(100 * time.Millisecond)
			store.Put(ctx, &checkpoint.Checkpoint{ThreadID: "t1", Stage: "classification"})
			time.Sleep(100 * time.Millisecond)
			store.Put(ctx, &checkpoint.Checkpoint{ThreadID: "t1", Stage: "analysis"})
		}()

		got, err := PollForStage(ctx, store, "t1", "analysis", 3*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "analysis", got.Stage)
	})

	t.Run("times out", func(t *testing.T) {
		_, err := PollForStage(ctx, store, "never", "analysis", 300*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for stage analysis")
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := PollForStage(cctx, store, "never", "analysis", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
