package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/YvodeRooij/spendcube/internal/checkpoint"
	"github.com/YvodeRooij/spendcube/internal/progress"
)

// OutputFormat selects how streamed events are rendered
type OutputFormat string

const (
	// OutputFormatDefault renders one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON renders one JSON object per line
	OutputFormatJSON OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, "":
		return OutputFormatDefault, nil
	case OutputFormatJSON, "json":
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q (must be 'default' or 'jsonl')", s)
	}
}

// formatter renders wire events to a writer
type formatter interface {
	Format(event progress.WireEvent) error
}

func newFormatter(format OutputFormat, w io.Writer) formatter {
	if format == OutputFormatJSON {
		return &jsonFormatter{writer: w}
	}
	return &defaultFormatter{writer: w}
}

// defaultFormatter renders events as emoji-prefixed lines
type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) Format(event progress.WireEvent) error {
	var err error
	switch e := event.(type) {
	case *progress.ProgressTick:
		_, err = fmt.Fprintf(f.writer, "📊 Progress: %d/%d (%d%%)\n", e.Completed, e.Total, e.Progress)
	case *progress.RecordClassified:
		_, err = fmt.Fprintf(f.writer, "🏷️  Classified: record=%s vendor=%q code=%s category=%q confidence=%.2f status=%s\n",
			e.RecordID, e.Vendor, e.Code, e.Category, e.Confidence, e.Status)
	case *progress.StageUpdate:
		_, err = fmt.Fprintf(f.writer, "➡️  Stage: %s\n", e.Stage)
	case *progress.ErrorNotice:
		if e.Stage != "" {
			_, err = fmt.Fprintf(f.writer, "❌ Failed: stage=%s %s\n", e.Stage, e.Message)
		} else {
			_, err = fmt.Fprintf(f.writer, "❌ Failed: %s\n", e.Message)
		}
	default:
		err = fmt.Errorf("unhandled event %T", event)
	}
	return err
}

// jsonFormatter renders events as JSON lines with an "event" name field
type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) Format(event progress.WireEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	fields["event"] = progress.EventName(event)

	return json.NewEncoder(f.writer).Encode(fields)
}

// Source is a stream of wire events. *progress.Subscription satisfies it.
type Source interface {
	Events() <-chan progress.WireEvent
	Errors() <-chan error
}

// Stream renders events from src to w until ctx is cancelled or the source closes.
// A run failure is rendered and then returned as an error when exitOnFailure is set.
func Stream(ctx context.Context, src Source, w io.Writer, format OutputFormat, exitOnFailure bool) error {
	f := newFormatter(format, w)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-src.Events():
			if !ok {
				return nil
			}
			if err := f.Format(event); err != nil {
				return fmt.Errorf("failed to render event: %w", err)
			}
			if notice, failed := event.(*progress.ErrorNotice); failed && exitOnFailure {
				return fmt.Errorf("pipeline failed at stage %s: %s", notice.Stage, notice.Message)
			}

		case err, ok := <-src.Errors():
			if !ok {
				return nil
			}
			log.Printf("[Watch] Skipping malformed event: %v", err)
		}
	}
}

// PollForStage polls a thread until its latest checkpoint is at stage.
// Returns the checkpoint or an error if the timeout elapses.
// Polls every 200ms.
func PollForStage(ctx context.Context, cp checkpoint.Checkpointer, threadID, stage string, timeout time.Duration) (*checkpoint.Checkpoint, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for stage %s after %v", stage, timeout)

		case <-ticker.C:
			latest, err := cp.Latest(ctx, threadID)
			if err != nil {
				if checkpoint.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query latest checkpoint: %w", err)
			}

			if latest.Stage == stage {
				return latest, nil
			}
		}
	}
}
