package progress

import (
	"encoding/json"
	"fmt"

	"github.com/YvodeRooij/spendcube/pkg/spend"
)

// Event is an internal pipeline event carried by the Bridge.
// The set of implementations is closed: ClassificationProgress, StageChanged, PipelineFailed.
type Event interface {
	isEvent()
}

// ClassificationProgress is emitted once per completed record.
type ClassificationProgress struct {
	Completed int
	Total     int
	Record    spend.Record
	Judgment  spend.Judgment
	Status    spend.Status
}

// StageChanged is emitted when the pipeline enters a new stage.
type StageChanged struct {
	Stage string
}

// PipelineFailed is emitted when a run aborts.
type PipelineFailed struct {
	Stage   string
	Message string
}

func (ClassificationProgress) isEvent() {}
func (StageChanged) isEvent()           {}
func (PipelineFailed) isEvent()         {}

// WireType is the discriminant carried in every outgoing event's "type" field.
type WireType string

const (
	// WireTypeProgress tags aggregate completed/total ticks
	WireTypeProgress WireType = "progress"

	// WireTypeClassification tags per-record classification outcomes
	WireTypeClassification WireType = "classification"

	// WireTypeStage tags pipeline stage transitions
	WireTypeStage WireType = "stage"

	// WireTypeError tags run failures
	WireTypeError WireType = "error"
)

// WireEvent is an event as sent to the client.
// The set of implementations is closed: *ProgressTick, *RecordClassified, *StageUpdate, *ErrorNotice.
type WireEvent interface {
	wireType() WireType
}

// ProgressTick reports aggregate progress through the batch.
type ProgressTick struct {
	Type      WireType `json:"type"`
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"` // RFC3339 UTC
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
	Progress  int      `json:"progress"` // Percentage, 0-100
}

// RecordClassified reports the outcome for one record.
type RecordClassified struct {
	Type        WireType     `json:"type"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	RecordID    string       `json:"record_id"`
	Vendor      string       `json:"vendor"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Code        string       `json:"code"`
	Confidence  float64      `json:"confidence"`
	Status      spend.Status `json:"status"`
}

// StageUpdate reports a stage transition.
type StageUpdate struct {
	Type      WireType `json:"type"`
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Stage     string   `json:"stage"`
}

// ErrorNotice reports a failed run.
type ErrorNotice struct {
	Type      WireType `json:"type"`
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Stage     string   `json:"stage,omitempty"`
	Message   string   `json:"message"`
}

func (*ProgressTick) wireType() WireType     { return WireTypeProgress }
func (*RecordClassified) wireType() WireType { return WireTypeClassification }
func (*StageUpdate) wireType() WireType      { return WireTypeStage }
func (*ErrorNotice) wireType() WireType      { return WireTypeError }

// EventName returns the transport event name for a wire event.
func EventName(e WireEvent) string {
	switch e.(type) {
	case *ProgressTick:
		return "progress"
	case *RecordClassified:
		return "classification"
	case *StageUpdate:
		return "stage"
	case *ErrorNotice:
		return "error"
	default:
		panic(fmt.Sprintf("progress: unhandled wire event %T", e))
	}
}

// DecodeWireEvent parses a JSON-encoded wire event, dispatching on its "type" field.
func DecodeWireEvent(data []byte) (WireEvent, error) {
	var head struct {
		Type WireType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read event type: %w", err)
	}

	var ev WireEvent
	switch head.Type {
	case WireTypeProgress:
		ev = &ProgressTick{}
	case WireTypeClassification:
		ev = &RecordClassified{}
	case WireTypeStage:
		ev = &StageUpdate{}
	case WireTypeError:
		ev = &ErrorNotice{}
	default:
		return nil, fmt.Errorf("unknown event type: %q", head.Type)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", head.Type, err)
	}
	return ev, nil
}
