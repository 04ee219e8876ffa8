package progress

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Sender is the transport boundary supplied by the hosting request handler.
type Sender func(eventName string, payload any)

// Adapter translates internal events into wire events.
type Adapter struct {
	newID func() string
	now   func() time.Time
}

// NewAdapter creates an adapter that stamps events with random UUIDs and the current UTC time.
func NewAdapter() *Adapter {
	return &Adapter{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Percent returns round(100 * completed / total). A non-positive total yields 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := math.Round(100 * float64(completed) / float64(total))
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return int(p)
}

// Translate converts one internal event into the wire events sent to the client.
// Every returned event carries a fresh ID and timestamp.
func (a *Adapter) Translate(event Event) []WireEvent {
	switch ev := event.(type) {
	case ClassificationProgress:
		return []WireEvent{
			&ProgressTick{
				Type:      WireTypeProgress,
				ID:        a.newID(),
				Timestamp: a.stamp(),
				Completed: ev.Completed,
				Total:     ev.Total,
				Progress:  Percent(ev.Completed, ev.Total),
			},
			&RecordClassified{
				Type:        WireTypeClassification,
				ID:          a.newID(),
				Timestamp:   a.stamp(),
				RecordID:    ev.Record.ID,
				Vendor:      ev.Record.Vendor,
				Description: ev.Record.Description,
				Category:    ev.Judgment.Title,
				Code:        ev.Judgment.Code,
				Confidence:  ev.Judgment.Confidence,
				Status:      ev.Status,
			},
		}
	case StageChanged:
		return []WireEvent{
			&StageUpdate{
				Type:      WireTypeStage,
				ID:        a.newID(),
				Timestamp: a.stamp(),
				Stage:     ev.Stage,
			},
		}
	case PipelineFailed:
		return []WireEvent{
			&ErrorNotice{
				Type:      WireTypeError,
				ID:        a.newID(),
				Timestamp: a.stamp(),
				Stage:     ev.Stage,
				Message:   ev.Message,
			},
		}
	default:
		return nil
	}
}

func (a *Adapter) stamp() string {
	return a.now().UTC().Format(time.RFC3339Nano)
}

// Forward builds a Listener that translates each event and passes the results to send.
func Forward(adapter *Adapter, send Sender) Listener {
	return func(event Event) {
		for _, w := range adapter.Translate(event) {
			send(EventName(w), w)
		}
	}
}
