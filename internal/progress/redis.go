package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// publishTimeout bounds a single PUBLISH so a slow Redis never stalls the processing loop.
const publishTimeout = 2 * time.Second

// Channel returns the Pub/Sub channel carrying wire events for a session.
// Pattern: spendcube:{session_id}:progress_events
func Channel(sessionID string) string {
	return fmt.Sprintf("spendcube:%s:progress_events", sessionID)
}

// Publisher is a Sender that publishes wire events to a session's Redis channel.
// Delivery is at-most-once, matching Redis Pub/Sub semantics.
type Publisher struct {
	rdb       *redis.Client
	sessionID string
}

// NewPublisher creates a publisher for one session.
func NewPublisher(rdb *redis.Client, sessionID string) (*Publisher, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}
	return &Publisher{rdb: rdb, sessionID: sessionID}, nil
}

// Send publishes payload as JSON. Failures are logged and dropped.
func (p *Publisher) Send(eventName string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Progress] Failed to marshal %s event: %v", eventName, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, Channel(p.sessionID), data).Err(); err != nil {
		log.Printf("[Progress] Failed to publish %s event for session %s: %v", eventName, p.sessionID, err)
	}
}

// Subscription represents an active Pub/Sub subscription to a session's progress events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan WireEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of decoded wire events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan WireEvent {
	return s.events
}

// Errors returns the channel of decode errors. The subscription continues after errors.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to a session's progress channel.
// It returns once Redis has confirmed the subscription, so events published
// afterwards are not missed.
func Subscribe(ctx context.Context, rdb *redis.Client, sessionID string) (*Subscription, error) {
	pubsub := rdb.Subscribe(ctx, Channel(sessionID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to progress events: %w", err)
	}

	eventsChan := make(chan WireEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				ev, err := DecodeWireEvent([]byte(msg.Payload))
				if err != nil {
					select {
					case errorsChan <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
