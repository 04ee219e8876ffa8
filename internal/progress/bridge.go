// Package progress connects the sequential record-processing loop to whatever
// transport streams updates back to a waiting client.
//
// The Bridge maps a session key to exactly one listener. The processing loop
// emits internal events into the bridge; a listener built with Forward turns
// each internal event into wire events and hands them to a transport Sender
// (an SSE writer, a Redis channel, a test recorder).
package progress

import "sync"

// Listener receives events emitted for one session.
type Listener func(Event)

// Bridge is the session → listener registry. It is safe for concurrent use by
// distinct sessions. Within a session, events are delivered in Emit call order.
type Bridge struct {
	mu        sync.RWMutex
	listeners map[string]Listener
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{listeners: make(map[string]Listener)}
}

// Subscribe registers listener as the sole listener for sessionID.
// Any listener previously registered for the same key is replaced.
func (b *Bridge) Subscribe(sessionID string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[sessionID] = listener
}

// Unsubscribe removes the listener for sessionID. No-op if none is registered.
func (b *Bridge) Unsubscribe(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, sessionID)
}

// Emit delivers event synchronously to the session's listener.
// Without a listener the event is dropped; Emit never blocks, buffers or retries.
func (b *Bridge) Emit(sessionID string, event Event) {
	b.mu.RLock()
	listener := b.listeners[sessionID]
	b.mu.RUnlock()

	if listener != nil {
		listener(event)
	}
}

// HasListener reports whether sessionID currently has a listener.
func (b *Bridge) HasListener(sessionID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.listeners[sessionID]
	return ok
}

// Sessions returns the number of sessions with a registered listener.
func (b *Bridge) Sessions() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
