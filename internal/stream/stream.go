// Package stream fans out store-change events to live subscribers (the SSE
// endpoint). Mutating handlers publish after a successful write; dashboards
// and shop lists re-pull on receipt. Core computations never block on this:
// delivery is best-effort and slow subscribers are skipped.
package stream

import (
	"context"
	"sync"
	"time"
)

// Op is the kind of store mutation an event describes.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes one committed store mutation.
type Event struct {
	Entity    string    `json:"entity"` // "shop", "tenant", "agreement", "payment", "expense"
	EntityID  string    `json:"entity_id"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// Changed is shorthand for publishing a mutation event.
func (s *Stream) Changed(entity, id string, op Op) {
	if s == nil {
		return
	}
	s.Publish(Event{Entity: entity, EntityID: id, Op: op})
}
