package sinks

import (
	"context"
	"maps"
	"sync"

	"project-hunter/server/logging"
)

// DefaultRecentEvents is the retention the server uses for the memory sink
// behind the diagnostics endpoint.
const DefaultRecentEvents = 256

// MemorySink keeps published events in memory. With a limit it retains only
// the most recent events, oldest first.
type MemorySink struct {
	mu      sync.RWMutex
	limit   int
	events  []logging.Event
	evicted uint64
}

// NewMemorySink keeps every event.
func NewMemorySink() *MemorySink {
	return NewBoundedMemorySink(0)
}

// NewBoundedMemorySink keeps at most limit events. A non-positive limit keeps
// every event.
func NewBoundedMemorySink(limit int) *MemorySink {
	if limit < 0 {
		limit = 0
	}
	return &MemorySink{limit: limit}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && len(s.events) == s.limit {
		copy(s.events, s.events[1:])
		s.events = s.events[:len(s.events)-1]
		s.evicted++
	}
	s.events = append(s.events, cloneForMemory(event))
	return nil
}

// Events returns the retained events, oldest first.
func (s *MemorySink) Events() []logging.Event {
	return s.filter(func(logging.Event) bool { return true })
}

// OfType returns the retained events with the given type.
func (s *MemorySink) OfType(eventType logging.EventType) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Type == eventType })
}

// OfCategory returns the retained events in category.
func (s *MemorySink) OfCategory(category string) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Category == category })
}

// Evicted reports how many events fell out of a bounded sink.
func (s *MemorySink) Evicted() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	s.evicted = 0
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}

func (s *MemorySink) filter(keep func(logging.Event) bool) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]logging.Event, 0, len(s.events))
	for _, event := range s.events {
		if keep(event) {
			out = append(out, cloneForMemory(event))
		}
	}
	return out
}

func cloneForMemory(event logging.Event) logging.Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]logging.EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		cloned.Extra = maps.Clone(event.Extra)
	}
	return cloned
}
