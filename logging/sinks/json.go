package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"slices"
	"sync"
	"time"

	"project-hunter/server/logging"
)

// jsonRecord is one line of the JSON sink.
type jsonRecord struct {
	Type      logging.EventType   `json:"type"`
	Tick      uint64              `json:"tick"`
	Time      string              `json:"time"`
	Severity  string              `json:"severity"`
	Category  string              `json:"category,omitempty"`
	Actor     logging.EntityRef   `json:"actor"`
	Targets   []logging.EntityRef `json:"targets,omitempty"`
	Payload   any                 `json:"payload,omitempty"`
	Extra     map[string]any      `json:"extra,omitempty"`
	TraceID   string              `json:"traceId,omitempty"`
	CommandID string              `json:"commandId,omitempty"`
}

// JSON writes newline-delimited events, typically the loot and economy audit
// trail. Lines are buffered and flushed every MaxBatch events, on the flush
// interval, and on Close.
type JSON struct {
	mu         sync.Mutex
	writer     *bufio.Writer
	encoder    *json.Encoder
	categories []string
	maxBatch   int
	pending    int
	stop       chan struct{}
	done       chan struct{}
	closed     bool
}

// NewJSON constructs a JSON sink writing to w. An empty category list keeps
// every event; a non-positive flush interval flushes after each event.
func NewJSON(w io.Writer, cfg logging.JSONConfig) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:     buf,
		encoder:    json.NewEncoder(buf),
		categories: append([]string(nil), cfg.Categories...),
		maxBatch:   cfg.MaxBatch,
	}
	if cfg.FlushInterval <= 0 {
		sink.maxBatch = 1
		return sink
	}
	sink.stop = make(chan struct{})
	sink.done = make(chan struct{})
	go sink.periodicFlush(cfg.FlushInterval)
	return sink
}

// Write satisfies logging.Sink.
func (s *JSON) Write(event logging.Event) error {
	if len(s.categories) > 0 && !slices.Contains(s.categories, event.Category) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	record := jsonRecord{
		Type:      event.Type,
		Tick:      event.Tick,
		Time:      event.Time.UTC().Format(time.RFC3339Nano),
		Severity:  event.Severity.String(),
		Category:  event.Category,
		Actor:     event.Actor,
		Targets:   event.Targets,
		Payload:   event.Payload,
		Extra:     event.Extra,
		TraceID:   event.TraceID,
		CommandID: event.CommandID,
	}
	if err := s.encoder.Encode(record); err != nil {
		return err
	}
	s.pending++
	if s.maxBatch > 0 && s.pending >= s.maxBatch {
		return s.flushLocked()
	}
	return nil
}

// Close stops the flush loop and flushes buffered lines.
func (s *JSON) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		select {
		case <-s.done:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *JSON) flushLocked() error {
	s.pending = 0
	return s.writer.Flush()
}

func (s *JSON) periodicFlush(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.pending > 0 {
				s.flushLocked()
			}
			s.mu.Unlock()
		}
	}
}
