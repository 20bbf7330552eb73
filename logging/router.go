package logging

import (
	"context"
	"log"
	"maps"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Fallback receives the router's own diagnostics (drops, sink failures).
type Fallback interface {
	Printf(format string, args ...any)
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithFallback redirects router diagnostics away from stderr.
func WithFallback(fallback Fallback) RouterOption {
	return func(r *Router) {
		if fallback != nil {
			r.fallback = fallback
		}
	}
}

// WithMetrics mirrors event and drop counts into metrics.
func WithMetrics(metrics *Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// uncategorized buckets events published without a category.
const uncategorized = "uncategorized"

// Router fans events out to sinks through one bounded queue and a worker per
// sink. A slow sink loses its own backlog without stalling the others.
type Router struct {
	cfg      Config
	queue    chan Event
	sinks    []*sinkWorker
	clock    Clock
	fallback Fallback
	metrics  *Metrics
	fields   map[string]any
	floors   map[string]Severity
	minimum  Severity
	stop     chan struct{}
	closed   atomic.Bool
	wg       sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	dropLog      rateGate

	categoryMu sync.Mutex
	categories map[string]uint64
}

// RouterStats is the router's view of traffic since start.
type RouterStats struct {
	EventsTotal  uint64            `json:"eventsTotal"`
	DroppedTotal uint64            `json:"droppedTotal"`
	SinkDrops    map[string]uint64 `json:"sinkDrops,omitempty"`
	Categories   map[string]uint64 `json:"categories,omitempty"`
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink, opts ...RouterOption) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	r := &Router{
		cfg:        cfg,
		queue:      make(chan Event, bufferSize),
		clock:      clock,
		fallback:   log.New(os.Stderr, "[logging] ", log.LstdFlags),
		fields:     cfg.CloneFields(),
		floors:     maps.Clone(cfg.CategorySeverity),
		minimum:    cfg.MinimumSeverity,
		stop:       make(chan struct{}),
		categories: make(map[string]uint64),
		dropLog:    rateGate{interval: cfg.DropWarnInterval},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	sinkBuffer := min(max(bufferSize, 32), 1024)
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.sinks = append(r.sinks, &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			events:   make(chan Event, sinkBuffer),
			fallback: r.fallback,
			metrics:  r.metrics,
			dropLog:  rateGate{interval: cfg.DropWarnInterval},
		})
	}

	for _, worker := range r.sinks {
		r.wg.Add(1)
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(worker)
	}
	r.wg.Add(1)
	go r.dispatch()
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, worker := range r.sinks {
			close(worker.events)
		}
	}()
	for {
		select {
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

// floor returns the lowest severity forwarded for category.
func (r *Router) floor(category string) Severity {
	if floor, ok := r.floors[category]; ok {
		return floor
	}
	return r.minimum
}

func (r *Router) forward(event Event) {
	if event.Severity < r.floor(event.Category) {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)

	category := event.Category
	if category == "" {
		category = uncategorized
	}
	r.categoryMu.Lock()
	r.categories[category]++
	r.categoryMu.Unlock()

	r.eventsTotal.Add(1)
	r.metrics.TelemetryAdd("logging_events_total", 1)
	r.metrics.TelemetryAdd("logging_events_"+category+"_total", 1)
	for _, worker := range r.sinks {
		worker.enqueue(event)
	}
}

// Publish queues event for the sinks. Events without a type, events published
// after Close and events whose ctx is already done are ignored.
func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	if ctx != nil && ctx.Err() != nil {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.droppedTotal.Add(1)
		r.metrics.TelemetryAdd("logging_dropped_total", 1)
		if r.dropLog.allow(time.Now()) {
			r.fallback.Printf("queue full, dropping event type=%s category=%s tick=%d", event.Type, event.Category, event.Tick)
		}
	}
}

// Close drains queued events into the sinks and closes them. Only the first
// call does any work.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, worker := range r.sinks {
		if err := worker.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
	if len(r.sinks) > 0 {
		stats.SinkDrops = make(map[string]uint64, len(r.sinks))
		for _, worker := range r.sinks {
			stats.SinkDrops[worker.name] = worker.dropped.Load()
		}
	}
	r.categoryMu.Lock()
	if len(r.categories) > 0 {
		stats.Categories = maps.Clone(r.categories)
	}
	r.categoryMu.Unlock()
	return stats
}

// SinkNames lists the attached sinks in name order.
func (r *Router) SinkNames() []string {
	names := make([]string, 0, len(r.sinks))
	for _, worker := range r.sinks {
		names = append(names, worker.name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) Sink(name string) Sink {
	for _, worker := range r.sinks {
		if worker.name == name {
			return worker.sink
		}
	}
	return nil
}

// rateGate lets one caller through per interval.
type rateGate struct {
	interval time.Duration
	next     atomic.Int64
}

func (g *rateGate) allow(now time.Time) bool {
	interval := g.interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	next := g.next.Load()
	if next != 0 && now.UnixNano() < next {
		return false
	}
	return g.next.CompareAndSwap(next, now.Add(interval).UnixNano())
}

type sinkWorker struct {
	name      string
	sink      Sink
	events    chan Event
	fallback  Fallback
	metrics   *Metrics
	failures  int
	nextRetry time.Time
	dropped   atomic.Uint64
	dropLog   rateGate
}

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- cloneForFields(event):
	default:
		w.dropped.Add(1)
		w.metrics.TelemetryAdd("logging_sink_dropped_total", 1)
		if w.dropLog.allow(time.Now()) {
			w.fallback.Printf("sink %s backlog full, dropped=%d last type=%s", w.name, w.dropped.Load(), event.Type)
		}
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		if wait := time.Until(w.nextRetry); w.failures > 0 && wait > 0 {
			time.Sleep(wait)
		}
		if err := w.sink.Write(event); err != nil {
			w.failures++
			w.metrics.TelemetryAdd("logging_sink_failures_total", 1)
			delay := time.Duration(1<<min(w.failures, 5)) * time.Second
			w.nextRetry = time.Now().Add(delay)
			w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, delay)
			continue
		}
		w.failures = 0
		w.nextRetry = time.Time{}
	}
}
