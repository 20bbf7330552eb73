package sim

import "sync"

const commandBufferMetricPrefix = "sim_command_buffer"

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// Ring stores staged values in a fixed-size ring. It is safe for concurrent
// producers and a single consumer.
//
// A ring built with Coalesce keeps, per key, the offset of the most recently
// staged value. A new value that merges with it overwrites that slot instead
// of taking a new one, so per-key order is preserved.
type Ring[T any] struct {
	mu      sync.Mutex
	data    []T
	head    int
	count   int
	metrics telemetryMetrics

	key   func(T) string
	merge func(prev, next T) bool
	last  map[string]int

	occupancyKey string
	overflowKey  string
	mergedKey    string
}

// CommandBuffer is the loop's command queue. Aim and move frames from the
// same actor collapse into the latest one while nothing else from that actor
// was staged after them.
type CommandBuffer = Ring[Command]

// NewCommandBuffer constructs a command ring with the provided capacity.
func NewCommandBuffer(capacity int, metrics telemetryMetrics) *CommandBuffer {
	return NewRing[Command](capacity, metrics, commandBufferMetricPrefix).
		Coalesce(func(cmd Command) string { return cmd.ActorID }, supersedes)
}

// supersedes reports whether next replaces prev outright.
func supersedes(prev, next Command) bool {
	if prev.ActorID == "" || prev.Type != next.Type {
		return false
	}
	return next.Type == CommandAim || next.Type == CommandMove
}

// NewRing constructs a ring. Occupancy, overflow and merges are reported
// under prefix when metrics is non-nil.
func NewRing[T any](capacity int, metrics telemetryMetrics, prefix string) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		data:         make([]T, capacity),
		metrics:      metrics,
		occupancyKey: prefix + "_occupancy",
		overflowKey:  prefix + "_overflow_total",
		mergedKey:    prefix + "_coalesced_total",
	}
}

// Coalesce enables merging and returns the ring.
func (b *Ring[T]) Coalesce(key func(T) string, merge func(prev, next T) bool) *Ring[T] {
	if b == nil || key == nil || merge == nil {
		return b
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.key = key
	b.merge = merge
	b.last = make(map[string]int)
	return b
}

// Capacity reports the maximum number of values the ring can hold.
func (b *Ring[T]) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages a value, returning false if the ring is full.
func (b *Ring[T]) Push(v T) bool {
	ok, _ := b.Stage(v)
	return ok
}

// Stage stages a value. merged is true when v overwrote a staged value
// rather than taking a slot; a merge succeeds even when the ring is full.
func (b *Ring[T]) Stage(v T) (ok, merged bool) {
	if b == nil {
		return false, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if slot, found := b.mergeSlotLocked(v); found {
		b.data[slot] = v
		if b.metrics != nil {
			b.metrics.Add(b.mergedKey, 1)
		}
		return true, true
	}
	if b.count == len(b.data) {
		if b.metrics != nil {
			b.metrics.Add(b.overflowKey, 1)
		}
		return false, false
	}
	if b.key != nil {
		b.last[b.key(v)] = b.count
	}
	b.data[(b.head+b.count)%len(b.data)] = v
	b.count++
	b.storeOccupancyLocked()
	return true, false
}

// Merges reports whether staging v would overwrite a staged value.
func (b *Ring[T]) Merges(v T) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, found := b.mergeSlotLocked(v)
	return found
}

func (b *Ring[T]) mergeSlotLocked(v T) (int, bool) {
	if b.key == nil {
		return 0, false
	}
	offset, ok := b.last[b.key(v)]
	if !ok {
		return 0, false
	}
	slot := (b.head + offset) % len(b.data)
	if !b.merge(b.data[slot], v) {
		return 0, false
	}
	return slot, true
}

// Drain returns all staged values in FIFO order and clears the ring.
func (b *Ring[T]) Drain() []T {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	out := make([]T, b.count)
	var zero T
	for i := range out {
		idx := (b.head + i) % len(b.data)
		out[i] = b.data[idx]
		b.data[idx] = zero
	}
	b.head = (b.head + b.count) % len(b.data)
	b.count = 0
	if b.last != nil {
		clear(b.last)
	}
	b.storeOccupancyLocked()
	return out
}

// Len reports the number of staged values.
func (b *Ring[T]) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Ring[T]) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(b.occupancyKey, uint64(b.count))
}
