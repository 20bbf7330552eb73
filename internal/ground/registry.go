package ground

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"project-hunter/server/internal/items"
	"project-hunter/server/internal/journal"
	"project-hunter/server/internal/vec"
)

// ID identifies a ground item for the lifetime of a registry. IDs start at 1
// and are never handed out twice.
type ID uint64

// Invalid is the zero ID; no entry ever carries it.
const Invalid ID = 0

// Binding locates an entry's visual inside the batched group for its kind.
type Binding struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
}

// Entry is a read-only view of one ground item.
type Entry struct {
	ID       ID          `json:"id"`
	Item     *items.Item `json:"item"`
	Location vec.Vec3    `json:"location"`
	Binding  Binding     `json:"binding"`
}

// VisualSink receives batched visual updates. RemoveInstance follows
// swap-remove semantics: the last instance of the group moves into index.
type VisualSink interface {
	AddInstance(kind string, index int, location vec.Vec3)
	UpdateInstance(kind string, index int, location vec.Vec3)
	RemoveInstance(kind string, index int)
}

// Option configures a Registry.
type Option func(*Registry)

// WithVisualSink forwards visual updates to sink.
func WithVisualSink(sink VisualSink) Option {
	return func(r *Registry) {
		r.sink = sink
	}
}

// WithJournal records every mutation as a patch.
func WithJournal(j *journal.Journal) Option {
	return func(r *Registry) {
		r.journal = j
	}
}

// Registry is the catalogue of items lying in the world. The four maps
// (items, locations, bindings, bindingIndex) change together under one lock.
type Registry struct {
	mu sync.RWMutex

	nextID ID

	items        map[ID]*items.Item
	locations    map[ID]vec.Vec3
	bindings     map[ID]Binding
	bindingIndex map[Binding]ID
	groups       map[string][]ID

	sink    VisualSink
	journal *journal.Journal
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		nextID:       1,
		items:        make(map[ID]*items.Item),
		locations:    make(map[ID]vec.Vec3),
		bindings:     make(map[ID]Binding),
		bindingIndex: make(map[Binding]ID),
		groups:       make(map[string][]ID),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Insert places item at location and returns its fresh ID. A nil item is
// rejected with Invalid.
func (r *Registry) Insert(item *items.Item, location vec.Vec3) ID {
	if r == nil || item == nil {
		return Invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.insertLocked(id, item, location)
	return id
}

// Restore re-inserts item under an ID that was previously handed out and has
// since been removed. It is the rollback path for a failed pickup; it never
// allocates a new ID.
func (r *Registry) Restore(id ID, item *items.Item, location vec.Vec3) error {
	if r == nil || item == nil {
		return fmt.Errorf("ground: nil registry or item")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == Invalid || id >= r.nextID {
		return fmt.Errorf("ground: id %d was never allocated", id)
	}
	if _, exists := r.items[id]; exists {
		return fmt.Errorf("ground: id %d is occupied", id)
	}
	r.insertLocked(id, item, location)
	return nil
}

func (r *Registry) insertLocked(id ID, item *items.Item, location vec.Vec3) {
	kind := item.VisualKind()
	binding := Binding{Kind: kind, Index: len(r.groups[kind])}
	r.groups[kind] = append(r.groups[kind], id)

	r.items[id] = item
	r.locations[id] = location
	r.bindings[id] = binding
	r.bindingIndex[binding] = id

	if r.sink != nil {
		r.sink.AddInstance(kind, binding.Index, location)
	}
	r.journal.AppendPatch(journal.Patch{
		Kind:     journal.PatchGroundItemAdded,
		EntityID: uint64(id),
		Payload: journal.GroundItemPayload{
			ItemID:   item.ID,
			Type:     string(item.Type),
			Rarity:   item.Rarity.String(),
			Quantity: item.Stack,
			Visual:   kind,
			Position: location,
		},
	})
}

// Remove tears down the entry and returns its item, or nil when id is absent.
func (r *Registry) Remove(id ID) *items.Item {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil
	}
	binding := r.bindings[id]
	group := r.groups[binding.Kind]
	last := len(group) - 1

	delete(r.bindingIndex, binding)
	if binding.Index != last {
		moved := group[last]
		group[binding.Index] = moved
		movedBinding := Binding{Kind: binding.Kind, Index: binding.Index}
		delete(r.bindingIndex, Binding{Kind: binding.Kind, Index: last})
		r.bindings[moved] = movedBinding
		r.bindingIndex[movedBinding] = moved
	}
	group = group[:last]
	if len(group) == 0 {
		delete(r.groups, binding.Kind)
	} else {
		r.groups[binding.Kind] = group
	}

	delete(r.items, id)
	delete(r.locations, id)
	delete(r.bindings, id)

	if r.sink != nil {
		r.sink.RemoveInstance(binding.Kind, binding.Index)
	}
	r.journal.AppendPatch(journal.Patch{Kind: journal.PatchGroundItemRemoved, EntityID: uint64(id)})
	return item
}

// UpdateLocation moves an entry and its visual.
func (r *Registry) UpdateLocation(id ID, location vec.Vec3) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false
	}
	r.locations[id] = location
	binding := r.bindings[id]
	if r.sink != nil {
		r.sink.UpdateInstance(binding.Kind, binding.Index, location)
	}
	r.journal.AppendPatch(journal.Patch{
		Kind:     journal.PatchGroundItemPos,
		EntityID: uint64(id),
		Payload:  journal.PositionPayload{Position: location},
	})
	return true
}

// Get returns the item stored under id.
func (r *Registry) Get(id ID) (*items.Item, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok
}

// Location returns the world location stored under id.
func (r *Registry) Location(id ID) (vec.Vec3, bool) {
	if r == nil {
		return vec.Vec3{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[id]
	return loc, ok
}

// Entry returns the full view of one entry.
func (r *Registry) Entry(id ID) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: id, Item: item, Location: r.locations[id], Binding: r.bindings[id]}, true
}

// Contains reports whether id is currently on the ground.
func (r *Registry) Contains(id ID) bool {
	_, ok := r.Get(id)
	return ok
}

// Len reports the number of entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// NearestInRadius returns the closest entry within radius of p. Ties on
// distance resolve to the smaller ID.
func (r *Registry) NearestInRadius(p vec.Vec3, radius float64) (ID, *items.Item, bool) {
	if r == nil || radius < 0 {
		return Invalid, nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit := radius * radius
	best := Invalid
	bestDist := math.Inf(1)
	for id, loc := range r.locations {
		d := loc.DistSq(p)
		if d > limit {
			continue
		}
		if d < bestDist || (d == bestDist && id < best) {
			best = id
			bestDist = d
		}
	}
	if best == Invalid {
		return Invalid, nil, false
	}
	return best, r.items[best], true
}

// InRadius lists every entry within radius of p, ordered by ID.
func (r *Registry) InRadius(p vec.Vec3, radius float64) []Entry {
	if r == nil || radius < 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit := radius * radius
	var out []Entry
	for id, loc := range r.locations {
		if loc.DistSq(p) > limit {
			continue
		}
		out = append(out, Entry{ID: id, Item: r.items[id], Location: loc, Binding: r.bindings[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entries lists every entry ordered by ID.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.items))
	for id, item := range r.items {
		out = append(out, Entry{ID: id, Item: item, Location: r.locations[id], Binding: r.bindings[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Items returns a copy of the ID to item map.
func (r *Registry) Items() map[ID]*items.Item {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ID]*items.Item, len(r.items))
	for id, item := range r.items {
		out[id] = item
	}
	return out
}

// Locations returns a copy of the ID to location map.
func (r *Registry) Locations() map[ID]vec.Vec3 {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ID]vec.Vec3, len(r.locations))
	for id, loc := range r.locations {
		out[id] = loc
	}
	return out
}

// Bindings returns a copy of the ID to visual binding map.
func (r *Registry) Bindings() map[ID]Binding {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ID]Binding, len(r.bindings))
	for id, binding := range r.bindings {
		out[id] = binding
	}
	return out
}

// BindingIndex returns a copy of the visual binding to ID map.
func (r *Registry) BindingIndex() map[Binding]ID {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Binding]ID, len(r.bindingIndex))
	for binding, id := range r.bindingIndex {
		out[binding] = id
	}
	return out
}

// Verify checks that the four maps and the visual groups agree.
func (r *Registry) Verify() error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.items)
	if len(r.locations) != n || len(r.bindings) != n || len(r.bindingIndex) != n {
		return fmt.Errorf("ground: map sizes diverge items=%d locations=%d bindings=%d index=%d",
			n, len(r.locations), len(r.bindings), len(r.bindingIndex))
	}
	grouped := 0
	for kind, group := range r.groups {
		for idx, id := range group {
			binding, ok := r.bindings[id]
			if !ok || binding.Kind != kind || binding.Index != idx {
				return fmt.Errorf("ground: group %s[%d] holds %d with binding %+v", kind, idx, id, binding)
			}
		}
		grouped += len(group)
	}
	if grouped != n {
		return fmt.Errorf("ground: %d grouped visuals for %d entries", grouped, n)
	}
	for id := range r.items {
		if _, ok := r.locations[id]; !ok {
			return fmt.Errorf("ground: id %d missing location", id)
		}
		binding, ok := r.bindings[id]
		if !ok {
			return fmt.Errorf("ground: id %d missing binding", id)
		}
		if back, ok := r.bindingIndex[binding]; !ok || back != id {
			return fmt.Errorf("ground: binding %+v maps to %d, want %d", binding, back, id)
		}
		if id == Invalid || id >= r.nextID {
			return fmt.Errorf("ground: id %d outside allocated range", id)
		}
	}
	return nil
}
