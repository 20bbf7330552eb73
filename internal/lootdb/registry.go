package lootdb

import (
	"fmt"
	"maps"
	"sort"
	"sync"
)

// Registry maps source ids to source entries. The backing document is read
// on first demand.
type Registry struct {
	loader AssetLoader
	ref    string

	mu         sync.RWMutex
	loaded     bool
	sources    map[string]SourceEntry
	registered map[string]SourceEntry
}

// NewRegistry builds a registry backed by the document at ref. An empty ref
// gives a registry that only holds registered entries.
func NewRegistry(loader AssetLoader, ref string) *Registry {
	return &Registry{
		loader:     loader,
		ref:        ref,
		sources:    make(map[string]SourceEntry),
		registered: make(map[string]SourceEntry),
	}
}

// Register adds or replaces a source. It survives Reload only when the
// document does not also define the id.
func (r *Registry) Register(entry SourceEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("lootdb: source id required")
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("lootdb: source %s: %w", entry.ID, err)
	}
	if err := r.ensureLoaded(); err != nil {
		return err
	}
	r.mu.Lock()
	r.registered[entry.ID] = entry
	r.sources[entry.ID] = entry
	r.mu.Unlock()
	return nil
}

// Has reports whether id is listed, enabled or not.
func (r *Registry) Has(id string) bool {
	if err := r.ensureLoaded(); err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[id]
	return ok
}

// Entry returns the listed entry for id.
func (r *Registry) Entry(id string) (SourceEntry, bool) {
	if err := r.ensureLoaded(); err != nil {
		return SourceEntry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sources[id]
	return entry, ok
}

// Source returns the entry for id, or ErrUnknownSource / ErrDisabledSource.
func (r *Registry) Source(id string) (SourceEntry, error) {
	if err := r.ensureLoaded(); err != nil {
		return SourceEntry{}, err
	}
	r.mu.RLock()
	entry, ok := r.sources[id]
	r.mu.RUnlock()
	if !ok {
		return SourceEntry{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	if !entry.Enabled {
		return entry, fmt.Errorf("%w: %q", ErrDisabledSource, id)
	}
	return entry, nil
}

// IDs lists every source id in order.
func (r *Registry) IDs() []string {
	if err := r.ensureLoaded(); err != nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Document returns the current sources as a document, for validation.
func (r *Registry) Document() (*RegistryDocument, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc := &RegistryDocument{Sources: make(map[string]SourceEntry, len(r.sources))}
	for id, entry := range r.sources {
		doc.Sources[id] = entry
	}
	return doc, nil
}

// Reload re-reads the backing document on next demand. Sources the document
// no longer lists are dropped unless they were registered directly.
func (r *Registry) Reload() {
	r.mu.Lock()
	r.loaded = false
	r.mu.Unlock()
}

// Ref returns the backing document reference.
func (r *Registry) Ref() string { return r.ref }

func (r *Registry) ensureLoaded() error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	if r.ref == "" || r.loader == nil {
		r.mu.Lock()
		r.loaded = true
		r.mu.Unlock()
		return nil
	}

	data, err := r.loader.Load(r.loader.Identity(r.ref))
	if err != nil {
		return fmt.Errorf("lootdb: registry: %w", err)
	}
	doc, err := DecodeRegistry(data)
	if err != nil {
		return fmt.Errorf("lootdb: registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	sources := maps.Clone(r.registered)
	maps.Copy(sources, doc.Sources)
	r.sources = sources
	r.loaded = true
	return nil
}
