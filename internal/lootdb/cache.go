package lootdb

import (
	"fmt"
	"sync"

	"project-hunter/server/internal/loot"
)

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Documents int    `json:"documents"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
}

// Cache holds loaded table documents keyed by document identity, so entries
// that point at the same document share one load and identical row names in
// different documents never collide.
type Cache struct {
	loader AssetLoader

	mu     sync.RWMutex
	docs   map[string]*TableDocument
	hits   uint64
	misses uint64
}

// NewCache builds an empty cache over loader.
func NewCache(loader AssetLoader) *Cache {
	return &Cache{loader: loader, docs: make(map[string]*TableDocument)}
}

// Document returns the document for ref, loading it on first use.
func (c *Cache) Document(ref string) (*TableDocument, error) {
	if c == nil || c.loader == nil {
		return nil, fmt.Errorf("%w: no loader", ErrUnresolvableTable)
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: empty table reference", ErrUnresolvableTable)
	}
	identity := c.loader.Identity(ref)

	c.mu.RLock()
	doc, ok := c.docs[identity]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return doc, nil
	}

	data, err := c.loader.Load(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvableTable, err)
	}
	doc, err = DecodeTables(identity, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvableTable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	if existing, ok := c.docs[identity]; ok {
		return existing, nil
	}
	c.docs[identity] = doc
	return doc, nil
}

// Table resolves row inside the document named by ref.
func (c *Cache) Table(ref, row string) (*loot.Table, error) {
	doc, err := c.Document(ref)
	if err != nil {
		return nil, err
	}
	table, ok := doc.Table(row)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no row %q", ErrUnresolvableTable, doc.Identity, row)
	}
	return table, nil
}

// Contains reports whether ref's document is loaded.
func (c *Cache) Contains(ref string) bool {
	if c == nil || c.loader == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.docs[c.loader.Identity(ref)]
	return ok
}

// Invalidate drops one document.
func (c *Cache) Invalidate(ref string) {
	if c == nil || c.loader == nil {
		return
	}
	c.mu.Lock()
	delete(c.docs, c.loader.Identity(ref))
	c.mu.Unlock()
}

// Clear drops every document.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	clear(c.docs)
	c.mu.Unlock()
}

// Stats returns document count and hit/miss counters.
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Documents: len(c.docs), Hits: c.hits, Misses: c.misses}
}
