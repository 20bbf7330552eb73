package lootdb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"project-hunter/server/internal/items"
	"project-hunter/server/internal/loot"
)

const registryYAML = `
sources:
  chest_small:
    display_name: Small Chest
    category: chest
    table: tables/chests.yaml
    row: small
    base_level: 5
    base_rarity: champion
    currency: {min: 5, max: 20}
    defaults:
      max_drops: 2
  barrel:
    display_name: Barrel
    category: container
    table: ./tables/../tables/chests.yaml
    row: barrel
  crypt_small:
    display_name: Crypt Chest
    category: chest
    table: tables/crypt.yaml
    row: small
  retired:
    display_name: Old Chest
    table: tables/chests.yaml
    enabled: false
`

const chestsYAML = `
tables:
  small:
    policy: weighted
    selections: {min: 1, max: 2}
    entries:
      - item_row: iron_sword
        drop_chance: 1
        weight: 1
        min_quantity: 1
        max_quantity: 1
        override_rarity: rare
  barrel:
    policy: sequential
    entries:
      - item_row: health_potion
        drop_chance: 0.5
        weight: 1
        min_quantity: 1
        max_quantity: 2
`

const cryptYAML = `
tables:
  small:
    policy: all
    entries:
      - item_class: armor
        drop_chance: 1
        weight: 1
        min_quantity: 1
        max_quantity: 1
        is_corrupted: true
        corruption_type: blighted
`

func testLoader() MapLoader {
	return MapLoader{
		"sources.yaml":       []byte(registryYAML),
		"tables/chests.yaml": []byte(chestsYAML),
		"tables/crypt.yaml":  []byte(cryptYAML),
	}
}

func TestDecodeRegistryKeepsDefaults(t *testing.T) {
	doc, err := DecodeRegistry([]byte(registryYAML))
	if err != nil {
		t.Fatalf("DecodeRegistry: %v", err)
	}
	chest := doc.Sources["chest_small"]
	if chest.ID != "chest_small" || chest.BaseLevel != 5 || chest.BaseRarity != loot.SourceChampion {
		t.Fatalf("unexpected chest entry %+v", chest)
	}
	if chest.Defaults.MaxDrops != 2 || chest.Defaults.MinDrops != 1 || chest.Defaults.DropChanceMultiplier != 1 {
		t.Fatalf("expected defaults merged under overrides, got %+v", chest.Defaults)
	}
	if !chest.Enabled || chest.Currency == nil || chest.Currency.Max != 20 {
		t.Fatalf("unexpected flags %+v", chest)
	}
	if doc.Sources["retired"].Enabled {
		t.Fatalf("expected retired source disabled")
	}
}

func TestDecodeTables(t *testing.T) {
	doc, err := DecodeTables("tables/chests.yaml", []byte(chestsYAML))
	if err != nil {
		t.Fatalf("DecodeTables: %v", err)
	}
	small, ok := doc.Table("small")
	if !ok || small.Policy != loot.PolicyWeighted || small.Selections == nil || small.Selections.Max != 2 {
		t.Fatalf("unexpected small table %+v", small)
	}
	if small.ID != "tables/chests.yaml#small" {
		t.Fatalf("unexpected table id %q", small.ID)
	}
	if r := small.Entries[0].OverrideRarity; r == nil || *r != items.RarityRare {
		t.Fatalf("expected rare override, got %v", r)
	}
	barrel, _ := doc.Table("barrel")
	if barrel.Policy != loot.PolicySequential {
		t.Fatalf("unexpected barrel policy %v", barrel.Policy)
	}
	if _, ok := doc.Table(""); ok {
		t.Fatalf("empty row must not resolve in a multi-table document")
	}
	if _, err := DecodeTables("bad", []byte("tables:\n  x:\n    policy: random\n")); err == nil {
		t.Fatalf("expected unknown policy error")
	}
}

func TestCacheKeysByDocumentIdentity(t *testing.T) {
	cache := NewCache(testLoader())
	chestSmall, err := cache.Table("tables/chests.yaml", "small")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if _, err := cache.Table("./tables/../tables/chests.yaml", "barrel"); err != nil {
		t.Fatalf("Table barrel: %v", err)
	}
	if got := cache.Stats(); got.Documents != 1 || got.Misses != 1 || got.Hits != 1 {
		t.Fatalf("expected one shared document, got %+v", got)
	}

	cryptSmall, err := cache.Table("tables/crypt.yaml", "small")
	if err != nil {
		t.Fatalf("Table crypt: %v", err)
	}
	if cryptSmall == chestSmall || cryptSmall.Policy != loot.PolicyAll {
		t.Fatalf("same row name in another document must not collide")
	}
	if cache.Stats().Documents != 2 {
		t.Fatalf("expected two cached documents")
	}

	cache.Invalidate("tables/crypt.yaml")
	if cache.Contains("tables/crypt.yaml") || !cache.Contains("tables/chests.yaml") {
		t.Fatalf("invalidate removed the wrong document")
	}
	cache.Clear()
	if cache.Stats().Documents != 0 {
		t.Fatalf("expected empty cache")
	}
}

func TestCacheUnresolvable(t *testing.T) {
	cache := NewCache(testLoader())
	if _, err := cache.Table("tables/missing.yaml", "small"); !errors.Is(err, ErrUnresolvableTable) {
		t.Fatalf("expected ErrUnresolvableTable, got %v", err)
	}
	if _, err := cache.Table("tables/chests.yaml", "nope"); !errors.Is(err, ErrUnresolvableTable) {
		t.Fatalf("expected ErrUnresolvableTable for a missing row, got %v", err)
	}
	if _, err := cache.Table("", ""); !errors.Is(err, ErrUnresolvableTable) {
		t.Fatalf("expected ErrUnresolvableTable for an empty ref, got %v", err)
	}
}

func TestRegistryLazyLoadAndErrors(t *testing.T) {
	registry := NewRegistry(testLoader(), "sources.yaml")
	if !registry.Has("chest_small") || registry.Has("dragon") {
		t.Fatalf("unexpected membership")
	}
	if _, err := registry.Source("dragon"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	if _, err := registry.Source("retired"); !errors.Is(err, ErrDisabledSource) {
		t.Fatalf("expected ErrDisabledSource, got %v", err)
	}
	entry := DefaultSourceEntry()
	entry.ID = "boss_ogre"
	entry.Table = "tables/crypt.yaml"
	entry.Boss = true
	if err := registry.Register(entry); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := registry.IDs(); strings.Join(got, ",") != "barrel,boss_ogre,chest_small,crypt_small,retired" {
		t.Fatalf("unexpected ids %v", got)
	}
	bad := DefaultSourceEntry()
	bad.ID = "broken"
	if err := registry.Register(bad); err == nil {
		t.Fatalf("expected enabled source without table to be rejected")
	}

	missing := NewRegistry(MapLoader{}, "sources.yaml")
	if _, err := missing.Source("chest_small"); err == nil || errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected a load error, got %v", err)
	}
}

func TestRegistryReloadDropsRemovedSources(t *testing.T) {
	loader := testLoader()
	registry := NewRegistry(loader, "sources.yaml")
	if _, err := registry.Source("barrel"); err != nil {
		t.Fatalf("Source(barrel): %v", err)
	}
	entry := DefaultSourceEntry()
	entry.ID = "boss_ogre"
	entry.Table = "tables/crypt.yaml"
	if err := registry.Register(entry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	loader["sources.yaml"] = []byte(`
sources:
  chest_small:
    display_name: Small Chest
    table: tables/chests.yaml
    row: small
`)
	registry.Reload()

	if registry.Has("barrel") {
		t.Fatalf("expected barrel gone after reload")
	}
	if _, err := registry.Source("barrel"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	if got := strings.Join(registry.IDs(), ","); got != "boss_ogre,chest_small" {
		t.Fatalf("expected registered entry kept, got %s", got)
	}
}

func TestValidateDocumentAggregatesProblems(t *testing.T) {
	registry := NewRegistry(testLoader(), "sources.yaml")
	doc, err := registry.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if err := ValidateDocument(doc, NewCache(testLoader())); err != nil {
		t.Fatalf("expected a clean document, got %v", err)
	}

	doc.Sources["ghost"] = SourceEntry{ID: "ghost", Enabled: true, BaseLevel: 0, Table: ""}
	doc.Sources["lost"] = SourceEntry{ID: "lost", Enabled: true, BaseLevel: 3, Table: "tables/missing.yaml", Defaults: loot.DefaultDropSettings()}
	err = ValidateDocument(doc, NewCache(testLoader()))
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"sources.ghost", "base_level 0", "needs a table", "sources.lost"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
	if !errors.Is(err, ErrUnresolvableTable) {
		t.Fatalf("expected the joined error to wrap ErrUnresolvableTable")
	}
}

func TestDirLoaderAndWatcher(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "tables"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	tablePath := filepath.Join(root, "tables", "chests.yaml")
	if err := os.WriteFile(tablePath, []byte(chestsYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cache := NewCache(NewDirLoader(root))
	if _, err := cache.Table("tables/chests.yaml", "small"); err != nil {
		t.Fatalf("Table from disk: %v", err)
	}

	var reported []string
	w := NewWatcher(root, time.Second, func(ref string) { reported = append(reported, ref) })
	if got := w.Scan(true); len(got) != 0 {
		t.Fatalf("priming scan reported %v", got)
	}
	if got := w.Scan(false); len(got) != 0 {
		t.Fatalf("unchanged scan reported %v", got)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(tablePath, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if got := w.Scan(false); len(got) != 1 || got[0] != "tables/chests.yaml" {
		t.Fatalf("expected change report, got %v", got)
	}
	if err := os.WriteFile(filepath.Join(root, "tables", "new.yml"), []byte("tables: {}\n"), 0o644); err != nil {
		t.Fatalf("write new: %v", err)
	}
	if got := w.Scan(false); len(got) != 1 || got[0] != "tables/new.yml" {
		t.Fatalf("expected new document report, got %v", got)
	}
	if len(reported) != 2 {
		t.Fatalf("expected callback per change, got %v", reported)
	}
}

func TestShippedLootDataValidates(t *testing.T) {
	loader := NewDirLoader(filepath.Join("..", "..", "data", "loot"))
	registry := NewRegistry(loader, "sources.yaml")
	doc, err := registry.Document()
	if err != nil {
		t.Fatalf("load shipped registry: %v", err)
	}
	cache := NewCache(loader)
	if err := ValidateDocument(doc, cache); err != nil {
		t.Fatalf("shipped loot data invalid: %v", err)
	}
	if entry, ok := registry.Entry("event_cache"); !ok || entry.Enabled {
		t.Fatalf("expected event_cache listed but disabled, got %+v", entry)
	}

	catalog := items.DefaultCatalog()
	for _, id := range registry.IDs() {
		entry, _ := registry.Entry(id)
		table, err := cache.Table(entry.Table, entry.Row)
		if err != nil {
			t.Fatalf("source %s: %v", id, err)
		}
		for _, e := range table.Entries {
			if e.ItemRow == "" {
				continue
			}
			if _, ok := catalog.Definition(e.ItemRow); !ok {
				t.Fatalf("source %s references unknown item %q", id, e.ItemRow)
			}
		}
	}
}
