package lootsys

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/loot"
	"project-hunter/server/internal/lootdb"
	"project-hunter/server/internal/vec"
	"project-hunter/server/logging"
	lootlog "project-hunter/server/logging/loot"
)

const sourcesYAML = `
sources:
  chest_small:
    display_name: Small Chest
    category: chest
    table: tables/chests.yaml
    row: small
    base_level: 5
    base_rarity: champion
    currency: {min: 5, max: 20}
  barrel:
    display_name: Barrel
    category: container
    table: ./tables/chests.yaml
    row: barrel
  warlord:
    display_name: Warlord
    category: boss
    table: tables/chests.yaml
    row: hoard
    boss: true
    scale_with_players: true
    defaults:
      min_drops: 1
      max_drops: 4
  broken:
    display_name: Broken
    table: tables/missing.yaml
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
        drop_chance: 1
        weight: 1
        min_quantity: 2
        max_quantity: 4
  hoard:
    policy: weighted
    allow_duplicates: true
    entries:
      - item_row: refined_ore
        drop_chance: 1
        weight: 1
        min_quantity: 1
        max_quantity: 3
`

type eventLog struct {
	mu     sync.Mutex
	events []logging.Event
}

func (l *eventLog) Publish(_ context.Context, event logging.Event) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) ofType(t logging.EventType) []logging.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logging.Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestSubsystem(t *testing.T, cfg Config, g Inserter, opts ...Option) *Subsystem {
	t.Helper()
	loader := lootdb.MapLoader{
		"sources.yaml":       []byte(sourcesYAML),
		"tables/chests.yaml": []byte(chestsYAML),
	}
	registry := lootdb.NewRegistry(loader, "sources.yaml")
	cache := lootdb.NewCache(loader)
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(1700000000, 0) })}, opts...)
	return New(cfg, registry, cache, items.DefaultCatalog(), g, opts...)
}

func TestFinalSettingsMergesOverridesAndModifiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GlobalDropMultiplier = 2
	s := newTestSubsystem(t, cfg, nil)

	entry, ok := s.SourceEntry("chest_small")
	if !ok {
		t.Fatalf("expected chest_small to be listed")
	}
	maxDrops := 6
	overrides := loot.DropOverrides{MaxDrops: &maxDrops}
	settings := s.FinalSettings(entry, Request{SourceID: "chest_small", Overrides: &overrides, Luck: 10, MagicFind: 50})

	if settings.MaxDrops != 6 || settings.MinDrops != 1 {
		t.Fatalf("expected override max drops 6 over min 1, got %d..%d", settings.MinDrops, settings.MaxDrops)
	}
	if settings.SourceLevel != 5 || settings.SourceRarity != loot.SourceChampion {
		t.Fatalf("expected source level and rarity from entry, got %d %v", settings.SourceLevel, settings.SourceRarity)
	}
	if settings.Currency != (loot.Range{Min: 5, Max: 20}) {
		t.Fatalf("expected entry currency, got %+v", settings.Currency)
	}
	if settings.DropChanceMultiplier != 2 {
		t.Fatalf("expected global multiplier applied, got %f", settings.DropChanceMultiplier)
	}
	if settings.Luck != 10 || settings.MagicFind != 50 {
		t.Fatalf("expected player stats carried, got %f %f", settings.Luck, settings.MagicFind)
	}
}

func TestFinalSettingsAppliesLuckAndMagicFindOnce(t *testing.T) {
	s := newTestSubsystem(t, DefaultConfig(), nil)
	entry, _ := s.SourceEntry("chest_small")

	settings := s.FinalSettings(entry, Request{SourceID: "chest_small", Luck: 10, MagicFind: 50})
	if settings.RarityBonusChance != 0.1 || settings.QuantityMultiplier != 1 {
		t.Fatalf("expected base bonus and multiplier untouched, got %f %f", settings.RarityBonusChance, settings.QuantityMultiplier)
	}
	if got := settings.UpgradeChance(); math.Abs(got-0.15) > 1e-9 {
		t.Fatalf("expected 0.1 + 10 * 0.005 = 0.15 upgrade chance, got %f", got)
	}
}

func TestFinalSettingsOverrideEqualToDefaultStillWins(t *testing.T) {
	s := newTestSubsystem(t, DefaultConfig(), nil)
	entry, _ := s.SourceEntry("chest_small")

	level := 1
	rarity := loot.SourceNormal
	overrides := loot.DropOverrides{SourceLevel: &level, SourceRarity: &rarity}
	settings := s.FinalSettings(entry, Request{SourceID: "chest_small", Overrides: &overrides})
	if settings.SourceLevel != 1 || settings.SourceRarity != loot.SourceNormal {
		t.Fatalf("expected explicit level 1 normal over the entry's 5 champion, got %d %v", settings.SourceLevel, settings.SourceRarity)
	}

	var none loot.DropOverrides
	settings = s.FinalSettings(entry, Request{SourceID: "chest_small", Overrides: &none})
	if settings.SourceLevel != 5 || settings.SourceRarity != loot.SourceChampion {
		t.Fatalf("expected empty overrides to keep the entry, got %d %v", settings.SourceLevel, settings.SourceRarity)
	}
}

func TestFinalSettingsBossFloorAndPlayerScaling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BossMinDrops = 3
	s := newTestSubsystem(t, cfg, nil)
	entry, _ := s.SourceEntry("warlord")

	solo := s.FinalSettings(entry, Request{SourceID: "warlord", PlayerCount: 1})
	if solo.MinDrops != 3 || solo.MaxDrops != 4 {
		t.Fatalf("expected boss floor 3..4, got %d..%d", solo.MinDrops, solo.MaxDrops)
	}
	party := s.FinalSettings(entry, Request{SourceID: "warlord", PlayerCount: 3})
	if party.MaxDrops != 6 {
		t.Fatalf("expected 4 * 1.5 = 6 max drops for three players, got %d", party.MaxDrops)
	}
}

func TestGenerateUnavailableSourcesReturnEmptyBatch(t *testing.T) {
	events := &eventLog{}
	s := newTestSubsystem(t, DefaultConfig(), nil, WithPublisher(events))

	cases := map[string]string{
		"nope":    "unknown_source",
		"retired": "disabled_source",
		"broken":  "unresolvable_table",
	}
	for id, reason := range cases {
		batch := s.Generate(context.Background(), Request{SourceID: id, Seed: 7})
		if !batch.Empty() || batch.SourceID != id {
			t.Fatalf("%s: expected empty batch stamped with the id, got %+v", id, batch)
		}
		found := false
		for _, e := range events.ofType(lootlog.EventSourceUnavailable) {
			payload, ok := e.Payload.(lootlog.SourceUnavailablePayload)
			if ok && payload.SourceID == id && payload.Reason == reason {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s: expected unavailable event with reason %s", id, reason)
		}
	}
	if s.IsSourceRegistered("nope") || !s.IsSourceRegistered("retired") {
		t.Fatalf("unexpected registration state")
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	events := &eventLog{}
	s := newTestSubsystem(t, DefaultConfig(), nil, WithPublisher(events))
	var hooked []string
	s.OnGenerated(func(batch loot.Batch, sourceID string) {
		hooked = append(hooked, sourceID)
	})

	first := s.Generate(context.Background(), Request{SourceID: "chest_small", Seed: 42})
	second := s.Generate(context.Background(), Request{SourceID: "chest_small", Seed: 42})
	if first.Len() != 1 || second.Len() != 1 {
		t.Fatalf("expected exactly one sword, got %d and %d", first.Len(), second.Len())
	}
	if first.Results[0].Item.ID != second.Results[0].Item.ID || first.Currency != second.Currency || first.Seed != second.Seed {
		t.Fatalf("expected identical batches for the same seed")
	}
	if first.Results[0].Item.Rarity != items.RarityRare {
		t.Fatalf("expected override rarity, got %v", first.Results[0].Item.Rarity)
	}
	if first.SourceID != "chest_small" || first.Category != "chest" {
		t.Fatalf("expected batch stamped with source and category, got %q %q", first.SourceID, first.Category)
	}
	if first.Currency < 5 || first.Currency > 20 {
		t.Fatalf("currency %d outside [5,20]", first.Currency)
	}
	if len(hooked) != 2 || len(events.ofType(lootlog.EventGenerated)) != 2 {
		t.Fatalf("expected two hooks and two events, got %d and %d", len(hooked), len(events.ofType(lootlog.EventGenerated)))
	}
}

func TestGenerateUnseededRequestGetsNonZeroSeed(t *testing.T) {
	s := newTestSubsystem(t, DefaultConfig(), nil)
	batch := s.Generate(context.Background(), Request{SourceID: "barrel"})
	if batch.Seed == 0 {
		t.Fatalf("expected non-zero seed")
	}
	if batch.Len() != 1 || batch.TotalQuantity < 2 || batch.TotalQuantity > 4 {
		t.Fatalf("expected one potion stack of 2..4, got %+v", batch)
	}
}

func TestSourcesShareCachedDocument(t *testing.T) {
	s := newTestSubsystem(t, DefaultConfig(), nil)
	if err := s.Preload([]string{"chest_small", "barrel"}); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if stats := s.CacheStats(); stats.Documents != 1 {
		t.Fatalf("expected one shared document, got %d", stats.Documents)
	}
	if err := s.Preload([]string{"broken", "nope"}); err == nil {
		t.Fatalf("expected preload errors for broken sources")
	}
	s.ClearCache()
	if stats := s.CacheStats(); stats.Documents != 0 {
		t.Fatalf("expected empty cache after clear, got %d", stats.Documents)
	}
}

func TestGenerateAndSpawnPlacesRingWithCurrency(t *testing.T) {
	registry := ground.NewRegistry()
	events := &eventLog{}
	s := newTestSubsystem(t, DefaultConfig(), registry, WithPublisher(events))
	var spawnedIDs []ground.ID
	s.OnSpawned(func(item *items.Item, location vec.Vec3, id ground.ID) {
		spawnedIDs = append(spawnedIDs, id)
	})

	origin := vec.New(100, 200, 0)
	batch, spawned := s.GenerateAndSpawn(context.Background(), Request{SourceID: "chest_small", Seed: 9}, SpawnSettings{
		Origin:         origin,
		ScatterRadius:  50,
		VerticalOffset: 10,
	})
	if batch.Len() != 1 || batch.Currency == 0 {
		t.Fatalf("expected a sword and currency, got %+v", batch)
	}
	if len(spawned) != 2 || registry.Len() != 2 || len(spawnedIDs) != 2 {
		t.Fatalf("expected sword and coin pile placed, got %d spawned, %d on ground", len(spawned), registry.Len())
	}
	coin := spawned[1].Item
	if coin.Type != items.ItemTypeGold || coin.Stack != batch.Currency {
		t.Fatalf("expected gold stack of %d, got %+v", batch.Currency, coin)
	}
	for _, sp := range spawned {
		flat := vec.New(sp.Location.X-origin.X, sp.Location.Y-origin.Y, 0)
		if math.Abs(flat.Len()-50) > 1e-6 || sp.Location.Z != 10 {
			t.Fatalf("expected ring placement at radius 50, got %+v", sp.Location)
		}
		if loc, ok := registry.Location(sp.GroundID); !ok || !loc.Equal(sp.Location) {
			t.Fatalf("ground location mismatch for %d", sp.GroundID)
		}
	}
	if spawned[1].Location.X >= origin.X {
		t.Fatalf("expected second of two ring items opposite the first, got %+v", spawned[1].Location)
	}
	if len(events.ofType(lootlog.EventSpawned)) != 1 {
		t.Fatalf("expected one spawned event")
	}
}

func TestPlacementRandomScatterIsDeterministic(t *testing.T) {
	batch := loot.Batch{Seed: 1234}
	for i := 0; i < 4; i++ {
		batch.Results = append(batch.Results, loot.Result{Item: &items.Item{ID: "x", Stack: 1}, Quantity: 1})
	}
	settings := DefaultSpawnSettings()

	place := func() []Spawned {
		return NewPlacement(ground.NewRegistry(), nil, nil).Place(batch, settings)
	}
	a, b := place(), place()
	if len(a) != 4 || len(b) != 4 {
		t.Fatalf("expected four placements")
	}
	for i := range a {
		if !a[i].Location.Equal(b[i].Location) {
			t.Fatalf("placement %d differs: %+v vs %+v", i, a[i].Location, b[i].Location)
		}
		if a[i].Location.Sub(settings.Origin).Len() > math.Hypot(settings.ScatterRadius, settings.VerticalOffset)+1e-9 {
			t.Fatalf("placement %d outside scatter radius", i)
		}
	}
}

func TestDocumentChangedReloadsRegistry(t *testing.T) {
	loader := lootdb.MapLoader{
		"sources.yaml":       []byte(sourcesYAML),
		"tables/chests.yaml": []byte(chestsYAML),
	}
	s := New(DefaultConfig(), lootdb.NewRegistry(loader, "sources.yaml"), lootdb.NewCache(loader), items.DefaultCatalog(), nil)
	if s.IsSourceRegistered("crate") {
		t.Fatalf("crate should not exist yet")
	}
	loader["sources.yaml"] = []byte(sourcesYAML + `
  crate:
    display_name: Crate
    table: tables/chests.yaml
    row: barrel
`)
	s.DocumentChanged("./sources.yaml")
	if !s.IsSourceRegistered("crate") {
		t.Fatalf("expected reload to pick up crate")
	}
}
