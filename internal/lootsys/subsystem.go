// Package lootsys is the per-world loot service: it resolves sources through
// the loot registry, merges settings, samples tables and places the results
// on the ground.
package lootsys

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/loot"
	"project-hunter/server/internal/lootdb"
	"project-hunter/server/internal/telemetry"
	"project-hunter/server/internal/vec"
	"project-hunter/server/logging"
	lootlog "project-hunter/server/logging/loot"
)

const (
	tracerName   = "project-hunter/server/internal/lootsys"
	currencySalt = 0x94D049BB133111EB
)

// Config tunes the subsystem.
type Config struct {
	// GlobalDropMultiplier scales every source's drop chance multiplier.
	GlobalDropMultiplier float64
	// BossMinDrops is the drop floor for boss sources.
	BossMinDrops int
	// PlayerScaleStep is the extra max-drop fraction per additional player
	// for sources that scale with players.
	PlayerScaleStep float64
	Spawn           SpawnSettings
}

// DefaultConfig returns the standard loot tuning.
func DefaultConfig() Config {
	return Config{
		GlobalDropMultiplier: 1,
		BossMinDrops:         2,
		PlayerScaleStep:      0.25,
		Spawn:                DefaultSpawnSettings(),
	}
}

func (c Config) normalized() Config {
	if c.GlobalDropMultiplier < 0 {
		c.GlobalDropMultiplier = 0
	}
	if c.BossMinDrops < 0 {
		c.BossMinDrops = 0
	}
	if c.PlayerScaleStep < 0 {
		c.PlayerScaleStep = 0
	}
	return c
}

// Request asks for one generation.
type Request struct {
	SourceID string `json:"sourceId"`
	// Seed zero asks for a fresh time-mixed stream.
	Seed uint64 `json:"seed,omitempty"`
	// Overrides replaces the source settings it sets.
	Overrides   *loot.DropOverrides `json:"overrides,omitempty"`
	Luck        float64             `json:"luck,omitempty"`
	MagicFind   float64             `json:"magicFind,omitempty"`
	PlayerCount int                 `json:"playerCount,omitempty"`
}

// GeneratedFunc observes every generated batch.
type GeneratedFunc func(batch loot.Batch, sourceID string)

// Subsystem is the loot service for one world.
type Subsystem struct {
	cfg       Config
	registry  *lootdb.Registry
	cache     *lootdb.Cache
	sampler   *loot.Sampler
	init      items.Initializer
	placement *Placement

	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	tracer    trace.Tracer
	clock     func() time.Time
	tick      func() uint64

	mu          sync.RWMutex
	onGenerated []GeneratedFunc
	onSpawned   []SpawnFunc
}

// Option configures a Subsystem.
type Option func(*Subsystem)

// WithPublisher reports generations and spawns as loot events.
func WithPublisher(pub logging.Publisher) Option {
	return func(s *Subsystem) {
		if pub != nil {
			s.publisher = pub
		}
	}
}

// WithLogger installs the process logger.
func WithLogger(logger telemetry.Logger) Option {
	return func(s *Subsystem) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics installs counters.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(s *Subsystem) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Subsystem) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the wall clock mixed into unseeded requests.
func WithClock(clock func() time.Time) Option {
	return func(s *Subsystem) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTick supplies the simulation tick stamped on events.
func WithTick(tick func() uint64) Option {
	return func(s *Subsystem) {
		if tick != nil {
			s.tick = tick
		}
	}
}

// New wires a subsystem. ground may be nil when only Generate is used.
func New(cfg Config, registry *lootdb.Registry, cache *lootdb.Cache, init items.Initializer, g Inserter, opts ...Option) *Subsystem {
	s := &Subsystem{
		cfg:       cfg.normalized(),
		registry:  registry,
		cache:     cache,
		sampler:   loot.NewSampler(init),
		init:      init,
		publisher: logging.NopPublisher(),
		logger:    telemetry.LoggerFunc(func(string, ...any) {}),
		metrics:   telemetry.NopMetrics(),
		tracer:    otel.Tracer(tracerName),
		clock:     time.Now,
		tick:      func() uint64 { return 0 },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if g != nil {
		s.placement = NewPlacement(g, s.currencyItem, s.fireSpawned)
	}
	return s
}

// Config returns the normalized configuration.
func (s *Subsystem) Config() Config { return s.cfg }

// OnGenerated registers a generation observer.
func (s *Subsystem) OnGenerated(fn GeneratedFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onGenerated = append(s.onGenerated, fn)
	s.mu.Unlock()
}

// OnSpawned registers a spawn observer.
func (s *Subsystem) OnSpawned(fn SpawnFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onSpawned = append(s.onSpawned, fn)
	s.mu.Unlock()
}

// IsSourceRegistered reports whether id is listed in the registry.
func (s *Subsystem) IsSourceRegistered(id string) bool {
	return s.registry != nil && s.registry.Has(id)
}

// SourceIDs lists the registered sources in order.
func (s *Subsystem) SourceIDs() []string {
	if s.registry == nil {
		return nil
	}
	return s.registry.IDs()
}

// SourceEntry returns the registry entry for id.
func (s *Subsystem) SourceEntry(id string) (lootdb.SourceEntry, bool) {
	if s.registry == nil {
		return lootdb.SourceEntry{}, false
	}
	return s.registry.Entry(id)
}

// Preload loads the tables of the given sources ahead of demand. Every
// failure is reported.
func (s *Subsystem) Preload(ids []string) error {
	var errs []error
	for _, id := range ids {
		entry, err := s.source(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.cache.Table(entry.Table, entry.Row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearCache drops every loaded table document.
func (s *Subsystem) ClearCache() {
	s.cache.Clear()
}

// DocumentChanged reacts to an edited document: the registry document is
// re-read, table documents are evicted.
func (s *Subsystem) DocumentChanged(ref string) {
	if s.registry != nil && s.registry.Ref() != "" && lootdb.CleanRef(ref) == lootdb.CleanRef(s.registry.Ref()) {
		s.registry.Reload()
	} else {
		s.cache.Invalidate(lootdb.CleanRef(ref))
	}
	s.logger.Printf("loot document %s changed", ref)
}

// CacheStats reports the table cache state.
func (s *Subsystem) CacheStats() lootdb.CacheStats {
	return s.cache.Stats()
}

// Generate samples the source named in req. Unknown, disabled and
// unresolvable sources yield an empty batch stamped with the source id.
func (s *Subsystem) Generate(ctx context.Context, req Request) loot.Batch {
	ctx, span := s.tracer.Start(ctx, "loot.generate", trace.WithAttributes(attribute.String("loot.source", req.SourceID)))
	defer span.End()

	entry, err := s.source(req.SourceID)
	if err != nil {
		s.unavailable(ctx, span, req.SourceID, err)
		return loot.Batch{SourceID: req.SourceID}
	}
	table, err := s.cache.Table(entry.Table, entry.Row)
	if err != nil {
		s.unavailable(ctx, span, req.SourceID, err)
		return loot.Batch{SourceID: req.SourceID, Category: entry.Category}
	}

	settings := s.FinalSettings(entry, req)
	seed := loot.DeriveSeed(req.Seed, req.SourceID, s.clock())
	batch := s.sampler.Sample(table, settings, seed)
	batch.SourceID = req.SourceID
	batch.Category = entry.Category

	span.SetAttributes(
		attribute.Int64("loot.seed", int64(seed)),
		attribute.Int("loot.items", batch.Len()),
		attribute.Int("loot.currency", batch.Currency),
	)
	if batch.Skipped > 0 {
		s.logger.Printf("loot source %s: %d entries skipped by the item initializer", req.SourceID, batch.Skipped)
	}
	s.metrics.Add("loot_generated_total", 1)
	s.metrics.Add("loot_items_total", uint64(batch.Len()))
	lootlog.Generated(ctx, s.publisher, s.tick(), logging.EntityRef{ID: req.SourceID, Kind: logging.EntityKindLootSource}, lootlog.GeneratedPayload{
		SourceID: req.SourceID,
		TableID:  table.ID,
		Seed:     seed,
		Items:    batch.Len(),
		Gold:     batch.Currency,
	}, nil)

	s.mu.RLock()
	hooks := append([]GeneratedFunc(nil), s.onGenerated...)
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook(batch, req.SourceID)
	}
	return batch
}

// GenerateAndSpawn generates and places the batch on the ground.
func (s *Subsystem) GenerateAndSpawn(ctx context.Context, req Request, spawn SpawnSettings) (loot.Batch, []Spawned) {
	ctx, span := s.tracer.Start(ctx, "loot.generate_and_spawn", trace.WithAttributes(attribute.String("loot.source", req.SourceID)))
	defer span.End()

	batch := s.Generate(ctx, req)
	if s.placement == nil || batch.Empty() {
		return batch, nil
	}
	spawned := s.placement.Place(batch, spawn)
	ids := make([]uint64, 0, len(spawned))
	for _, sp := range spawned {
		ids = append(ids, uint64(sp.GroundID))
	}
	span.SetAttributes(attribute.Int("loot.spawned", len(spawned)))
	lootlog.Spawned(ctx, s.publisher, s.tick(), logging.EntityRef{ID: req.SourceID, Kind: logging.EntityKindLootSource}, lootlog.SpawnedPayload{
		SourceID:  req.SourceID,
		GroundIDs: ids,
	}, nil)
	return batch, spawned
}

// FinalSettings merges source defaults, request overrides and player
// modifiers into the settings handed to the sampler. The player's luck and
// magic find are only accumulated here; the sampler turns them into rarity
// and quantity bonuses.
func (s *Subsystem) FinalSettings(entry lootdb.SourceEntry, req Request) loot.DropSettings {
	settings := entry.Defaults
	settings.SourceLevel = entry.BaseLevel
	settings.SourceRarity = entry.BaseRarity
	if entry.Currency != nil {
		settings.Currency = *entry.Currency
	}
	if req.Overrides != nil {
		settings = req.Overrides.Apply(settings)
	}

	settings.DropChanceMultiplier *= s.cfg.GlobalDropMultiplier
	settings.Luck += req.Luck
	settings.MagicFind += req.MagicFind

	if entry.Boss && settings.MinDrops < s.cfg.BossMinDrops {
		settings.MinDrops = s.cfg.BossMinDrops
	}
	if entry.ScaleWithPlayers && req.PlayerCount > 1 {
		scale := 1 + s.cfg.PlayerScaleStep*float64(req.PlayerCount-1)
		settings.MaxDrops = int(math.Floor(float64(settings.MaxDrops) * scale))
	}
	if settings.MaxDrops < settings.MinDrops {
		settings.MaxDrops = settings.MinDrops
	}
	return settings
}

func (s *Subsystem) source(id string) (lootdb.SourceEntry, error) {
	if s.registry == nil {
		return lootdb.SourceEntry{}, lootdb.ErrUnknownSource
	}
	return s.registry.Source(id)
}

func (s *Subsystem) unavailable(ctx context.Context, span trace.Span, id string, err error) {
	reason := "load_failed"
	switch {
	case errors.Is(err, lootdb.ErrUnknownSource):
		reason = "unknown_source"
	case errors.Is(err, lootdb.ErrDisabledSource):
		reason = "disabled_source"
	case errors.Is(err, lootdb.ErrUnresolvableTable):
		reason = "unresolvable_table"
	}
	span.SetStatus(codes.Error, reason)
	s.metrics.Add("loot_unavailable_"+reason, 1)
	s.logger.Printf("loot source %s unavailable: %v", id, err)
	lootlog.SourceUnavailable(ctx, s.publisher, s.tick(), logging.EntityRef{ID: id, Kind: logging.EntityKindLootSource}, lootlog.SourceUnavailablePayload{
		SourceID: id,
		Reason:   reason,
	}, nil)
}

func (s *Subsystem) currencyItem(amount int, seed uint64) *items.Item {
	if s.init == nil || amount <= 0 {
		return nil
	}
	coin := items.New()
	coin.SetSeed(seed ^ currencySalt)
	if err := s.init.Init(coin, items.Ref{Row: items.ItemTypeGold}, 1, items.RarityCommon, false); err != nil {
		s.logger.Printf("currency item: %v", err)
		return nil
	}
	coin.SetStack(amount)
	return coin
}

func (s *Subsystem) fireSpawned(item *items.Item, location vec.Vec3, id ground.ID) {
	s.metrics.Add("loot_spawned_total", 1)
	s.mu.RLock()
	hooks := append([]SpawnFunc(nil), s.onSpawned...)
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook(item, location, id)
	}
}
