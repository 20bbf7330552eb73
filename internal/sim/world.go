package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/journal"
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/session"
	"project-hunter/server/internal/validate"
	"project-hunter/server/internal/vec"
)

var (
	// ErrDuplicatePlayer is returned when AddPlayer reuses a live id.
	ErrDuplicatePlayer = errors.New("sim: player already present")
	// ErrUnknownPlayer is returned for ids that are not in the world.
	ErrUnknownPlayer = errors.New("sim: unknown player")
)

// pawnRadius is the collision radius of player bodies in the scene.
const pawnRadius = 20

// Pawn is a player's body. It is the detection owner and the validator's
// interactor.
type Pawn struct {
	id       scene.ID
	location vec.Vec3
	forward  vec.Vec3
	eye      float64
}

func (p *Pawn) ActorID() scene.ID  { return p.id }
func (p *Pawn) Location() vec.Vec3 { return p.location }
func (p *Pawn) Forward() vec.Vec3  { return p.forward }
func (p *Pawn) EyeHeight() float64 { return p.eye }

// camera is the last view reported by the client.
type camera struct {
	origin, forward vec.Vec3
}

func (c *camera) View() (vec.Vec3, vec.Vec3, bool) {
	if c.forward.IsZero() {
		return vec.Vec3{}, vec.Vec3{}, false
	}
	return c.origin, c.forward, true
}

// PlayerConfig places a new player.
type PlayerConfig struct {
	Location  vec.Vec3
	Forward   vec.Vec3
	EyeHeight float64
	// Capacity is the inventory slot count; zero uses the default.
	Capacity int
}

// Player bundles one controller's pawn, session and belongings.
type Player struct {
	ID        string
	Pawn      *Pawn
	Session   *session.Session
	Inventory *items.Inventory
	Equipment *items.Equipment
	RTT       *validate.RTTTracker

	camera *camera
}

// WorldConfig tunes the world.
type WorldConfig struct {
	Session  session.Config
	Validate validate.Config
	// JournalLimit caps patches staged between drains. Zero is unbounded.
	JournalLimit int
}

// DefaultWorldConfig returns the standard world tuning.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Session:      session.DefaultConfig(),
		Validate:     validate.DefaultConfig(),
		JournalLimit: 4096,
	}
}

// StepResult is what one tick produced.
type StepResult struct {
	Notices map[string][]session.Notice
	Patches []journal.Patch
}

// World owns the scene, the ground registry and every player session. Apply
// and Step run on the loop goroutine; the lock lets transports read state.
type World struct {
	cfg     WorldConfig
	deps    Deps
	scene   *scene.Scene
	ground  *ground.Registry
	journal *journal.Journal

	tick atomic.Uint64

	mu       sync.RWMutex
	nextPawn scene.ID
	players  map[string]*Player
	removed  []string
}

// NewWorld builds an empty world.
func NewWorld(cfg WorldConfig, deps Deps) *World {
	deps = deps.normalized()
	j := journal.New(cfg.JournalLimit)
	return &World{
		cfg:      cfg,
		deps:     deps,
		scene:    scene.New(),
		ground:   ground.NewRegistry(ground.WithJournal(j)),
		journal:  j,
		nextPawn: 1,
		players:  make(map[string]*Player),
	}
}

// Deps returns the injected dependencies.
func (w *World) Deps() Deps { return w.deps }

// Ground returns the ground registry.
func (w *World) Ground() *ground.Registry { return w.ground }

// Scene returns the host scene.
func (w *World) Scene() *scene.Scene { return w.scene }

// Tick returns the last stepped tick.
func (w *World) Tick() uint64 {
	return w.tick.Load()
}

// AddInteractable places an interactable component in the scene.
func (w *World) AddInteractable(c *interact.Component, radius float64) {
	if c == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scene.Add(scene.Body{Actor: c, Center: c.Location(), Radius: radius, Channels: scene.ChannelAll})
}

// AddPlayer creates a player and its interaction session.
func (w *World) AddPlayer(id string, cfg PlayerConfig) (*Player, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.players[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
	}
	forward := cfg.Forward.Normalize()
	if forward.IsZero() {
		forward = vec.New(1, 0, 0)
	}
	pawn := &Pawn{id: w.nextPawn, location: cfg.Location, forward: forward, eye: cfg.EyeHeight}
	w.nextPawn++

	player := &Player{
		ID:        id,
		Pawn:      pawn,
		Inventory: items.NewInventory(cfg.Capacity),
		Equipment: items.NewEquipment(),
		RTT:       &validate.RTTTracker{},
		camera:    &camera{},
	}
	validator := validate.New(w.cfg.Validate,
		validate.WithWorld(w.scene),
		validate.WithGround(w.ground),
		validate.WithLatency(player.RTT),
		validate.WithMetrics(w.deps.Metrics),
	)
	player.Session = session.New(w.cfg.Session, session.Deps{
		World:     w.scene,
		Ground:    w.ground,
		Owner:     pawn,
		Camera:    player.camera,
		Validator: validator,
		Inventory: player.Inventory,
		Equipment: player.Equipment,
		Publisher: w.deps.Publisher,
		Tick:      w.Tick,
	}, session.WithID(id))

	w.scene.Add(scene.Body{Actor: pawn, Center: pawn.location, Radius: pawnRadius, Channels: scene.ChannelVisibility})
	w.players[id] = player
	w.deps.Metrics.Store("sim_players", uint64(len(w.players)))
	return player, nil
}

// RemovePlayer cancels any active interaction and drops the player.
func (w *World) RemovePlayer(ctx context.Context, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	player, ok := w.players[id]
	if !ok {
		return false
	}
	player.Session.Cancel(ctx)
	w.scene.Remove(player.Pawn.id)
	delete(w.players, id)
	w.removed = append(w.removed, id)
	w.deps.Metrics.Store("sim_players", uint64(len(w.players)))
	return true
}

// Player returns the player with id.
func (w *World) Player(id string) (*Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	return p, ok
}

// PlayerIDs lists every player id in order.
func (w *World) PlayerIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PlayerCount reports the number of players.
func (w *World) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}

// Diagnostics returns every session's diagnostics keyed by player id.
func (w *World) Diagnostics() map[string]session.Diagnostics {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]session.Diagnostics, len(w.players))
	for id, p := range w.players {
		out[id] = p.Session.Diagnostics()
	}
	return out
}

// Apply routes commands to their players. Commands for unknown players are
// counted and skipped.
func (w *World) Apply(ctx context.Context, cmds []Command) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, cmd := range cmds {
		player, ok := w.players[cmd.ActorID]
		if !ok {
			w.deps.Metrics.Add("sim_commands_unknown_actor_total", 1)
			continue
		}
		w.applyLocked(ctx, player, cmd)
	}
}

func (w *World) applyLocked(ctx context.Context, player *Player, cmd Command) {
	switch cmd.Type {
	case CommandMove:
		if cmd.Move == nil {
			return
		}
		player.Pawn.location = cmd.Move.Position
		if forward := cmd.Move.Forward.Normalize(); !forward.IsZero() {
			player.Pawn.forward = forward
		}
		w.scene.Move(player.Pawn.id, cmd.Move.Position)
	case CommandAim:
		if cmd.Aim == nil {
			return
		}
		player.camera.origin = cmd.Aim.Origin
		player.camera.forward = cmd.Aim.Forward
	case CommandPress:
		player.Session.OnPress(ctx)
	case CommandRelease:
		player.Session.OnRelease(ctx)
	case CommandCancel:
		player.Session.Cancel(ctx)
	case CommandPickupAll:
		player.Session.PickupAllNearby(ctx)
	case CommandHeartbeat:
		if cmd.Heartbeat != nil && cmd.Heartbeat.RTT > 0 {
			player.RTT.Observe(cmd.Heartbeat.RTT)
		}
	default:
		w.deps.Logger.Printf("sim: unknown command %q from %s", cmd.Type, cmd.ActorID)
	}
}

// Step advances every session by dt seconds and drains the tick's notices
// and ground patches.
func (w *World) Step(ctx context.Context, tick uint64, dt float64) StepResult {
	w.mu.Lock()
	w.tick.Store(tick)
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := StepResult{Notices: make(map[string][]session.Notice, len(ids))}
	for _, id := range ids {
		p := w.players[id]
		p.Session.Tick(ctx, dt)
		if notices := p.Session.Drain(); len(notices) > 0 {
			result.Notices[id] = notices
		}
	}
	w.mu.Unlock()
	result.Patches = w.journal.DrainPatches()
	return result
}

// RemovedPlayers returns and clears the ids removed since the last call.
func (w *World) RemovedPlayers() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.removed
	w.removed = nil
	return out
}
