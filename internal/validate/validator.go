package validate

import (
	"fmt"
	"math"
	"sync"
	"time"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/telemetry"
	"project-hunter/server/internal/vec"
)

// Reason tags a validation failure.
type Reason string

const (
	ReasonNullTarget Reason = "null_target"
	ReasonDistance   Reason = "distance"
	ReasonOcclusion  Reason = "occlusion"
	ReasonRejected   Reason = "rejected"
	ReasonStaleID    Reason = "stale_id"
)

// Reasons lists every failure tag in report order.
var Reasons = []Reason{ReasonNullTarget, ReasonDistance, ReasonOcclusion, ReasonRejected, ReasonStaleID}

// Failure describes why an interaction was refused.
type Failure struct {
	Reason   Reason
	Distance float64
	Allowed  float64
	Detail   string
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	switch f.Reason {
	case ReasonDistance:
		return fmt.Sprintf("validate: %s (%.1f > %.1f)", f.Reason, f.Distance, f.Allowed)
	default:
		if f.Detail != "" {
			return fmt.Sprintf("validate: %s: %s", f.Reason, f.Detail)
		}
		return fmt.Sprintf("validate: %s", f.Reason)
	}
}

// LatencySource reports the controlling connection's round-trip time.
type LatencySource interface {
	RTT() (time.Duration, bool)
}

// GroundLookup resolves ground ids to their current location.
type GroundLookup interface {
	Location(id ground.ID) (vec.Vec3, bool)
}

// Config tunes validation.
type Config struct {
	// UnitsPerSecond converts round-trip time into extra reach.
	UnitsPerSecond float64
	MinBuffer      float64
	MaxBuffer      float64
	// StaticBuffer is used when no RTT measurement is available.
	StaticBuffer     float64
	CheckLineOfSight bool
	Channel          scene.Channel
}

// DefaultConfig returns the standard validation tuning.
func DefaultConfig() Config {
	return Config{
		UnitsPerSecond: 600,
		MinBuffer:      25,
		MaxBuffer:      150,
		StaticBuffer:   50,
		Channel:        scene.ChannelVisibility,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.UnitsPerSecond < 0 {
		c.UnitsPerSecond = 0
	}
	if c.MinBuffer < 0 {
		c.MinBuffer = 0
	}
	if c.MaxBuffer < c.MinBuffer {
		c.MaxBuffer = c.MinBuffer
	}
	if c.StaticBuffer < 0 {
		c.StaticBuffer = 0
	}
	if c.Channel == 0 {
		c.Channel = def.Channel
	}
	return c
}

// Validator re-checks committed interactions on the authority side. It keeps
// a counter per failure tag for the lifetime of the session.
type Validator struct {
	cfg     Config
	world   scene.World
	ground  GroundLookup
	latency LatencySource
	metrics telemetry.Metrics

	mu       sync.Mutex
	counters map[Reason]uint64
}

// Option configures a Validator.
type Option func(*Validator)

// WithWorld supplies the world used for line-of-sight traces.
func WithWorld(world scene.World) Option {
	return func(v *Validator) { v.world = world }
}

// WithGround supplies the ground-item lookup used by ValidateGround.
func WithGround(lookup GroundLookup) Option {
	return func(v *Validator) { v.ground = lookup }
}

// WithLatency supplies the RTT source for the distance budget.
func WithLatency(source LatencySource) Option {
	return func(v *Validator) { v.latency = source }
}

// WithMetrics mirrors failure counters into metrics.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(v *Validator) {
		if metrics != nil {
			v.metrics = metrics
		}
	}
}

// New builds a validator.
func New(cfg Config, opts ...Option) *Validator {
	v := &Validator{
		cfg:      cfg.normalized(),
		metrics:  telemetry.NopMetrics(),
		counters: make(map[Reason]uint64, len(Reasons)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Config returns the normalized configuration.
func (v *Validator) Config() Config { return v.cfg }

// LatencyBudget returns the extra reach granted for the current RTT.
func (v *Validator) LatencyBudget() float64 {
	if v.latency == nil {
		return v.cfg.StaticBuffer
	}
	rtt, ok := v.latency.RTT()
	if !ok || rtt < 0 {
		return v.cfg.StaticBuffer
	}
	budget := rtt.Seconds() * v.cfg.UnitsPerSecond
	return math.Min(math.Max(budget, v.cfg.MinBuffer), v.cfg.MaxBuffer)
}

// Validate checks an interactable target. It returns nil on success.
func (v *Validator) Validate(target interact.Interactable, actor interact.Actor, interactorLoc vec.Vec3, maxDist float64) *Failure {
	if target == nil {
		return v.fail(&Failure{Reason: ReasonNullTarget})
	}
	targetLoc := target.Location()
	if f := v.checkDistance(targetLoc, interactorLoc, maxDist); f != nil {
		return v.fail(f)
	}
	if hit, blocked := v.occluded(actor, interactorLoc, targetLoc); blocked && (hit.Actor == nil || hit.Actor.ActorID() != target.ActorID()) {
		return v.fail(&Failure{Reason: ReasonOcclusion, Detail: occluderName(hit)})
	}
	if !target.CanInteract(actor) {
		return v.fail(&Failure{Reason: ReasonRejected})
	}
	return nil
}

// ValidateGround checks a ground-item pickup by id.
func (v *Validator) ValidateGround(id ground.ID, actor interact.Actor, interactorLoc vec.Vec3, maxDist float64) *Failure {
	if v.ground == nil || id == ground.Invalid {
		return v.fail(&Failure{Reason: ReasonStaleID, Detail: fmt.Sprintf("ground id %d", id)})
	}
	loc, ok := v.ground.Location(id)
	if !ok {
		return v.fail(&Failure{Reason: ReasonStaleID, Detail: fmt.Sprintf("ground id %d", id)})
	}
	if f := v.checkDistance(loc, interactorLoc, maxDist); f != nil {
		return v.fail(f)
	}
	if hit, blocked := v.occluded(actor, interactorLoc, loc); blocked {
		return v.fail(&Failure{Reason: ReasonOcclusion, Detail: occluderName(hit)})
	}
	return nil
}

// Counters returns a copy of the per-tag failure counts. Every tag is present.
func (v *Validator) Counters() map[Reason]uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[Reason]uint64, len(Reasons))
	for _, reason := range Reasons {
		out[reason] = v.counters[reason]
	}
	return out
}

// Failures returns the total number of recorded failures.
func (v *Validator) Failures() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	var total uint64
	for _, n := range v.counters {
		total += n
	}
	return total
}

// Reset clears the counters.
func (v *Validator) Reset() {
	v.mu.Lock()
	clear(v.counters)
	v.mu.Unlock()
}

func (v *Validator) checkDistance(targetLoc, interactorLoc vec.Vec3, maxDist float64) *Failure {
	allowed := maxDist + v.LatencyBudget()
	dist := targetLoc.Dist(interactorLoc)
	if dist > allowed {
		return &Failure{Reason: ReasonDistance, Distance: dist, Allowed: allowed}
	}
	return nil
}

// occluded traces the line from the interactor to loc, skipping the
// interactor's own body. It never blocks when line of sight is off.
func (v *Validator) occluded(actor interact.Actor, from, loc vec.Vec3) (scene.Hit, bool) {
	if !v.cfg.CheckLineOfSight || v.world == nil {
		return scene.Hit{}, false
	}
	var ignore []scene.ID
	if actor != nil {
		ignore = []scene.ID{actor.ActorID()}
	}
	return v.world.Trace(scene.Query{Origin: from, End: loc, Channel: v.cfg.Channel, Ignore: ignore})
}

func (v *Validator) fail(f *Failure) *Failure {
	v.mu.Lock()
	v.counters[f.Reason]++
	v.mu.Unlock()
	v.metrics.Add("validate_failures_"+string(f.Reason), 1)
	return f
}

func occluderName(hit scene.Hit) string {
	if hit.Actor == nil {
		return "world"
	}
	return fmt.Sprintf("actor %d", hit.Actor.ActorID())
}
