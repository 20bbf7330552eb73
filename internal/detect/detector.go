package detect

import (
	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/vec"
)

// pawnConeMinDot accepts impacts up to 120 degrees off the pawn's forward.
const pawnConeMinDot = -0.5

// Config tunes detection.
type Config struct {
	MaxDistance    float64
	SphereRadius   float64
	DotWeight      float64
	DistanceWeight float64
	Channel        scene.Channel
	// QueryGround enables the nearest ground-item fallback.
	QueryGround bool
}

// DefaultConfig returns the standard detection tuning.
func DefaultConfig() Config {
	return Config{
		MaxDistance:    300,
		SphereRadius:   30,
		DotWeight:      0.7,
		DistanceWeight: 0.3,
		Channel:        scene.ChannelInteraction,
		QueryGround:    true,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxDistance <= 0 {
		c.MaxDistance = def.MaxDistance
	}
	if c.SphereRadius < 0 {
		c.SphereRadius = 0
	}
	if c.DotWeight < 0 {
		c.DotWeight = 0
	}
	if c.DistanceWeight < 0 {
		c.DistanceWeight = 0
	}
	if c.DotWeight == 0 && c.DistanceWeight == 0 {
		c.DotWeight = def.DotWeight
		c.DistanceWeight = def.DistanceWeight
	}
	if c.Channel == 0 {
		c.Channel = def.Channel
	}
	return c
}

// GroundIndex is the ground-item lookup the detector falls back to.
type GroundIndex interface {
	NearestInRadius(p vec.Vec3, radius float64) (ground.ID, *items.Item, bool)
}

// Result is the outcome of one detection pass. At most one of Target and
// GroundID is set.
type Result struct {
	Target    interact.Interactable
	GroundID  ground.ID
	HasGround bool
}

// Empty reports whether nothing was detected.
func (r Result) Empty() bool {
	return r.Target == nil && !r.HasGround
}

// Candidate is a scored sweep hit, exposed for diagnostics.
type Candidate struct {
	Target interact.Interactable
	Impact vec.Vec3
	DistSq float64
	Dot    float64
	Score  float64
	Index  int
}

// Detector picks the best interactable along a view ray.
type Detector struct {
	cfg    Config
	ground GroundIndex
}

// New builds a detector. ground may be nil to disable the ground fallback.
func New(cfg Config, groundIndex GroundIndex) *Detector {
	return &Detector{cfg: cfg.normalized(), ground: groundIndex}
}

// Config returns the normalized configuration.
func (d *Detector) Config() Config { return d.cfg }

// SetConfig replaces the tuning.
func (d *Detector) SetConfig(cfg Config) { d.cfg = cfg.normalized() }

// Detect runs the line trace, the sphere sweep and the ground fallback. owner
// may be nil, in which case nothing is ignored and the pawn cone is skipped.
func (d *Detector) Detect(world scene.World, origin, forward vec.Vec3, owner Owner) Result {
	if d == nil || world == nil {
		return Result{}
	}
	forward = forward.Normalize()
	if forward.IsZero() {
		return Result{}
	}

	var actor interact.Actor
	query := scene.Query{
		Origin:  origin,
		End:     origin.Add(forward.Scale(d.cfg.MaxDistance)),
		Channel: d.cfg.Channel,
	}
	if owner != nil {
		actor = owner
		query.Ignore = []scene.ID{owner.ActorID()}
	}

	if lineHit, ok := world.Trace(query); ok {
		query.Radius = d.cfg.SphereRadius
		if best, found := d.best(world.Sweep(query), origin, forward, owner); found {
			return Result{Target: best.Target}
		}
		if facet, ok := interact.Resolve(lineHit.Actor); ok && facet.CanInteract(actor) {
			return Result{Target: facet}
		}
	}

	if d.cfg.QueryGround && d.ground != nil {
		if id, _, ok := d.ground.NearestInRadius(origin, d.cfg.MaxDistance); ok {
			return Result{GroundID: id, HasGround: true}
		}
	}
	return Result{}
}

// Candidates scores every acceptable sweep hit without picking one.
func (d *Detector) Candidates(hits []scene.Hit, origin, forward vec.Vec3, owner Owner) []Candidate {
	forward = forward.Normalize()
	var actor interact.Actor
	if owner != nil {
		actor = owner
	}
	maxDistSq := d.cfg.MaxDistance * d.cfg.MaxDistance
	out := make([]Candidate, 0, len(hits))
	for idx, hit := range hits {
		facet, ok := interact.Resolve(hit.Actor)
		if !ok || !facet.CanInteract(actor) {
			continue
		}
		toImpact := hit.Impact.Sub(origin)
		distSq := toImpact.LenSq()
		dot := forward.Dot(toImpact.Normalize())
		if dot <= 0 {
			continue
		}
		if owner != nil {
			pawnDir := hit.Impact.Sub(owner.Location()).Normalize()
			pawnForward := owner.Forward().Normalize()
			if !pawnDir.IsZero() && !pawnForward.IsZero() && pawnForward.Dot(pawnDir) < pawnConeMinDot {
				continue
			}
		}
		score := d.cfg.DotWeight*(dot+1)/2 + d.cfg.DistanceWeight*(1-distSq/maxDistSq)
		out = append(out, Candidate{
			Target: facet,
			Impact: hit.Impact,
			DistSq: distSq,
			Dot:    dot,
			Score:  score,
			Index:  idx,
		})
	}
	return out
}

func (d *Detector) best(hits []scene.Hit, origin, forward vec.Vec3, owner Owner) (Candidate, bool) {
	candidates := d.Candidates(hits, origin, forward, owner)
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.Score > best.Score:
			best = c
		case c.Score == best.Score && c.DistSq < best.DistSq:
			best = c
		case c.Score == best.Score && c.DistSq == best.DistSq && c.Index < best.Index:
			best = c
		}
	}
	return best, true
}
