package scene

import (
	"math"
	"sort"
	"sync"

	"project-hunter/server/internal/vec"
)

// ID identifies an actor in the scene.
type ID uint64

// Actor is anything a trace can hit.
type Actor interface {
	ActorID() ID
}

// Channel selects which bodies a query considers.
type Channel uint32

const (
	ChannelVisibility Channel = 1 << iota
	ChannelInteraction
	ChannelCamera
)

// ChannelAll matches every body.
const ChannelAll Channel = ^Channel(0)

// Hit is a single trace or sweep result.
type Hit struct {
	Actor  Actor
	Impact vec.Vec3
	Normal vec.Vec3
	// Time is the fraction along the query segment in [0, 1].
	Time float64
}

// Query describes a segment query. Radius is only used by sweeps.
type Query struct {
	Origin  vec.Vec3
	End     vec.Vec3
	Channel Channel
	Radius  float64
	Ignore  []ID
}

func (q Query) ignores(id ID) bool {
	for _, ignored := range q.Ignore {
		if ignored == id {
			return true
		}
	}
	return false
}

// World is the trace surface the detector and validator run against.
type World interface {
	// Trace returns the first blocking hit along the segment.
	Trace(q Query) (Hit, bool)
	// Sweep returns every body touched by a sphere moved along the segment,
	// ordered by time of contact.
	Sweep(q Query) []Hit
}

// Body is a sphere collider attached to an actor.
type Body struct {
	Actor    Actor
	Center   vec.Vec3
	Radius   float64
	Channels Channel
}

// Scene is an in-memory World made of sphere bodies. It is safe for
// concurrent use.
type Scene struct {
	mu     sync.RWMutex
	bodies map[ID]Body
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{bodies: make(map[ID]Body)}
}

// Add registers or replaces the body for its actor.
func (s *Scene) Add(body Body) {
	if s == nil || body.Actor == nil {
		return
	}
	if body.Channels == 0 {
		body.Channels = ChannelAll
	}
	s.mu.Lock()
	s.bodies[body.Actor.ActorID()] = body
	s.mu.Unlock()
}

// Move relocates an existing body.
func (s *Scene) Move(id ID, center vec.Vec3) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.bodies[id]
	if !ok {
		return false
	}
	body.Center = center
	s.bodies[id] = body
	return true
}

// Remove drops the body for id.
func (s *Scene) Remove(id ID) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.bodies, id)
	s.mu.Unlock()
}

// Body returns the body registered for id.
func (s *Scene) Body(id ID) (Body, bool) {
	if s == nil {
		return Body{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.bodies[id]
	return body, ok
}

// Len reports the number of bodies.
func (s *Scene) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bodies)
}

func (s *Scene) Trace(q Query) (Hit, bool) {
	hits := s.query(q, 0)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[0], true
}

func (s *Scene) Sweep(q Query) []Hit {
	radius := q.Radius
	if radius < 0 {
		radius = 0
	}
	return s.query(q, radius)
}

func (s *Scene) query(q Query, radius float64) []Hit {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]Hit, 0, 4)
	for id, body := range s.bodies {
		if body.Channels&q.Channel == 0 || q.ignores(id) {
			continue
		}
		hit, ok := intersect(q.Origin, q.End, radius, body)
		if !ok {
			continue
		}
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Time == hits[j].Time {
			return hits[i].Actor.ActorID() < hits[j].Actor.ActorID()
		}
		return hits[i].Time < hits[j].Time
	})
	return hits
}

// intersect tests a sphere of the given radius swept along [a, b] against
// body. A zero radius is a ray cast.
func intersect(a, b vec.Vec3, radius float64, body Body) (Hit, bool) {
	combined := radius + body.Radius
	seg := b.Sub(a)
	segLenSq := seg.LenSq()
	if segLenSq == 0 {
		if a.DistSq(body.Center) > combined*combined {
			return Hit{}, false
		}
		return makeHit(a, 0, body), true
	}

	// Solve |a + t*seg - c|^2 = combined^2 for the entry time.
	m := a.Sub(body.Center)
	bq := m.Dot(seg)
	cq := m.LenSq() - combined*combined
	if cq <= 0 {
		return makeHit(a, 0, body), true
	}
	if bq > 0 {
		return Hit{}, false
	}
	disc := bq*bq - segLenSq*cq
	if disc < 0 {
		return Hit{}, false
	}
	t := (-bq - math.Sqrt(disc)) / segLenSq
	if t < 0 || t > 1 {
		return Hit{}, false
	}
	return makeHit(a.Add(seg.Scale(t)), t, body), true
}

func makeHit(sweepCenter vec.Vec3, t float64, body Body) Hit {
	normal := sweepCenter.Sub(body.Center).Normalize()
	impact := body.Center.Add(normal.Scale(body.Radius))
	if normal.IsZero() {
		impact = body.Center
	}
	return Hit{Actor: body.Actor, Impact: impact, Normal: normal, Time: t}
}
