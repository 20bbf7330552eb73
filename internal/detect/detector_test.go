package detect

import (
	"math"
	"testing"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/vec"
)

type testOwner struct {
	id      scene.ID
	loc     vec.Vec3
	forward vec.Vec3
}

func (o testOwner) ActorID() scene.ID  { return o.id }
func (o testOwner) Location() vec.Vec3 { return o.loc }
func (o testOwner) Forward() vec.Vec3  { return o.forward }
func (o testOwner) EyeHeight() float64 { return 0 }

type plainActor scene.ID

func (a plainActor) ActorID() scene.ID { return scene.ID(a) }

func addTarget(s *scene.Scene, id scene.ID, at vec.Vec3, radius float64) *interact.Component {
	c := interact.NewComponent(id, interact.DefaultDescriptor(interact.TypeTap), at)
	s.Add(scene.Body{Actor: c, Center: at, Radius: radius})
	return c
}

func TestDetectNilWorldReturnsEmpty(t *testing.T) {
	d := New(DefaultConfig(), nil)
	if res := d.Detect(nil, vec.Zero, vec.New(1, 0, 0), nil); !res.Empty() {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestDetectPrefersCentredCandidate(t *testing.T) {
	s := scene.New()
	centred := addTarget(s, 10, vec.New(200, 0, 0), 10)
	addTarget(s, 11, vec.New(220, 38, 0), 10)

	d := New(DefaultConfig(), nil)
	res := d.Detect(s, vec.Zero, vec.New(1, 0, 0), nil)
	if res.Target == nil || res.Target.ActorID() != centred.ActorID() {
		t.Fatalf("expected centred target, got %+v", res.Target)
	}
}

func TestDetectDropsRejectedCandidates(t *testing.T) {
	s := scene.New()
	front := addTarget(s, 10, vec.New(100, 0, 0), 10)
	front.SetEnabled(false)
	side := addTarget(s, 11, vec.New(150, 20, 0), 10)

	d := New(DefaultConfig(), nil)
	res := d.Detect(s, vec.Zero, vec.New(1, 0, 0), nil)
	if res.Target == nil || res.Target.ActorID() != side.ActorID() {
		t.Fatalf("expected enabled side target, got %+v", res.Target)
	}
}

func TestDetectSkipsSweepWhenLineMisses(t *testing.T) {
	s := scene.New()
	addTarget(s, 10, vec.New(100, 20, 0), 5)
	d := New(DefaultConfig(), nil)
	if res := d.Detect(s, vec.Zero, vec.New(1, 0, 0), nil); !res.Empty() {
		t.Fatalf("expected no target when the line trace misses, got %+v", res)
	}
}

func TestDetectFallsBackToLineHit(t *testing.T) {
	s := scene.New()
	behindPawn := addTarget(s, 10, vec.New(50, 0, 0), 10)
	owner := testOwner{id: 1, loc: vec.New(120, 0, 0), forward: vec.New(1, 0, 0)}

	d := New(DefaultConfig(), nil)
	hits := s.Sweep(scene.Query{Origin: vec.Zero, End: vec.New(300, 0, 0), Channel: scene.ChannelAll, Radius: 30, Ignore: []scene.ID{1}})
	if got := d.Candidates(hits, vec.Zero, vec.New(1, 0, 0), owner); len(got) != 0 {
		t.Fatalf("expected pawn cone to reject the sweep hit, got %d candidates", len(got))
	}
	res := d.Detect(s, vec.Zero, vec.New(1, 0, 0), owner)
	if res.Target == nil || res.Target.ActorID() != behindPawn.ActorID() {
		t.Fatalf("expected line-trace fallback, got %+v", res)
	}
}

func TestDetectIgnoresOwnerAndNonInteractables(t *testing.T) {
	s := scene.New()
	owner := testOwner{id: 1, loc: vec.New(20, 0, 0), forward: vec.New(1, 0, 0)}
	s.Add(scene.Body{Actor: owner, Center: owner.loc, Radius: 15})
	s.Add(scene.Body{Actor: plainActor(2), Center: vec.New(60, 0, 0), Radius: 5})
	target := addTarget(s, 10, vec.New(150, 0, 0), 10)

	d := New(DefaultConfig(), nil)
	res := d.Detect(s, vec.Zero, vec.New(1, 0, 0), owner)
	if res.Target == nil || res.Target.ActorID() != target.ActorID() {
		t.Fatalf("expected interactable behind the plain actor, got %+v", res)
	}
}

func TestDetectGroundFallbackAndSuppression(t *testing.T) {
	registry := ground.NewRegistry()
	id := registry.Insert(&items.Item{ID: "coin", Type: items.ItemTypeGold, Stack: 1}, vec.New(80, 0, 0))

	s := scene.New()
	d := New(DefaultConfig(), registry)
	res := d.Detect(s, vec.Zero, vec.New(1, 0, 0), nil)
	if !res.HasGround || res.GroundID != id || res.Target != nil {
		t.Fatalf("expected ground fallback to %d, got %+v", id, res)
	}

	addTarget(s, 10, vec.New(100, 0, 0), 10)
	res = d.Detect(s, vec.Zero, vec.New(1, 0, 0), nil)
	if res.HasGround || res.Target == nil {
		t.Fatalf("expected interactable to suppress ground fallback, got %+v", res)
	}

	cfg := DefaultConfig()
	cfg.QueryGround = false
	d.SetConfig(cfg)
	if res := d.Detect(scene.New(), vec.Zero, vec.New(1, 0, 0), nil); !res.Empty() {
		t.Fatalf("expected ground query disabled, got %+v", res)
	}
}

func TestCandidateScoreFormula(t *testing.T) {
	d := New(DefaultConfig(), nil)
	c := interact.NewComponent(10, interact.DefaultDescriptor(interact.TypeTap), vec.Zero)
	hits := []scene.Hit{{Actor: c, Impact: vec.New(150, 0, 0)}}
	got := d.Candidates(hits, vec.Zero, vec.New(1, 0, 0), nil)
	if len(got) != 1 {
		t.Fatalf("expected one candidate")
	}
	want := 0.7*1 + 0.3*(1-150.0*150.0/(300.0*300.0))
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Fatalf("score = %f, want %f", got[0].Score, want)
	}
	behind := []scene.Hit{{Actor: c, Impact: vec.New(-10, 0, 0)}}
	if len(d.Candidates(behind, vec.Zero, vec.New(1, 0, 0), nil)) != 0 {
		t.Fatalf("expected hit behind the camera to be rejected")
	}
}

type fixedCamera struct {
	origin, forward vec.Vec3
	ok              bool
}

func (c fixedCamera) View() (vec.Vec3, vec.Vec3, bool) { return c.origin, c.forward, c.ok }

func TestViewPointFallsBackToOwner(t *testing.T) {
	owner := testOwner{id: 1, loc: vec.New(5, 5, 0), forward: vec.New(0, 2, 0)}
	vp := NewViewPoint(DefaultViewConfig(), owner, nil)
	origin, forward := vp.Resolve()
	if !origin.Equal(owner.loc) || !forward.Equal(vec.New(0, 1, 0)) {
		t.Fatalf("expected owner transform, got %+v %+v", origin, forward)
	}
	vp.SetCamera(fixedCamera{ok: false})
	if origin, _ := vp.Resolve(); !origin.Equal(owner.loc) {
		t.Fatalf("expected fallback when the camera has no view")
	}
}

func TestViewPointPullsDistantCameraTowardOwner(t *testing.T) {
	owner := testOwner{id: 1, loc: vec.New(400, 0, 0), forward: vec.New(1, 0, 0)}
	near := fixedCamera{origin: vec.New(350, 0, 0), forward: vec.New(1, 0, 0), ok: true}
	vp := NewViewPoint(ViewConfig{PivotThreshold: 100, PivotOffset: -10}, owner, near)
	if origin, _ := vp.Resolve(); !origin.Equal(near.origin) {
		t.Fatalf("expected near camera untouched, got %+v", origin)
	}

	far := fixedCamera{origin: vec.New(0, 0, 0), forward: vec.New(1, 0, 0), ok: true}
	vp.SetCamera(far)
	origin, forward := vp.Resolve()
	if !origin.Equal(vec.New(390, 0, 0)) {
		t.Fatalf("expected origin pulled to 390, got %+v", origin)
	}
	if !forward.Equal(vec.New(1, 0, 0)) {
		t.Fatalf("forward changed: %+v", forward)
	}
}
