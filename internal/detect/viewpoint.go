package detect

import (
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/vec"
)

// Owner is the controlled pawn. Its transform is the fallback view.
type Owner interface {
	interact.Actor
	Forward() vec.Vec3
	// EyeHeight lifts the fallback origin off the pawn's feet.
	EyeHeight() float64
}

// Camera reports the current view, if one is available.
type Camera interface {
	View() (origin, forward vec.Vec3, ok bool)
}

// ViewConfig tunes the pivot applied to detached cameras.
type ViewConfig struct {
	// PivotThreshold is the camera-to-owner distance beyond which the
	// origin is pulled toward the owner.
	PivotThreshold float64
	// PivotOffset shifts the pulled origin along forward from the owner's
	// projection. Negative values start the trace behind the owner.
	PivotOffset float64
}

// DefaultViewConfig returns the standard pivot tuning.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{PivotThreshold: 250, PivotOffset: 0}
}

// ViewPoint resolves the (origin, forward) pair detection runs from.
type ViewPoint struct {
	cfg    ViewConfig
	owner  Owner
	camera Camera
}

// NewViewPoint binds a view point to an owner and an optional camera.
func NewViewPoint(cfg ViewConfig, owner Owner, camera Camera) *ViewPoint {
	return &ViewPoint{cfg: cfg, owner: owner, camera: camera}
}

// SetCamera swaps the camera, for example when the pawn is possessed.
func (v *ViewPoint) SetCamera(camera Camera) { v.camera = camera }

// Resolve returns the detection origin and a unit forward vector. Without a
// camera the owner's transform is used; without either the zero pair is
// returned.
func (v *ViewPoint) Resolve() (vec.Vec3, vec.Vec3) {
	if v == nil {
		return vec.Vec3{}, vec.Vec3{}
	}
	var (
		origin, forward vec.Vec3
		ok              bool
	)
	if v.camera != nil {
		origin, forward, ok = v.camera.View()
		forward = forward.Normalize()
		if forward.IsZero() {
			ok = false
		}
	}
	if !ok {
		if v.owner == nil {
			return vec.Vec3{}, vec.Vec3{}
		}
		eye := v.owner.Location().Add(vec.New(0, 0, v.owner.EyeHeight()))
		return eye, v.owner.Forward().Normalize()
	}
	if v.owner == nil || v.cfg.PivotThreshold <= 0 {
		return origin, forward
	}
	pawn := v.owner.Location()
	if origin.DistSq(pawn) <= v.cfg.PivotThreshold*v.cfg.PivotThreshold {
		return origin, forward
	}
	along := pawn.Sub(origin).Dot(forward) + v.cfg.PivotOffset
	if along <= 0 {
		return origin, forward
	}
	return origin.Add(forward.Scale(along)), forward
}
