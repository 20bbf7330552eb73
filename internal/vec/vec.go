package vec

import "math"

const epsilon = 1e-9

// Vec3 is a world-space position or direction. Z is up.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Zero is the origin.
var Zero = Vec3{}

func New(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) LenSq() float64 {
	return v.Dot(v)
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.LenSq())
}

// Normalize returns the unit vector in v's direction, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	mag := v.Len()
	if mag <= epsilon {
		return Vec3{}
	}
	inv := 1.0 / mag
	return Vec3{X: v.X * inv, Y: v.Y * inv, Z: v.Z * inv}
}

func (v Vec3) IsZero() bool {
	return math.Abs(v.X) <= epsilon && math.Abs(v.Y) <= epsilon && math.Abs(v.Z) <= epsilon
}

// Equal compares with a small tolerance.
func (v Vec3) Equal(o Vec3) bool {
	return v.Sub(o).IsZero()
}

func (v Vec3) DistSq(o Vec3) float64 {
	return v.Sub(o).LenSq()
}

func (v Vec3) Dist(o Vec3) float64 {
	return v.Sub(o).Len()
}

// Lerp interpolates between a and b by t without clamping.
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClosestOnSegment returns the point on segment ab nearest to p and its parameter t in [0,1].
func ClosestOnSegment(a, b, p Vec3) (Vec3, float64) {
	ab := b.Sub(a)
	lenSq := ab.LenSq()
	if lenSq <= epsilon {
		return a, 0
	}
	t := Clamp(p.Sub(a).Dot(ab)/lenSq, 0, 1)
	return a.Add(ab.Scale(t)), t
}
