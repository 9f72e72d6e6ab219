// Package physics implements the fixed-step, impulse-based rigid-body
// simulator: transforms, box/ray/sphere colliders, SAT narrow-phase
// intersection, contact manifold generation, and rigid/spring impulse
// response (spec §4.2). No example repo in the pack implements this exact
// math; the file layout and comment density follow the teacher's house
// style (short package doc, sparse inline comments noting invariants
// rather than narrating the algorithm).
package physics

import "math"

// Vec3 is a minimal 3-component vector. No cached derived state; every
// operation recomputes from scratch (spec §3: "All derived matrices are
// recomputed on demand; no cached world matrices").
type Vec3 struct {
	X, Y, Z float32
}

func V3(x, y, z float32) Vec3 { return Vec3{x, y, z} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Neg() Vec3 { return Vec3{-a.X, -a.Y, -a.Z} }

func (a Vec3) Dot(b Vec3) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) LengthSq() float32 { return a.Dot(a) }
func (a Vec3) Length() float32   { return float32(math.Sqrt(float64(a.LengthSq()))) }

// Normalize returns the zero vector when a is (numerically) the zero
// vector, rather than producing NaN — narrow-phase code relies on this to
// treat degenerate cross products as "skip this axis" (spec §4.2: "Axes
// yielding degenerate cross products ... are skipped").
func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l < 1e-8 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// IsZero reports whether a has negligible magnitude.
func (a Vec3) IsZero() bool { return a.LengthSq() < 1e-12 }

// Quat is a unit quaternion, w-last-free convention {W, X, Y, Z}.
type Quat struct {
	W, X, Y, Z float32
}

// QIdentity is the identity rotation.
func QIdentity() Quat { return Quat{W: 1} }

func (q Quat) Length() float32 {
	return float32(math.Sqrt(float64(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)))
}

// Normalize returns the identity quaternion if q is degenerate.
func (q Quat) Normalize() Quat {
	l := q.Length()
	if l < 1e-8 {
		return QIdentity()
	}
	inv := 1 / l
	return Quat{q.W * inv, q.X * inv, q.Y * inv, q.Z * inv}
}

// Mul composes rotations: (a ⊗ b) applies b first, then a.
func (a Quat) Mul(b Quat) Quat {
	return Quat{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
}

func (q Quat) Conjugate() Quat { return Quat{q.W, -q.X, -q.Y, -q.Z} }

// RotateVec rotates v by q.
func (q Quat) RotateVec(v Vec3) Vec3 {
	qv := Quat{0, v.X, v.Y, v.Z}
	r := q.Mul(qv).Mul(q.Conjugate())
	return Vec3{r.X, r.Y, r.Z}
}

// FromScaledAxis builds the exact rotation quaternion for a rotation
// vector whose direction is the axis and whose length is the angle in
// radians — the "quat(ω·Δ)" construction of spec §4.2 step 2. Returns
// identity for a (numerically) zero rotation vector.
func FromScaledAxis(v Vec3) Quat {
	angle := v.Length()
	if angle < 1e-8 {
		return QIdentity()
	}
	axis := v.Scale(1 / angle)
	half := angle * 0.5
	s := float32(math.Sin(float64(half)))
	c := float32(math.Cos(float64(half)))
	return Quat{c, axis.X * s, axis.Y * s, axis.Z * s}
}

// Axes returns the quaternion's local X, Y, Z basis vectors rotated into
// world space.
func (q Quat) Axes() (x, y, z Vec3) {
	return q.RotateVec(Vec3{1, 0, 0}), q.RotateVec(Vec3{0, 1, 0}), q.RotateVec(Vec3{0, 0, 1})
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
