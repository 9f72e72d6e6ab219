package physics

// Transform is a world-space placement: origin, orientation, and scale.
// Every consumer recomputes derived vectors (axes, vertices) on demand
// (spec §3).
type Transform struct {
	Origin      Vec3
	Orientation Quat
	Scale       Vec3
}

// IdentityTransform returns the origin-at-zero, unit-scale, unrotated transform.
func IdentityTransform() Transform {
	return Transform{Orientation: QIdentity(), Scale: Vec3{1, 1, 1}}
}

// Combine applies local on top of parent, used when a collider has its
// own local_transform relative to the entity's Transform (spec §3
// Collider.local_transform).
func (parent Transform) Combine(local Transform) Transform {
	return Transform{
		Origin:      parent.Origin.Add(parent.Orientation.RotateVec(Vec3{local.Origin.X * parent.Scale.X, local.Origin.Y * parent.Scale.Y, local.Origin.Z * parent.Scale.Z})),
		Orientation: parent.Orientation.Mul(local.Orientation),
		Scale:       Vec3{parent.Scale.X * local.Scale.X, parent.Scale.Y * local.Scale.Y, parent.Scale.Z * local.Scale.Z},
	}
}

// Axes returns the transform's world-space X, Y, Z basis vectors.
func (t Transform) Axes() (x, y, z Vec3) {
	return t.Orientation.Axes()
}

// BoxVertices returns the eight corners of a unit-extent box (half-extent
// 1 along each local axis before scale) placed by t, in no particular
// winding order — SAT projection only needs the set, not an ordering.
func (t Transform) BoxVertices() [8]Vec3 {
	ax, ay, az := t.Axes()
	ex := ax.Scale(t.Scale.X)
	ey := ay.Scale(t.Scale.Y)
	ez := az.Scale(t.Scale.Z)

	var out [8]Vec3
	i := 0
	for _, sx := range [2]float32{-1, 1} {
		for _, sy := range [2]float32{-1, 1} {
			for _, sz := range [2]float32{-1, 1} {
				out[i] = t.Origin.Add(ex.Scale(sx)).Add(ey.Scale(sy)).Add(ez.Scale(sz))
				i++
			}
		}
	}
	return out
}

// HalfExtents returns the box's half-extent along its own local axes,
// i.e. t.Scale (a unit box scaled by Scale has half-extent Scale per axis).
func (t Transform) HalfExtents() Vec3 {
	return t.Scale
}
