package physics

import (
	"math"
	"sort"
)

// ManifoldDepth is the tolerance (projection units along the contact
// normal, not a distance) used to decide which of a box's vertices belong
// to its near-face polygon: a vertex qualifies when its projection onto
// the axis is within ManifoldDepth of the extreme vertex's projection
// (spec §4.2 step 4).
const ManifoldDepth = 0.04

// ManifoldMinWeight is the floor of the linear interpolation applied to a
// clipped manifold vertex's contribution to the weighted centroid: 1.0 at
// the deepest vertex, ManifoldMinWeight (0.80) at a vertex ManifoldDepth
// away from it (spec §4.2 step 4).
const ManifoldMinWeight = 0.80

// manifoldClipEpsilon buffers the half-plane sign test against floating
// error, preferring "inside" to avoid chatter at a boundary (spec §4.2
// step 4 "epsilon of ~5e-5 preferring inside").
const manifoldClipEpsilon = 5e-5

// nearFacePolygon returns the box's vertices within ManifoldDepth of the
// extremum along axis, ordered around their own centroid by angle so the
// result is a simple polygon suitable for ClipCoplanarPolygon rather than
// an arbitrarily-ordered vertex set (spec §4.2 step 4 "traversed in
// winding order around the perimeter"; BoxVertices itself makes no
// ordering guarantee).
func nearFacePolygon(t Transform, axis Vec3) []Vec3 {
	verts := t.BoxVertices()
	extreme := verts[0].Dot(axis)
	for _, v := range verts[1:] {
		if d := v.Dot(axis); d > extreme {
			extreme = d
		}
	}

	var near []Vec3
	for _, v := range verts {
		if extreme-v.Dot(axis) <= ManifoldDepth {
			near = append(near, v)
		}
	}
	if len(near) < 3 {
		return near
	}
	return windByAngle(near, axis)
}

// windByAngle orders coplanar-ish points by angle around their centroid in
// the plane perpendicular to axis, giving a simple (non-self-intersecting)
// polygon regardless of the caller's input order.
func windByAngle(points []Vec3, axis Vec3) []Vec3 {
	n := axis.Normalize()
	ref := Vec3{X: 1}
	if ref.Cross(n).LengthSq() < 1e-6 {
		ref = Vec3{Y: 1}
	}
	u := ref.Sub(n.Scale(ref.Dot(n))).Normalize()
	v := n.Cross(u)

	var centroid Vec3
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float32(len(points)))

	type angled struct {
		p   Vec3
		ang float64
	}
	sorted := make([]angled, len(points))
	for i, p := range points {
		rel := p.Sub(centroid)
		sorted[i] = angled{p, math.Atan2(float64(rel.Dot(v)), float64(rel.Dot(u)))}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ang < sorted[j].ang })

	out := make([]Vec3, len(sorted))
	for i, a := range sorted {
		out[i] = a.p
	}
	return out
}

// ClipManifold builds both boxes' near-face polygons along normal (a's
// facing -normal, b's facing +normal, matching the separating-axis
// convention that normal points from b toward a) and pseudo-clips b's
// polygon against a's, treating each of a's edges together with normal as
// a half-space (spec §4.2 step 4). Degenerate inputs (fewer than 3
// vertices on either face) pass b's polygon through unclipped rather than
// forcing an arbitrary result out of a non-convex clip.
func ClipManifold(a, b Transform, normal Vec3) []Vec3 {
	aFace := nearFacePolygon(a, normal.Neg())
	bFace := nearFacePolygon(b, normal)
	if len(aFace) < 3 || len(bFace) < 3 {
		return bFace
	}
	return ClipCoplanarPolygon(bFace, aFace)
}

// WeightedCentroid implements spec §4.2 step 4's weighted-centroid
// rounding: the deepest clipped vertex along normal (or the average of
// ties) becomes the manifold origin, and every vertex contributes its
// offset from that origin scaled by a weight linearly interpolated
// between 1.0 (at the deepest vertex) and ManifoldMinWeight (a vertex
// ManifoldDepth shallower). Falls back to the midpoint of a and b's
// origins when nothing survived clipping.
func WeightedCentroid(clipped []Vec3, normal Vec3, a, b Transform) Vec3 {
	if len(clipped) == 0 {
		return a.Origin.Add(b.Origin).Scale(0.5)
	}
	if len(clipped) == 1 {
		return clipped[0]
	}

	maxCoeff := clipped[0].Dot(normal)
	origin := clipped[0]
	var originContributors float32 = 1
	for _, v := range clipped[1:] {
		c := v.Dot(normal)
		switch {
		case c > maxCoeff:
			maxCoeff = c
			origin = v
			originContributors = 1
		case c == maxCoeff:
			origin = origin.Add(v)
			originContributors++
		}
	}
	origin = origin.Scale(1 / originContributors)

	manifoldRange := float32(1 - ManifoldMinWeight)
	var sum Vec3
	for _, v := range clipped {
		c := v.Dot(normal)
		rel := v.Sub(origin)
		weight := (c-maxCoeff+ManifoldDepth)/ManifoldDepth*manifoldRange + ManifoldMinWeight
		sum = sum.Add(rel.Scale(weight))
	}
	return origin.Add(sum.Scale(1 / float32(len(clipped))))
}

// BuildManifold is the composed ClipManifold + WeightedCentroid pipeline
// step used by Relay for a Box-Box contact (spec §4.2 step 4).
func BuildManifold(a, b Transform, normal Vec3) Vec3 {
	return WeightedCentroid(ClipManifold(a, b, normal), normal, a, b)
}

// newellNormal derives a coplanar polygon's own winding normal (Newell's
// method), used instead of trusting a caller-supplied normal's sign —
// vertex order in source geometry is not guaranteed to agree with any
// particular right-hand-rule convention.
func newellNormal(poly []Vec3) Vec3 {
	var n Vec3
	for i, cur := range poly {
		next := poly[(i+1)%len(poly)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// halfPlaneSide is proportional to p's signed distance from the line
// edgeStart->edgeEnd within the plane normal lies along: positive on the
// side normal agrees with a left turn from the edge.
func halfPlaneSide(p, edgeStart, edgeEnd, normal Vec3) float32 {
	edge := edgeEnd.Sub(edgeStart)
	return edge.Cross(p.Sub(edgeStart)).Dot(normal)
}

// ClipCoplanarPolygon clips subject against the convex polygon window,
// both assumed coplanar, via Sutherland-Hodgman. Used as the Box-Box
// pseudo-clip's underlying half-space walk (spec §4.2 step
// 4's "epsilon of ~5e-5 preferring inside"). The result's winding matches
// subject's own (Sutherland-Hodgman never reorders survivors, only
// inserts edge-intersection points between them), and its vertex count
// never exceeds len(subject)+len(window) (each window edge can split the
// running polygon by at most one extra vertex).
func ClipCoplanarPolygon(subject, window []Vec3) []Vec3 {
	normal := newellNormal(window)
	output := append([]Vec3(nil), subject...)

	for i := range window {
		if len(output) == 0 {
			break
		}
		edgeStart, edgeEnd := window[i], window[(i+1)%len(window)]
		input := output
		output = nil

		for j, cur := range input {
			prev := input[(j-1+len(input))%len(input)]
			curSide := halfPlaneSide(cur, edgeStart, edgeEnd, normal)
			prevSide := halfPlaneSide(prev, edgeStart, edgeEnd, normal)
			curIn := curSide >= -manifoldClipEpsilon
			prevIn := prevSide >= -manifoldClipEpsilon

			if curIn != prevIn {
				t := prevSide / (prevSide - curSide)
				output = append(output, prev.Add(cur.Sub(prev).Scale(t)))
			}
			if curIn {
				output = append(output, cur)
			}
		}
	}
	return output
}
