package physics

import "math"

// Contact is the narrow-phase intersection result (spec §4.2 step 3): for
// every intersecting pair, Normal points from B toward A and Point lies on
// B's surface such that Point + Normal*Depth lies on A's surface.
type Contact struct {
	Point  Vec3
	Normal Vec3
	Depth  float32
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func projectInterval(verts [8]Vec3, axis Vec3) (lo, hi float32) {
	lo = float32(math.Inf(1))
	hi = float32(math.Inf(-1))
	for _, v := range verts {
		p := v.Dot(axis)
		lo = minF(lo, p)
		hi = maxF(hi, p)
	}
	return
}

// candidateBoxBoxAxes returns the 15 SAT candidate axes for a box-box
// test: each box's 3 face normals, plus the 9 pairwise cross products.
// Degenerate (near-zero) cross products are dropped by the caller, not
// here, since the caller needs to skip them rather than treat a
// zero-vector as a valid separating axis (spec §4.2: "degenerate cross
// products ... are skipped").
func candidateBoxBoxAxes(ax, ay, az, bx, by, bz Vec3) []Vec3 {
	axes := make([]Vec3, 0, 15)
	axes = append(axes, ax, ay, az, bx, by, bz)
	aFaces := [3]Vec3{ax, ay, az}
	bFaces := [3]Vec3{bx, by, bz}
	for _, fa := range aFaces {
		for _, fb := range bFaces {
			axes = append(axes, fa.Cross(fb))
		}
	}
	return axes
}

// IntersectBoxBox runs SAT over the 15 candidate axes (spec §4.2 Box-Box).
// The axis with minimum positive overlap becomes the collision normal,
// oriented to point from b toward a along that axis. Point is
// left zero; callers needing a contact point use BuildManifold separately
// (spec §4.2 step 4, manifold generation is Box-Box-only and a distinct
// step from the SAT axis test).
func IntersectBoxBox(a, b Transform) (normal Vec3, depth float32, ok bool) {
	ax, ay, az := a.Axes()
	bx, by, bz := b.Axes()
	vertsA := a.BoxVertices()
	vertsB := b.BoxVertices()

	bestOverlap := float32(math.Inf(1))
	var bestAxis Vec3
	found := false

	for _, axis := range candidateBoxBoxAxes(ax, ay, az, bx, by, bz) {
		axis = axis.Normalize()
		if axis.IsZero() {
			continue // degenerate cross product: parallel faces, skip
		}
		loA, hiA := projectInterval(vertsA, axis)
		loB, hiB := projectInterval(vertsB, axis)
		overlap := minF(hiA, hiB) - maxF(loA, loB)
		if overlap < 0 {
			return Vec3{}, 0, false // separating axis found
		}
		if overlap < bestOverlap {
			bestOverlap = overlap
			bestAxis = axis
			found = true
		}
	}
	if !found {
		return Vec3{}, 0, false
	}

	// Orient from B toward A: the axis should point toward whichever box
	// projects higher along it when that box is A.
	midA := a.Origin.Dot(bestAxis)
	midB := b.Origin.Dot(bestAxis)
	if midA < midB {
		bestAxis = bestAxis.Neg()
	}
	return bestAxis, bestOverlap, true
}

// IntersectBoxRay tests a finite segment from rayOrigin to rayEnd against
// box's three face-normal axes (spec §4.2 Box-Ray). If the origin lies
// inside every axis interval the hit is immediate at t=0; otherwise the
// axis with minimum overlap is solved for the boundary-crossing t, which
// is accepted only if it lies in [0,1] and is strictly less than
// minParametric (the same-frame "only the closest hit" clamp).
func IntersectBoxRay(box Transform, rayOrigin, rayEnd Vec3, minParametric float32) (c Contact, t float32, ok bool) {
	ax, ay, az := box.Axes()
	axes := [3]Vec3{ax.Normalize(), ay.Normalize(), az.Normalize()}
	he := box.HalfExtents()
	halves := [3]float32{he.X, he.Y, he.Z}

	allInside := true
	bestOverlap := float32(math.Inf(1))
	bestT := float32(-1)
	var bestNormal Vec3
	haveCandidate := false

	for i, axis := range axes {
		if axis.IsZero() {
			continue
		}
		center := box.Origin.Dot(axis)
		lo, hi := center-halves[i], center+halves[i]

		originProj := rayOrigin.Dot(axis)
		endProj := rayEnd.Dot(axis)
		rlo, rhi := originProj, endProj
		if rlo > rhi {
			rlo, rhi = rhi, rlo
		}
		overlap := minF(hi, rhi) - maxF(lo, rlo)
		if overlap < 0 {
			return Contact{}, 0, false
		}
		if originProj < lo || originProj > hi {
			allInside = false
		}

		denom := endProj - originProj
		if denom == 0 {
			continue
		}
		var boundary float32
		var normalSign float32
		if denom > 0 {
			boundary = lo
			normalSign = -1
		} else {
			boundary = hi
			normalSign = 1
		}
		axisT := (boundary - originProj) / denom
		if axisT < 0 || axisT > 1 {
			continue
		}
		if overlap < bestOverlap {
			bestOverlap = overlap
			bestT = axisT
			bestNormal = axis.Scale(normalSign)
			haveCandidate = true
		}
	}

	if allInside {
		dir := rayEnd.Sub(rayOrigin).Normalize()
		return Contact{Point: rayOrigin, Normal: dir.Neg(), Depth: 0}, 0, true
	}
	if !haveCandidate {
		return Contact{}, 0, false
	}
	if bestT >= minParametric {
		return Contact{}, 0, false
	}
	point := rayOrigin.Add(rayEnd.Sub(rayOrigin).Scale(bestT))
	return Contact{Point: point, Normal: bestNormal, Depth: 0}, bestT, true
}

// IntersectSphereSphere is an exact closed-form test (spec §4.2: "follow
// the same project onto each candidate axis, take the smallest overlap
// pattern, with projection specialized per shape" — for two spheres the
// single candidate axis is the center-to-center direction).
func IntersectSphereSphere(centerA Vec3, radiusA float32, centerB Vec3, radiusB float32) (Contact, bool) {
	diff := centerA.Sub(centerB)
	dist := diff.Length()
	if dist > radiusA+radiusB {
		return Contact{}, false
	}
	normal := diff.Normalize()
	if normal.IsZero() {
		normal = Vec3{0, 1, 0}
	}
	depth := radiusA + radiusB - dist
	point := centerB.Add(normal.Scale(radiusB))
	return Contact{Point: point, Normal: normal, Depth: depth}, true
}

// IntersectSphereBox projects the box's 3 face axes plus the center-to-
// center axis (spec §4.2 "mixed sphere tests follow the same pattern").
// Normal points from the box (B) toward the sphere (A).
func IntersectSphereBox(sphereCenter Vec3, radius float32, box Transform) (Contact, bool) {
	bx, by, bz := box.Axes()
	centerAxis := sphereCenter.Sub(box.Origin).Normalize()
	candidates := []Vec3{bx, by, bz, centerAxis}
	vertsBox := box.BoxVertices()

	bestOverlap := float32(math.Inf(1))
	var bestAxis Vec3
	found := false

	for _, axis := range candidates {
		axis = axis.Normalize()
		if axis.IsZero() {
			continue
		}
		loBox, hiBox := projectInterval(vertsBox, axis)
		c := sphereCenter.Dot(axis)
		loS, hiS := c-radius, c+radius
		overlap := minF(hiBox, hiS) - maxF(loBox, loS)
		if overlap < 0 {
			return Contact{}, false
		}
		if overlap < bestOverlap {
			bestOverlap = overlap
			bestAxis = axis
			found = true
		}
	}
	if !found {
		return Contact{}, false
	}
	if sphereCenter.Sub(box.Origin).Dot(bestAxis) < 0 {
		bestAxis = bestAxis.Neg()
	}
	point := sphereCenter.Sub(bestAxis.Scale(radius))
	return Contact{Point: point, Normal: bestAxis, Depth: bestOverlap}, true
}

// IntersectBoxSphere is IntersectSphereBox with A/B swapped so the
// contract's "normal from B toward A" still holds when the box is the
// first (A) argument.
func IntersectBoxSphere(box Transform, sphereCenter Vec3, radius float32) (Contact, bool) {
	c, ok := IntersectSphereBox(sphereCenter, radius, box)
	if !ok {
		return Contact{}, false
	}
	return Contact{Point: c.Point, Normal: c.Normal.Neg(), Depth: c.Depth}, true
}
