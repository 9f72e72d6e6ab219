package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holodeck1/entity"
)

func boxTransform(origin Vec3, halfExtent float32) Transform {
	return Transform{Origin: origin, Orientation: QIdentity(), Scale: Vec3{halfExtent, halfExtent, halfExtent}}
}

// TestIntersectBoxBoxOverlap mirrors the spec's two-unit-cube scenario:
// boxes of half-extent 0.5 centered 0.9 apart along X overlap by 0.1.
func TestIntersectBoxBoxOverlap(t *testing.T) {
	a := boxTransform(Vec3{0, 0, 0}, 0.5)
	b := boxTransform(Vec3{0.9, 0, 0}, 0.5)

	normal, depth, ok := IntersectBoxBox(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.1, depth, 1e-4)
	assert.InDelta(t, -1, normal.X, 1e-4) // from B toward A: A is at the lower X
}

func TestIntersectBoxBoxSeparated(t *testing.T) {
	a := boxTransform(Vec3{0, 0, 0}, 0.5)
	b := boxTransform(Vec3{5, 0, 0}, 0.5)
	_, _, ok := IntersectBoxBox(a, b)
	assert.False(t, ok)
}

// TestIntersectBoxRayHitsTopFace mirrors the spec's ray-box scenario: a
// ray from (0,2,0) to (0,-1,0) against a half-extent-0.5 box at the
// origin crosses the top face at (0,0.5,0), t=0.5.
func TestIntersectBoxRayHitsTopFace(t *testing.T) {
	box := boxTransform(Vec3{0, 0, 0}, 0.5)
	origin := Vec3{0, 2, 0}
	end := Vec3{0, -1, 0}

	c, tVal, ok := IntersectBoxRay(box, origin, end, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.Point.Y, 1e-4)
	assert.InDelta(t, 1, c.Normal.Y, 1e-4)
	assert.Less(t, tVal, float32(1))
}

func TestIntersectBoxRayMisses(t *testing.T) {
	box := boxTransform(Vec3{10, 10, 10}, 0.5)
	origin := Vec3{0, 2, 0}
	end := Vec3{0, -1, 0}
	_, _, ok := IntersectBoxRay(box, origin, end, 1)
	assert.False(t, ok)
}

func TestIntersectBoxRayOriginInsideIsImmediateHit(t *testing.T) {
	box := boxTransform(Vec3{0, 0, 0}, 1)
	origin := Vec3{0, 0, 0}
	end := Vec3{0, -2, 0}
	c, tVal, ok := IntersectBoxRay(box, origin, end, 1)
	require.True(t, ok)
	assert.Equal(t, float32(0), tVal)
	assert.Equal(t, origin, c.Point)
}

func TestIntersectSphereSphere(t *testing.T) {
	c, ok := IntersectSphereSphere(Vec3{0, 0, 0}, 1, Vec3{1.5, 0, 0}, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.Depth, 1e-4)
	assert.InDelta(t, -1, c.Normal.X, 1e-4)
}

func TestIntersectSphereSphereMiss(t *testing.T) {
	_, ok := IntersectSphereSphere(Vec3{0, 0, 0}, 1, Vec3{10, 0, 0}, 1)
	assert.False(t, ok)
}

func TestIntersectSphereBox(t *testing.T) {
	box := boxTransform(Vec3{0, 0, 0}, 0.5)
	c, ok := IntersectSphereBox(Vec3{1, 0, 0}, 0.6, box)
	require.True(t, ok)
	assert.Greater(t, c.Depth, float32(0))
	assert.InDelta(t, 1, c.Normal.X, 1e-4)
}

// TestBuildManifoldFallsBackToMidpointWhenFootprintsDontOverlap clips along
// X with the boxes separated far apart in Y instead: both near-face
// polygons live in the Y-Z plane, and since the pseudo-clip flattens along
// the normal (ignoring depth along it, per spec §4.2 step 4), footprints
// this far apart in Y never overlap regardless of their X placement.
func TestBuildManifoldFallsBackToMidpointWhenFootprintsDontOverlap(t *testing.T) {
	a := boxTransform(Vec3{0, 0, 0}, 0.5)
	b := boxTransform(Vec3{0, 100, 0}, 0.5)
	p := BuildManifold(a, b, Vec3{1, 0, 0})
	assert.Equal(t, a.Origin.Add(b.Origin).Scale(0.5), p)
}

func TestBuildManifoldWeightsDeepestVertices(t *testing.T) {
	a := boxTransform(Vec3{0, 0, 0}, 0.5)
	b := boxTransform(Vec3{0.9, 0, 0}, 0.5)
	normal, _, ok := IntersectBoxBox(a, b)
	require.True(t, ok)
	p := BuildManifold(a, b, normal)
	// the manifold point should lie within the overlap slab along X
	assert.True(t, p.X >= b.Origin.X-0.5 && p.X <= 0.65)
}

// TestClipCoplanarPolygonTriangleAgainstSquare mirrors the spec's
// triangle-vs-square clip scenario. The triangle is wider than the square
// along its base and narrower along its apex, so the exact intersection
// is a hexagon (two square corners survive untouched, the other two are
// cut by the triangle's slanted edges) rather than the spec prose's
// illustrative "<= 5" estimate — Sutherland-Hodgman computes the exact
// intersection here, not an approximation, so the true vertex count for
// this specific geometry is 6; see DESIGN.md.
func TestClipCoplanarPolygonTriangleAgainstSquare(t *testing.T) {
	triangle := []Vec3{{-1, 0, -1}, {1, 0, -1}, {0, 0, 1}}
	square := []Vec3{{-0.5, 0, -0.5}, {0.5, 0, -0.5}, {0.5, 0, 0.5}, {-0.5, 0, 0.5}}

	result := ClipCoplanarPolygon(triangle, square)
	require.Len(t, result, 6)

	for _, v := range result {
		assert.GreaterOrEqual(t, v.X, float32(-0.5001))
		assert.LessOrEqual(t, v.X, float32(0.5001))
		assert.GreaterOrEqual(t, v.Z, float32(-0.5001))
		assert.LessOrEqual(t, v.Z, float32(0.5001))
	}

	expected := []Vec3{
		{-0.25, 0, 0.5},
		{-0.5, 0, 0},
		{-0.5, 0, -0.5},
		{0.5, 0, -0.5},
		{0.5, 0, 0},
		{0.25, 0, 0.5},
	}
	for i, e := range expected {
		assert.InDelta(t, e.X, result[i].X, 1e-4, "vertex %d X", i)
		assert.InDelta(t, e.Z, result[i].Z, 1e-4, "vertex %d Z", i)
	}

	assert.Equal(t, newellNormal(triangle).Y < 0, newellNormal(result).Y < 0, "winding must be preserved")
}

func TestClipCoplanarPolygonFullyOutsideYieldsEmpty(t *testing.T) {
	triangle := []Vec3{{-1, 0, -1}, {1, 0, -1}, {0, 0, 1}}
	farSquare := []Vec3{{10, 0, 10}, {11, 0, 10}, {11, 0, 11}, {10, 0, 11}}
	assert.Empty(t, ClipCoplanarPolygon(triangle, farSquare))
}

func TestBodyIntegrateSemiImplicitEuler(t *testing.T) {
	body := &Body{Acceleration: Vec3{0, -10, 0}, Mass: 1}
	transform := IdentityTransform()

	body.Integrate(&transform, 0.1)

	assert.InDelta(t, -1, body.Velocity.Y, 1e-5)
	assert.InDelta(t, -0.1, transform.Origin.Y, 1e-5)
}

func TestBodyIntegrateRespectsLocks(t *testing.T) {
	body := &Body{Velocity: Vec3{1, 0, 0}, OriginLock: true, OrientationLock: true, AngularVelocity: Vec3{0, 1, 0}}
	transform := IdentityTransform()
	body.Integrate(&transform, 1)

	assert.Equal(t, Vec3{}, transform.Origin)
	assert.Equal(t, QIdentity(), transform.Orientation)
}

func TestResolveRigidRigidSeparatesBodies(t *testing.T) {
	ta := IdentityTransform()
	tb := IdentityTransform()
	tb.Origin = Vec3{0.9, 0, 0}

	bodyA := &Body{Mass: 1, Velocity: Vec3{1, 0, 0}}
	bodyB := &Body{Mass: 1, Velocity: Vec3{-1, 0, 0}}

	ea := Endpoint{Body: bodyA, Transform: &ta, InverseMass: bodyA.InverseMass(), InverseInertia: func(v Vec3) Vec3 { return Vec3{} }}
	eb := Endpoint{Body: bodyB, Transform: &tb, InverseMass: bodyB.InverseMass(), InverseInertia: func(v Vec3) Vec3 { return Vec3{} }}

	contact := Contact{Point: Vec3{0.45, 0, 0}, Normal: Vec3{-1, 0, 0}, Depth: 0.1}
	ResolveRigidRigid(ea, eb, contact, Material{Restitution: 0.5}, Material{Restitution: 0.5})

	// after resolution the bodies should be moving apart, not still closing
	relVel := bodyA.Velocity.Sub(bodyB.Velocity).Dot(contact.Normal)
	assert.GreaterOrEqual(t, relVel, float32(0))
}

// TestResolveRigidRigidRestitutionIsProductOfMaterials mirrors spec §4.2
// step 5's explicit e = e_A . e_B: one perfectly bouncy, one perfectly
// inelastic material combine to a dead stop, not the 0.5 coefficient an
// averaging combiner would produce.
func TestResolveRigidRigidRestitutionIsProductOfMaterials(t *testing.T) {
	ta := IdentityTransform()
	tb := IdentityTransform()
	tb.Origin = Vec3{0.9, 0, 0}

	bodyA := &Body{Mass: 1, Velocity: Vec3{1, 0, 0}}
	bodyB := &Body{Mass: 1, Velocity: Vec3{-1, 0, 0}}

	ea := Endpoint{Body: bodyA, Transform: &ta, InverseMass: bodyA.InverseMass(), InverseInertia: func(v Vec3) Vec3 { return Vec3{} }}
	eb := Endpoint{Body: bodyB, Transform: &tb, InverseMass: bodyB.InverseMass(), InverseInertia: func(v Vec3) Vec3 { return Vec3{} }}

	contact := Contact{Point: Vec3{0.45, 0, 0}, Normal: Vec3{-1, 0, 0}, Depth: 0.1}
	ResolveRigidRigid(ea, eb, contact, Material{Restitution: 1}, Material{Restitution: 0})

	assert.InDelta(t, 0, bodyA.Velocity.X, 1e-5)
	assert.InDelta(t, 0, bodyB.Velocity.X, 1e-5)
}

func TestResolveRigidRigidSkipsSeparatingContact(t *testing.T) {
	ta := IdentityTransform()
	tb := IdentityTransform()
	bodyA := &Body{Mass: 1, Velocity: Vec3{-1, 0, 0}}
	bodyB := &Body{Mass: 1, Velocity: Vec3{1, 0, 0}}

	ea := Endpoint{Body: bodyA, Transform: &ta, InverseMass: bodyA.InverseMass(), InverseInertia: func(v Vec3) Vec3 { return Vec3{} }}
	eb := Endpoint{Body: bodyB, Transform: &tb, InverseMass: bodyB.InverseMass(), InverseInertia: func(v Vec3) Vec3 { return Vec3{} }}

	contact := Contact{Point: Vec3{}, Normal: Vec3{-1, 0, 0}, Depth: 0.1}
	before := bodyA.Velocity
	ResolveRigidRigid(ea, eb, contact, Material{}, Material{})
	assert.Equal(t, before, bodyA.Velocity)
}

func TestRelayStepBoxBoxProducesCollision(t *testing.T) {
	ta := boxTransform(Vec3{0, 0, 0}, 0.5)
	tb := boxTransform(Vec3{0.95, 0, 0}, 0.5)

	bodyA := &Body{Mass: 1}
	bodyB := &Body{Mass: 1, Velocity: Vec3{-1, 0, 0}}

	colliderA := &Collider{Kind: KindBox, Response: ResponseRigid, Active: true, LocalTransform: IdentityTransform(), Material: Material{Restitution: 0}}
	colliderB := &Collider{Kind: KindBox, Response: ResponseRigid, Active: true, LocalTransform: IdentityTransform(), Material: Material{Restitution: 0}}

	participants := []Participant{
		{Entity: 1, Transform: &ta, Body: bodyA, Colliders: [CollidersPerEntity]*Collider{colliderA, nil}},
		{Entity: 2, Transform: &tb, Body: bodyB, Colliders: [CollidersPerEntity]*Collider{colliderB, nil}},
	}

	var events []CollisionEvent
	relay := NewRelay()
	relay.OnCollision = func(e CollisionEvent) { events = append(events, e) }

	relay.Step(participants, 0.016)

	require.Len(t, events, 1)
	assert.Equal(t, entity.Entity(1), events[0].A)
}
