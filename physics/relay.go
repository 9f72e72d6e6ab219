package physics

import "holodeck1/entity"

// Participant is one entity's physics state submitted to a Relay tick
// (spec §4.2 step 1 "submission"): its transform, body, and up to
// COLLIDERS_PER_ENTITY colliders. Relay reads and mutates Transform and
// Body in place; Colliders may carry a MinParametric left over from a
// previous tick and are reset here.
type Participant struct {
	Entity    entity.Entity
	Transform *Transform
	Body      *Body
	Colliders [CollidersPerEntity]*Collider
}

// CollisionEvent is handed to the per-collision behavior callback hook
// (spec §4.2 step 6, dispatched to behavior.Capability.OnCollision).
type CollisionEvent struct {
	A, B    entity.Entity
	Contact Contact
}

// Relay drives one fixed-step physics tick over a submitted batch of
// participants: integrate, narrow-phase every active collider pair,
// build manifolds for Box-Box contacts, resolve by response-kind
// dispatch, then apply the final collision-drag stabilizer (spec §4.2
// steps 1-6).
type Relay struct {
	// OnCollision is called once per resolved contact, after response
	// resolution, so a behavior hook can react (spec §4.2 step 6). Nil is
	// a valid no-op.
	OnCollision func(CollisionEvent)
}

func NewRelay() *Relay {
	return &Relay{}
}

// Step runs one fixed-step tick of duration dt over participants.
func (r *Relay) Step(participants []Participant, dt float32) {
	for i := range participants {
		p := &participants[i]
		p.Body.Integrate(p.Transform, dt)
		for _, c := range p.Colliders {
			if c != nil {
				c.MinParametric = 1
			}
		}
	}

	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			r.collidePair(&participants[i], &participants[j], dt)
		}
	}

	for i := range participants {
		participants[i].Body.ApplyCollisionDrag()
	}
}

func (r *Relay) collidePair(a, b *Participant, dt float32) {
	for _, ca := range a.Colliders {
		if ca == nil || !ca.Active {
			continue
		}
		for _, cb := range b.Colliders {
			if cb == nil || !cb.Active {
				continue
			}
			r.collideColliders(a, ca, b, cb, dt)
		}
	}
}

func (r *Relay) collideColliders(a *Participant, ca *Collider, b *Participant, cb *Collider, dt float32) {
	aT := ca.WorldTransform(*a.Transform)
	bT := cb.WorldTransform(*b.Transform)

	contact, ok := r.dispatch(ca, aT, cb, bT)
	if !ok {
		return
	}

	response := resolveResponsePair(ca, cb)
	if response != ResponseNoop {
		r.applyResponse(response, a, ca, b, cb, contact, dt)
	}

	if r.OnCollision != nil {
		r.OnCollision(CollisionEvent{A: a.Entity, B: b.Entity, Contact: contact})
	}
}

// dispatch is the (ColliderKind, ColliderKind) intersection table (spec
// §9 redesign note). Ray pairs use each collider's own MinParametric,
// clamping further hits within the tick to the closest one (spec §4.2
// step 3).
func (r *Relay) dispatch(ca *Collider, aT Transform, cb *Collider, bT Transform) (Contact, bool) {
	switch {
	case ca.Kind == KindBox && cb.Kind == KindBox:
		normal, depth, ok := IntersectBoxBox(aT, bT)
		if !ok {
			return Contact{}, false
		}
		point := BuildManifold(aT, bT, normal)
		return Contact{Point: point, Normal: normal, Depth: depth}, true

	case ca.Kind == KindRay && cb.Kind == KindBox:
		rayEnd := rayEndpoint(aT)
		c, t, ok := IntersectBoxRay(bT, aT.Origin, rayEnd, ca.MinParametric)
		if !ok {
			return Contact{}, false
		}
		ca.MinParametric = t
		return Contact{Point: c.Point, Normal: c.Normal.Neg(), Depth: c.Depth}, true

	case ca.Kind == KindBox && cb.Kind == KindRay:
		rayEnd := rayEndpoint(bT)
		c, t, ok := IntersectBoxRay(aT, bT.Origin, rayEnd, cb.MinParametric)
		if !ok {
			return Contact{}, false
		}
		cb.MinParametric = t
		return c, true

	case ca.Kind == KindSphere && cb.Kind == KindSphere:
		return IntersectSphereSphere(aT.Origin, aT.Scale.X, bT.Origin, bT.Scale.X)

	case ca.Kind == KindSphere && cb.Kind == KindBox:
		return IntersectSphereBox(aT.Origin, aT.Scale.X, bT)

	case ca.Kind == KindBox && cb.Kind == KindSphere:
		return IntersectBoxSphere(aT, bT.Origin, bT.Scale.X)

	case ca.Kind == KindSphere && cb.Kind == KindRay:
		rayEnd := rayEndpoint(bT)
		return intersectSphereRay(aT.Origin, aT.Scale.X, bT.Origin, rayEnd, cb)

	case ca.Kind == KindRay && cb.Kind == KindSphere:
		rayEnd := rayEndpoint(aT)
		c, ok := intersectSphereRay(bT.Origin, bT.Scale.X, aT.Origin, rayEnd, ca)
		if !ok {
			return Contact{}, false
		}
		return Contact{Point: c.Point, Normal: c.Normal.Neg(), Depth: c.Depth}, true

	default:
		return Contact{}, false
	}
}

// rayEndpoint encodes a Ray collider's direction and length via its world
// transform's local Y axis and Scale.Y, the same Scale-as-extent
// convention Box uses for half-extents (spec §3 leaves the exact Ray
// field encoding unspecified; this module reuses Transform uniformly
// across all three collider kinds rather than adding a Ray-only field).
func rayEndpoint(t Transform) Vec3 {
	_, dirY, _ := t.Axes()
	return t.Origin.Add(dirY.Scale(t.Scale.Y))
}

func intersectSphereRay(center Vec3, radius float32, rayOrigin, rayEnd Vec3, ray *Collider) (Contact, bool) {
	dir := rayEnd.Sub(rayOrigin)
	length := dir.Length()
	if length < 1e-8 {
		return Contact{}, false
	}
	dirN := dir.Scale(1 / length)

	toCenter := center.Sub(rayOrigin)
	proj := toCenter.Dot(dirN)
	closest := rayOrigin.Add(dirN.Scale(clampF(proj, 0, length)))
	distSq := closest.Sub(center).LengthSq()
	if distSq > radius*radius {
		return Contact{}, false
	}

	offset := float32(0)
	if d := radius*radius - distSq; d > 0 {
		offset = sqrtF(d)
	}
	hitDist := proj - offset
	if hitDist < 0 || hitDist > length {
		return Contact{}, false
	}
	t := hitDist / length
	if t >= ray.MinParametric {
		return Contact{}, false
	}
	ray.MinParametric = t

	point := rayOrigin.Add(dirN.Scale(hitDist))
	normal := point.Sub(center).Normalize()
	return Contact{Point: point, Normal: normal, Depth: 0}, true
}

func sqrtF(v float32) float32 {
	if v <= 0 {
		return 0
	}
	lo, hi := float32(0), v
	if v < 1 {
		hi = 1
	}
	for i := 0; i < 30; i++ {
		mid := (lo + hi) / 2
		if mid*mid < v {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// resolveResponsePair picks the governing response kind for a contact:
// Rigid wins over Spring when the pair disagrees, Force and Noop are
// deferred to the behavior layer (spec §4.2 step 5 dispatch table).
func resolveResponsePair(ca, cb *Collider) ResponseKind {
	if ca.UseBehaviorResponse || cb.UseBehaviorResponse {
		return ResponseForce
	}
	if ca.Response == ResponseRigid || cb.Response == ResponseRigid {
		return ResponseRigid
	}
	if ca.Response == ResponseSpring || cb.Response == ResponseSpring {
		return ResponseSpring
	}
	return ResponseNoop
}

func endpointFor(p *Participant, inertiaLocal Vec3) Endpoint {
	invMass := p.Body.InverseMass()
	return Endpoint{
		Body:           p.Body,
		Transform:      p.Transform,
		InverseMass:    invMass,
		InverseInertia: InverseInertiaWorld(inertiaLocal, p.Transform.Orientation),
	}
}

func (r *Relay) applyResponse(kind ResponseKind, a *Participant, ca *Collider, b *Participant, cb *Collider, contact Contact, dt float32) {
	inertiaA := BoxInertiaTensorLocal(ca.LocalTransform.HalfExtents(), a.Body.Mass)
	inertiaB := BoxInertiaTensorLocal(cb.LocalTransform.HalfExtents(), b.Body.Mass)
	ea := endpointFor(a, inertiaA)
	eb := endpointFor(b, inertiaB)

	switch kind {
	case ResponseRigid:
		ResolveRigidRigid(ea, eb, contact, ca.Material, cb.Material)
	case ResponseSpring:
		if cb.Response == ResponseSpring {
			ResolveSpringRigid(eb, contact, cb.Material, dt)
		} else {
			ResolveSpringRigid(ea, contact, ca.Material, dt)
		}
	}
}
