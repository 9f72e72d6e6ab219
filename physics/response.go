package physics

// Endpoint bundles the per-body state a response resolver needs: the body
// itself, its world transform, and a closure applying its inverse inertia
// tensor (spec §4.2 step 5 operates on two such endpoints per contact).
type Endpoint struct {
	Body           *Body
	Transform      *Transform
	InverseMass    float32
	InverseInertia func(Vec3) Vec3
}

func pointVelocity(e Endpoint, worldPoint Vec3) Vec3 {
	r := worldPoint.Sub(e.Transform.Origin)
	return e.Body.Velocity.Add(e.Body.AngularVelocity.Cross(r))
}

// ResolveRigidRigid applies an impulse-based rigid collision response at
// contact (spec §4.2 step 5): a restitution-scaled normal impulse followed
// by a Coulomb-cone-clamped tangential friction impulse, both split
// between the two bodies by inverse mass and inverse inertia.
func ResolveRigidRigid(a, b Endpoint, contact Contact, matA, matB Material) {
	normal := contact.Normal
	rA := contact.Point.Sub(a.Transform.Origin)
	rB := contact.Point.Sub(b.Transform.Origin)

	relVel := pointVelocity(a, contact.Point).Sub(pointVelocity(b, contact.Point))
	vn := relVel.Dot(normal)
	if vn > 0 {
		return // separating, no impulse needed
	}

	angTermA := a.InverseInertia(rA.Cross(normal)).Cross(rA).Dot(normal)
	angTermB := b.InverseInertia(rB.Cross(normal)).Cross(rB).Dot(normal)
	denom := a.InverseMass + b.InverseMass + angTermA + angTermB
	if denom <= 0 {
		return
	}

	restitution := matA.Restitution * matB.Restitution
	j := -(1 + restitution) * vn / denom
	impulse := normal.Scale(j)

	applyImpulse(a, rA, impulse)
	applyImpulse(b, rB, impulse.Neg())

	// Coulomb friction: recompute relative velocity after the normal
	// impulse, clamp the tangential impulse to the friction cone.
	relVel = pointVelocity(a, contact.Point).Sub(pointVelocity(b, contact.Point))
	tangent := relVel.Sub(normal.Scale(relVel.Dot(normal)))
	if tangent.IsZero() {
		return
	}
	tangent = tangent.Normalize()

	angTermAT := a.InverseInertia(rA.Cross(tangent)).Cross(rA).Dot(tangent)
	angTermBT := b.InverseInertia(rB.Cross(tangent)).Cross(rB).Dot(tangent)
	denomT := a.InverseMass + b.InverseMass + angTermAT + angTermBT
	if denomT <= 0 {
		return
	}
	jt := -relVel.Dot(tangent) / denomT

	staticFriction := matA.StaticFriction * matB.StaticFriction
	dynamicFriction := matA.DynamicFriction * matB.DynamicFriction
	maxStatic := j * staticFriction
	var frictionImpulse Vec3
	if jt < -maxStatic || jt > maxStatic {
		clamped := j * dynamicFriction
		if jt < 0 {
			clamped = -clamped
		}
		frictionImpulse = tangent.Scale(clamped)
	} else {
		frictionImpulse = tangent.Scale(jt)
	}

	applyImpulse(a, rA, frictionImpulse)
	applyImpulse(b, rB, frictionImpulse.Neg())
}

func applyImpulse(e Endpoint, r Vec3, impulse Vec3) {
	e.Body.Velocity = e.Body.Velocity.Add(impulse.Scale(e.InverseMass))
	e.Body.AngularVelocity = e.Body.AngularVelocity.Add(e.InverseInertia(r.Cross(impulse)))
}

// ResolveSpringRigid applies a spring-damper force along the contact
// normal rather than an instantaneous impulse, treating the penetration
// depth as spring compression against Material.RestLength (spec §3
// Material.stiffness/damping/rest_length, §4.2 step 5 spring variant).
// Only the rigid endpoint (b) receives the force; a is the spring anchor
// and is not moved by its own spring.
func ResolveSpringRigid(b Endpoint, contact Contact, mat Material, dt float32) {
	if b.InverseMass <= 0 {
		return
	}
	compression := contact.Depth - mat.RestLength
	rB := contact.Point.Sub(b.Transform.Origin)
	vn := pointVelocity(b, contact.Point).Dot(contact.Normal)

	forceMag := mat.Stiffness*compression - mat.Damping*vn
	impulse := contact.Normal.Scale(forceMag * dt)
	applyImpulse(b, rB, impulse)
}
