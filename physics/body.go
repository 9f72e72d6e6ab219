package physics

// Body is the physics-integration component (spec §3 "Physics body").
// A Mass of 0 denotes infinite mass, i.e. immovable.
type Body struct {
	Velocity            Vec3
	Acceleration        Vec3
	AngularVelocity     Vec3
	AngularAcceleration Vec3

	LinearDrag            float32
	AngularDrag           float32
	CollisionLinearDrag   float32
	CollisionAngularDrag  float32

	Mass float32

	OriginLock      bool
	OrientationLock bool

	Asleep bool
}

// InverseMass returns 0 for infinite-mass (immovable) bodies, 1/Mass otherwise.
func (b *Body) InverseMass() float32 {
	if b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

// Integrate advances velocity and, unless locked, position/orientation by
// one fixed step of duration dt (spec §4.2 step 2, semi-implicit Euler):
//
//	v += a·Δ; v *= (1-linear_drag)
//	ω += α·Δ; ω *= (1-angular_drag)
//	origin += v·Δ (unless OriginLock)
//	orientation = normalize(quat(ω·Δ) ⊗ orientation) (unless OrientationLock)
//	a, α cleared
func (b *Body) Integrate(t *Transform, dt float32) {
	if b.Asleep {
		return
	}

	b.Velocity = b.Velocity.Add(b.Acceleration.Scale(dt))
	b.Velocity = b.Velocity.Scale(1 - b.LinearDrag)

	b.AngularVelocity = b.AngularVelocity.Add(b.AngularAcceleration.Scale(dt))
	b.AngularVelocity = b.AngularVelocity.Scale(1 - b.AngularDrag)

	if !b.OriginLock {
		t.Origin = t.Origin.Add(b.Velocity.Scale(dt))
	}
	if !b.OrientationLock {
		delta := FromScaledAxis(b.AngularVelocity.Scale(dt))
		t.Orientation = delta.Mul(t.Orientation).Normalize()
	}

	b.Acceleration = Vec3{}
	b.AngularAcceleration = Vec3{}
}

// ApplyCollisionDrag multiplicatively stabilizes linear velocity (by
// CollisionLinearDrag) and angular velocity (by CollisionAngularDrag) after a
// collision response (spec §4.2 step 5: "apply collision_angular_drag
// multiplicatively as a final stabilizer").
func (b *Body) ApplyCollisionDrag() {
	b.Velocity = b.Velocity.Scale(1 - b.CollisionLinearDrag)
	b.AngularVelocity = b.AngularVelocity.Scale(1 - b.CollisionAngularDrag)
}
