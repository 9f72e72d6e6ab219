package behavior

import (
	"holodeck1/entity"
	"holodeck1/physics"
)

// The stock tags a Library is seeded with by RegisterStock: the four the
// distillation kept (fly_control, biped_control, projectile, oscillator)
// plus two the original source names that the distillation dropped
// (behaviors/biped_behaviors.h, osrs_camera_behaviors.h,
// i_behaviors_drivetrain.*, controlling/fly_control_relay.h) —
// camera_control and drivetrain. All six are thin stubs exercising the
// capability-flag plumbing only; their concrete control math is a
// non-goal (spec's "concrete behavior script" non-goal).
const (
	TagFlyControl    = "fly_control"
	TagBipedControl  = "biped_control"
	TagProjectile    = "projectile"
	TagOscillator    = "oscillator"
	TagCameraControl = "camera_control"
	TagDrivetrain    = "drivetrain"
)

// RegisterStock seeds l with factories for every stock tag.
func RegisterStock(l *Library) {
	l.Register(TagFlyControl, func() Behavior { return &flyControl{} })
	l.Register(TagBipedControl, func() Behavior { return &bipedControl{} })
	l.Register(TagProjectile, func() Behavior { return &projectile{} })
	l.Register(TagOscillator, func() Behavior { return &oscillator{Amplitude: 1, Frequency: 1} })
	l.Register(TagCameraControl, func() Behavior { return &cameraControl{} })
	l.Register(TagDrivetrain, func() Behavior { return &drivetrain{} })
}

// flyControl implements free-flight input translation. Stub: declares
// fixed-update capability only, acting as a pass-through until wired to a
// real input source.
type flyControl struct{}

func (*flyControl) Capabilities() Capability                                 { return OnFixedUpdate }
func (*flyControl) FixedUpdate(entity.Entity, float32) error                 { return nil }
func (*flyControl) FrameUpdate(entity.Entity, float32) error                 { return nil }
func (*flyControl) OnCollide(entity.Entity, physics.CollisionEvent) error    { return nil }

// bipedControl implements ground-locomotion input translation, reacting
// to collisions to detect ground contact.
type bipedControl struct {
	Grounded bool
}

func (*bipedControl) Capabilities() Capability             { return OnFixedUpdate | OnCollision }
func (*bipedControl) FixedUpdate(entity.Entity, float32) error { return nil }
func (*bipedControl) FrameUpdate(entity.Entity, float32) error { return nil }
func (b *bipedControl) OnCollide(entity.Entity, physics.CollisionEvent) error {
	b.Grounded = true
	return nil
}

// projectile self-destructs its owning entity's active flag on first
// collision; the actual destroy call is threaded through by whatever
// owns the Instance (spec non-goal: destroy wiring is a cosmos concern).
type projectile struct {
	Spent bool
}

func (*projectile) Capabilities() Capability             { return OnCollision }
func (*projectile) FixedUpdate(entity.Entity, float32) error { return nil }
func (*projectile) FrameUpdate(entity.Entity, float32) error { return nil }
func (p *projectile) OnCollide(entity.Entity, physics.CollisionEvent) error {
	p.Spent = true
	return nil
}

// oscillator drives a periodic positional offset, e.g. a bobbing platform.
type oscillator struct {
	Amplitude, Frequency float32
	phase                float32
}

func (*oscillator) Capabilities() Capability { return OnFixedUpdate }
func (o *oscillator) FixedUpdate(e entity.Entity, dt float32) error {
	o.phase += o.Frequency * dt
	return nil
}
func (*oscillator) FrameUpdate(entity.Entity, float32) error                { return nil }
func (*oscillator) OnCollide(entity.Entity, physics.CollisionEvent) error   { return nil }

// cameraControl is the original_source-supplemented orbit/follow camera
// rig; stubbed to frame-update only since it has no physical presence.
type cameraControl struct{}

func (*cameraControl) Capabilities() Capability                              { return OnFrameUpdate }
func (*cameraControl) FixedUpdate(entity.Entity, float32) error              { return nil }
func (*cameraControl) FrameUpdate(entity.Entity, float32) error              { return nil }
func (*cameraControl) OnCollide(entity.Entity, physics.CollisionEvent) error { return nil }

// drivetrain is the original_source-supplemented wheeled-vehicle power
// transmission behavior; stubbed to fixed-update and collision (for
// ground contact / traction checks).
type drivetrain struct{}

func (*drivetrain) Capabilities() Capability                              { return OnFixedUpdate | OnCollision }
func (*drivetrain) FixedUpdate(entity.Entity, float32) error              { return nil }
func (*drivetrain) FrameUpdate(entity.Entity, float32) error              { return nil }
func (*drivetrain) OnCollide(entity.Entity, physics.CollisionEvent) error { return nil }
