package behavior

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holodeck1/entity"
	"holodeck1/physics"
)

type flakyBehavior struct {
	caps     Capability
	failNext bool
}

func (f *flakyBehavior) Capabilities() Capability { return f.caps }
func (f *flakyBehavior) FixedUpdate(entity.Entity, float32) error {
	if f.failNext {
		return errors.New("boom")
	}
	return nil
}
func (f *flakyBehavior) FrameUpdate(entity.Entity, float32) error              { return nil }
func (f *flakyBehavior) OnCollide(entity.Entity, physics.CollisionEvent) error { return nil }

func TestInstanceSoftFailsOnlyOneCapability(t *testing.T) {
	impl := &flakyBehavior{caps: OnFixedUpdate | OnFrameUpdate, failNext: true}
	inst := NewInstance(1, "flaky", impl)

	inst.RunFixedUpdate(0.016)
	assert.False(t, inst.Enabled.Has(OnFixedUpdate))
	assert.True(t, inst.Enabled.Has(OnFrameUpdate))

	inst.RunFrameUpdate(0.016) // still enabled, does nothing harmful
	assert.True(t, inst.Enabled.Has(OnFrameUpdate))
}

func TestLibraryCreateUnknownTag(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Create(1, "nonexistent")
	assert.Error(t, err)
}

func TestRegisterStockCoversAllTags(t *testing.T) {
	lib := NewLibrary()
	RegisterStock(lib)

	for _, tag := range []string{TagFlyControl, TagBipedControl, TagProjectile, TagOscillator, TagCameraControl, TagDrivetrain} {
		inst, err := lib.Create(42, tag)
		require.NoError(t, err)
		assert.Equal(t, entity.Entity(42), inst.Entity)
	}
}

func TestProjectileMarksSpentOnCollision(t *testing.T) {
	lib := NewLibrary()
	RegisterStock(lib)
	inst, err := lib.Create(1, TagProjectile)
	require.NoError(t, err)

	inst.RunOnCollide(physics.CollisionEvent{A: 1, B: 2})
	p := inst.Impl.(*projectile)
	assert.True(t, p.Spent)
}
