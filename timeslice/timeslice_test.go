package timeslice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holodeck1/behavior"
	"holodeck1/cosmos"
	"holodeck1/entity"
	"holodeck1/physics"
)

func newTestContext(t *testing.T) (*Context, *cosmos.Cosmos) {
	t.Helper()
	c := cosmos.New(1, true)
	lib := behavior.NewLibrary()
	behavior.RegisterStock(lib)
	ctx, err := NewContext(c, physics.NewRelay(), lib, nil, nil, 16*time.Millisecond)
	require.NoError(t, err)
	return ctx, c
}

func unitBox(origin physics.Vec3) physics.Transform {
	return physics.Transform{Origin: origin, Orientation: physics.QIdentity(), Scale: physics.Vec3{X: 0.5, Y: 0.5, Z: 0.5}}
}

func TestTickIntegratesAttachedBody(t *testing.T) {
	ctx, c := newTestContext(t)
	e, err := c.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)

	require.NoError(t, ctx.AttachTransform(e, physics.IdentityTransform()))
	require.NoError(t, ctx.AttachBody(e, physics.Body{Velocity: physics.Vec3{X: 1}, Mass: 1}))

	require.NoError(t, ctx.Tick(1))

	raw, err := c.Stator.Components.Get(ctx.transformIdx, e)
	require.NoError(t, err)
	tr := raw.(*physics.Transform)
	assert.InDelta(t, 1, tr.Origin.X, 1e-5)
}

func TestTickProducesCollisionAndRunsBehavior(t *testing.T) {
	ctx, c := newTestContext(t)

	a, err := c.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)
	require.NoError(t, ctx.AttachTransform(a, unitBox(physics.Vec3{})))
	require.NoError(t, ctx.AttachBody(a, physics.Body{Mass: 1}))
	var aColliders [physics.CollidersPerEntity]physics.Collider
	aColliders[0] = physics.Collider{Kind: physics.KindBox, Response: physics.ResponseRigid, Active: true, LocalTransform: physics.IdentityTransform(), Material: physics.Material{Restitution: 0}}
	require.NoError(t, ctx.AttachColliders(a, aColliders))
	require.NoError(t, ctx.AttachBehavior(a, behavior.TagProjectile))

	b, err := c.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)
	require.NoError(t, ctx.AttachTransform(b, unitBox(physics.Vec3{X: 0.9})))
	require.NoError(t, ctx.AttachBody(b, physics.Body{Mass: 0}))
	var bColliders [physics.CollidersPerEntity]physics.Collider
	bColliders[0] = physics.Collider{Kind: physics.KindBox, Response: physics.ResponseRigid, Active: true, LocalTransform: physics.IdentityTransform(), Material: physics.Material{Restitution: 0}}
	require.NoError(t, ctx.AttachColliders(b, bColliders))

	require.NoError(t, ctx.Tick(0.01))

	inst := ctx.instances[a]
	require.NotNil(t, inst)
	assert.Equal(t, behavior.TagProjectile, inst.Tag)
	assert.Less(t, a.Timeslice(), uint8(14))

	raw, err := c.Stator.Components.Get(ctx.transformIdx, a)
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestEnsureBehaviorInstancesReResolvesAfterRestore(t *testing.T) {
	ctx, c := newTestContext(t)
	e, err := c.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)
	require.NoError(t, ctx.AttachBehavior(e, behavior.TagOscillator))

	delete(ctx.instances, e)
	ctx.ensureBehaviorInstances()

	assert.NotNil(t, ctx.instances[e])
}

func TestPruneDestroyedInstancesDropsCondemned(t *testing.T) {
	ctx, c := newTestContext(t)
	e, err := c.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)
	require.NoError(t, ctx.AttachBehavior(e, behavior.TagOscillator))

	c.Condemn(e, entity.NULL_ENTITY)
	require.NoError(t, ctx.Tick(0.01))

	_, ok := ctx.instances[e]
	assert.False(t, ok)
}
