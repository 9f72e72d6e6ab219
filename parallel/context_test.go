package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holodeck1/behavior"
	"holodeck1/cosmos"
	"holodeck1/entity"
	"holodeck1/event"
	"holodeck1/physics"
	"holodeck1/timeslice"
	"holodeck1/timestream"
)

func newWiredSlice(t *testing.T, hostID uint8) (*cosmos.Cosmos, *timeslice.Context) {
	t.Helper()
	c := cosmos.New(hostID, true)
	lib := behavior.NewLibrary()
	behavior.RegisterStock(lib)
	ts, err := timeslice.NewContext(c, physics.NewRelay(), lib, nil, nil, 0)
	require.NoError(t, err)
	return c, ts
}

func TestLoadSkipsTimeTravellersAndCopiesForkedState(t *testing.T) {
	source, sourceTS := newWiredSlice(t, 2)

	tracked, err := source.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)
	require.NoError(t, sourceTS.AttachTransform(tracked, physics.IdentityTransform()))
	require.NoError(t, sourceTS.AttachBody(tracked, physics.Body{Mass: 1}))
	source.States.Set(tracked, cosmos.StateRecord{State: cosmos.Forked, Coherency: source.Coherency})

	link := timestream.NewLink()
	sourceConduit := timestream.NewConduit(link, true)
	require.NoError(t, source.PublishOutbound(sourceConduit))
	entries := link.FutureToPast.Drain()

	// traveller is registered in source only after entries were captured,
	// so it genuinely has no future-side timestream ("time traveller").
	traveller, err := source.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)

	lib := behavior.NewLibrary()
	pc, err := New(2, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)

	pc.Load(source, entries)

	assert.True(t, pc.TS.Cosmos.Stator.Entities.Has(tracked))
	assert.False(t, pc.TS.Cosmos.Stator.Entities.Has(traveller))
	assert.Equal(t, cosmos.Forked, pc.TS.Cosmos.States.Get(tracked).State)
	assert.Equal(t, cosmos.Merged, source.States.Get(tracked).State)
}

func TestRunStopsAtTarget(t *testing.T) {
	source, _ := newWiredSlice(t, 3)
	source.Coherency = 10

	lib := behavior.NewLibrary()
	pc, err := New(3, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)
	pc.Load(source, nil)

	link := timestream.NewLink()
	future := timestream.NewConduit(link, true)

	require.NoError(t, pc.Run(future, 13, 0.016))
	assert.Equal(t, uint16(13), pc.TS.Cosmos.Coherency)
}

func TestExtractDecrementsLinkAndCopiesState(t *testing.T) {
	destination, destTS := newWiredSlice(t, 1)

	tracked := entity.Compose(2, 5, 1)
	destination.Stator.Entities.RegisterCopy(entity.Compose(2, 5, 0))
	require.NoError(t, destTS.AttachTransform(entity.Compose(2, 5, 0), physics.IdentityTransform()))
	require.NoError(t, destTS.AttachBody(entity.Compose(2, 5, 0), physics.Body{Mass: 1}))

	lib := behavior.NewLibrary()
	pc, err := New(2, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)
	pc.TS.Cosmos.Stator.Entities.RegisterCopy(tracked)
	require.NoError(t, pc.TS.AttachTransform(tracked, physics.Transform{Origin: physics.Vec3{X: 5}, Orientation: physics.QIdentity(), Scale: physics.Vec3{X: 1, Y: 1, Z: 1}}))
	require.NoError(t, pc.TS.AttachBody(tracked, physics.Body{Mass: 1}))
	pc.initialLive = map[entity.Entity]bool{tracked: true}

	require.NoError(t, pc.Extract(destTS))

	dst := entity.Compose(2, 5, 0)
	assert.True(t, destination.Stator.Entities.Has(dst))
	raw, err := destination.Stator.Components.Get(destTS.TransformIndex(), dst)
	require.NoError(t, err)
	assert.Equal(t, float32(5), raw.(*physics.Transform).Origin.X)
}

func TestRecycleReportsFalseAndPublishesFinishedWhenNoNewDivergence(t *testing.T) {
	lib := behavior.NewLibrary()
	pc, err := New(1, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)

	assert.False(t, pc.Recycle())
}

// TestParallelLoadRunExtractRoundTrip mirrors the spec's S4 scenario
// end to end: a diverged slice marks E Forked at coherency 100 and
// publishes it, a parallel context loads from that snapshot (link one hop
// ahead, per the timestream's future-side convention), runs to coherency
// 200, and extracts back into the destination slice — the destination's E
// components end up equal to the parallel's final state, and the diverged
// slice's own record of E is Merged again (Load already hands the
// divergence to the parallel the moment it copies a Forked entity, rather
// than waiting for a later Apply along the transition table — see
// DESIGN.md).
func TestParallelLoadRunExtractRoundTrip(t *testing.T) {
	diverged, divergedTS := newWiredSlice(t, 3)
	destination, destTS := newWiredSlice(t, 3)

	e := entity.Compose(3, 9, 1)
	diverged.Stator.Entities.RegisterCopy(e)
	require.NoError(t, divergedTS.AttachTransform(e, physics.Transform{
		Origin: physics.Vec3{X: 1}, Orientation: physics.QIdentity(), Scale: physics.Vec3{X: 1, Y: 1, Z: 1},
	}))
	require.NoError(t, divergedTS.AttachBody(e, physics.Body{Mass: 1, Velocity: physics.Vec3{X: 2}}))

	diverged.Coherency = 100
	diverged.States.Set(e, cosmos.StateRecord{State: cosmos.Forked, Coherency: 100})

	dst := entity.Compose(3, 9, 0)
	destination.Stator.Entities.RegisterCopy(dst)
	require.NoError(t, destTS.AttachTransform(dst, physics.IdentityTransform()))
	require.NoError(t, destTS.AttachBody(dst, physics.Body{Mass: 1}))

	captureLink := timestream.NewLink()
	captureConduit := timestream.NewConduit(captureLink, true)
	require.NoError(t, diverged.PublishOutbound(captureConduit))
	entries := captureLink.FutureToPast.Drain()

	lib := behavior.NewLibrary()
	pc, err := New(3, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)
	pc.Load(diverged, entries)

	assert.Equal(t, cosmos.Forked, pc.TS.Cosmos.States.Get(e).State)
	assert.Equal(t, cosmos.Merged, diverged.States.Get(e).State)

	future := timestream.NewConduit(timestream.NewLink(), true)
	require.NoError(t, pc.Run(future, 200, 0.016))
	assert.Equal(t, uint16(200), pc.TS.Cosmos.Coherency)

	require.NoError(t, pc.Extract(destTS))

	rawDest, err := destination.Stator.Components.Get(destTS.TransformIndex(), dst)
	require.NoError(t, err)
	rawParallel, err := pc.TS.Cosmos.Stator.Components.Get(pc.TS.TransformIndex(), e)
	require.NoError(t, err)
	assert.Equal(t, rawParallel.(*physics.Transform).Origin, rawDest.(*physics.Transform).Origin)
	assert.Equal(t, cosmos.Merged, diverged.States.Get(e).State)
}

// TestExtractEmitsWorldlineShiftAndSynthesizesMandelaArtifact exercises the
// S5 path end to end: an entity marked Reichenbach-shifted during Run is
// skipped by Extract's ordinary copy, a WORLDLINE_SHIFT entry carrying the
// destination's own state is pushed past-ward instead, and a visible
// mandela artifact is synthesized at its location with outgoing velocity
// at or above the spec's minimum magnitude.
func TestExtractEmitsWorldlineShiftAndSynthesizesMandelaArtifact(t *testing.T) {
	destination, destTS := newWiredSlice(t, 4)
	destination.Coherency = 9

	dst := entity.Compose(4, 1, 0)
	destination.Stator.Entities.RegisterCopy(dst)
	require.NoError(t, destTS.AttachTransform(dst, physics.Transform{
		Origin:      physics.Vec3{X: 3, Y: 2, Z: 1},
		Orientation: physics.QIdentity(),
		Scale:       physics.Vec3{X: 1, Y: 1, Z: 1},
	}))
	require.NoError(t, destTS.AttachBody(dst, physics.Body{Mass: 1}))

	link := timestream.NewLink()
	destTS.Past = timestream.NewConduit(link, true)

	lib := behavior.NewLibrary()
	pc, err := New(4, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)
	pc.initialLive = map[entity.Entity]bool{}
	pc.shifted = map[entity.Entity]bool{dst: true}

	beforeCount := destination.Stator.Entities.Count()

	require.NoError(t, pc.Extract(destTS))

	entries := link.FutureToPast.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, event.WorldlineShift, entries[0].Msg.Header.ID)
	entries[0].Msg.Release()

	assert.Empty(t, pc.shifted)
	assert.Equal(t, beforeCount+1, destination.Stator.Entities.Count())

	artifact := entity.Compose(4, 0, entity.NullOrAtemporalLink)
	assert.True(t, artifact.IsAtemporal())
	raw, err := destination.Stator.Components.Get(destTS.TransformIndex(), artifact)
	require.NoError(t, err)
	assert.Equal(t, physics.Vec3{X: 3, Y: 2, Z: 1}, raw.(*physics.Transform).Origin)

	bodyIdx, _ := destination.Stator.Components.TypeIndex("body")
	rawBody, err := destination.Stator.Components.Get(bodyIdx, artifact)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rawBody.(*physics.Body).Velocity.Length(), float32(mandelaMinVelocity))
}

// TestEmitWorldlineShiftArtifactVelocityPointsAwayFromInterceder sets up a
// live counterpart for dst in the parallel cosmos itself (the "interceder"
// whose replayed state is what caused the shift) and asserts the
// synthesized artifact's velocity points from that counterpart's position
// toward dst's own location, not some unrelated hash-derived direction.
func TestEmitWorldlineShiftArtifactVelocityPointsAwayFromInterceder(t *testing.T) {
	destination, destTS := newWiredSlice(t, 4)
	destination.Coherency = 9

	dst := entity.Compose(4, 1, 0)
	destination.Stator.Entities.RegisterCopy(dst)
	require.NoError(t, destTS.AttachTransform(dst, physics.Transform{
		Origin:      physics.Vec3{X: 10, Y: 0, Z: 0},
		Orientation: physics.QIdentity(),
		Scale:       physics.Vec3{X: 1, Y: 1, Z: 1},
	}))
	require.NoError(t, destTS.AttachBody(dst, physics.Body{Mass: 1}))

	link := timestream.NewLink()
	destTS.Past = timestream.NewConduit(link, true)

	lib := behavior.NewLibrary()
	pc, err := New(4, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)

	interceder, err := entity.IncrementLink(dst)
	require.NoError(t, err)
	pc.TS.Cosmos.Stator.Entities.RegisterCopy(interceder)
	require.NoError(t, pc.TS.AttachTransform(interceder, physics.Transform{
		Origin:      physics.Vec3{X: 0, Y: 0, Z: 0},
		Orientation: physics.QIdentity(),
		Scale:       physics.Vec3{X: 1, Y: 1, Z: 1},
	}))

	pc.initialLive = map[entity.Entity]bool{}
	pc.shifted = map[entity.Entity]bool{dst: true}

	require.NoError(t, pc.Extract(destTS))
	link.FutureToPast.Drain()[0].Msg.Release()

	artifact := entity.Compose(4, 0, entity.NullOrAtemporalLink)
	bodyIdx, _ := destination.Stator.Components.TypeIndex("body")
	rawBody, err := destination.Stator.Components.Get(bodyIdx, artifact)
	require.NoError(t, err)
	vel := rawBody.(*physics.Body).Velocity

	assert.Greater(t, vel.X, float32(0))
	assert.InDelta(t, 0, vel.Y, 1e-4)
	assert.InDelta(t, 0, vel.Z, 1e-4)
}

func TestRecycleReportsTrueAfterNewerDivergenceObserved(t *testing.T) {
	lib := behavior.NewLibrary()
	pc, err := New(1, physics.NewRelay(), lib, 0.016)
	require.NoError(t, err)

	pc.startCoherency = 1
	pc.sawNewerDivergence = true

	assert.True(t, pc.Recycle())
	assert.False(t, pc.sawNewerDivergence)
}
