package cosmos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holodeck1/entity"
	"holodeck1/event"
	"holodeck1/timestream"
)

func TestStateMachineFollowsTable(t *testing.T) {
	sm := NewStateMachine()
	e := entity.Compose(1, 1, 0)

	require.NoError(t, sm.Apply(e, TriggerDivergenceDetected, 1))
	assert.Equal(t, Forking, sm.Get(e).State)

	require.NoError(t, sm.Apply(e, TriggerForkTimeout, 2))
	assert.Equal(t, Forked, sm.Get(e).State)

	require.NoError(t, sm.Apply(e, TriggerParallelBegins, 3))
	assert.Equal(t, Merging, sm.Get(e).State)

	require.NoError(t, sm.Apply(e, TriggerExtractionWrites, 4))
	assert.Equal(t, Merged, sm.Get(e).State)
}

func TestStateMachineRejectsUnlistedTransition(t *testing.T) {
	sm := NewStateMachine()
	e := entity.Compose(1, 1, 0)
	err := sm.Apply(e, TriggerForkTimeout, 1) // Merged has no edge for this trigger
	assert.Error(t, err)
	assert.Equal(t, Merged, sm.Get(e).State)
}

func TestStateMachineSuperpositionParadoxPath(t *testing.T) {
	sm := NewStateMachine()
	e := entity.Compose(1, 1, 0)
	require.NoError(t, sm.Apply(e, TriggerInterceptionFromFuture, 1))
	assert.Equal(t, Superposition, sm.Get(e).State)
	require.NoError(t, sm.Apply(e, TriggerResolvedParadox, 2))
	assert.Equal(t, Ghost, sm.Get(e).State)
}

func TestCreateEntityClientCannotCreateFromNonZeroLinkSource(t *testing.T) {
	client := New(1, false)
	source := entity.Compose(1, 5, 3) // link 3, not merged-divergent
	e, err := client.CreateEntity(false, source)
	require.NoError(t, err)
	assert.True(t, e.IsNull())
}

func TestCreateEntityServerAllowsZeroLinkSource(t *testing.T) {
	server := New(2, true)
	source := entity.Compose(2, 5, 0)
	e, err := server.CreateEntity(false, source)
	require.NoError(t, err)
	assert.False(t, e.IsNull())
	assert.Equal(t, uint8(2), e.Timeslice())
}

func TestCreateEntityAtemporalGetsMaxLink(t *testing.T) {
	server := New(2, true)
	e, err := server.CreateEntity(true, entity.NULL_ENTITY)
	require.NoError(t, err)
	assert.True(t, e.IsAtemporal())
}

func TestCreateEntityAllowedWhenSourceIsForked(t *testing.T) {
	client := New(1, false)
	source := entity.Compose(1, 5, 3)
	client.States.Set(source, StateRecord{State: Forked})
	e, err := client.CreateEntity(false, source)
	require.NoError(t, err)
	assert.False(t, e.IsNull())
	assert.Equal(t, uint8(0), e.Link()) // non-host cosmos always derives link 0
}

// TestCreateEntityThenPropagateDerivesHostSeededChainLink mirrors the
// spec's S3 scenario: a host timeslice (T=2) creates a new entity with no
// source, seeding its chain link from the host id rather than 0; a single
// past-ward propagation hop then increments that to 3.
func TestCreateEntityThenPropagateDerivesHostSeededChainLink(t *testing.T) {
	host := New(2, true)

	b, err := host.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), b.Timeslice())
	assert.Equal(t, uint8(2), b.Link())

	propagated, err := entity.IncrementLink(b)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), propagated.Link())
	assert.True(t, entity.SameIdentity(b, propagated))
}

func TestCondemnIsIdempotentAcrossDuplicateSources(t *testing.T) {
	c := New(1, true)
	target, err := c.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)

	removedCount := 0
	c.Broker.Subscribe(event.EntityRemoved, func(*event.Message) { removedCount++ })

	c.Condemn(target, entity.NULL_ENTITY)
	c.Condemn(target, entity.Compose(1, 9, 0)) // a different source, same target
	c.FlushCondemned()

	assert.Equal(t, 1, removedCount)
	assert.False(t, c.Stator.Entities.Has(target))
}

func TestPublishAndApplyInboundRoundTrip(t *testing.T) {
	source := New(2, true)
	dest := New(1, false)

	e, err := source.CreateEntity(false, entity.NULL_ENTITY)
	require.NoError(t, err)

	link := timestream.NewLink()
	sourceConduit := timestream.NewConduit(link, true)
	destConduit := timestream.NewConduit(link, false)

	require.NoError(t, source.PublishOutbound(sourceConduit))
	dest.ApplyInbound(destConduit)

	assert.True(t, dest.Stator.Entities.Has(e))
}
