package timestream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holodeck1/event"
)

func entryAt(coherency uint16) Entry {
	msg := event.NewMessage(event.EntityUpdate, coherency)
	msg.Finalize()
	return Entry{Msg: msg}
}

func TestBeforeWrapsCorrectly(t *testing.T) {
	assert.True(t, Before(10, 20))
	assert.False(t, Before(20, 10))
	assert.True(t, Before(65535, 5)) // wraps past the ring boundary
	assert.False(t, Before(5, 65535))
}

func TestStreamPushMaintainsOrder(t *testing.T) {
	s := NewStream()
	s.Push(entryAt(30))
	s.Push(entryAt(10))
	s.Push(entryAt(20))

	drained := s.Drain()
	require.Len(t, drained, 3)
	assert.Equal(t, uint16(10), drained[0].Msg.Coherency)
	assert.Equal(t, uint16(20), drained[1].Msg.Coherency)
	assert.Equal(t, uint16(30), drained[2].Msg.Coherency)
}

func TestStreamDrainBeforeLeavesLaterEntries(t *testing.T) {
	s := NewStream()
	s.Push(entryAt(5))
	s.Push(entryAt(15))
	s.Push(entryAt(25))

	early := s.DrainBefore(20)
	require.Len(t, early, 2)
	assert.Equal(t, 1, s.Len())

	rest := s.Drain()
	require.Len(t, rest, 1)
	assert.Equal(t, uint16(25), rest[0].Msg.Coherency)
}

func TestConduitPushAndDrainAreSymmetric(t *testing.T) {
	link := NewLink()
	future := NewConduit(link, true)
	past := NewConduit(link, false)

	future.PushPastward(entryAt(1))
	inbound := past.DrainInbound()
	require.Len(t, inbound, 1)
	assert.Equal(t, uint16(1), inbound[0].Msg.Coherency)
}

func TestLinkSpliceReplacesFutureSide(t *testing.T) {
	link := NewLink()
	replacement := NewStream()
	replacement.Push(entryAt(7))

	link.Splice(replacement)
	past := NewConduit(link, false)
	drained := past.DrainInbound()
	require.Len(t, drained, 1)
	assert.Equal(t, uint16(7), drained[0].Msg.Coherency)
}
