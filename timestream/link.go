package timestream

// Link is the symmetric pairing between two neighboring cosmoses' streams
// (spec §3 "A linkage is symmetric between two neighboring cosmoses").
// FutureToPast carries state from the more-future slice down to the
// more-past one; PastToFuture carries what a past-side Conduit pushes
// toward the more-future slice.
type Link struct {
	FutureToPast *Stream
	PastToFuture *Stream
}

func NewLink() *Link {
	return &Link{FutureToPast: NewStream(), PastToFuture: NewStream()}
}

// Splice replaces the future side of the link (spec §4.5: "the parallel
// context spliced the future side of a link when resolving" — the
// parallel cosmos's own output stream becomes this link's FutureToPast
// source for the duration of its run).
func (l *Link) Splice(futureSide *Stream) {
	l.FutureToPast = futureSide
}

// Conduit is one cosmos's handle onto a Link, fixing which side of the
// pairing it sits on (spec §3: "a Conduit is one cosmos's handle onto
// [a Link]").
type Conduit struct {
	link     *Link
	isFuture bool
}

// NewConduit returns a handle for the future-side or past-side cosmos of link.
func NewConduit(link *Link, isFuture bool) *Conduit {
	return &Conduit{link: link, isFuture: isFuture}
}

// PushPastward appends an outbound entry: onto FutureToPast (toward the
// past-ward neighbor) for a future-side handle, onto PastToFuture (toward
// the future-ward neighbor) for a past-side one.
func (c *Conduit) PushPastward(e Entry) {
	if c.isFuture {
		c.link.FutureToPast.Push(e)
	} else {
		c.link.PastToFuture.Push(e)
	}
}

// DrainInbound consumes everything the neighbor on the other side of the
// link has produced for this cosmos so far: PastToFuture for a
// future-side handle, FutureToPast for a past-side one.
func (c *Conduit) DrainInbound() []Entry {
	if c.isFuture {
		return c.link.PastToFuture.Drain()
	}
	return c.link.FutureToPast.Drain()
}

// DrainInboundBefore consumes inbound entries up to (not including) target
// coherency, leaving later entries queued.
func (c *Conduit) DrainInboundBefore(target uint16) []Entry {
	if c.isFuture {
		return c.link.PastToFuture.DrainBefore(target)
	}
	return c.link.FutureToPast.DrainBefore(target)
}
