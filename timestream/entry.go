// Package timestream implements the append-only per-entity message queues
// that carry state and events between neighboring timeslices (spec §3
// "Timestream", §6 "Timestream entries"), grounded on holodeck1/sync's
// multi-producer/single-consumer queueing idiom and holodeck1/memory's
// buffer-pool discipline.
package timestream

import "holodeck1/event"

// Entry is one timestream record: a Message whose Coherency field is the
// authoritative ordering timestamp (spec §6).
type Entry struct {
	Msg *event.Message
}

// Before is the modular-wrap-aware coherency comparator (spec §4.5
// "Target-comparison uses modular-wrap-aware ordering", spec §8
// invariant 7's ordering requirement). It treats the 16-bit coherency
// space as a ring: a is Before b iff the signed difference a-b is
// negative, so a counter that has wrapped past 65535 still orders
// correctly against values that haven't wrapped yet.
func Before(a, b uint16) bool {
	return int16(a-b) < 0
}

// AtOrBefore reports whether a is Before b or equal to it.
func AtOrBefore(a, b uint16) bool {
	return a == b || Before(a, b)
}
