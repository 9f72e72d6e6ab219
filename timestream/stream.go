package timestream

import "sync"

// Stream is an append-only, coherency-ordered per-entity queue: many
// producers may Push concurrently, a single consumer Drains in
// nondecreasing coherency order (spec §5 "multi-producer, single-consumer
// is sufficient in practice").
type Stream struct {
	mu      sync.Mutex
	entries []Entry
}

func NewStream() *Stream {
	return &Stream{}
}

// Push inserts e in coherency order. Producers normally append entries in
// increasing coherency already, so this is typically O(1); the insertion
// search only does real work when two producers interleave out of order.
func (s *Stream) Push(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.entries)
	for i > 0 && Before(e.Msg.Coherency, s.entries[i-1].Msg.Coherency) {
		i--
	}
	s.entries = append(s.entries, Entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// Len reports the number of undrained entries.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Drain removes and returns every entry, oldest coherency first.
func (s *Stream) Drain() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.entries = nil
	return out
}

// DrainBefore removes and returns every entry whose coherency is Before
// target, leaving later entries queued (Conduit.DrainInboundBefore's
// bounded drain).
func (s *Stream) DrainBefore(target uint16) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	cut := 0
	for cut < len(s.entries) && Before(s.entries[cut].Msg.Coherency, target) {
		cut++
	}
	out := make([]Entry, cut)
	copy(out, s.entries[:cut])
	s.entries = s.entries[cut:]
	return out
}
