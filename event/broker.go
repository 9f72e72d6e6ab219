package event

import "sync"

// Handler receives a published message. Handlers run synchronously within
// Publish, matching the single-threaded-cooperative tick model (spec §5):
// within a cosmos's own tick there is no mid-tick suspension, so subscriber
// fan-out does not need to be asynchronous. The one cross-thread publisher
// is the parallel context (spec §4.5/§5), which is why Broker itself stays
// mutex-protected rather than assuming a single owning goroutine.
type Handler func(*Message)

// Broker is a typed publish/subscribe hub for Messages. One cosmos owns
// one Broker; synchros, dynamos, and the parallel context all publish and
// subscribe through the same handle.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[MessageType][]Handler
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[MessageType][]Handler)}
}

// Subscribe registers handler to be invoked on every future Publish of id.
func (b *Broker) Subscribe(id MessageType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = append(b.subscribers[id], handler)
}

// Publish synchronously invokes every subscriber registered for msg's type.
func (b *Broker) Publish(msg *Message) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[msg.Header.ID]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

// SubscriberCount reports how many handlers are registered for id, mostly
// useful in tests asserting wiring happened.
func (b *Broker) SubscriberCount(id MessageType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[id])
}
