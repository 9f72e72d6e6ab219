package event

// MessageType enumerates the timestream/broker message kinds named in
// spec §6. Values are stable across the wire (persisted in timestream
// entries) so existing numeric assignments must never be reordered.
type MessageType uint16

const (
	EntityCreated MessageType = iota
	EntityUpdate
	EntityRemoved
	TimestreamInterception
	WorldlineShift
	ParallelInit
	ParallelFinished
	ParallelDivergence
	JumpRequest
)

var messageTypeNames = map[MessageType]string{
	EntityCreated:           "ENTITY_CREATED",
	EntityUpdate:            "ENTITY_UPDATE",
	EntityRemoved:           "ENTITY_REMOVED",
	TimestreamInterception:  "TIMESTREAM_INTERCEPTION",
	WorldlineShift:          "WORLDLINE_SHIFT",
	ParallelInit:            "PARALLEL_INIT",
	ParallelFinished:        "PARALLEL_FINISHED",
	ParallelDivergence:      "PARALLEL_DIVERGENCE",
	JumpRequest:             "JUMP_REQUEST",
}

// String renders the message type by its wire name for logging.
func (m MessageType) String() string {
	if name, ok := messageTypeNames[m]; ok {
		return name
	}
	return "UNKNOWN_MESSAGE_TYPE"
}

// Header is the fixed frame header preceding every message body on the
// wire: {id, size} followed by size bytes of body (spec §6).
type Header struct {
	ID   MessageType
	Size uint32
}

// Message is a header plus its body buffer, and the authoritative
// coherency timestamp used to order it within a timestream (spec §6:
// "the coherency field is the authoritative timestamp").
type Message struct {
	Header    Header
	Coherency uint16
	Body      *MessageBuffer
}

// NewMessage builds a message around a freshly acquired body buffer.
func NewMessage(id MessageType, coherency uint16) *Message {
	return &Message{
		Header:    Header{ID: id},
		Coherency: coherency,
		Body:      Acquire(),
	}
}

// Finalize stamps the header's Size field from the current body length.
// Callers must call this after all Pushes and before handing the message
// to a Broker or Stream.
func (m *Message) Finalize() {
	m.Header.Size = uint32(m.Body.Len())
}

// Release returns the message's body buffer to the pool. Callers that
// retain a Message past the point they're done reading it should call
// this to avoid buffer pool starvation under sustained load.
func (m *Message) Release() {
	if m.Body != nil {
		Release(m.Body)
		m.Body = nil
	}
}
