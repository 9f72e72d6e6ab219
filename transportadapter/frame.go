// Package transportadapter is a thin demonstration of how a non-goal wire
// transport plugs into a timestream.Conduit: one websocket connection
// ferries a cosmos's outbound entries to its neighbor and the neighbor's
// entries back, using the same frame the core already defines (spec §6
// "{id, size} followed by size bytes of body") for its payload encoding.
// Grounded on the teacher's server/client.go read/write pump pair
// (github.com/gorilla/websocket), generalized from "JSON scene graph
// messages over one hub-wide broadcast channel" to "binary timestream
// entries over one point-to-point conduit link".
package transportadapter

import (
	"encoding/binary"
	"fmt"

	"holodeck1/event"
	"holodeck1/timestream"
)

// encodeEntry renders one timestream entry as a wire frame: 2-byte
// MessageType, 2-byte coherency, 4-byte body size, then the body bytes
// (spec §6's header shape, plus the coherency field the spec calls out as
// "the authoritative timestamp").
func encodeEntry(e timestream.Entry) []byte {
	body := e.Msg.Body.Bytes()
	out := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(e.Msg.Header.ID))
	binary.LittleEndian.PutUint16(out[2:4], e.Msg.Coherency)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(body)))
	copy(out[8:], body)
	return out
}

// decodeEntry parses one wire frame back into a timestream entry, acquiring
// a fresh message buffer from the pool (the caller owns its lifetime from
// here, same as any other locally-constructed Message).
func decodeEntry(frame []byte) (timestream.Entry, error) {
	if len(frame) < 8 {
		return timestream.Entry{}, fmt.Errorf("transportadapter: frame too short: %d bytes", len(frame))
	}
	id := event.MessageType(binary.LittleEndian.Uint16(frame[0:2]))
	coherency := binary.LittleEndian.Uint16(frame[2:4])
	size := binary.LittleEndian.Uint32(frame[4:8])
	if int(size) != len(frame)-8 {
		return timestream.Entry{}, fmt.Errorf("transportadapter: declared size %d does not match payload %d", size, len(frame)-8)
	}

	msg := event.NewMessage(id, coherency)
	msg.Body.SetBytes(frame[8:])
	msg.Finalize()
	return timestream.Entry{Msg: msg}, nil
}
