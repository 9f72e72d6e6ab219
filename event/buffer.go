// Package event implements the typed, binary, stack-ordered message buffers
// that carry component state and broker notifications between registries,
// synchros, and cosmoses. Buffers are pooled the same way holodeck1 pools
// its hot-path JSON scratch buffers (see the teacher's memory package),
// generalized from map/slice pools to message buffers since every hot path
// in this module is a MessageBuffer push/pop, not a JSON encode.
package event

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// MessageBuffer is a stack-ordered byte buffer: Push appends to the top,
// Pop removes from the top. Because pushes and pops both operate on the
// same end, a reader sees fields in the reverse of the order a writer
// pushed them — callers that push A then B must pop B then A. The
// component registry's descending-write / ascending-read signature walk
// (see ecs.ComponentRegistry) exists specifically to make multi-field
// round trips land in the right order despite this.
type MessageBuffer struct {
	data []byte
}

// NewMessageBuffer returns an empty buffer with the given initial capacity hint.
func NewMessageBuffer(capHint int) *MessageBuffer {
	return &MessageBuffer{data: make([]byte, 0, capHint)}
}

// Reset empties the buffer for reuse without releasing its backing array.
func (b *MessageBuffer) Reset() {
	b.data = b.data[:0]
}

// Len returns the number of bytes currently on the buffer.
func (b *MessageBuffer) Len() int { return len(b.data) }

// Bytes returns the buffer's current contents. The slice aliases the
// buffer's storage and is only valid until the next Push/Reset.
func (b *MessageBuffer) Bytes() []byte { return b.data }

// SetBytes replaces the buffer's contents wholesale (used when receiving a
// wire message body before popping fields out of it).
func (b *MessageBuffer) SetBytes(p []byte) {
	b.data = append(b.data[:0], p...)
}

func (b *MessageBuffer) pushTop(p []byte) {
	b.data = append(b.data, p...)
}

// popTop removes n bytes from the top (end) of the buffer and returns them.
func (b *MessageBuffer) popTop(n int) ([]byte, error) {
	if len(b.data) < n {
		return nil, fmt.Errorf("event: message buffer underflow popping %d bytes, have %d", n, len(b.data))
	}
	at := len(b.data) - n
	out := append([]byte(nil), b.data[at:]...)
	b.data = b.data[:at]
	return out, nil
}

// PushU8/PushU16/PushU32/PushU64 push unsigned integers onto the buffer's top.
func (b *MessageBuffer) PushU8(v uint8)   { b.pushTop([]byte{v}) }
func (b *MessageBuffer) PushU16(v uint16) { var t [2]byte; binary.LittleEndian.PutUint16(t[:], v); b.pushTop(t[:]) }
func (b *MessageBuffer) PushU32(v uint32) { var t [4]byte; binary.LittleEndian.PutUint32(t[:], v); b.pushTop(t[:]) }
func (b *MessageBuffer) PushU64(v uint64) { var t [8]byte; binary.LittleEndian.PutUint64(t[:], v); b.pushTop(t[:]) }

// PushF32/PushF64 push IEEE-754 floats onto the buffer's top.
func (b *MessageBuffer) PushF32(v float32) { b.PushU32(math.Float32bits(v)) }
func (b *MessageBuffer) PushF64(v float64) { b.PushU64(math.Float64bits(v)) }

// PushBool pushes a single byte boolean.
func (b *MessageBuffer) PushBool(v bool) {
	if v {
		b.PushU8(1)
	} else {
		b.PushU8(0)
	}
}

// PushString pushes the string's bytes followed by a size_t (uint64) length
// word, so a reader pops the length first (spec §6: "readers pop the
// length first").
func (b *MessageBuffer) PushString(s string) {
	b.pushTop([]byte(s))
	b.PushU64(uint64(len(s)))
}

func (b *MessageBuffer) PopU8() (uint8, error) {
	p, err := b.popTop(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *MessageBuffer) PopU16() (uint16, error) {
	p, err := b.popTop(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (b *MessageBuffer) PopU32() (uint32, error) {
	p, err := b.popTop(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (b *MessageBuffer) PopU64() (uint64, error) {
	p, err := b.popTop(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

func (b *MessageBuffer) PopF32() (float32, error) {
	u, err := b.PopU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (b *MessageBuffer) PopF64() (float64, error) {
	u, err := b.PopU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

func (b *MessageBuffer) PopBool() (bool, error) {
	u, err := b.PopU8()
	if err != nil {
		return false, err
	}
	return u != 0, nil
}

// PopString pops the length word first, then that many bytes, mirroring PushString.
func (b *MessageBuffer) PopString() (string, error) {
	n, err := b.PopU64()
	if err != nil {
		return "", err
	}
	p, err := b.popTop(int(n))
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// bufferPool recycles MessageBuffer instances across ticks, the same way
// the teacher's memory.JSONBufferPool recycles bytes.Buffer for WebSocket
// broadcasts — here generalized to the buffer type every hot path (component
// serialization, event publish) actually uses.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return NewMessageBuffer(256)
	},
}

// Acquire returns a pooled, empty MessageBuffer.
func Acquire() *MessageBuffer {
	buf := bufferPool.Get().(*MessageBuffer)
	buf.Reset()
	return buf
}

// Release returns a MessageBuffer to the pool for reuse.
func Release(buf *MessageBuffer) {
	bufferPool.Put(buf)
}
