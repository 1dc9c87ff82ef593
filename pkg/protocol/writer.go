package protocol

import (
	"encoding/binary"
	"math"
)

// Writer builds frames into a growable buffer capped at MaxMessageSize.
// The first failed write is remembered and later writes become no-ops.
type Writer struct {
	buf   []byte
	start int
	err   error
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64), start: -1}
}

// Reset empties the writer and clears its error.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.start = -1
	w.err = nil
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }
func (w *Writer) Err() error    { return w.err }

// StartMessage writes a frame header whose size is patched by FinishMessage.
func (w *Writer) StartMessage(t MsgType) {
	w.start = len(w.buf)
	w.WriteUint16(0)
	w.WriteUint16(uint16(t))
}

func (w *Writer) FinishMessage() {
	if w.err != nil {
		return
	}
	if w.start < 0 {
		w.err = ErrNoMessage
		return
	}
	size := len(w.buf) - w.start - HeaderSize
	binary.LittleEndian.PutUint16(w.buf[w.start:], uint16(size))
	w.start = -1
}

func (w *Writer) reserve(n int) bool {
	if w.err != nil {
		return false
	}
	if len(w.buf)+n > MaxMessageSize {
		w.err = ErrMessageTooLarge
		return false
	}
	return true
}

func (w *Writer) WriteUint8(v uint8) {
	if w.reserve(1) {
		w.buf = append(w.buf, v)
	}
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
		return
	}
	w.WriteUint8(0)
}

func (w *Writer) WriteUint16(v uint16) {
	if w.reserve(2) {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	}
}

func (w *Writer) WriteUint32(v uint32) {
	if w.reserve(4) {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	}
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

// WriteBytes writes b prefixed by its u16 length.
func (w *Writer) WriteBytes(b []byte) {
	if len(b) > math.MaxUint16 {
		w.err = ErrMessageTooLarge
		return
	}
	w.WriteUint16(uint16(len(b)))
	if w.reserve(len(b)) {
		w.buf = append(w.buf, b...)
	}
}

func (w *Writer) WriteString(s string) {
	w.WriteBytes([]byte(s))
}

// Encode frames a single message.
func Encode(t MsgType, msg Message) ([]byte, error) {
	w := NewWriter()
	w.StartMessage(t)
	if msg != nil {
		msg.Serialize(w)
	}
	w.FinishMessage()
	return w.Bytes(), w.Err()
}
