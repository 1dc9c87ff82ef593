package protocol

import (
	"encoding/binary"
	"math"
)

// Reader decodes values from a byte slice. Reads past the end return zero
// values and set a sticky ErrShortBuffer.
type Reader struct {
	buf []byte
	pos int
	err error
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) Err() error     { return r.err }
func (r *Reader) Position() int  { return r.pos }
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = ErrShortBuffer
		r.pos = len(r.buf)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) ReadUint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

func (r *Reader) ReadUint16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) ReadUint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

// ReadBytes reads a u16 length prefixed slice. The result aliases the buffer.
func (r *Reader) ReadBytes() []byte {
	n := int(r.ReadUint16())
	return r.take(n)
}

func (r *Reader) ReadString() string {
	return string(r.ReadBytes())
}
