package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame is one decoded message inside a packet.
type Frame struct {
	Type    MsgType
	Payload []byte
}

// AppendFrame appends a framed payload to dst.
func AppendFrame(dst []byte, t MsgType, payload []byte) ([]byte, error) {
	if len(payload) > MaxMessageSize-HeaderSize {
		return dst, ErrMessageTooLarge
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(t))
	return append(dst, payload...), nil
}

// ReadFrames calls fn for each frame in buf until fn returns false.
// Payloads alias buf.
func ReadFrames(buf []byte, fn func(Frame) bool) error {
	for pos := 0; pos < len(buf); {
		if len(buf)-pos < HeaderSize {
			return fmt.Errorf("%w: %d header bytes at offset %d", ErrTruncatedFrame, len(buf)-pos, pos)
		}
		size := int(binary.LittleEndian.Uint16(buf[pos:]))
		t := MsgType(binary.LittleEndian.Uint16(buf[pos+2:]))
		pos += HeaderSize
		if pos+size > len(buf) {
			return fmt.Errorf("%w: type %d wants %d bytes, %d left", ErrTruncatedFrame, t, size, len(buf)-pos)
		}
		if !fn(Frame{Type: t, Payload: buf[pos : pos+size]}) {
			return nil
		}
		pos += size
	}
	return nil
}
