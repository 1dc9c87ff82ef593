package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// TestWriterFrames tests that consecutive messages decode back into separate frames.
func TestWriterFrames(t *testing.T) {
	w := NewWriter()

	w.StartMessage(UserBase)
	w.WriteInt32(-7)
	w.WriteString("geyser")
	w.FinishMessage()

	w.StartMessage(UserBase + 1)
	w.WriteFloat32(1.5)
	w.WriteBool(true)
	w.FinishMessage()

	if err := w.Err(); err != nil {
		t.Fatalf("writer error: %v", err)
	}

	var frames []Frame
	err := ReadFrames(w.Bytes(), func(f Frame) bool {
		frames = append(frames, f)
		return true
	})
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}

	r := NewReader(frames[0].Payload)
	if frames[0].Type != UserBase {
		t.Errorf("expected type %d, got %d", UserBase, frames[0].Type)
	}
	if v := r.ReadInt32(); v != -7 {
		t.Errorf("expected -7, got %d", v)
	}
	if s := r.ReadString(); s != "geyser" {
		t.Errorf("expected geyser, got %q", s)
	}
	if r.Remaining() != 0 || r.Err() != nil {
		t.Errorf("unexpected reader state: remaining=%d err=%v", r.Remaining(), r.Err())
	}

	r = NewReader(frames[1].Payload)
	if v := r.ReadFloat32(); v != 1.5 {
		t.Errorf("expected 1.5, got %v", v)
	}
	if !r.ReadBool() {
		t.Error("expected true")
	}
}

// TestReaderShortBuffer tests that reading past the end is sticky and yields zero values.
func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{1})
	if v := r.ReadUint16(); v != 0 {
		t.Errorf("expected 0, got %d", v)
	}
	if !errors.Is(r.Err(), ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", r.Err())
	}
	if v := r.ReadUint8(); v != 0 {
		t.Errorf("expected 0 after error, got %d", v)
	}
}

// TestReadFramesTruncated tests that a frame claiming more bytes than available is reported.
func TestReadFramesTruncated(t *testing.T) {
	buf, err := AppendFrame(nil, UserBase, []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	err = ReadFrames(buf[:len(buf)-1], func(Frame) bool {
		calls++
		return true
	})
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no frames, got %d", calls)
	}
}

// TestWriterTooLarge tests the packet size cap.
func TestWriterTooLarge(t *testing.T) {
	w := NewWriter()
	w.StartMessage(UserBase)
	w.WriteBytes(bytes.Repeat([]byte{0xAB}, 40000))
	w.WriteBytes(bytes.Repeat([]byte{0xCD}, 40000))
	w.FinishMessage()
	if !errors.Is(w.Err(), ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", w.Err())
	}
}

// TestCRCMessage tests the CRC handshake payload encoding.
func TestCRCMessage(t *testing.T) {
	in := &CRCMessage{Scripts: []CRCEntry{{Name: "TransformSync", Channel: 1}, {Name: "Geyser", Channel: 0}}}
	b, err := Encode(CRC, in)
	if err != nil {
		t.Fatal(err)
	}

	var out CRCMessage
	err = ReadFrames(b, func(f Frame) bool {
		if f.Type != CRC {
			t.Errorf("expected CRC frame, got %v", f.Type)
		}
		if err := out.Deserialize(NewReader(f.Payload)); err != nil {
			t.Errorf("Deserialize: %v", err)
		}
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Scripts) != 2 || out.Scripts[0] != in.Scripts[0] || out.Scripts[1] != in.Scripts[1] {
		t.Errorf("unexpected scripts %+v", out.Scripts)
	}
}

// TestSystemTypes tests the reserved range helpers.
func TestSystemTypes(t *testing.T) {
	if !Error.IsSystem() || !Error.IsDefinedSystem() {
		t.Error("Error should be a defined system type")
	}
	if MsgType(5).IsDefinedSystem() {
		t.Error("5 is not a defined system type")
	}
	if UserBase.IsSystem() {
		t.Error("UserBase must be outside the reserved range")
	}
	if Disconnect.String() != "Disconnect" || MsgType(90).String() != "90" {
		t.Error("unexpected String output")
	}
}
