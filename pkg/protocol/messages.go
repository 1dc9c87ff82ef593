package protocol

// Message is a payload that knows its own wire encoding.
type Message interface {
	Serialize(w *Writer)
	Deserialize(r *Reader) error
}

// EmptyMessage has no payload.
type EmptyMessage struct{}

func (EmptyMessage) Serialize(*Writer) {}

func (EmptyMessage) Deserialize(*Reader) error {
	return nil
}

// ErrorMessage carries a transport error code to the Error handler.
type ErrorMessage struct {
	Code uint16
}

func (m *ErrorMessage) Serialize(w *Writer) {
	w.WriteUint16(m.Code)
}

func (m *ErrorMessage) Deserialize(r *Reader) error {
	m.Code = r.ReadUint16()
	return r.Err()
}

// CRCEntry names a replicated script and the channel it sends on.
type CRCEntry struct {
	Name    string
	Channel uint8
}

// CRCMessage lists the server's replicated scripts so a client can check
// that both sides agree on message layout.
type CRCMessage struct {
	Scripts []CRCEntry
}

func (m *CRCMessage) Serialize(w *Writer) {
	w.WriteUint16(uint16(len(m.Scripts)))
	for _, s := range m.Scripts {
		w.WriteString(s.Name)
		w.WriteUint8(s.Channel)
	}
}

func (m *CRCMessage) Deserialize(r *Reader) error {
	n := int(r.ReadUint16())
	m.Scripts = make([]CRCEntry, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Scripts = append(m.Scripts, CRCEntry{Name: r.ReadString(), Channel: r.ReadUint8()})
	}
	return r.Err()
}
