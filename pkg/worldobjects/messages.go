package worldobjects

import "github.com/isrecalpear/quantum-space-buddies/pkg/protocol"

const (
	GeyserStateType  protocol.MsgType = 100
	OrbSlotStateType protocol.MsgType = 101
	ConversationType protocol.MsgType = 102
)

type GeyserStateMessage struct {
	ObjectID int32
	Active   bool
}

func (m *GeyserStateMessage) Serialize(w *protocol.Writer) {
	w.WriteInt32(m.ObjectID)
	w.WriteBool(m.Active)
}

func (m *GeyserStateMessage) Deserialize(r *protocol.Reader) error {
	m.ObjectID = r.ReadInt32()
	m.Active = r.ReadBool()
	return r.Err()
}

type OrbSlotStateMessage struct {
	ObjectID int32
	OrbID    int32
	Active   bool
}

func (m *OrbSlotStateMessage) Serialize(w *protocol.Writer) {
	w.WriteInt32(m.ObjectID)
	w.WriteInt32(m.OrbID)
	w.WriteBool(m.Active)
}

func (m *OrbSlotStateMessage) Deserialize(r *protocol.Reader) error {
	m.ObjectID = r.ReadInt32()
	m.OrbID = r.ReadInt32()
	m.Active = r.ReadBool()
	return r.Err()
}

type ConversationMessage struct {
	ObjectID int32
	Start    bool
}

func (m *ConversationMessage) Serialize(w *protocol.Writer) {
	w.WriteInt32(m.ObjectID)
	w.WriteBool(m.Start)
}

func (m *ConversationMessage) Deserialize(r *protocol.Reader) error {
	m.ObjectID = r.ReadInt32()
	m.Start = r.ReadBool()
	return r.Err()
}
