package transformsync

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/geom"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
)

const TransformType protocol.MsgType = 110

// TransformMessage carries one entity's pose relative to a sector. Floats
// travel as float32.
type TransformMessage struct {
	NetID    uint32
	SectorID int32
	Position geom.Vec3
	Rotation geom.Quat
}

func (m *TransformMessage) Serialize(w *protocol.Writer) {
	w.WriteUint32(m.NetID)
	w.WriteInt32(m.SectorID)
	w.WriteFloat32(float32(m.Position.X))
	w.WriteFloat32(float32(m.Position.Y))
	w.WriteFloat32(float32(m.Position.Z))
	w.WriteFloat32(float32(m.Rotation.X))
	w.WriteFloat32(float32(m.Rotation.Y))
	w.WriteFloat32(float32(m.Rotation.Z))
	w.WriteFloat32(float32(m.Rotation.W))
}

func (m *TransformMessage) Deserialize(r *protocol.Reader) error {
	m.NetID = r.ReadUint32()
	m.SectorID = r.ReadInt32()
	m.Position = geom.Vec3{
		X: float64(r.ReadFloat32()),
		Y: float64(r.ReadFloat32()),
		Z: float64(r.ReadFloat32()),
	}
	m.Rotation = geom.Quat{
		X: float64(r.ReadFloat32()),
		Y: float64(r.ReadFloat32()),
		Z: float64(r.ReadFloat32()),
		W: float64(r.ReadFloat32()),
	}
	return r.Err()
}

func (m *TransformMessage) State() State {
	return State{Position: m.Position, Rotation: m.Rotation}
}
