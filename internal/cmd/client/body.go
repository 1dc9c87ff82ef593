package client

import (
	"math"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/geom"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transformsync"
)

// orbitBody is the local player, circling the sector's origin.
type orbitBody struct {
	sector *transformsync.StaticSector
	radius float64
	angle  float64
	t      geom.Transform
}

func (b *orbitBody) advance(dt float64) {
	b.angle = math.Mod(b.angle+dt*0.5, 2*math.Pi)
	s, c := math.Sincos(b.angle)
	st := b.sector.Transform()
	b.t = geom.NewTransform(
		st.TransformPoint(geom.Vec3{X: b.radius * c, Y: 2, Z: b.radius * s}),
		st.TransformRotation(geom.AxisAngle(geom.Vec3{Y: 1}, -b.angle)),
	)
}

func (b *orbitBody) WorldTransform() geom.Transform { return b.t }

func (b *orbitBody) SetWorldTransform(p geom.Vec3, r geom.Quat) {
	b.t.Position = p
	b.t.Rotation = r
}

func (b *orbitBody) SetVisible(bool) {}

// ghostBody is a remote player's replica.
type ghostBody struct {
	netID  uint32
	t      geom.Transform
	logger axlog.Logger
}

func (b *ghostBody) WorldTransform() geom.Transform { return b.t }

func (b *ghostBody) SetWorldTransform(p geom.Vec3, r geom.Quat) {
	b.t = geom.NewTransform(p, r)
}

func (b *ghostBody) SetVisible(v bool) {
	b.logger.Debug("remote player visibility", "net_id", b.netID, "visible", v)
}
