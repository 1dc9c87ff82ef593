// Package transformsync mirrors entity transforms between peers. The owning
// peer writes its body's pose relative to a reference sector; every other
// peer smooths a replica toward the last pose it received.
package transformsync

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/geom"
)

const DefaultSmoothTime = 0.1

// Body is the simulated entity a Sync mirrors.
type Body interface {
	WorldTransform() geom.Transform
	SetWorldTransform(position geom.Vec3, rotation geom.Quat)
	SetVisible(visible bool)
}

// State is a pose relative to a sector.
type State struct {
	Position geom.Vec3
	Rotation geom.Quat
}

type Options struct {
	Logger axlog.Logger
	// IsReady gates Update. Nil means always ready.
	IsReady func() bool
	// SmoothTime defaults to DefaultSmoothTime.
	SmoothTime float64
}

// Sync is the per-entity transform mirror. It is driven from the tick
// goroutine only.
type Sync struct {
	netID  uint32
	owned  bool
	body   Body
	sector Sector

	isReady    func() bool
	smoothTime float64
	logger     axlog.Logger

	initialized bool
	visible     bool
	placed      bool

	// owned: last written pose. replica: last received target.
	target State
	// replica pose currently displayed, relative to sector.
	local State

	posVel geom.Vec3
	rotVel geom.Quat
}

func NewSync(netID uint32, owned bool, body Body, opts Options) *Sync {
	s := &Sync{
		netID:      netID,
		owned:      owned,
		body:       body,
		isReady:    opts.IsReady,
		smoothTime: opts.SmoothTime,
		logger:     axlog.OrDiscard(opts.Logger),
		target:     State{Rotation: geom.Identity()},
		local:      State{Rotation: geom.Identity()},
	}
	if s.smoothTime <= 0 {
		s.smoothTime = DefaultSmoothTime
	}
	return s
}

func (s *Sync) NetID() uint32     { return s.netID }
func (s *Sync) Owned() bool       { return s.owned }
func (s *Sync) Sector() Sector    { return s.sector }
func (s *Sync) Visible() bool     { return s.visible }
func (s *Sync) Initialized() bool { return s.initialized }
func (s *Sync) State() State      { return s.target }
func (s *Sync) Displayed() State  { return s.local }

func (s *Sync) ready() bool {
	return s.isReady == nil || s.isReady()
}

func (s *Sync) init() {
	s.initialized = true
	s.visible = true
	s.logger.Debug("transform sync init", "net_id", s.netID, "owned", s.owned)
}

// Update advances the sync by dt seconds.
func (s *Sync) Update(dt float64) {
	ready := s.ready()
	if !s.initialized && ready {
		s.init()
	} else if s.initialized && !ready {
		s.initialized = false
		return
	}
	if !s.initialized {
		return
	}

	if s.sector == nil {
		s.logger.Error("transform sync has no reference sector", "net_id", s.netID)
		return
	}

	if s.owned {
		s.target = s.relative(s.body.WorldTransform())
		return
	}

	if !s.placed {
		if s.target.Position.IsZero() {
			s.hide()
			return
		}
		s.placed = true
		s.local = s.target
	}
	s.show()

	s.local.Position = geom.SmoothDamp(s.local.Position, s.target.Position, &s.posVel, s.smoothTime, dt)
	s.local.Rotation = geom.SmoothDampQuat(s.local.Rotation, s.target.Rotation, &s.rotVel, s.smoothTime, dt)

	st := s.sector.Transform()
	s.body.SetWorldTransform(st.TransformPoint(s.local.Position), st.TransformRotation(s.local.Rotation))
}

func (s *Sync) relative(wt geom.Transform) State {
	st := s.sector.Transform()
	return State{
		Position: st.InverseTransformPoint(wt.Position),
		Rotation: st.InverseTransformRotation(wt.Rotation),
	}
}

// SetReferenceSector switches the frame poses are expressed in. Smoothing
// restarts from rest and the current pose is re-expressed in the new
// sector so nothing moves on screen.
func (s *Sync) SetReferenceSector(sector Sector) {
	if sector == nil {
		return
	}
	s.logger.Debug("transform sync sector", "net_id", s.netID, "sector", sector.Name())

	s.posVel = geom.Vec3{}
	s.rotVel = geom.Quat{}
	s.sector = sector

	if s.owned {
		s.target = s.relative(s.body.WorldTransform())
		return
	}
	if s.placed {
		s.local = s.relative(s.body.WorldTransform())
		s.target = s.local
	}
}

// Apply stores a received pose. A pose in another sector switches the
// reference sector first. Owned syncs ignore it.
func (s *Sync) Apply(state State, sector Sector) {
	if s.owned {
		return
	}
	if sector != nil && sector != s.sector {
		s.SetReferenceSector(sector)
	}
	s.target = state
}

func (s *Sync) show() {
	if !s.visible {
		s.body.SetVisible(true)
		s.visible = true
	}
}

func (s *Sync) hide() {
	if s.visible {
		s.body.SetVisible(false)
		s.visible = false
	}
}
