package worldobjects

import "github.com/isrecalpear/quantum-space-buddies/pkg/world"

// NoOrb clears a slot.
const NoOrb = -1

// SlotTarget is the simulated interface slot an orb can occupy.
type SlotTarget interface {
	Name() string
	SetOccupyingOrb(orbID int)
	RaiseSlotEvent(activated bool)
}

type OrbSlot struct {
	world.Base

	target      SlotTarget
	out         Outbox
	initialized bool
	activated   bool
}

func NewOrbSlot(target SlotTarget, out Outbox) *OrbSlot {
	return &OrbSlot{target: target, out: out}
}

func (s *OrbSlot) Name() string {
	return s.target.Name()
}

func (s *OrbSlot) Init() {
	s.initialized = true
}

func (s *OrbSlot) Activated() bool {
	return s.activated
}

// HandleEvent publishes a local slot change. Changes before every world
// object is ready are dropped.
func (s *OrbSlot) HandleEvent(active bool, orbID int) {
	if r := s.Registry(); r == nil || !r.AllReady() {
		return
	}
	s.out.OrbSlotState(s.ObjectID(), orbID, active)
}

func (s *OrbSlot) SetState(active bool, orbID int) {
	if !s.initialized {
		return
	}
	if active {
		s.target.SetOccupyingOrb(orbID)
	} else {
		s.target.SetOccupyingOrb(NoOrb)
	}
	s.target.RaiseSlotEvent(active)
	s.activated = active
}
