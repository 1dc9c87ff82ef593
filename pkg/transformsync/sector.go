package transformsync

import (
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/geom"
	"github.com/isrecalpear/quantum-space-buddies/pkg/world"
)

// Sector is a world object acting as a moving reference frame.
type Sector interface {
	world.Object
	ObjectID() int
	Name() string
	Transform() geom.Transform
}

// StaticSector is a sector whose transform is set by its owner.
type StaticSector struct {
	world.Base

	name string
	mu   sync.RWMutex
	t    geom.Transform
}

func NewStaticSector(name string, t geom.Transform) *StaticSector {
	return &StaticSector{name: name, t: t}
}

func (s *StaticSector) Name() string {
	return s.name
}

func (s *StaticSector) Transform() geom.Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t
}

// SetTransform moves the sector. Bodies expressed relative to it move along.
func (s *StaticSector) SetTransform(t geom.Transform) {
	s.mu.Lock()
	s.t = t
	s.mu.Unlock()
}
