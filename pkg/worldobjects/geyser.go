package worldobjects

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/events"
	"github.com/isrecalpear/quantum-space-buddies/pkg/world"
)

// GeyserController is the simulated geyser.
type GeyserController interface {
	Name() string
	ActivateGeyser()
	DeactivateGeyser()
	Activated() *events.Topic[struct{}]
	Deactivated() *events.Topic[struct{}]
}

// Geyser forwards local activation changes while it has authority and
// applies remote ones.
type Geyser struct {
	world.Base

	controller GeyserController
	out        Outbox
	unsub      []func()
}

func NewGeyser(controller GeyserController, out Outbox) *Geyser {
	return &Geyser{controller: controller, out: out}
}

func (g *Geyser) Name() string {
	return g.controller.Name()
}

func (g *Geyser) Init() {
	g.unsub = append(g.unsub,
		g.controller.Activated().Subscribe(func(struct{}) { g.handleEvent(true) }),
		g.controller.Deactivated().Subscribe(func(struct{}) { g.handleEvent(false) }),
	)
}

func (g *Geyser) OnRemoval() {
	for _, fn := range g.unsub {
		fn()
	}
	g.unsub = nil
}

func (g *Geyser) handleEvent(active bool) {
	if !g.out.Authoritative() {
		return
	}
	g.out.GeyserState(g.ObjectID(), active)
}

func (g *Geyser) SetState(active bool) {
	if active {
		g.controller.ActivateGeyser()
	} else {
		g.controller.DeactivateGeyser()
	}
}
