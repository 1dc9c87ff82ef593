package cmdutil

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/events"
	"github.com/isrecalpear/quantum-space-buddies/pkg/geom"
	"github.com/isrecalpear/quantum-space-buddies/pkg/handshake"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transformsync"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"github.com/isrecalpear/quantum-space-buddies/pkg/world"
	"github.com/isrecalpear/quantum-space-buddies/pkg/worldobjects"
)

const geyserPeriod = 8.0

// World is the demo scene every peer builds in the same order, so object
// ids agree across the session.
type World struct {
	Registry *world.Registry
	Objects  *worldobjects.Sync
	Sectors  []*transformsync.StaticSector

	authority bool
	loading   bool
	geysers   []*simGeyser
	logger    axlog.Logger
}

// NewWorld registers the scene. The registry stays not ready until the
// first Tick, which stands in for the end of scene loading.
func NewWorld(sender worldobjects.Sender, authority bool, logger axlog.Logger) *World {
	logger = axlog.OrDiscard(logger)
	w := &World{
		Registry:  world.NewRegistry(logger),
		authority: authority,
		loading:   true,
		logger:    logger,
	}
	w.Objects = worldobjects.NewSync(w.Registry, sender, authority, logger)
	w.Registry.SetExpectedCount(8)
	w.Registry.MarkDelayedReady()

	for _, s := range []struct {
		name string
		pos  geom.Vec3
	}{
		{"Sun", geom.Vec3{}},
		{"TimberHearth", geom.Vec3{X: 8000}},
		{"BrittleHollow", geom.Vec3{Z: -12000}},
	} {
		sector := transformsync.NewStaticSector(s.name, geom.NewTransform(s.pos, geom.Identity()))
		w.Registry.Register(sector)
		w.Sectors = append(w.Sectors, sector)
	}

	for i, name := range []string{"Geyser_Village", "Geyser_Crater"} {
		g := &simGeyser{name: name, logger: logger, elapsed: float64(i) * geyserPeriod / 2}
		w.geysers = append(w.geysers, g)
		w.Registry.Register(worldobjects.NewGeyser(g, w.Objects))
	}
	for _, name := range []string{"Slot_Tower_1", "Slot_Tower_2"} {
		w.Registry.Register(worldobjects.NewOrbSlot(&simSlot{name: name, orb: worldobjects.NoOrb, logger: logger}, w.Objects))
	}
	w.Registry.Register(worldobjects.NewNpcAnimController(&simDialogue{name: "Hornfels", logger: logger}, w.Objects))
	return w
}

// Handshake lists the replicated scripts of the scene.
func Handshake() *handshake.Registry {
	r := handshake.NewRegistry()
	r.Register("GeyserSync", transport.ChannelReliable)
	r.Register("OrbSlotSync", transport.ChannelReliable)
	r.Register("ConversationSync", transport.ChannelReliable)
	r.Register("TransformSync", transport.ChannelUnreliable)
	return r
}

// Tick finishes loading on the first call and then runs the authority's
// geyser cycle.
func (w *World) Tick(dt float64) {
	if w.loading {
		w.loading = false
		w.Registry.FinishDelayedReady()
		w.logger.Info("world ready", "objects", w.Registry.Len(), "all_ready", w.Registry.AllReady())
	}
	if !w.authority {
		return
	}
	for _, g := range w.geysers {
		g.tick(dt)
	}
}

// Sector returns the sector new bodies start in.
func (w *World) Sector() *transformsync.StaticSector {
	return w.Sectors[1]
}

// ==================================================================
// Simulated objects
// ==================================================================

type simGeyser struct {
	name        string
	activated   events.Topic[struct{}]
	deactivated events.Topic[struct{}]
	active      bool
	elapsed     float64
	logger      axlog.Logger
}

func (g *simGeyser) Name() string                         { return g.name }
func (g *simGeyser) Activated() *events.Topic[struct{}]   { return &g.activated }
func (g *simGeyser) Deactivated() *events.Topic[struct{}] { return &g.deactivated }

func (g *simGeyser) ActivateGeyser() {
	g.active = true
	g.logger.Info("geyser erupting", "geyser", g.name)
}

func (g *simGeyser) DeactivateGeyser() {
	g.active = false
	g.logger.Info("geyser resting", "geyser", g.name)
}

func (g *simGeyser) tick(dt float64) {
	g.elapsed += dt
	if g.elapsed < geyserPeriod {
		return
	}
	g.elapsed = 0
	if g.active {
		g.DeactivateGeyser()
		g.deactivated.Publish(struct{}{})
	} else {
		g.ActivateGeyser()
		g.activated.Publish(struct{}{})
	}
}

type simSlot struct {
	name   string
	orb    int
	logger axlog.Logger
}

func (s *simSlot) Name() string { return s.name }

func (s *simSlot) SetOccupyingOrb(orbID int) {
	s.orb = orbID
}

func (s *simSlot) RaiseSlotEvent(activated bool) {
	s.logger.Info("orb slot changed", "slot", s.name, "activated", activated, "orb", s.orb)
}

type simDialogue struct {
	name    string
	talking bool
	logger  axlog.Logger
}

func (d *simDialogue) Name() string         { return d.name }
func (d *simDialogue) InConversation() bool { return d.talking }

func (d *simDialogue) StartConversation() {
	d.talking = true
	d.logger.Info("conversation started", "npc", d.name)
}

func (d *simDialogue) EndConversation() {
	d.talking = false
	d.logger.Info("conversation ended", "npc", d.name)
}
