package worldobjects

import (
	"testing"

	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/events"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/world"
)

type fakeGeyser struct {
	activated   events.Topic[struct{}]
	deactivated events.Topic[struct{}]
	active      bool
}

func (g *fakeGeyser) Name() string                         { return "Geyser_1" }
func (g *fakeGeyser) ActivateGeyser()                      { g.active = true }
func (g *fakeGeyser) DeactivateGeyser()                    { g.active = false }
func (g *fakeGeyser) Activated() *events.Topic[struct{}]   { return &g.activated }
func (g *fakeGeyser) Deactivated() *events.Topic[struct{}] { return &g.deactivated }

type fakeSlot struct {
	orb    int
	events []bool
}

func (s *fakeSlot) Name() string                  { return "Slot_1" }
func (s *fakeSlot) SetOccupyingOrb(orbID int)     { s.orb = orbID }
func (s *fakeSlot) RaiseSlotEvent(activated bool) { s.events = append(s.events, activated) }

type fakeTree struct {
	talking bool
}

func (d *fakeTree) Name() string         { return "Hornfels" }
func (d *fakeTree) StartConversation()   { d.talking = true }
func (d *fakeTree) EndConversation()     { d.talking = false }
func (d *fakeTree) InConversation() bool { return d.talking }

// wire delivers every send to the handlers of another peer.
type wire struct {
	t  *testing.T
	to *dispatch.Handlers
	n  int
}

func (w *wire) Send(t protocol.MsgType, msg protocol.Message) bool {
	w.n++
	buf := protocol.NewWriter()
	msg.Serialize(buf)
	if err := buf.Err(); err != nil {
		w.t.Fatal(err)
	}
	w.to.Dispatch(&dispatch.Message{Type: t, Reader: protocol.NewReader(buf.Bytes())})
	return true
}

type side struct {
	registry *world.Registry
	handlers *dispatch.Handlers
	sync     *Sync
	geyser   *fakeGeyser
	slot     *fakeSlot
	tree     *fakeTree
}

// newPair builds an authoritative peer wired to a replica peer, each with
// the same three objects.
func newPair(t *testing.T) (auth, remote *side, w *wire) {
	t.Helper()
	remote = &side{registry: world.NewRegistry(nil), handlers: dispatch.New(nil)}
	w = &wire{t: t, to: remote.handlers}
	auth = &side{registry: world.NewRegistry(nil), handlers: dispatch.New(nil)}

	for _, s := range []*side{auth, remote} {
		var sender Sender
		if s == auth {
			sender = w
		}
		s.sync = NewSync(s.registry, sender, s == auth, nil)
		if err := s.sync.RegisterHandlers(s.handlers); err != nil {
			t.Fatal(err)
		}
		s.geyser, s.slot, s.tree = &fakeGeyser{}, &fakeSlot{orb: NoOrb}, &fakeTree{}
		s.registry.SetExpectedCount(3)
		s.registry.Register(NewGeyser(s.geyser, s.sync))
		s.registry.Register(NewOrbSlot(s.slot, s.sync))
		s.registry.Register(NewNpcAnimController(s.tree, s.sync))
	}
	return auth, remote, w
}

// TestGeyserReplicates tests geyser activation flows from the authority only.
func TestGeyserReplicates(t *testing.T) {
	auth, remote, w := newPair(t)

	auth.geyser.activated.Publish(struct{}{})
	if !remote.geyser.active {
		t.Fatal("remote geyser not activated")
	}
	auth.geyser.deactivated.Publish(struct{}{})
	if remote.geyser.active {
		t.Fatal("remote geyser not deactivated")
	}

	sent := w.n
	remote.geyser.activated.Publish(struct{}{})
	if w.n != sent {
		t.Fatal("non-authoritative geyser published its state")
	}
}

// TestGeyserUnsubscribesOnRemoval tests subscriptions end with the object.
func TestGeyserUnsubscribesOnRemoval(t *testing.T) {
	auth, _, _ := newPair(t)
	if auth.geyser.activated.Len() != 1 {
		t.Fatalf("expected one subscriber, got %d", auth.geyser.activated.Len())
	}
	if err := auth.registry.Remove(0); err != nil {
		t.Fatal(err)
	}
	if auth.geyser.activated.Len() != 0 || auth.geyser.deactivated.Len() != 0 {
		t.Fatal("geyser still subscribed after removal")
	}
}

// TestOrbSlotReplicates tests slot occupancy through the explicit setter.
func TestOrbSlotReplicates(t *testing.T) {
	auth, remote, _ := newPair(t)
	slot, err := world.Get[*OrbSlot](auth.registry, 1)
	if err != nil {
		t.Fatal(err)
	}

	slot.HandleEvent(true, 4)
	if remote.slot.orb != 4 || len(remote.slot.events) != 1 || !remote.slot.events[0] {
		t.Fatalf("unexpected remote slot %+v", remote.slot)
	}
	rs, _ := world.Get[*OrbSlot](remote.registry, 1)
	if !rs.Activated() {
		t.Fatal("remote slot not activated")
	}

	slot.HandleEvent(false, 4)
	if remote.slot.orb != NoOrb || rs.Activated() {
		t.Fatalf("remote slot not cleared: %+v", remote.slot)
	}
}

// TestMessagesDroppedUntilReady tests both local events and inbound messages wait for the world.
func TestMessagesDroppedUntilReady(t *testing.T) {
	auth, remote, w := newPair(t)
	slot, _ := world.Get[*OrbSlot](auth.registry, 1)

	auth.registry.MarkDelayedReady()
	slot.HandleEvent(true, 2)
	if w.n != 0 {
		t.Fatal("local event sent before ready")
	}
	auth.registry.FinishDelayedReady()

	remote.registry.MarkDelayedReady()
	slot.HandleEvent(true, 2)
	if w.n != 1 || remote.slot.orb != NoOrb {
		t.Fatalf("inbound message applied before ready, orb %d", remote.slot.orb)
	}
}

// TestConversationReplicates tests conversations start and end on the remote.
func TestConversationReplicates(t *testing.T) {
	auth, remote, _ := newPair(t)
	npc, err := world.Get[*NpcAnimController](auth.registry, 2)
	if err != nil {
		t.Fatal(err)
	}

	npc.HandleConversation(true)
	if !remote.tree.InConversation() {
		t.Fatal("remote conversation not started")
	}
	npc.HandleConversation(false)
	if remote.tree.InConversation() {
		t.Fatal("remote conversation not ended")
	}
}

// TestRelay tests the relay hook sees applied messages.
func TestRelay(t *testing.T) {
	auth, remote, _ := newPair(t)
	var relayed []protocol.MsgType
	remote.sync.Relay = func(from dispatch.Conn, t protocol.MsgType, msg protocol.Message) {
		relayed = append(relayed, t)
	}

	auth.geyser.activated.Publish(struct{}{})
	npc, _ := world.Get[*NpcAnimController](auth.registry, 2)
	npc.HandleConversation(true)

	if len(relayed) != 2 || relayed[0] != GeyserStateType || relayed[1] != ConversationType {
		t.Fatalf("unexpected relays %v", relayed)
	}
}
