package transformsync

import (
	"testing"

	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/geom"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"github.com/isrecalpear/quantum-space-buddies/pkg/world"
)

// loopSender delivers sent messages to another peer's handlers.
type loopSender struct {
	t     *testing.T
	to    *dispatch.Handlers
	sends int
}

func (l *loopSender) SendUnreliable(t protocol.MsgType, msg protocol.Message) bool {
	l.sends++
	if l.to == nil {
		return true
	}
	w := protocol.NewWriter()
	msg.Serialize(w)
	if err := w.Err(); err != nil {
		l.t.Fatal(err)
	}
	l.to.Dispatch(&dispatch.Message{Type: t, Reader: protocol.NewReader(w.Bytes())})
	return true
}

type peer struct {
	registry *world.Registry
	sector   *StaticSector
	handlers *dispatch.Handlers
}

func newPeer(t *testing.T) *peer {
	t.Helper()
	p := &peer{
		registry: world.NewRegistry(nil),
		sector:   testSector("Ship", geom.Vec3{X: 5, Y: 5}, 0.5),
		handlers: dispatch.New(nil),
	}
	p.registry.Register(p.sector)
	return p
}

// TestManagerSendRate tests owned poses are sent at the configured rate.
func TestManagerSendRate(t *testing.T) {
	p := newPeer(t)
	out := &loopSender{t: t}
	m := NewManager(p.registry, out, ManagerOptions{SendRate: 10})

	s := NewSync(7, true, &fakeBody{t: geom.NewTransform(geom.Vec3{X: 1}, geom.Identity())}, Options{})
	s.SetReferenceSector(p.sector)
	if err := m.Add(s); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(s); err == nil {
		t.Fatal("expected duplicate error")
	}

	for i := 0; i < 4; i++ {
		m.Tick(0.05)
	}
	if out.sends != 2 {
		t.Fatalf("expected 2 sends, got %d", out.sends)
	}
}

// TestManagerReplicates tests a pose flowing from an owner to a replica.
func TestManagerReplicates(t *testing.T) {
	owner, remote := newPeer(t), newPeer(t)

	var relayed []uint32
	rm := NewManager(remote.registry, nil, ManagerOptions{
		Spawn: func(netID uint32) *Sync {
			s := NewSync(netID, false, &fakeBody{}, Options{})
			s.SetReferenceSector(remote.sector)
			return s
		},
		Relay: func(from dispatch.Conn, msg *TransformMessage) { relayed = append(relayed, msg.NetID) },
	})
	if err := rm.RegisterHandlers(remote.handlers); err != nil {
		t.Fatal(err)
	}

	om := NewManager(owner.registry, &loopSender{t: t, to: remote.handlers}, ManagerOptions{SendRate: 60})
	body := &fakeBody{t: geom.NewTransform(geom.Vec3{X: 8, Y: 2, Z: 1}, geom.Identity())}
	s := NewSync(9, true, body, Options{})
	s.SetReferenceSector(owner.sector)
	om.Add(s)

	om.Tick(1.0 / 30)

	replica, ok := rm.Get(9)
	if !ok {
		t.Fatal("replica not spawned")
	}
	want := s.State().Position
	if got := replica.State().Position; !got.ApproxEqual(want, 1e-5) {
		t.Fatalf("replica target %v, want %v", got, want)
	}
	if len(relayed) != 1 || relayed[0] != 9 {
		t.Fatalf("unexpected relays %v", relayed)
	}
}

// TestManagerIgnoresOwnedAndNotReady tests inbound poses are dropped for owned syncs and before the world is ready.
func TestManagerIgnoresOwnedAndNotReady(t *testing.T) {
	p := newPeer(t)
	m := NewManager(p.registry, nil, ManagerOptions{})
	if err := m.RegisterHandlers(p.handlers); err != nil {
		t.Fatal(err)
	}

	owned := NewSync(1, true, &fakeBody{}, Options{})
	owned.SetReferenceSector(p.sector)
	replica := NewSync(2, false, &fakeBody{}, Options{})
	replica.SetReferenceSector(p.sector)
	m.Add(owned)
	m.Add(replica)

	send := &loopSender{t: t, to: p.handlers}
	pose := geom.Vec3{X: 3}

	p.registry.MarkDelayedReady()
	send.SendUnreliable(TransformType, &TransformMessage{NetID: 2, Position: pose, Rotation: geom.Identity()})
	if !replica.State().Position.IsZero() {
		t.Fatal("pose applied before world ready")
	}
	p.registry.FinishDelayedReady()

	send.SendUnreliable(TransformType, &TransformMessage{NetID: 1, Position: pose, Rotation: geom.Identity()})
	send.SendUnreliable(TransformType, &TransformMessage{NetID: 2, Position: pose, Rotation: geom.Identity()})

	if owned.State().Position == pose {
		t.Fatal("owned sync accepted a remote pose")
	}
	if replica.State().Position != pose {
		t.Fatalf("replica target %v, want %v", replica.State().Position, pose)
	}
}

type peerConn struct {
	id transport.PeerID
}

func (c peerConn) PeerID() transport.PeerID { return c.id }

func (c peerConn) Address() string { return "mem" }

func (c peerConn) Send(protocol.MsgType, protocol.Message) bool { return true }

func (c peerConn) SendUnreliable(protocol.MsgType, protocol.Message) bool { return true }

func deliver(t *testing.T, h *dispatch.Handlers, from transport.PeerID, msg *TransformMessage) {
	t.Helper()
	w := protocol.NewWriter()
	msg.Serialize(w)
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}
	h.Dispatch(&dispatch.Message{Type: TransformType, Conn: peerConn{id: from}, Reader: protocol.NewReader(w.Bytes())})
}

// TestManagerSingleWriter tests a net id accepts poses only from the peer
// that sent it first, until that peer is released.
func TestManagerSingleWriter(t *testing.T) {
	p := newPeer(t)
	var relayed []transport.PeerID
	m := NewManager(p.registry, nil, ManagerOptions{
		Spawn: func(netID uint32) *Sync {
			s := NewSync(netID, false, &fakeBody{}, Options{})
			s.SetReferenceSector(p.sector)
			return s
		},
		Relay: func(from dispatch.Conn, msg *TransformMessage) { relayed = append(relayed, from.PeerID()) },
	})
	if err := m.RegisterHandlers(p.handlers); err != nil {
		t.Fatal(err)
	}

	first := geom.Vec3{X: 1}
	second := geom.Vec3{X: 2}
	deliver(t, p.handlers, 3, &TransformMessage{NetID: 40, Position: first, Rotation: geom.Identity()})
	deliver(t, p.handlers, 4, &TransformMessage{NetID: 40, Position: second, Rotation: geom.Identity()})

	s, ok := m.Get(40)
	if !ok {
		t.Fatal("replica not spawned")
	}
	if s.State().Position != first {
		t.Fatalf("replica target %v, want %v", s.State().Position, first)
	}
	if len(relayed) != 1 || relayed[0] != 3 {
		t.Fatalf("unexpected relays %v", relayed)
	}
	if w, ok := m.Writer(40); !ok || w != 3 {
		t.Fatalf("writer %v %v, want 3", w, ok)
	}

	if got := m.ReleasePeer(4); len(got) != 0 {
		t.Fatalf("peer 4 released %v", got)
	}
	if got := m.ReleasePeer(3); len(got) != 1 || got[0] != 40 {
		t.Fatalf("peer 3 released %v", got)
	}
	if _, ok := m.Get(40); ok {
		t.Fatal("replica kept after its writer left")
	}

	deliver(t, p.handlers, 4, &TransformMessage{NetID: 40, Position: second, Rotation: geom.Identity()})
	if s, ok := m.Get(40); !ok || s.State().Position != second {
		t.Fatal("new writer not accepted after release")
	}
}
