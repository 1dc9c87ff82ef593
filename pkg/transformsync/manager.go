package transformsync

import (
	"errors"
	"fmt"
	"slices"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"github.com/isrecalpear/quantum-space-buddies/pkg/world"
)

const DefaultSendRate = 20

var ErrDuplicateSync = errors.New("transform sync already added")

// Sender is satisfied by a client, or by server.Broadcast.
type Sender interface {
	SendUnreliable(t protocol.MsgType, msg protocol.Message) bool
}

type ManagerOptions struct {
	Logger axlog.Logger
	// SendRate is how many times per second owned poses are sent.
	SendRate float64
	// Spawn, when set, creates a replica for a net id seen for the first
	// time. Returning nil ignores the message.
	Spawn func(netID uint32) *Sync
	// Relay is called for every accepted inbound pose, after it is applied.
	Relay func(from dispatch.Conn, msg *TransformMessage)
}

// Manager owns the syncs of one peer and moves poses over the network.
type Manager struct {
	registry *world.Registry
	sender   Sender
	logger   axlog.Logger

	period float64
	accum  float64
	spawn  func(netID uint32) *Sync
	relay  func(from dispatch.Conn, msg *TransformMessage)

	syncs map[uint32]*Sync
	// writers binds a net id to the first peer that sent a pose for it.
	writers map[uint32]transport.PeerID
}

// NewManager needs a registry; inbound poses are resolved against its sectors.
func NewManager(registry *world.Registry, sender Sender, opts ManagerOptions) *Manager {
	rate := opts.SendRate
	if rate <= 0 {
		rate = DefaultSendRate
	}
	return &Manager{
		registry: registry,
		sender:   sender,
		logger:   axlog.OrDiscard(opts.Logger),
		period:   1 / rate,
		spawn:    opts.Spawn,
		relay:    opts.Relay,
		syncs:    make(map[uint32]*Sync),
		writers:  make(map[uint32]transport.PeerID),
	}
}

func (m *Manager) Add(s *Sync) error {
	if _, ok := m.syncs[s.NetID()]; ok {
		return fmt.Errorf("%w: net id %d", ErrDuplicateSync, s.NetID())
	}
	m.syncs[s.NetID()] = s
	return nil
}

func (m *Manager) Remove(netID uint32) {
	delete(m.syncs, netID)
	delete(m.writers, netID)
}

// ReleasePeer forgets every net id written by peer and drops their
// replicas. It returns the released ids in ascending order.
func (m *Manager) ReleasePeer(peer transport.PeerID) []uint32 {
	var released []uint32
	for netID, owner := range m.writers {
		if owner != peer {
			continue
		}
		delete(m.writers, netID)
		if s, ok := m.syncs[netID]; ok && !s.owned {
			delete(m.syncs, netID)
		}
		released = append(released, netID)
	}
	slices.Sort(released)
	return released
}

// Writer reports the peer bound to netID.
func (m *Manager) Writer(netID uint32) (transport.PeerID, bool) {
	p, ok := m.writers[netID]
	return p, ok
}

func (m *Manager) Get(netID uint32) (*Sync, bool) {
	s, ok := m.syncs[netID]
	return s, ok
}

func (m *Manager) Len() int {
	return len(m.syncs)
}

func (m *Manager) sorted() []*Sync {
	out := make([]*Sync, 0, len(m.syncs))
	for _, s := range m.syncs {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Sync) int {
		switch {
		case a.netID < b.netID:
			return -1
		case a.netID > b.netID:
			return 1
		}
		return 0
	})
	return out
}

// Tick updates every sync by dt seconds and sends owned poses when the
// send period has elapsed.
func (m *Manager) Tick(dt float64) {
	syncs := m.sorted()
	for _, s := range syncs {
		s.Update(dt)
	}

	m.accum += dt
	if m.accum < m.period {
		return
	}
	m.accum -= m.period
	if m.accum >= m.period {
		m.accum = 0
	}

	if m.sender == nil {
		return
	}
	for _, s := range syncs {
		if !s.owned || !s.initialized || s.sector == nil {
			continue
		}
		m.sender.SendUnreliable(TransformType, &TransformMessage{
			NetID:    s.netID,
			SectorID: int32(s.sector.ObjectID()),
			Position: s.target.Position,
			Rotation: s.target.Rotation,
		})
	}
}

func (m *Manager) RegisterHandlers(h *dispatch.Handlers) error {
	return h.RegisterHandler(TransformType, m.onTransform)
}

func (m *Manager) onTransform(msg *dispatch.Message) {
	var tm TransformMessage
	if err := msg.ReadMessage(&tm); err != nil {
		m.logger.Warn("bad transform message", "error", err)
		return
	}
	if !m.registry.AllReady() {
		m.logger.Debug("transform dropped, world not ready", "net_id", tm.NetID)
		return
	}

	s, ok := m.syncs[tm.NetID]
	if ok && s.owned {
		return
	}
	if !m.claim(tm.NetID, msg.Conn) {
		m.logger.Warn("transform from second writer dropped", "net_id", tm.NetID, "peer", msg.Conn.PeerID())
		return
	}
	if !ok && m.spawn != nil {
		if s = m.spawn(tm.NetID); s != nil {
			m.syncs[tm.NetID] = s
			ok = true
		}
	}

	if ok {
		sector, err := world.Get[Sector](m.registry, int(tm.SectorID))
		if err != nil {
			m.logger.Warn("transform for unknown sector", "net_id", tm.NetID, "sector", tm.SectorID, "error", err)
			return
		}
		s.Apply(tm.State(), sector)
	}

	if m.relay != nil {
		m.relay(msg.Conn, &tm)
	}
}

// claim binds netID to the sending peer on first sight and reports whether
// from may write it. Messages without a connection are always accepted.
func (m *Manager) claim(netID uint32, from dispatch.Conn) bool {
	if from == nil {
		return true
	}
	peer := from.PeerID()
	if owner, ok := m.writers[netID]; ok {
		return owner == peer
	}
	m.writers[netID] = peer
	return true
}
