package server

import (
	"slices"
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/conn"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// connectionManager is the roster of live connections keyed by peer.
type connectionManager struct {
	mu    sync.RWMutex
	conns map[transport.PeerID]*conn.Connection
}

func newConnectionManager() *connectionManager {
	return &connectionManager{conns: make(map[transport.PeerID]*conn.Connection)}
}

func (m *connectionManager) add(c *conn.Connection) {
	m.mu.Lock()
	m.conns[c.PeerID()] = c
	m.mu.Unlock()
}

func (m *connectionManager) get(peer transport.PeerID) *conn.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[peer]
}

func (m *connectionManager) remove(peer transport.PeerID) *conn.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.conns[peer]
	delete(m.conns, peer)
	return c
}

func (m *connectionManager) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

func (m *connectionManager) all() []*conn.Connection {
	m.mu.RLock()
	conns := make([]*conn.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	slices.SortFunc(conns, func(a, b *conn.Connection) int {
		return int(a.PeerID()) - int(b.PeerID())
	})
	return conns
}

// drain removes and returns every connection.
func (m *connectionManager) drain() []*conn.Connection {
	conns := m.all()
	m.mu.Lock()
	clear(m.conns)
	m.mu.Unlock()
	return conns
}
