package client

import (
	"slices"
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/conn"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// Roster tracks the live clients of a process and owns their share of the
// transport subsystem. The first Connect activates it and the last
// Shutdown deactivates it.
type Roster struct {
	subsystem *transport.Subsystem
	logger    axlog.Logger

	mu      sync.Mutex
	clients []*Client
	active  bool
}

func NewRoster(subsystem *transport.Subsystem, logger axlog.Logger) *Roster {
	return &Roster{
		subsystem: subsystem,
		logger:    axlog.OrDiscard(logger),
	}
}

func (r *Roster) Subsystem() *transport.Subsystem {
	return r.subsystem
}

func (r *Roster) add(c *Client) {
	r.mu.Lock()
	r.clients = append(r.clients, c)
	r.mu.Unlock()
}

// remove drops c and deactivates the roster once it is empty.
func (r *Roster) remove(c *Client) bool {
	r.mu.Lock()
	i := slices.Index(r.clients, c)
	if i >= 0 {
		r.clients = slices.Delete(r.clients, i, i+1)
	}
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if empty {
		r.deactivate()
	}
	return i >= 0
}

func (r *Roster) activate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return
	}
	r.active = true
	r.subsystem.Acquire()
}

func (r *Roster) deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}
	r.active = false
	r.subsystem.Release()
	r.logger.Debug("client roster deactivated")
}

func (r *Roster) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Clients returns a snapshot of the live clients.
func (r *Roster) Clients() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.clients)
}

func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// UpdateAll ticks every client. Clients shut down by an earlier client's
// handler are skipped.
func (r *Roster) UpdateAll() {
	for _, c := range r.Clients() {
		c.Update()
	}
}

func (r *Roster) ShutdownAll() {
	for _, c := range r.Clients() {
		c.Shutdown()
	}
	r.deactivate()
}

// TotalConnectionStats merges the inbound packet statistics of every client.
func (r *Roster) TotalConnectionStats() []conn.PacketStat {
	merged := make(map[uint16]*conn.PacketStat)
	for _, c := range r.Clients() {
		for _, s := range c.ConnectionStats() {
			m, ok := merged[uint16(s.MsgType)]
			if !ok {
				m = &conn.PacketStat{MsgType: s.MsgType}
				merged[uint16(s.MsgType)] = m
			}
			m.Count += s.Count
			m.Bytes += s.Bytes
		}
	}

	stats := make([]conn.PacketStat, 0, len(merged))
	for _, s := range merged {
		stats = append(stats, *s)
	}
	slices.SortFunc(stats, func(a, b conn.PacketStat) int {
		return int(a.MsgType) - int(b.MsgType)
	})
	return stats
}
