// Package conn implements the per-peer connection: channel buffers, framed
// sends, receive decoding into the dispatcher and traffic statistics.
package conn

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

type State uint8

const (
	Connecting State = iota
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	}
	return "Unknown"
}

// Transport is the part of transport.Subsystem a connection needs.
type Transport interface {
	Send(host transport.HostID, peer transport.PeerID, channel int, b []byte) error
	Disconnect(host transport.HostID, peer transport.PeerID) error
	RTT(host transport.HostID, peer transport.PeerID) time.Duration
}

// PacketStat counts inbound frames of one message type.
type PacketStat struct {
	MsgType protocol.MsgType
	Count   int
	Bytes   int
}

type InStats struct {
	Messages int
	Bytes    int
}

type OutStats struct {
	Messages              int
	BufferedMessages      int
	Bytes                 int
	LastBufferedPerSecond int
}

// Connection is one peer as seen from a host. It is driven by a single
// tick goroutine and is not safe for concurrent use.
type Connection struct {
	id        uuid.UUID
	transport Transport
	handlers  *dispatch.Handlers
	logger    axlog.Logger
	now       func() time.Time

	address  string
	host     transport.HostID
	peer     transport.PeerID
	state    State
	lastErr  transport.NetworkError
	topology transport.Topology

	channels   []*channelBuffer
	reliable   int
	unreliable int
	maxDelay   time.Duration
	writer     *protocol.Writer

	in          InStats
	packetStats map[protocol.MsgType]*PacketStat
}

func New(t Transport, handlers *dispatch.Handlers, logger axlog.Logger) *Connection {
	id := uuid.New()
	return &Connection{
		id:          id,
		transport:   t,
		handlers:    handlers,
		logger:      axlog.OrDiscard(logger),
		now:         time.Now,
		host:        transport.InvalidHost,
		state:       Disconnected,
		writer:      protocol.NewWriter(),
		packetStats: make(map[protocol.MsgType]*PacketStat),
	}
}

// Initialize binds the connection to a host peer and allocates one buffer
// per channel. The connection starts in Connecting.
func (c *Connection) Initialize(address string, host transport.HostID, peer transport.PeerID, topology transport.Topology) {
	c.address = address
	c.host = host
	c.peer = peer
	c.topology = topology.Normalize()
	c.state = Connecting

	c.channels = make([]*channelBuffer, len(c.topology.Channels))
	for i, q := range c.topology.Channels {
		c.channels[i] = newChannelBuffer(i, q, c.topology.MaxPacketSize, c.now())
	}

	c.reliable, _ = c.topology.FirstChannel(transport.ReliableSequenced)
	if ch, ok := c.topology.FirstChannel(transport.Unreliable); ok {
		c.unreliable = ch
	} else {
		c.unreliable = c.reliable
	}

	c.logger.Debug("connection initialized", "conn", c.id, "address", address, "host", host, "peer", peer)
}

func (c *Connection) MarkConnected() {
	if c.state == Connecting {
		c.state = Connected
	}
}

// Disconnect releases the transport peer and drops queued output. It is
// safe to call more than once.
func (c *Connection) Disconnect() {
	if c.state == Disconnected {
		return
	}
	c.state = Disconnected
	for _, ch := range c.channels {
		ch.reset()
	}

	if err := c.transport.Disconnect(c.host, c.peer); err != nil {
		c.logger.Debug("transport disconnect", "conn", c.id, "error", err)
	}
}

// ==================================================================
// Accessors
// ==================================================================

func (c *Connection) ID() string                   { return c.id.String() }
func (c *Connection) Address() string              { return c.address }
func (c *Connection) HostID() transport.HostID     { return c.host }
func (c *Connection) PeerID() transport.PeerID     { return c.peer }
func (c *Connection) State() State                 { return c.state }
func (c *Connection) IsConnected() bool            { return c.state == Connected }
func (c *Connection) Topology() transport.Topology { return c.topology }

func (c *Connection) LastError() transport.NetworkError {
	return c.lastErr
}

func (c *Connection) SetLastError(err transport.NetworkError) {
	c.lastErr = err
}

// SetMaxDelay sets how long a partially filled packet may wait before
// FlushChannels sends it. Zero sends on every flush.
func (c *Connection) SetMaxDelay(d time.Duration) {
	c.maxDelay = d
}

func (c *Connection) RTT() time.Duration {
	if c.state == Disconnected {
		return 0
	}
	return c.transport.RTT(c.host, c.peer)
}

// ==================================================================
// Statistics
// ==================================================================

func (c *Connection) StatsIn() InStats {
	return c.in
}

func (c *Connection) StatsOut() OutStats {
	var s OutStats
	for _, ch := range c.channels {
		s.Messages += ch.numMsgsOut
		s.BufferedMessages += ch.numBufferedMsgsOut
		s.Bytes += ch.numBytesOut
		s.LastBufferedPerSecond += ch.lastBufferedPerSecond
	}
	return s
}

// PacketStats returns inbound statistics ordered by message type.
func (c *Connection) PacketStats() []PacketStat {
	stats := make([]PacketStat, 0, len(c.packetStats))
	for _, s := range c.packetStats {
		stats = append(stats, *s)
	}
	slices.SortFunc(stats, func(a, b PacketStat) int {
		return int(a.MsgType) - int(b.MsgType)
	})
	return stats
}

func (c *Connection) ResetStats() {
	c.in = InStats{}
	clear(c.packetStats)
	for _, ch := range c.channels {
		ch.resetStats()
	}
}
