// Package server implements the server role: a listening host that owns one
// connection per accepted peer and shares a single handler set between them.
package server

import (
	"fmt"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/conn"
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/handshake"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

type Options struct {
	Logger axlog.Logger
	// Topology defaults to transport.DefaultTopology when it has no channels.
	Topology transport.Topology
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Handshake, when set, is sent to every peer as a CRC message on connect.
	Handshake *handshake.Registry
}

type Server struct {
	subsystem *transport.Subsystem
	handlers  *dispatch.Handlers
	logger    axlog.Logger
	now       func() time.Time
	crc       *handshake.Registry
	topology  transport.Topology

	hostID   transport.HostID
	port     int
	acquired bool
	maxDelay time.Duration

	conns         *connectionManager
	statResetTime int64
}

func New(subsystem *transport.Subsystem, opts Options) *Server {
	logger := axlog.OrDiscard(opts.Logger)

	topology := opts.Topology
	if len(topology.Channels) == 0 {
		topology = transport.DefaultTopology()
	}

	s := &Server{
		subsystem: subsystem,
		handlers:  dispatch.New(logger),
		logger:    logger,
		now:       opts.Clock,
		crc:       opts.Handshake,
		topology:  topology.Normalize(),
		hostID:    transport.InvalidHost,
		conns:     newConnectionManager(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ==================================================================
// Lifecycle
// ==================================================================

// Listen activates the subsystem and opens a host on port.
func (s *Server) Listen(port int) error {
	if err := transport.ValidatePort(port); err != nil {
		return err
	}
	if port == 0 {
		return fmt.Errorf("%w: server needs a fixed port", transport.ErrInvalidPort)
	}
	if err := s.topology.Validate(); err != nil {
		return err
	}
	if s.hostID != transport.InvalidHost {
		return ErrAlreadyStarted
	}

	s.subsystem.Acquire()
	id, err := s.subsystem.AddHost(s.topology, port)
	if err != nil {
		s.subsystem.Release()
		s.logger.Error("server listen failed", "port", port, "error", err)
		return err
	}

	s.acquired = true
	s.hostID = id
	s.port = port
	s.logger.Info("server listening", "port", port, "host", id, "channels", len(s.topology.Channels))
	return nil
}

// Shutdown disconnects every peer, removes the host and releases the
// subsystem. Calling it again has no effect.
func (s *Server) Shutdown() {
	if s.hostID == transport.InvalidHost && !s.acquired {
		return
	}

	for _, c := range s.conns.drain() {
		c.Disconnect()
	}
	if s.hostID != transport.InvalidHost {
		if err := s.subsystem.RemoveHost(s.hostID); err != nil {
			s.logger.Debug("remove host", "host", s.hostID, "error", err)
		}
		s.hostID = transport.InvalidHost
	}
	if s.acquired {
		s.acquired = false
		s.subsystem.Release()
	}
	s.logger.Info("server shut down", "port", s.port)
}

func (s *Server) Active() bool {
	return s.hostID != transport.InvalidHost
}

// SetMaxDelay applies to existing and future connections.
func (s *Server) SetMaxDelay(d time.Duration) {
	s.maxDelay = d
	for _, c := range s.conns.all() {
		c.SetMaxDelay(d)
	}
}

// ==================================================================
// Handlers
// ==================================================================

func (s *Server) Handlers() *dispatch.Handlers {
	return s.handlers
}

func (s *Server) RegisterHandler(t protocol.MsgType, fn dispatch.HandlerFunc) error {
	return s.handlers.RegisterHandler(t, fn)
}

func (s *Server) RegisterHandlerSafe(t protocol.MsgType, fn dispatch.HandlerFunc) error {
	return s.handlers.RegisterHandlerSafe(t, fn)
}

func (s *Server) UnregisterHandler(t protocol.MsgType) {
	s.handlers.UnregisterHandler(t)
}

// ==================================================================
// Connections
// ==================================================================

// Connection returns the connection of peer or nil.
func (s *Server) Connection(peer transport.PeerID) *conn.Connection {
	return s.conns.get(peer)
}

// Connections returns the live connections ordered by peer.
func (s *Server) Connections() []*conn.Connection {
	return s.conns.all()
}

func (s *Server) NumConnections() int {
	return s.conns.len()
}

// Disconnect closes the connection of peer. No Disconnect notification is
// raised for a local disconnect.
func (s *Server) Disconnect(peer transport.PeerID) error {
	if !s.Active() {
		return ErrServerNotRunning
	}
	c := s.conns.remove(peer)
	if c == nil {
		return ErrUnknownPeer
	}
	c.Disconnect()
	return nil
}

// ==================================================================
// Tick
// ==================================================================

// Update drains at most MaxEventsPerTick events and flushes every
// connection. It must be called from the tick goroutine.
func (s *Server) Update() {
	if s.hostID == transport.InvalidHost {
		return
	}

	if sec := s.now().Unix(); sec != s.statResetTime {
		for _, c := range s.conns.all() {
			c.ResetStats()
		}
		s.statResetTime = sec
	}

	limit := s.topology.MaxEventsPerTick
	for n := 0; ; n++ {
		if n >= limit {
			s.logger.Info("max events per tick hit", "max", limit)
			break
		}

		ev := s.subsystem.Receive(s.hostID)
		if ev.Type == transport.Nothing {
			break
		}
		s.handleEvent(ev)

		if s.hostID == transport.InvalidHost {
			return
		}
	}

	for _, c := range s.conns.all() {
		c.FlushChannels()
	}
}

func (s *Server) handleEvent(ev transport.Event) {
	switch ev.Type {
	case transport.Connect:
		if ev.Err != transport.Ok {
			s.logger.Error("peer connect failed", "peer", ev.Peer, "code", ev.Err)
			s.generateError(nil, ev.Err)
			return
		}
		s.accept(ev.Peer)

	case transport.Data:
		c := s.conns.get(ev.Peer)
		if c == nil {
			s.logger.Warn("data for unknown peer", "peer", ev.Peer)
			return
		}
		c.SetLastError(ev.Err)
		if ev.Err != transport.Ok {
			s.logger.Error("data error", "peer", ev.Peer, "code", ev.Err)
			s.generateError(c, ev.Err)
			return
		}
		c.TransportReceive(ev.Data, len(ev.Data), ev.Channel)

	case transport.Disconnect:
		c := s.conns.remove(ev.Peer)
		if c == nil {
			return
		}
		c.SetLastError(ev.Err)
		s.logger.Info("peer disconnected", "peer", ev.Peer, "conn", c.ID(), "code", ev.Err)
		if !ev.Err.Ordinary() {
			s.generateError(c, ev.Err)
		}
		c.InvokeHandlerNoData(protocol.Disconnect)
		c.Disconnect()
	}
}

func (s *Server) accept(peer transport.PeerID) {
	c := conn.New(s.subsystem, s.handlers, s.logger)
	c.SetMaxDelay(s.maxDelay)
	c.Initialize(s.subsystem.PeerAddr(s.hostID, peer), s.hostID, peer, s.topology)
	c.MarkConnected()
	s.conns.add(c)

	s.logger.Info("peer connected", "peer", peer, "conn", c.ID(), "address", c.Address())

	if s.crc != nil {
		c.Send(protocol.CRC, s.crc.Message())
	}
	c.InvokeHandlerNoData(protocol.Connect)
}

// generateError hands code to the Error handler, or only logs without one.
func (s *Server) generateError(c *conn.Connection, code transport.NetworkError) {
	if !s.handlers.Has(protocol.Error) {
		return
	}

	w := protocol.NewWriter()
	(&protocol.ErrorMessage{Code: uint16(code)}).Serialize(w)

	msg := &dispatch.Message{Type: protocol.Error, Reader: protocol.NewReader(w.Bytes())}
	if c != nil {
		msg.Conn = c
	}
	s.handlers.Dispatch(msg)
}
