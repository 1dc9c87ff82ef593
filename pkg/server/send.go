package server

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/conn"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// SendTo sends msg reliably to one peer.
func (s *Server) SendTo(peer transport.PeerID, t protocol.MsgType, msg protocol.Message) bool {
	c := s.target(peer, t)
	return c != nil && c.Send(t, msg)
}

func (s *Server) SendUnreliableTo(peer transport.PeerID, t protocol.MsgType, msg protocol.Message) bool {
	c := s.target(peer, t)
	return c != nil && c.SendUnreliable(t, msg)
}

func (s *Server) target(peer transport.PeerID, t protocol.MsgType) *conn.Connection {
	if !s.Active() {
		s.logger.Error("send failed", "peer", peer, "type", t, "error", ErrServerNotRunning)
		return nil
	}
	c := s.conns.get(peer)
	if c == nil {
		s.logger.Error("send failed", "peer", peer, "type", t, "error", ErrUnknownPeer)
	}
	return c
}

// SendToAll reports whether every connection accepted msg.
func (s *Server) SendToAll(t protocol.MsgType, msg protocol.Message) bool {
	ok := true
	for _, c := range s.conns.all() {
		ok = c.Send(t, msg) && ok
	}
	return ok
}

func (s *Server) SendUnreliableToAll(t protocol.MsgType, msg protocol.Message) bool {
	ok := true
	for _, c := range s.conns.all() {
		ok = c.SendUnreliable(t, msg) && ok
	}
	return ok
}

func (s *Server) SendByChannelToAll(t protocol.MsgType, msg protocol.Message, channel int) bool {
	ok := true
	for _, c := range s.conns.all() {
		ok = c.SendByChannel(t, msg, channel) && ok
	}
	return ok
}

// SendToSubset sends msg on channel to the listed peers only.
func (s *Server) SendToSubset(peers []transport.PeerID, t protocol.MsgType, msg protocol.Message, channel int) bool {
	ok := true
	for _, p := range peers {
		c := s.conns.get(p)
		if c == nil {
			s.logger.Warn("subset send skipped unknown peer", "peer", p, "type", t)
			ok = false
			continue
		}
		ok = c.SendByChannel(t, msg, channel) && ok
	}
	return ok
}

// SendToAllExcept sends msg on channel to every peer but one, typically
// the peer the message came from.
func (s *Server) SendToAllExcept(except transport.PeerID, t protocol.MsgType, msg protocol.Message, channel int) bool {
	ok := true
	for _, c := range s.conns.all() {
		if c.PeerID() == except {
			continue
		}
		ok = c.SendByChannel(t, msg, channel) && ok
	}
	return ok
}

// Broadcast adapts the server to a send-to-everyone sender.
type Broadcast struct {
	s *Server
}

func (s *Server) Broadcast() Broadcast {
	return Broadcast{s: s}
}

func (b Broadcast) Send(t protocol.MsgType, msg protocol.Message) bool {
	return b.s.SendToAll(t, msg)
}

func (b Broadcast) SendUnreliable(t protocol.MsgType, msg protocol.Message) bool {
	return b.s.SendUnreliableToAll(t, msg)
}
