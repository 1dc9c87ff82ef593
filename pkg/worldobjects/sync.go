// Package worldobjects binds interactive world objects to the network.
package worldobjects

import (
	"errors"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/world"
)

// Outbox receives local state changes of world objects.
type Outbox interface {
	Authoritative() bool
	GeyserState(objectID int, active bool)
	OrbSlotState(objectID, orbID int, active bool)
	Conversation(objectID int, start bool)
}

// Sender is satisfied by a client, or by server.Broadcast.
type Sender interface {
	Send(t protocol.MsgType, msg protocol.Message) bool
}

// Sync is the Outbox of one peer and the handler set for inbound changes.
type Sync struct {
	registry  *world.Registry
	sender    Sender
	authority bool
	logger    axlog.Logger

	// Relay, when set, is called after an inbound change is applied.
	Relay func(from dispatch.Conn, t protocol.MsgType, msg protocol.Message)
}

// NewSync creates a Sync. authority is true on the peer that owns geyser
// state.
func NewSync(registry *world.Registry, sender Sender, authority bool, logger axlog.Logger) *Sync {
	return &Sync{
		registry:  registry,
		sender:    sender,
		authority: authority,
		logger:    axlog.OrDiscard(logger),
	}
}

func (s *Sync) Authoritative() bool {
	return s.authority
}

func (s *Sync) send(t protocol.MsgType, msg protocol.Message) {
	if s.sender == nil {
		return
	}
	if !s.sender.Send(t, msg) {
		s.logger.Warn("world object send failed", "type", t)
	}
}

func (s *Sync) GeyserState(objectID int, active bool) {
	s.send(GeyserStateType, &GeyserStateMessage{ObjectID: int32(objectID), Active: active})
}

func (s *Sync) OrbSlotState(objectID, orbID int, active bool) {
	s.send(OrbSlotStateType, &OrbSlotStateMessage{ObjectID: int32(objectID), OrbID: int32(orbID), Active: active})
}

func (s *Sync) Conversation(objectID int, start bool) {
	s.send(ConversationType, &ConversationMessage{ObjectID: int32(objectID), Start: start})
}

// ==================================================================
// Inbound
// ==================================================================

func (s *Sync) RegisterHandlers(h *dispatch.Handlers) error {
	return errors.Join(
		h.RegisterHandler(GeyserStateType, s.onGeyserState),
		h.RegisterHandler(OrbSlotStateType, s.onOrbSlotState),
		h.RegisterHandler(ConversationType, s.onConversation),
	)
}

// accept decodes msg into dst and reports whether it may be applied.
func (s *Sync) accept(msg *dispatch.Message, dst protocol.Message) bool {
	if err := msg.ReadMessage(dst); err != nil {
		s.logger.Warn("bad world object message", "type", msg.Type, "error", err)
		return false
	}
	if !s.registry.AllReady() {
		s.logger.Debug("world object message dropped, world not ready", "type", msg.Type)
		return false
	}
	return true
}

func (s *Sync) relay(msg *dispatch.Message, m protocol.Message) {
	if s.Relay != nil {
		s.Relay(msg.Conn, msg.Type, m)
	}
}

func (s *Sync) onGeyserState(msg *dispatch.Message) {
	var m GeyserStateMessage
	if !s.accept(msg, &m) {
		return
	}
	g, err := world.Get[*Geyser](s.registry, int(m.ObjectID))
	if err != nil {
		s.logger.Warn("geyser state for unknown object", "error", err)
		return
	}
	g.SetState(m.Active)
	s.relay(msg, &m)
}

func (s *Sync) onOrbSlotState(msg *dispatch.Message) {
	var m OrbSlotStateMessage
	if !s.accept(msg, &m) {
		return
	}
	slot, err := world.Get[*OrbSlot](s.registry, int(m.ObjectID))
	if err != nil {
		s.logger.Warn("orb slot state for unknown object", "error", err)
		return
	}
	slot.SetState(m.Active, int(m.OrbID))
	s.relay(msg, &m)
}

func (s *Sync) onConversation(msg *dispatch.Message) {
	var m ConversationMessage
	if !s.accept(msg, &m) {
		return
	}
	npc, err := world.Get[*NpcAnimController](s.registry, int(m.ObjectID))
	if err != nil {
		s.logger.Warn("conversation for unknown object", "error", err)
		return
	}
	if m.Start {
		npc.StartConversation()
	} else {
		npc.EndConversation()
	}
	s.relay(msg, &m)
}
