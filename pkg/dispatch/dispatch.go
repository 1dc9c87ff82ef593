// Package dispatch routes decoded frames to handlers by message type.
package dispatch

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

var (
	ErrNilHandler       = errors.New("handler is nil")
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrReservedType     = errors.New("message type is reserved")
)

// Conn is the connection a message arrived on.
type Conn interface {
	PeerID() transport.PeerID
	Address() string
	Send(t protocol.MsgType, msg protocol.Message) bool
	SendUnreliable(t protocol.MsgType, msg protocol.Message) bool
}

// Message is valid only for the duration of the handler call.
type Message struct {
	Type    protocol.MsgType
	Conn    Conn
	Reader  *protocol.Reader
	Channel int
}

// ReadMessage decodes the payload into dst.
func (m *Message) ReadMessage(dst protocol.Message) error {
	return dst.Deserialize(m.Reader)
}

type HandlerFunc func(msg *Message)

// Handlers maps message types to exactly one handler each.
type Handlers struct {
	logger axlog.Logger

	mu       sync.RWMutex
	handlers map[protocol.MsgType]HandlerFunc
}

func New(logger axlog.Logger) *Handlers {
	return &Handlers{
		logger:   axlog.OrDiscard(logger),
		handlers: make(map[protocol.MsgType]HandlerFunc),
	}
}

func (h *Handlers) check(t protocol.MsgType, fn HandlerFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: type %s", ErrNilHandler, t)
	}
	if t.IsSystem() && !t.IsDefinedSystem() {
		return fmt.Errorf("%w: %s", ErrReservedType, t)
	}
	return nil
}

// RegisterHandler adds fn for t. An existing handler is kept and the
// attempt is logged and refused.
func (h *Handlers) RegisterHandler(t protocol.MsgType, fn HandlerFunc) error {
	if err := h.check(t, fn); err != nil {
		h.logger.Error("register handler failed", "type", t, "error", err)
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.handlers[t]; ok {
		err := fmt.Errorf("%w: %s", ErrDuplicateHandler, t)
		h.logger.Error("register handler failed", "type", t, "error", err)
		return err
	}
	h.handlers[t] = fn
	return nil
}

// RegisterHandlerSafe adds or replaces the handler for t.
func (h *Handlers) RegisterHandlerSafe(t protocol.MsgType, fn HandlerFunc) error {
	if err := h.check(t, fn); err != nil {
		h.logger.Error("register handler failed", "type", t, "error", err)
		return err
	}

	h.mu.Lock()
	h.handlers[t] = fn
	h.mu.Unlock()
	return nil
}

func (h *Handlers) UnregisterHandler(t protocol.MsgType) {
	h.mu.Lock()
	delete(h.handlers, t)
	h.mu.Unlock()
}

// Handler returns the handler for t or nil.
func (h *Handlers) Handler(t protocol.MsgType) HandlerFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handlers[t]
}

func (h *Handlers) Has(t protocol.MsgType) bool {
	return h.Handler(t) != nil
}

// Types lists the registered types in ascending order.
func (h *Handlers) Types() []protocol.MsgType {
	h.mu.RLock()
	types := make([]protocol.MsgType, 0, len(h.handlers))
	for t := range h.handlers {
		types = append(types, t)
	}
	h.mu.RUnlock()

	slices.Sort(types)
	return types
}

// Dispatch runs the handler for msg.Type synchronously. It reports false
// when no handler is registered. A panicking handler is logged.
func (h *Handlers) Dispatch(msg *Message) (handled bool) {
	fn := h.Handler(msg.Type)
	if fn == nil {
		h.logger.Error("unknown message type", "type", msg.Type)
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("message handler panicked", "type", msg.Type, "error", rec)
		}
	}()

	handled = true
	fn(msg)
	return
}
