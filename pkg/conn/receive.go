package conn

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// TransportReceive decodes every frame in the first n bytes of buf and
// dispatches it. Unknown types are logged and skipped.
func (c *Connection) TransportReceive(buf []byte, n int, channel int) {
	if n > len(buf) {
		n = len(buf)
	}

	err := protocol.ReadFrames(buf[:n], func(f protocol.Frame) bool {
		size := len(f.Payload) + protocol.HeaderSize
		c.in.Messages++
		c.in.Bytes += size

		stat, ok := c.packetStats[f.Type]
		if !ok {
			stat = &PacketStat{MsgType: f.Type}
			c.packetStats[f.Type] = stat
		}
		stat.Count++
		stat.Bytes += size
		recordIn(f.Type, size)

		c.handlers.Dispatch(&dispatch.Message{
			Type:    f.Type,
			Conn:    c,
			Reader:  protocol.NewReader(f.Payload),
			Channel: channel,
		})
		return true
	})
	if err != nil {
		c.lastErr = transport.BadMessage
		c.logger.Error("malformed packet", "conn", c.id, "channel", channel, "error", err)
	}
}

// InvokeHandlerNoData calls the handler for t with an empty payload.
func (c *Connection) InvokeHandlerNoData(t protocol.MsgType) bool {
	return c.InvokeHandler(t, protocol.NewReader(nil), 0)
}

// InvokeHandler calls the handler for t with r as payload. It reports
// false when no handler is registered.
func (c *Connection) InvokeHandler(t protocol.MsgType, r *protocol.Reader, channel int) bool {
	if !c.handlers.Has(t) {
		return false
	}
	return c.handlers.Dispatch(&dispatch.Message{Type: t, Conn: c, Reader: r, Channel: channel})
}
