package conn

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
)

// Send frames msg on the first reliable channel.
func (c *Connection) Send(t protocol.MsgType, msg protocol.Message) bool {
	return c.SendByChannel(t, msg, c.reliable)
}

// SendUnreliable frames msg on the first unreliable channel, or the
// reliable one when the topology has none.
func (c *Connection) SendUnreliable(t protocol.MsgType, msg protocol.Message) bool {
	return c.SendByChannel(t, msg, c.unreliable)
}

func (c *Connection) SendByChannel(t protocol.MsgType, msg protocol.Message, channel int) bool {
	if !c.canSend(t) {
		return false
	}

	c.writer.Reset()
	c.writer.StartMessage(t)
	if msg != nil {
		msg.Serialize(c.writer)
	}
	c.writer.FinishMessage()
	if err := c.writer.Err(); err != nil {
		c.logger.Error("serialize message failed", "conn", c.id, "type", t, "error", err)
		return false
	}

	if !c.sendBytes(c.writer.Bytes(), channel) {
		return false
	}
	recordOut(t, c.writer.Len())
	return true
}

// SendWriter sends the frames already built in w.
func (c *Connection) SendWriter(w *protocol.Writer, channel int) bool {
	if !c.canSend(0) {
		return false
	}
	if err := w.Err(); err != nil {
		c.logger.Error("send writer failed", "conn", c.id, "error", err)
		return false
	}
	return c.sendBytes(w.Bytes(), channel)
}

// SendBytes sends the first n bytes of b, which must hold whole frames.
func (c *Connection) SendBytes(b []byte, n int, channel int) bool {
	if !c.canSend(0) {
		return false
	}
	if n < 0 || n > len(b) {
		c.logger.Error("send bytes failed, length out of range", "conn", c.id, "length", n, "buffer", len(b))
		return false
	}
	return c.sendBytes(b[:n], channel)
}

func (c *Connection) canSend(t protocol.MsgType) bool {
	if c.state != Connected {
		c.logger.Error("send failed, not connected", "conn", c.id, "type", t, "state", c.state)
		return false
	}
	return true
}

func (c *Connection) sendBytes(b []byte, channel int) bool {
	if channel < 0 || channel >= len(c.channels) {
		c.logger.Error("send failed, invalid channel", "conn", c.id, "channel", channel)
		return false
	}
	return c.channels[channel].send(c, b)
}

// FlushChannels sends every partially filled packet whose max delay has
// elapsed and retries pending reliable packets.
func (c *Connection) FlushChannels() {
	if c.state != Connected {
		return
	}
	now := c.now()
	for _, ch := range c.channels {
		ch.tick(now)
		if c.maxDelay == 0 || now.Sub(ch.lastFlush) >= c.maxDelay {
			ch.flush(c, now)
		}
	}
}
