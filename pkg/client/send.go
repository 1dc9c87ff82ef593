package client

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
)

func (c *Client) ready(op string) bool {
	if c.conn == nil || c.state != Connected {
		c.logger.Error(op+" failed, client not connected", "state", c.state)
		return false
	}
	return true
}

func (c *Client) Send(t protocol.MsgType, msg protocol.Message) bool {
	return c.ready("send") && c.conn.Send(t, msg)
}

func (c *Client) SendUnreliable(t protocol.MsgType, msg protocol.Message) bool {
	return c.ready("send unreliable") && c.conn.SendUnreliable(t, msg)
}

func (c *Client) SendByChannel(t protocol.MsgType, msg protocol.Message, channel int) bool {
	return c.ready("send by channel") && c.conn.SendByChannel(t, msg, channel)
}

func (c *Client) SendWriter(w *protocol.Writer, channel int) bool {
	return c.ready("send writer") && c.conn.SendWriter(w, channel)
}

func (c *Client) SendBytes(b []byte, n int, channel int) bool {
	return c.ready("send bytes") && c.conn.SendBytes(b, n, channel)
}
