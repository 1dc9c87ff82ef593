package client

import (
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// Update advances the connect state machine and drains at most
// MaxEventsPerTick transport events. It must be called from the tick
// goroutine.
func (c *Client) Update() {
	if c.hostID == transport.InvalidHost {
		return
	}

	c.pollResolution()

	switch c.state {
	case None, Resolving, Disconnected:
		return
	case Failed:
		c.GenerateConnectError(transport.DNSFailure)
		c.state = Disconnected
		c.endSpan(transport.DNSFailure)
		return
	case Resolved:
		c.state = Connecting
		c.continueConnect()
		if c.state != Connecting {
			return
		}
	}

	if c.conn != nil {
		if sec := c.now().Unix(); sec != c.statResetTime {
			c.conn.ResetStats()
			c.statResetTime = sec
		}
	}

	if !c.poll() {
		return
	}

	if c.conn != nil && c.state == Connected {
		c.conn.FlushChannels()
	}
}

// poll handles queued events. It returns false when processing for this
// tick must stop without flushing.
func (c *Client) poll() bool {
	limit := c.topology.MaxEventsPerTick

	for n := 0; ; n++ {
		if n >= limit {
			c.logger.Info("max events per tick hit", "max", limit)
			return true
		}

		ev := c.subsystem.Receive(c.hostID)
		if ev.Type == transport.Nothing {
			return true
		}
		if c.conn == nil {
			c.logger.Warn("event without connection", "type", ev.Type, "peer", ev.Peer)
			continue
		}
		c.conn.SetLastError(ev.Err)

		switch ev.Type {
		case transport.Connect:
			if ev.Err != transport.Ok {
				c.logger.Error("connect failed", "address", c.conn.Address(), "code", ev.Err)
				c.GenerateConnectError(ev.Err)
				c.endSpan(ev.Err)
				return false
			}
			c.logger.Info("client connected", "address", c.conn.Address(), "conn", c.conn.ID())
			c.state = Connected
			c.conn.MarkConnected()
			c.endSpan(transport.Ok)
			c.conn.InvokeHandlerNoData(protocol.Connect)

		case transport.Data:
			if ev.Err != transport.Ok {
				c.GenerateDataError(ev.Err)
				return false
			}
			c.conn.TransportReceive(ev.Data, len(ev.Data), ev.Channel)

		case transport.Disconnect:
			c.logger.Info("client disconnected", "address", c.conn.Address(), "code", ev.Err)
			c.state = Disconnected
			if !ev.Err.Ordinary() {
				c.GenerateDisconnectError(ev.Err)
			}
			c.conn.InvokeHandlerNoData(protocol.Disconnect)
			if c.conn != nil {
				c.conn.Disconnect()
			}
		}

		// A handler may have shut the client down.
		if c.hostID == transport.InvalidHost {
			return false
		}
	}
}
