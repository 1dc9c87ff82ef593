package client

import (
	"context"
	"net"
	"strconv"

	"github.com/isrecalpear/quantum-space-buddies/pkg/conn"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/isrecalpear/quantum-space-buddies/pkg/client")

// Connect starts connecting to address:port. Loopback names and IPv6
// literals are used as is; any other name is resolved asynchronously and
// the attempt continues in Update.
func (c *Client) Connect(address string, port int) error {
	if err := transport.ValidatePort(port); err != nil {
		return err
	}
	if c.hostID != transport.InvalidHost {
		return ErrAlreadyStarted
	}
	if err := c.prepareForConnect(); err != nil {
		return err
	}

	c.serverAddr = address
	c.serverPort = port
	c.startSpan()

	switch {
	case isLoopback(address):
		c.serverIP = "127.0.0.1"
		c.state = Resolved
	case isIPv6Literal(address):
		c.serverIP = address
		c.state = Resolved
	default:
		c.state = Resolving
		c.startResolve(address)
	}

	c.logger.Debug("client connecting", "address", address, "port", port, "state", c.state)
	return nil
}

func (c *Client) prepareForConnect() error {
	c.roster.activate()
	c.registerSystemHandlers()

	if !c.configured {
		c.topology = transport.DefaultTopology()
	}

	id, err := c.subsystem.AddHost(c.topology, c.hostPort)
	if err != nil {
		c.logger.Error("client host setup failed", "port", c.hostPort, "error", err)
		return err
	}
	c.hostID = id
	return nil
}

// continueConnect starts the transport connect once the address is known.
func (c *Client) continueConnect() {
	peer, err := c.subsystem.Connect(c.hostID, c.serverIP, c.serverPort)
	if err != nil {
		code := transport.ErrorCode(err)
		c.logger.Error("transport connect failed", "address", c.serverIP, "port", c.serverPort, "error", err)
		c.GenerateConnectError(code)
		c.state = Disconnected
		return
	}

	c.conn = conn.New(c.subsystem, c.handlers, c.logger)
	c.conn.SetMaxDelay(c.maxDelay)
	c.conn.Initialize(net.JoinHostPort(c.serverIP, strconv.Itoa(c.serverPort)), c.hostID, peer, c.topology)
}

// Disconnect closes the connection and removes the host.
func (c *Client) Disconnect() {
	c.state = Disconnected
	c.cancelPending()
	c.endSpan(transport.Ok)

	if c.conn != nil {
		c.conn.Disconnect()
		c.conn = nil
	}
	if c.hostID != transport.InvalidHost {
		if err := c.subsystem.RemoveHost(c.hostID); err != nil {
			c.logger.Debug("remove host", "host", c.hostID, "error", err)
		}
		c.hostID = transport.InvalidHost
	}
}

// Shutdown removes the host and takes the client off the roster. The last
// client to shut down deactivates the transport subsystem. Late resolution
// results are ignored. Calling Shutdown again has no effect.
func (c *Client) Shutdown() {
	c.cancelPending()
	c.endSpan(transport.Ok)

	if c.conn != nil {
		c.conn.Disconnect()
	}
	if c.hostID != transport.InvalidHost {
		c.logger.Debug("shutting down client", "host", c.hostID)
		if err := c.subsystem.RemoveHost(c.hostID); err != nil {
			c.logger.Debug("remove host", "host", c.hostID, "error", err)
		}
		c.hostID = transport.InvalidHost
	}
	if c.state != None {
		c.state = Disconnected
	}

	c.roster.remove(c)
}

func (c *Client) startSpan() {
	c.endSpan(transport.Ok)
	_, c.span = tracer.Start(context.Background(), "qsb.client.connect",
		trace.WithAttributes(
			attribute.String("server.address", c.serverAddr),
			attribute.Int("server.port", c.serverPort),
		))
}

func (c *Client) endSpan(code transport.NetworkError) {
	if c.span == nil {
		return
	}
	if code != transport.Ok {
		c.span.SetStatus(codes.Error, code.String())
	}
	c.span.End()
	c.span = nil
}
