// Package client implements the client role: one connection to a server
// host driven by a per-tick Update, with asynchronous address resolution.
package client

import (
	"errors"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/conn"
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/handshake"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"go.opentelemetry.io/otel/trace"
)

// ErrPortRange is returned for ports outside 0..65535.
var ErrPortRange = transport.ErrInvalidPort

var ErrAlreadyStarted = errors.New("client already has an active host")

// ConnectState is the position in the connect state machine.
type ConnectState uint8

const (
	None ConnectState = iota
	Resolving
	Resolved
	Connecting
	Connected
	Disconnected
	Failed
)

func (s ConnectState) String() string {
	switch s {
	case None:
		return "None"
	case Resolving:
		return "Resolving"
	case Resolved:
		return "Resolved"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case Failed:
		return "Failed"
	}
	return "Unknown"
}

type Options struct {
	Logger axlog.Logger
	// Resolver defaults to net.DefaultResolver.
	Resolver Resolver
	// Clock defaults to time.Now.
	Clock func() time.Time
	// HostPort is the local bind port; 0 dials from an ephemeral port.
	HostPort int
	// Handshake, when set, validates the server's CRC message.
	Handshake *handshake.Registry
}

type Client struct {
	roster    *Roster
	subsystem *transport.Subsystem
	handlers  *dispatch.Handlers
	logger    axlog.Logger
	resolver  Resolver
	now       func() time.Time
	crc       *handshake.Registry

	hostID     transport.HostID
	hostPort   int
	topology   transport.Topology
	configured bool
	maxDelay   time.Duration

	state      ConnectState
	serverAddr string
	serverIP   string
	serverPort int
	conn       *conn.Connection

	epoch         uint64
	pending       <-chan resolution
	cancelResolve func()

	statResetTime int64
	span          trace.Span
}

// New creates a client and adds it to the roster.
func New(roster *Roster, opts Options) *Client {
	logger := axlog.OrDiscard(opts.Logger)
	c := &Client{
		roster:    roster,
		subsystem: roster.Subsystem(),
		handlers:  dispatch.New(logger),
		logger:    logger,
		resolver:  opts.Resolver,
		now:       opts.Clock,
		crc:       opts.Handshake,
		hostID:    transport.InvalidHost,
		hostPort:  opts.HostPort,
		topology:  transport.DefaultTopology(),
	}
	if c.resolver == nil {
		c.resolver = defaultResolver
	}
	if c.now == nil {
		c.now = time.Now
	}
	roster.add(c)
	return c
}

// Configure sets the host topology used by the next Connect.
func (c *Client) Configure(topology transport.Topology) error {
	if c.hostID != transport.InvalidHost {
		return ErrAlreadyStarted
	}
	topology = topology.Normalize()
	if err := topology.Validate(); err != nil {
		return err
	}
	c.topology = topology
	c.configured = true
	return nil
}

func (c *Client) SetHostPort(port int) error {
	if err := transport.ValidatePort(port); err != nil {
		return err
	}
	c.hostPort = port
	return nil
}

// SetMaxDelay sets how long partially filled packets may wait.
func (c *Client) SetMaxDelay(d time.Duration) {
	c.maxDelay = d
	if c.conn != nil {
		c.conn.SetMaxDelay(d)
	}
}

// ==================================================================
// Handlers
// ==================================================================

func (c *Client) Handlers() *dispatch.Handlers {
	return c.handlers
}

func (c *Client) RegisterHandler(t protocol.MsgType, fn dispatch.HandlerFunc) error {
	return c.handlers.RegisterHandler(t, fn)
}

func (c *Client) RegisterHandlerSafe(t protocol.MsgType, fn dispatch.HandlerFunc) error {
	return c.handlers.RegisterHandlerSafe(t, fn)
}

func (c *Client) UnregisterHandler(t protocol.MsgType) {
	c.handlers.UnregisterHandler(t)
}

func (c *Client) registerSystemHandlers() {
	c.handlers.RegisterHandlerSafe(protocol.CRC, c.onCRC)
}

func (c *Client) onCRC(msg *dispatch.Message) {
	var crc protocol.CRCMessage
	if err := msg.ReadMessage(&crc); err != nil {
		c.logger.Error("malformed CRC message", "error", err)
		return
	}
	if c.crc == nil {
		c.logger.Debug("received CRC message", "scripts", len(crc.Scripts))
		return
	}
	if err := c.crc.Validate(crc.Scripts, len(c.topology.Channels)); err != nil {
		c.logger.Error("script CRC check failed", "error", err)
	}
}

// ==================================================================
// Accessors
// ==================================================================

func (c *Client) State() ConnectState { return c.state }
func (c *Client) IsConnected() bool   { return c.state == Connected }
func (c *Client) ServerIP() string    { return c.serverIP }
func (c *Client) ServerPort() int     { return c.serverPort }

// ServerAddress is the address passed to Connect.
func (c *Client) ServerAddress() string {
	return c.serverAddr
}

// Connection is nil before the transport connect starts.
func (c *Client) Connection() *conn.Connection {
	return c.conn
}

func (c *Client) HostID() transport.HostID {
	return c.hostID
}

func (c *Client) RTT() time.Duration {
	if c.conn == nil {
		return 0
	}
	return c.conn.RTT()
}

func (c *Client) StatsOut() conn.OutStats {
	if c.conn == nil {
		return conn.OutStats{}
	}
	return c.conn.StatsOut()
}

func (c *Client) StatsIn() conn.InStats {
	if c.conn == nil {
		return conn.InStats{}
	}
	return c.conn.StatsIn()
}

func (c *Client) ConnectionStats() []conn.PacketStat {
	if c.conn == nil {
		return nil
	}
	return c.conn.PacketStats()
}

func (c *Client) ResetConnectionStats() {
	if c.conn != nil {
		c.conn.ResetStats()
	}
}
