package transport

import (
	"context"
	"net"
)

// Packet is one unit read from a link. Data belongs to the caller.
type Packet struct {
	Channel byte
	Data    []byte
}

// Link is a connected peer as seen by a driver.
//
// Send must be safe for concurrent use. Receive is called from a single
// goroutine and must return a *CloseError carrying the remote close code
// when the peer closes the link. Close is idempotent.
type Link interface {
	Send(channel byte, qos QoS, p []byte) error
	Receive(ctx context.Context) (Packet, error)
	Close(code NetworkError, reason string) error
	RemoteAddr() net.Addr
}

type Listener interface {
	Accept(ctx context.Context) (Link, error)
	Close() error
	Addr() net.Addr
}

// Driver creates links over a concrete network protocol.
type Driver interface {
	Listen(ctx context.Context, addr string) (Listener, error)
	Dial(ctx context.Context, addr string) (Link, error)
}
