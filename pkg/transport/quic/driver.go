// Package quic implements transport.Driver using quic-go.
//
// Every reliable channel maps to one unidirectional QUIC stream per
// direction, so channels never block each other. A stream starts with the
// channel byte and then carries u32 length prefixed frames. Unreliable
// channels use QUIC datagrams whose first byte is the channel.
package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"github.com/quic-go/quic-go"
)

var ErrTransportNotInitialized = errors.New("quic transport has not been initialized")

// Driver dials and listens over QUIC.
type Driver struct {
	serverTLS *tls.Config
	clientTLS *tls.Config
	config    *quic.Config

	tlsOnce sync.Once
	tlsErr  error
}

// New creates a driver. A nil serverTLS is replaced by a self-signed
// certificate on first Listen, a nil clientTLS by ClientTLS() and a nil
// config by DefaultConfig(). Datagrams are always enabled.
func New(serverTLS, clientTLS *tls.Config, config *quic.Config) *Driver {
	if clientTLS == nil {
		clientTLS = ClientTLS()
	}
	if config == nil {
		config = DefaultConfig()
	}
	config = config.Clone()
	config.EnableDatagrams = true

	return &Driver{
		serverTLS: serverTLS,
		clientTLS: clientTLS,
		config:    config,
	}
}

func DefaultConfig() *quic.Config {
	return &quic.Config{
		EnableDatagrams: true,
		MaxIdleTimeout:  10 * time.Second,
		KeepAlivePeriod: 2 * time.Second,
	}
}

func (d *Driver) Listen(ctx context.Context, addr string) (transport.Listener, error) {
	d.tlsOnce.Do(func() {
		if d.serverTLS == nil {
			d.serverTLS, d.tlsErr = SelfSignedTLS("localhost")
		}
	})
	if d.tlsErr != nil {
		return nil, d.tlsErr
	}

	ln, err := quic.ListenAddr(addr, d.serverTLS, d.config)
	if err != nil {
		return nil, err
	}
	return &listener{ln: ln}, nil
}

func (d *Driver) Dial(ctx context.Context, addr string) (transport.Link, error) {
	conn, err := quic.DialAddr(ctx, addr, d.clientTLS, d.config)
	if err != nil {
		return nil, linkError(err)
	}
	return newLink(conn), nil
}

type listener struct {
	ln *quic.Listener
}

func (l *listener) Accept(ctx context.Context) (transport.Link, error) {
	if l.ln == nil {
		return nil, ErrTransportNotInitialized
	}
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return newLink(conn), nil
}

func (l *listener) Close() error {
	if l.ln == nil {
		return ErrTransportNotInitialized
	}
	return l.ln.Close()
}

func (l *listener) Addr() net.Addr {
	return l.ln.Addr()
}

// linkError translates quic-go close reasons into transport errors.
func linkError(err error) error {
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		if !appErr.Remote {
			return net.ErrClosed
		}
		return &transport.CloseError{
			Code:   transport.NetworkError(uint8(appErr.ErrorCode)),
			Reason: appErr.ErrorMessage,
		}
	}

	var idleErr *quic.IdleTimeoutError
	if errors.As(err, &idleErr) {
		return &transport.CloseError{Code: transport.Timeout, Reason: "idle timeout"}
	}
	var hsErr *quic.HandshakeTimeoutError
	if errors.As(err, &hsErr) {
		return &transport.CloseError{Code: transport.Timeout, Reason: "handshake timeout"}
	}
	return err
}
