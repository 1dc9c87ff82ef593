// Package websockets implements transport.Driver over gorilla/websocket.
//
// Every channel is carried in order over the single TCP stream, so
// unreliable channels are delivered reliably. A binary message is
// [channel][payload]. Close codes travel as websocket close codes
// starting at CloseCodeBase.
package websockets

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

const (
	// CloseCodeBase is added to a transport.NetworkError to form the close code.
	CloseCodeBase = 4000
	DefaultPath   = "/qsb"
	writeWait     = time.Second
)

// Driver dials and serves websocket links on Path.
type Driver struct {
	Path     string
	Upgrader websocket.Upgrader
	Dialer   *websocket.Dialer
}

func New() *Driver {
	return &Driver{
		Path: DefaultPath,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		Dialer: websocket.DefaultDialer,
	}
}

func (d *Driver) path() string {
	if d.Path == "" {
		return DefaultPath
	}
	return d.Path
}

func (d *Driver) Listen(ctx context.Context, addr string) (transport.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	l := &listener{
		ln:          ln,
		connections: make(chan *websocket.Conn, 16),
		done:        make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(d.path(), func(w http.ResponseWriter, r *http.Request) {
		conn, err := d.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		select {
		case l.connections <- conn:
		case <-l.done:
			conn.Close()
		}
	})
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go l.srv.Serve(ln)
	return l, nil
}

func (d *Driver) Dial(ctx context.Context, addr string) (transport.Link, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, "ws://"+addr+d.path(), nil)
	if err != nil {
		return nil, err
	}
	return &Peer{conn: conn}, nil
}

type listener struct {
	ln          net.Listener
	srv         *http.Server
	connections chan *websocket.Conn
	done        chan struct{}
	once        sync.Once
}

func (l *listener) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, transport.ErrListenerClosed
	case conn := <-l.connections:
		return &Peer{conn: conn}, nil
	}
}

func (l *listener) Close() (err error) {
	l.once.Do(func() {
		close(l.done)
		err = l.srv.Close()
	})
	return
}

func (l *listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Peer is one websocket link.
type Peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closeOnce sync.Once
}

func (p *Peer) Send(channel byte, _ transport.QoS, b []byte) error {
	msg := make([]byte, 1+len(b))
	msg[0] = channel
	copy(msg[1:], b)

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.BinaryMessage, msg)
}

// Receive blocks in ReadMessage; ctx is honoured once Close unblocks it.
func (p *Peer) Receive(ctx context.Context) (transport.Packet, error) {
	for {
		typ, b, err := p.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return transport.Packet{}, ctx.Err()
			}
			return transport.Packet{}, readError(err)
		}
		if typ != websocket.BinaryMessage || len(b) == 0 {
			continue
		}
		return transport.Packet{Channel: b[0], Data: b[1:]}, nil
	}
}

func readError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch {
		case ce.Code >= CloseCodeBase && ce.Code < CloseCodeBase+256:
			return &transport.CloseError{Code: transport.NetworkError(ce.Code - CloseCodeBase), Reason: ce.Text}
		case ce.Code == websocket.CloseNormalClosure, ce.Code == websocket.CloseGoingAway:
			return &transport.CloseError{Code: transport.Ok, Reason: ce.Text}
		}
		return &transport.CloseError{Code: transport.WrongConnection, Reason: ce.Text}
	}
	return err
}

func (p *Peer) Close(code transport.NetworkError, reason string) error {
	var lastErr error

	p.closeOnce.Do(func() {
		p.writeMu.Lock()
		err := p.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseCodeBase+int(code), reason),
			time.Now().Add(writeWait),
		)
		p.writeMu.Unlock()
		if err != nil {
			lastErr = err
		}

		if err := p.conn.Close(); err != nil {
			lastErr = err
		}
	})
	return lastErr
}

func (p *Peer) RemoteAddr() net.Addr {
	return p.conn.RemoteAddr()
}
