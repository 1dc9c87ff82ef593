package mem

import (
	"context"
	"net"
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

// link is one end of an in-process connection.
type link struct {
	remote memAddr
	inbox  chan transport.Packet
	peer   *link

	once sync.Once
	done chan struct{}
	err  error
}

func newPair(a, b memAddr, queue int) (*link, *link) {
	x := &link{remote: b, inbox: make(chan transport.Packet, queue), done: make(chan struct{})}
	y := &link{remote: a, inbox: make(chan transport.Packet, queue), done: make(chan struct{})}
	x.peer, y.peer = y, x
	return x, y
}

func (l *link) shut(err error) bool {
	closed := false
	l.once.Do(func() {
		l.err = err
		close(l.done)
		closed = true
	})
	return closed
}

func (l *link) Send(channel byte, qos transport.QoS, p []byte) error {
	select {
	case <-l.done:
		return l.err
	default:
	}

	pkt := transport.Packet{Channel: channel, Data: append([]byte(nil), p...)}
	if !qos.Reliable() {
		select {
		case l.peer.inbox <- pkt:
		default:
		}
		return nil
	}

	select {
	case l.peer.inbox <- pkt:
		return nil
	case <-l.done:
		return l.err
	case <-l.peer.done:
		return &transport.CloseError{Code: transport.WrongConnection, Reason: "peer closed"}
	}
}

func (l *link) Receive(ctx context.Context) (transport.Packet, error) {
	select {
	case pkt := <-l.inbox:
		return pkt, nil
	default:
	}

	select {
	case pkt := <-l.inbox:
		return pkt, nil
	case <-l.done:
		select {
		case pkt := <-l.inbox:
			return pkt, nil
		default:
			return transport.Packet{}, l.err
		}
	case <-ctx.Done():
		return transport.Packet{}, ctx.Err()
	}
}

// Close ends both sides. The remote side observes code.
func (l *link) Close(code transport.NetworkError, reason string) error {
	if l.shut(net.ErrClosed) {
		l.peer.shut(&transport.CloseError{Code: code, Reason: reason})
	}
	return nil
}

func (l *link) RemoteAddr() net.Addr {
	return l.remote
}
