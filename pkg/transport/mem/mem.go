// Package mem is an in-process transport driver. Listeners are keyed by port
// so "127.0.0.1:7777", "localhost:7777" and ":7777" all reach the same host.
package mem

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

const DefaultQueueSize = 1024

var (
	ErrAddressInUse = errors.New("mem: address already in use")
	ErrRefused      = errors.New("mem: connection refused")
)

// Network is a set of in-process listeners. The zero value is not usable;
// call New.
type Network struct {
	// QueueSize is the per-link inbound queue. Unreliable sends are dropped
	// when it is full.
	QueueSize int

	mu        sync.Mutex
	listeners map[string]*listener
	dials     atomic.Int64
}

func New() *Network {
	return &Network{
		QueueSize: DefaultQueueSize,
		listeners: make(map[string]*listener),
	}
}

func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return port
}

func (n *Network) Listen(ctx context.Context, addr string) (transport.Listener, error) {
	key := portOf(addr)

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAddressInUse, addr)
	}
	l := &listener{
		network:  n,
		key:      key,
		incoming: make(chan *link, 16),
		done:     make(chan struct{}),
	}
	n.listeners[key] = l
	return l, nil
}

func (n *Network) Dial(ctx context.Context, addr string) (transport.Link, error) {
	key := portOf(addr)

	n.mu.Lock()
	l := n.listeners[key]
	n.mu.Unlock()

	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrRefused, addr)
	}

	local := memAddr(fmt.Sprintf("mem-client-%d", n.dials.Add(1)))
	client, server := newPair(local, memAddr("mem:"+key), n.queueSize())

	select {
	case l.incoming <- server:
		return client, nil
	case <-l.done:
		return nil, fmt.Errorf("%w: %s", ErrRefused, addr)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *Network) queueSize() int {
	if n.QueueSize <= 0 {
		return DefaultQueueSize
	}
	return n.QueueSize
}

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

type listener struct {
	network  *Network
	key      string
	incoming chan *link
	done     chan struct{}
	once     sync.Once
}

func (l *listener) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, transport.ErrListenerClosed
	case c := <-l.incoming:
		return c, nil
	}
}

func (l *listener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.network.mu.Lock()
		if l.network.listeners[l.key] == l {
			delete(l.network.listeners, l.key)
		}
		l.network.mu.Unlock()
	})
	return nil
}

func (l *listener) Addr() net.Addr {
	return memAddr("mem:" + l.key)
}
