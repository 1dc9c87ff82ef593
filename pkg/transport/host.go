package transport

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
)

const eventQueueSize = 4096

const (
	pingFrame byte = 1
	pongFrame byte = 2
)

type peer struct {
	id     PeerID
	addr   string
	link   Link // nil while dialing
	cancel context.CancelFunc
	closed atomic.Bool
	rtt    atomic.Int64
}

type host struct {
	id       HostID
	topology Topology
	driver   Driver
	logger   axlog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	events chan Event

	listener Listener

	mu       sync.Mutex
	peers    map[PeerID]*peer
	nextPeer PeerID
	closed   bool
}

func newHost(id HostID, topology Topology, driver Driver, logger axlog.Logger) *host {
	ctx, cancel := context.WithCancel(context.Background())
	return &host{
		id:       id,
		topology: topology,
		driver:   driver,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, eventQueueSize),
		peers:    make(map[PeerID]*peer),
	}
}

func (h *host) listen(addr string) error {
	l, err := h.driver.Listen(h.ctx, addr)
	if err != nil {
		return err
	}
	h.listener = l

	h.wg.Add(1)
	go h.acceptLoop()
	return nil
}

func (h *host) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	peers := h.peers
	h.peers = make(map[PeerID]*peer)
	h.mu.Unlock()

	h.cancel()
	if h.listener != nil {
		h.listener.Close()
	}
	for _, p := range peers {
		p.closed.Store(true)
		if p.link != nil {
			p.link.Close(Ok, "host removed")
		}
	}
	h.wg.Wait()
}

// push queues an event, blocking while the queue is full.
func (h *host) push(ev Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *host) peer(id PeerID) *peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peers[id]
}

// register adds a peer unless the host is closed or full.
func (h *host) register(addr string, link Link) (*peer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	if len(h.peers) >= h.topology.MaxPeers {
		return nil, closeErr(NoResources, "host full")
	}
	p := &peer{id: h.nextPeer, addr: addr, link: link}
	h.nextPeer++
	h.peers[p.id] = p
	return p, nil
}

func (h *host) unregister(p *peer) {
	h.mu.Lock()
	if h.peers[p.id] == p {
		delete(h.peers, p.id)
	}
	h.mu.Unlock()
	p.closed.Store(true)
}

// attach sets the link of a dialing peer unless it was closed meanwhile.
func (h *host) attach(p *peer, link Link) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p.closed.Load() || h.peers[p.id] != p {
		return false
	}
	p.link = link
	return true
}

// ==================================================================
// Pumps
// ==================================================================

func (h *host) acceptLoop() {
	defer h.wg.Done()

	for {
		link, err := h.listener.Accept(h.ctx)
		if err != nil {
			if h.ctx.Err() == nil {
				h.logger.Error("accept failed", "host", h.id, "error", err)
			}
			return
		}

		p, err := h.register(link.RemoteAddr().String(), link)
		if err != nil {
			h.logger.Warn("rejecting peer", "host", h.id, "remote", link.RemoteAddr(), "error", err)
			link.Close(ErrorCode(err), "rejected")
			continue
		}

		ctx, cancel := context.WithCancel(h.ctx)
		p.cancel = cancel
		if !h.push(Event{Type: Connect, Peer: p.id}) {
			cancel()
			return
		}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.servePeer(ctx, p)
		}()
	}
}

func (h *host) connect(addr string) (PeerID, error) {
	p, err := h.register(addr, nil)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithCancel(h.ctx)
	p.cancel = cancel

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		link, err := h.driver.Dial(ctx, addr)
		if err != nil {
			cancelled := ctx.Err() != nil
			h.unregister(p)
			cancel()
			if cancelled {
				return
			}
			h.logger.Debug("dial failed", "host", h.id, "addr", addr, "error", err)
			h.push(Event{Type: Connect, Peer: p.id, Err: dialErrorCode(err)})
			return
		}
		if !h.attach(p, link) {
			link.Close(Ok, "cancelled")
			return
		}
		if !h.push(Event{Type: Connect, Peer: p.id}) {
			return
		}
		h.servePeer(ctx, p)
	}()
	return p.id, nil
}

// dialErrorCode reports an unreachable peer as a timeout unless the driver
// gave a more specific reason.
func dialErrorCode(err error) NetworkError {
	switch code := ErrorCode(err); code {
	case Ok, WrongConnection:
		return Timeout
	default:
		return code
	}
}

func (h *host) servePeer(ctx context.Context, p *peer) {
	h.wg.Add(1)
	go h.pingLoop(ctx, p)

	for {
		pkt, err := p.link.Receive(ctx)
		if err != nil {
			if p.closed.Load() || h.ctx.Err() != nil {
				return
			}
			code := ErrorCode(err)
			h.unregister(p)
			p.cancel()
			p.link.Close(code, "")
			h.push(Event{Type: Disconnect, Peer: p.id, Err: code})
			return
		}

		if pkt.Channel == ControlChannel {
			h.control(p, pkt.Data)
			continue
		}

		ev := Event{Type: Data, Peer: p.id, Channel: int(pkt.Channel), Data: pkt.Data}
		switch {
		case int(pkt.Channel) >= len(h.topology.Channels):
			ev.Err, ev.Data = WrongChannel, nil
		case len(pkt.Data) > h.topology.ReceiveBufferSize:
			ev.Err, ev.Data = MessageToLong, nil
		}
		if !h.push(ev) {
			return
		}
	}
}

func (h *host) pingLoop(ctx context.Context, p *peer) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.topology.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frame := binary.LittleEndian.AppendUint64([]byte{pingFrame}, uint64(now.UnixNano()))
			if err := p.link.Send(ControlChannel, Unreliable, frame); err != nil {
				h.logger.Debug("ping failed", "host", h.id, "peer", p.id, "error", err)
			}
		}
	}
}

func (h *host) control(p *peer, b []byte) {
	if len(b) != 9 {
		return
	}
	switch b[0] {
	case pingFrame:
		pong := append([]byte{pongFrame}, b[1:]...)
		p.link.Send(ControlChannel, Unreliable, pong)
	case pongFrame:
		sent := int64(binary.LittleEndian.Uint64(b[1:]))
		sample := time.Now().UnixNano() - sent
		if sample < 0 {
			return
		}
		old := p.rtt.Load()
		if old == 0 {
			p.rtt.Store(sample)
			return
		}
		p.rtt.Store(old + (sample-old)/8)
	}
}

// ==================================================================
// Operations
// ==================================================================

func (h *host) send(id PeerID, channel int, b []byte) error {
	if channel < 0 || channel >= len(h.topology.Channels) {
		return closeErr(WrongChannel, "")
	}
	if len(b) > h.topology.ReceiveBufferSize {
		return closeErr(MessageToLong, "")
	}

	h.mu.Lock()
	p := h.peers[id]
	var link Link
	if p != nil {
		link = p.link
	}
	h.mu.Unlock()

	if p == nil {
		return closeErr(WrongConnection, "unknown peer")
	}
	if link == nil {
		return closeErr(WrongOperation, "peer not connected")
	}
	return link.Send(byte(channel), h.topology.Channels[channel], b)
}

func (h *host) disconnect(id PeerID) error {
	h.mu.Lock()
	p := h.peers[id]
	delete(h.peers, id)
	var link Link
	if p != nil {
		link = p.link
		p.closed.Store(true)
	}
	h.mu.Unlock()

	if p == nil {
		return closeErr(WrongConnection, "unknown peer")
	}
	if p.cancel != nil {
		p.cancel()
	}
	if link != nil {
		return link.Close(Ok, "disconnect")
	}
	return nil
}
