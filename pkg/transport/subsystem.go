package transport

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
)

// Subsystem is the shared transport layer of a process. It is activated by
// Acquire and torn down when the last Release drops the reference count to
// zero. All methods are safe for concurrent use.
type Subsystem struct {
	driver Driver
	logger axlog.Logger

	mu     sync.Mutex
	refs   int
	hosts  map[HostID]*host
	nextID HostID
}

func NewSubsystem(driver Driver, logger axlog.Logger) *Subsystem {
	return &Subsystem{
		driver: driver,
		logger: axlog.OrDiscard(logger),
		hosts:  make(map[HostID]*host),
	}
}

// ==================================================================
// Lifecycle
// ==================================================================

func (s *Subsystem) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs++
	if s.refs == 1 {
		s.logger.Debug("transport subsystem activated")
	}
}

// Release drops one reference. The last release removes every host.
func (s *Subsystem) Release() {
	s.mu.Lock()
	if s.refs == 0 {
		s.mu.Unlock()
		return
	}
	s.refs--
	if s.refs > 0 {
		s.mu.Unlock()
		return
	}
	hosts := s.hosts
	s.hosts = make(map[HostID]*host)
	s.mu.Unlock()

	for _, h := range hosts {
		h.close()
	}
	s.logger.Debug("transport subsystem deactivated")
}

func (s *Subsystem) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs > 0
}

// ==================================================================
// Hosts
// ==================================================================

// AddHost creates a host with the given topology. A positive bindPort makes
// the host accept peers on that port; 0 creates a dial-only host.
func (s *Subsystem) AddHost(topology Topology, bindPort int) (HostID, error) {
	if err := ValidatePort(bindPort); err != nil {
		return InvalidHost, err
	}
	topology = topology.Normalize()
	if err := topology.Validate(); err != nil {
		return InvalidHost, err
	}
	if s.driver == nil {
		return InvalidHost, ErrDriverNotDefined
	}

	s.mu.Lock()
	if s.refs == 0 {
		s.mu.Unlock()
		return InvalidHost, ErrInactive
	}
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	h := newHost(id, topology, s.driver, s.logger)
	if bindPort > 0 {
		if err := h.listen(net.JoinHostPort("", strconv.Itoa(bindPort))); err != nil {
			h.close()
			return InvalidHost, fmt.Errorf("listen on port %d: %w", bindPort, err)
		}
	}

	s.mu.Lock()
	s.hosts[id] = h
	s.mu.Unlock()

	s.logger.Debug("host added", "host", id, "port", bindPort, "channels", len(topology.Channels))
	return id, nil
}

// RemoveHost closes every link of the host and forgets it.
func (s *Subsystem) RemoveHost(id HostID) error {
	s.mu.Lock()
	h, ok := s.hosts[id]
	delete(s.hosts, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHost, id)
	}
	h.close()
	s.logger.Debug("host removed", "host", id)
	return nil
}

func (s *Subsystem) host(id HostID) (*host, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hosts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHost, id)
	}
	return h, nil
}

// Addr returns the listening address of a host, or nil for dial-only hosts.
func (s *Subsystem) Addr(id HostID) net.Addr {
	h, err := s.host(id)
	if err != nil || h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Topology returns the host's copy of its topology.
func (s *Subsystem) Topology(id HostID) (Topology, error) {
	h, err := s.host(id)
	if err != nil {
		return Topology{}, err
	}
	return h.topology.Normalize(), nil
}

// ==================================================================
// Peers
// ==================================================================

// Connect starts dialing address:port and returns immediately. The outcome
// arrives later as a Connect event for the returned peer.
func (s *Subsystem) Connect(id HostID, address string, port int) (PeerID, error) {
	if err := ValidatePort(port); err != nil {
		return 0, err
	}
	h, err := s.host(id)
	if err != nil {
		return 0, err
	}
	return h.connect(net.JoinHostPort(address, strconv.Itoa(port)))
}

// Send queues buffer on a channel of a connected peer.
func (s *Subsystem) Send(id HostID, peer PeerID, channel int, buffer []byte) error {
	h, err := s.host(id)
	if err != nil {
		return err
	}
	return h.send(peer, channel, buffer)
}

// Receive returns the next queued event of a host without blocking.
func (s *Subsystem) Receive(id HostID) Event {
	h, err := s.host(id)
	if err != nil {
		return Event{Type: Nothing, Err: WrongHost}
	}
	select {
	case ev := <-h.events:
		return ev
	default:
		return Event{Type: Nothing}
	}
}

// Disconnect closes a peer link. The local side gets no Disconnect event.
func (s *Subsystem) Disconnect(id HostID, peer PeerID) error {
	h, err := s.host(id)
	if err != nil {
		return err
	}
	return h.disconnect(peer)
}

// RTT returns the smoothed round trip time of a peer, or 0 before the
// first measurement.
func (s *Subsystem) RTT(id HostID, peer PeerID) time.Duration {
	h, err := s.host(id)
	if err != nil {
		return 0
	}
	p := h.peer(peer)
	if p == nil {
		return 0
	}
	return time.Duration(p.rtt.Load())
}

// PeerAddr returns the address a peer was dialed at or accepted from.
func (s *Subsystem) PeerAddr(id HostID, peer PeerID) string {
	h, err := s.host(id)
	if err != nil {
		return ""
	}
	if p := h.peer(peer); p != nil {
		return p.addr
	}
	return ""
}
