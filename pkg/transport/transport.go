// Package transport is a channelled, event-polled network layer.
//
// A Subsystem owns hosts. A host either listens on a port or only dials out,
// and every peer link it holds is multiplexed into a fixed list of channels,
// each with its own quality of service. Network activity is reported as
// Events that the owner polls once per tick with Receive; no callback ever
// runs on a network goroutine.
package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HostID identifies a host inside a Subsystem.
type HostID int

// InvalidHost is the zero handle for "no host".
const InvalidHost HostID = -1

// PeerID identifies a link inside a host.
type PeerID int

// QoS is the delivery class of a channel.
type QoS uint8

const (
	// ReliableSequenced delivers every message once, in send order.
	ReliableSequenced QoS = iota
	// Unreliable may drop messages and deliver them out of order.
	Unreliable
)

func (q QoS) Reliable() bool {
	return q == ReliableSequenced
}

func (q QoS) String() string {
	switch q {
	case ReliableSequenced:
		return "reliable"
	case Unreliable:
		return "unreliable"
	}
	return fmt.Sprintf("qos(%d)", uint8(q))
}

func (q QoS) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *QoS) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "reliable", "reliablesequenced", "reliable_sequenced":
		*q = ReliableSequenced
	case "unreliable":
		*q = Unreliable
	default:
		return fmt.Errorf("unknown qos %q", b)
	}
	return nil
}

// ControlChannel is reserved for transport pings and never reaches the owner.
const ControlChannel = 0xFF

const (
	DefaultMaxPeers          = 8
	DefaultReceiveBufferSize = 65535
	DefaultMaxPacketSize     = 1200
	DefaultMaxEventsPerTick  = 500
	DefaultPingInterval      = time.Second
)

// Default channel indices of DefaultTopology.
const (
	ChannelReliable   = 0
	ChannelUnreliable = 1
)

var (
	ErrNoChannels       = errors.New("topology has no channels")
	ErrTooManyChannels  = errors.New("topology has too many channels")
	ErrInvalidTopology  = errors.New("invalid topology")
	ErrInvalidPort      = errors.New("port out of range")
	ErrUnknownHost      = errors.New("unknown host")
	ErrInactive         = errors.New("transport subsystem is not active")
	ErrHostClosed       = errors.New("host is closed")
	ErrListenerClosed   = errors.New("listener is closed")
	ErrDriverNotDefined = errors.New("no transport driver configured")
)

// Topology is the channel layout and limits of a host. A host keeps its own
// copy; later changes by the caller have no effect on it.
type Topology struct {
	Channels          []QoS
	MaxPeers          int
	ReceiveBufferSize int
	MaxPacketSize     int
	MaxEventsPerTick  int
	PingInterval      time.Duration
}

// DefaultTopology is one reliable and one unreliable channel for 8 peers.
func DefaultTopology() Topology {
	return Topology{
		Channels:          []QoS{ReliableSequenced, Unreliable},
		MaxPeers:          DefaultMaxPeers,
		ReceiveBufferSize: DefaultReceiveBufferSize,
		MaxPacketSize:     DefaultMaxPacketSize,
		MaxEventsPerTick:  DefaultMaxEventsPerTick,
		PingInterval:      DefaultPingInterval,
	}
}

// Normalize fills zero limits with defaults and copies the channel list.
func (t Topology) Normalize() Topology {
	t.Channels = append([]QoS(nil), t.Channels...)
	if t.MaxPeers == 0 {
		t.MaxPeers = DefaultMaxPeers
	}
	if t.ReceiveBufferSize == 0 {
		t.ReceiveBufferSize = DefaultReceiveBufferSize
	}
	if t.MaxPacketSize == 0 {
		t.MaxPacketSize = min(DefaultMaxPacketSize, t.ReceiveBufferSize)
	}
	if t.MaxEventsPerTick == 0 {
		t.MaxEventsPerTick = DefaultMaxEventsPerTick
	}
	if t.PingInterval == 0 {
		t.PingInterval = DefaultPingInterval
	}
	return t
}

func (t Topology) Validate() error {
	switch {
	case len(t.Channels) == 0:
		return ErrNoChannels
	case len(t.Channels) >= ControlChannel:
		return fmt.Errorf("%w: %d", ErrTooManyChannels, len(t.Channels))
	case t.MaxPeers < 1:
		return fmt.Errorf("%w: max peers %d", ErrInvalidTopology, t.MaxPeers)
	case t.ReceiveBufferSize < 1 || t.ReceiveBufferSize > DefaultReceiveBufferSize:
		return fmt.Errorf("%w: receive buffer %d", ErrInvalidTopology, t.ReceiveBufferSize)
	case t.MaxPacketSize < 1 || t.MaxPacketSize > t.ReceiveBufferSize:
		return fmt.Errorf("%w: max packet size %d", ErrInvalidTopology, t.MaxPacketSize)
	case t.MaxEventsPerTick < 1:
		return fmt.Errorf("%w: max events per tick %d", ErrInvalidTopology, t.MaxEventsPerTick)
	case t.PingInterval < 0:
		return fmt.Errorf("%w: ping interval %s", ErrInvalidTopology, t.PingInterval)
	}
	for i, q := range t.Channels {
		if q != ReliableSequenced && q != Unreliable {
			return fmt.Errorf("%w: channel %d has %s", ErrInvalidTopology, i, q)
		}
	}
	return nil
}

// FirstChannel returns the lowest channel index with the given QoS.
func (t Topology) FirstChannel(q QoS) (int, bool) {
	for i, c := range t.Channels {
		if c == q {
			return i, true
		}
	}
	return 0, false
}

// ValidatePort checks that port is a valid TCP/UDP port number.
func ValidatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return nil
}
