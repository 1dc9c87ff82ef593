// Package protocol implements the framed binary message format shared by
// clients and servers.
//
// A transport packet carries one or more frames back to back. Each frame is
//
//	[u16 payload size][u16 message type][payload]
//
// with every integer encoded little endian.
package protocol

import (
	"errors"
	"strconv"
)

// MsgType identifies the payload of a frame.
type MsgType uint16

// Reserved system message types. Application types must be greater than Highest.
const (
	CRC        MsgType = 14
	Connect    MsgType = 32
	Disconnect MsgType = 33
	Error      MsgType = 34

	Highest MsgType = 47
)

// UserBase is the first message type available to applications.
const UserBase = Highest + 1

const (
	HeaderSize = 4
	// MaxMessageSize bounds both a single frame and a whole packet.
	MaxMessageSize = 65535
)

var (
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
	ErrShortBuffer     = errors.New("read past end of buffer")
	ErrTruncatedFrame  = errors.New("truncated frame")
	ErrNoMessage       = errors.New("finish without matching start")
)

// IsSystem reports whether t lies in the reserved range.
func (t MsgType) IsSystem() bool {
	return t <= Highest
}

// IsDefinedSystem reports whether t is one of the named system types.
func (t MsgType) IsDefinedSystem() bool {
	switch t {
	case CRC, Connect, Disconnect, Error:
		return true
	}
	return false
}

func (t MsgType) String() string {
	switch t {
	case CRC:
		return "CRC"
	case Connect:
		return "Connect"
	case Disconnect:
		return "Disconnect"
	case Error:
		return "Error"
	}
	return strconv.Itoa(int(t))
}
