package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// NetworkError is the result code attached to events and close frames.
type NetworkError uint8

const (
	Ok NetworkError = iota
	WrongHost
	WrongConnection
	WrongChannel
	NoResources
	BadMessage
	Timeout
	MessageToLong
	WrongOperation
	VersionMismatch
	CRCMismatch
	DNSFailure
	UsageError
)

var networkErrorNames = [...]string{
	Ok:              "Ok",
	WrongHost:       "WrongHost",
	WrongConnection: "WrongConnection",
	WrongChannel:    "WrongChannel",
	NoResources:     "NoResources",
	BadMessage:      "BadMessage",
	Timeout:         "Timeout",
	MessageToLong:   "MessageToLong",
	WrongOperation:  "WrongOperation",
	VersionMismatch: "VersionMismatch",
	CRCMismatch:     "CRCMismatch",
	DNSFailure:      "DNSFailure",
	UsageError:      "UsageError",
}

func (e NetworkError) String() string {
	if int(e) < len(networkErrorNames) {
		return networkErrorNames[e]
	}
	return fmt.Sprintf("NetworkError(%d)", uint8(e))
}

// Ordinary reports whether a disconnect with this code needs no error report.
func (e NetworkError) Ordinary() bool {
	return e == Ok || e == Timeout
}

// CloseError is returned by links and host operations that fail with a
// specific NetworkError.
type CloseError struct {
	Code   NetworkError
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return "transport: " + e.Code.String()
	}
	return fmt.Sprintf("transport: %s: %s", e.Code, e.Reason)
}

func closeErr(code NetworkError, reason string) error {
	return &CloseError{Code: code, Reason: reason}
}

// ErrorCode maps an error from a driver or host operation to a NetworkError.
func ErrorCode(err error) NetworkError {
	if err == nil {
		return Ok
	}

	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}

	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return DNSFailure
	case errors.Is(err, ErrUnknownHost):
		return WrongHost
	case errors.Is(err, ErrInactive), errors.Is(err, ErrHostClosed):
		return WrongOperation
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return Ok
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	return WrongConnection
}
