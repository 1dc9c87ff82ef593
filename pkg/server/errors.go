package server

import "errors"

var (
	ErrAlreadyStarted   = errors.New("server has already started")
	ErrServerNotRunning = errors.New("server is not running yet")
	ErrUnknownPeer      = errors.New("no connection for peer")
)
