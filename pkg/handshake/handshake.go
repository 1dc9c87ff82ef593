// Package handshake checks that both sides of a connection agree on the set
// of replicated scripts and the channels they use.
package handshake

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
)

var ErrCRCMismatch = errors.New("script CRC mismatch")

type Registry struct {
	mu      sync.RWMutex
	scripts map[string]uint8
}

func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]uint8)}
}

// Register records a script name and the channel it sends on.
func (r *Registry) Register(name string, channel uint8) {
	r.mu.Lock()
	r.scripts[name] = channel
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scripts)
}

// Message returns the registry as a CRC message, ordered by name.
func (r *Registry) Message() *protocol.CRCMessage {
	r.mu.RLock()
	entries := make([]protocol.CRCEntry, 0, len(r.scripts))
	for name, ch := range r.scripts {
		entries = append(entries, protocol.CRCEntry{Name: name, Channel: ch})
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b protocol.CRCEntry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return &protocol.CRCMessage{Scripts: entries}
}

// Validate compares the remote script list with the local one. Every
// difference is reported in the joined error.
func (r *Registry) Validate(remote []protocol.CRCEntry, numChannels int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	if len(remote) != len(r.scripts) {
		errs = append(errs, fmt.Errorf("%w: remote has %d scripts, local has %d", ErrCRCMismatch, len(remote), len(r.scripts)))
	}

	for _, e := range remote {
		ch, ok := r.scripts[e.Name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w: script %q missing locally", ErrCRCMismatch, e.Name))
		case ch != e.Channel:
			errs = append(errs, fmt.Errorf("%w: script %q uses channel %d locally, %d remotely", ErrCRCMismatch, e.Name, ch, e.Channel))
		case int(e.Channel) >= numChannels:
			errs = append(errs, fmt.Errorf("%w: script %q channel %d out of range (%d channels)", ErrCRCMismatch, e.Name, e.Channel, numChannels))
		}
	}
	return errors.Join(errs...)
}
