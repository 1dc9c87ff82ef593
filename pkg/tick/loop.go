// Package tick drives the single goroutine every Update, dispatch and
// smoothing call runs on.
package tick

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrLoopRunning    = errors.New("tick loop is already running")
	ErrLoopNotRunning = errors.New("tick loop is not running")
	ErrTickRate       = errors.New("tick rate must be positive")
)

// Loop calls its tick function at a fixed rate. The first tick gets dt 0.
type Loop struct {
	interval time.Duration
	lastTick time.Time
	onTick   func(dt time.Duration) error
	cancel   atomic.Pointer[context.CancelFunc]
	running  atomic.Bool
}

// NewLoop ticks rate times per second.
func NewLoop(rate int, onTick func(dt time.Duration) error) (*Loop, error) {
	if rate <= 0 {
		return nil, ErrTickRate
	}
	return &Loop{
		interval: time.Second / time.Duration(rate),
		onTick:   onTick,
	}, nil
}

// Run blocks until ctx is done, Stop is called or a tick fails. Ticks run
// on the calling goroutine.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.cancel.Store(&cancel)

	t := time.NewTicker(l.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			if err := l.step(now); err != nil {
				return err
			}
		}
	}
}

// Stop ends a running loop.
func (l *Loop) Stop() error {
	if !l.running.Load() {
		return ErrLoopNotRunning
	}
	if cancel := l.cancel.Load(); cancel != nil {
		(*cancel)()
	}
	return nil
}

func (l *Loop) Running() bool {
	return l.running.Load()
}

func (l *Loop) step(now time.Time) error {
	var d time.Duration
	if !l.lastTick.IsZero() {
		d = now.Sub(l.lastTick)
	}
	l.lastTick = now

	return l.onTick(d)
}
