// Package stop provides the one-shot stop request shared by the capture
// loop, the console listener and the HTTP server.
package stop

import (
	"context"
	"sync"
)

// Signal fires at most once. The session name is recorded separately
// because the operator types it after the stop keystroke.
type Signal struct {
	once     sync.Once
	nameOnce sync.Once
	stopped  chan struct{}
	named    chan struct{}
	name     string
}

// NewSignal returns an unfired signal.
func NewSignal() *Signal {
	return &Signal{
		stopped: make(chan struct{}),
		named:   make(chan struct{}),
	}
}

// Trigger fires the signal. Only the first call returns true.
func (s *Signal) Trigger() bool {
	fired := false
	s.once.Do(func() {
		close(s.stopped)
		fired = true
	})
	return fired
}

// Stopped is closed once the signal fires.
func (s *Signal) Stopped() <-chan struct{} {
	return s.stopped
}

// IsStopped reports whether the signal has fired.
func (s *Signal) IsStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// SetName records the session name. Only the first call is kept.
func (s *Signal) SetName(name string) bool {
	set := false
	s.nameOnce.Do(func() {
		s.name = name
		close(s.named)
		set = true
	})
	return set
}

// Name blocks until a name is set or ctx ends.
func (s *Signal) Name(ctx context.Context) (string, error) {
	select {
	case <-s.named:
		return s.name, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// StopWithName fires the signal and names the session in one step, as the
// remote stop endpoint does. It reports whether this call fired the signal.
func (s *Signal) StopWithName(name string) bool {
	fired := s.Trigger()
	if fired {
		s.SetName(name)
	}
	return fired
}
