// Package transcript accumulates transcribed chunk text for one session.
package transcript

import (
	"strings"
	"sync"
	"time"
)

// Fragment is the text recognised from one chunk.
type Fragment struct {
	Seq  int
	Text string
	At   time.Time
}

// Event mirrors an appended fragment for live listeners.
type Event struct {
	Seq   int
	Text  string
	Index int // position in the store
}

// Store is an append-only fragment list safe for concurrent writers.
// Order is completion order, not capture order. Once sealed it rejects
// further appends so a drained snapshot can never change.
type Store struct {
	mu        sync.RWMutex
	fragments []Fragment
	sealed    bool
	eventsCh  chan Event
}

// NewStore creates a store whose event channel holds eventBuffer items.
func NewStore(eventBuffer int) *Store {
	return &Store{eventsCh: make(chan Event, eventBuffer)}
}

// Add appends a fragment and reports whether it was accepted.
func (s *Store) Add(f Fragment) bool {
	if f.At.IsZero() {
		f.At = time.Now()
	}

	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return false
	}
	s.fragments = append(s.fragments, f)
	idx := len(s.fragments) - 1
	s.mu.Unlock()

	s.emit(Event{Seq: f.Seq, Text: f.Text, Index: idx})
	return true
}

// Seal closes the store to writers. It is idempotent.
func (s *Store) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Sealed reports whether Seal has been called.
func (s *Store) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Len returns the number of fragments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fragments)
}

// Fragments returns a copy of all fragments in store order.
func (s *Store) Fragments() []Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Fragment, len(s.fragments))
	copy(out, s.fragments)
	return out
}

// Texts returns fragment texts in store order.
func (s *Store) Texts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.fragments))
	for i, f := range s.fragments {
		out[i] = f.Text
	}
	return out
}

// Join returns the texts separated by newlines.
func (s *Store) Join() string {
	return strings.Join(s.Texts(), "\n")
}

// Events returns the channel for fragment events.
func (s *Store) Events() <-chan Event {
	return s.eventsCh
}

// emit sends an event without blocking; slow listeners miss events.
func (s *Store) emit(e Event) {
	select {
	case s.eventsCh <- e:
	default:
	}
}
