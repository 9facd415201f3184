// Package livestate is the synchronization point between the acquisition loop
// and viewer sessions: a single-slot, overwrite-on-write mailbox holding the
// latest weight reading. The latest write wins; there is no queuing and no
// delivery guarantee beyond "visible to the next read".
package livestate

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// StatusStopped is the status text of the default state before any publish.
const StatusStopped = "Detenido"

// State is a snapshot of the shared acquisition state. Written only by the
// acquisition loop; read by any number of viewers.
type State struct {
	WeightKg   float64   `json:"weight_kg"`
	Acquiring  bool      `json:"acquiring"`
	Status     string    `json:"status"`
	LastUpdate time.Time `json:"last_update"`
}

// Store holds exactly one State. Publish replaces the whole value under a
// write lock, so a reader never observes fields from two different writes.
type Store struct {
	mu    sync.RWMutex
	state State

	subMu sync.Mutex
	subs  map[string]chan State

	// mirror, when set, is invoked after every publish with the new state.
	// It backs the persisted realtime document.
	mirror func(State)
}

// NewStore creates a Store holding the default stopped state.
func NewStore() *Store {
	return &Store{
		state: State{Status: StatusStopped, LastUpdate: time.Now()},
		subs:  make(map[string]chan State),
	}
}

// Seed replaces the store's state without notifying subscribers or the
// mirror. Used once at startup to restore the last persisted value.
func (s *Store) Seed(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// SetMirror installs the persistence hook called after every publish.
func (s *Store) SetMirror(f func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = f
}

// Snapshot returns the current state. Before any publish this is the default
// stopped, zero-weight value.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Publish replaces the shared state with the given values, stamping the
// current time, then fans the new snapshot out to subscribers. Slow
// subscribers are skipped: latest value wins.
func (s *Store) Publish(weightKg float64, acquiring bool, status string) {
	s.mu.Lock()
	s.state = State{
		WeightKg:   weightKg,
		Acquiring:  acquiring,
		Status:     status,
		LastUpdate: time.Now(),
	}
	state := s.state
	mirror := s.mirror
	s.mu.Unlock()

	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			// subscriber is behind; it will catch up on the next publish
		}
	}
	s.subMu.Unlock()

	if mirror != nil {
		mirror(state)
	}
}

// Subscribe registers a channel that receives every subsequent published
// state. The returned ID identifies the channel for Unsubscribe.
func (s *Store) Subscribe() (string, <-chan State) {
	id := randomID()
	ch := make(chan State, 1)
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (s *Store) Unsubscribe(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

// randomID generates a random subscriber ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}
