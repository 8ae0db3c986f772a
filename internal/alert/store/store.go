// Package store provides the in-memory canonical alert set. It is the only
// holder of alert state: the sync engine replaces it wholesale on every
// successful poll and the mutation coordinator applies optimistic edits to
// it before the backend confirms them.
package store

import (
	"sync"

	"github.com/linnemanlabs/wardsync/internal/alert"
)

// Store holds the canonical alerts keyed by alert ID. All methods are safe
// for concurrent use. After Close, writes are silently dropped so that a
// network response resolving after teardown cannot resurrect state; reads
// keep serving the last snapshot.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]alert.Alert
	closed bool
}

// New initializes an empty Store.
func New() *Store {
	return &Store{alerts: make(map[string]alert.Alert)}
}

// Replace swaps the entire contents for the given snapshot. The snapshot is
// the new truth: the store does not merge field-by-field, and any optimistic
// edit not yet reflected server-side is overwritten. Duplicate IDs in the
// snapshot collapse to the last occurrence. Returns false if the store is
// closed and the snapshot was dropped.
func (s *Store) Replace(alerts []alert.Alert) bool {
	next := make(map[string]alert.Alert, len(alerts))
	for _, a := range alerts {
		next[a.ID] = a
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.alerts = next
	return true
}

// Acknowledge marks the alert acknowledged. Returns whether the alert was
// present (a missing ID is a no-op, not an error).
func (s *Store) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	a, ok := s.alerts[id]
	if !ok {
		return false
	}
	a.Acknowledged = true
	s.alerts[id] = a
	return true
}

// Remove deletes the alert. Returns whether it was present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.alerts[id]; !ok {
		return false
	}
	delete(s.alerts, id)
	return true
}

// Get retrieves one alert by ID.
func (s *Store) Get(id string) (alert.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	return a, ok
}

// All returns a copy of every alert, in no particular order.
func (s *Store) All() []alert.Alert {
	return s.filter(func(alert.Alert) bool { return true })
}

// Active returns the unacknowledged alerts.
func (s *Store) Active() []alert.Alert {
	return s.filter(func(a alert.Alert) bool { return !a.Acknowledged })
}

// Critical returns the alerts in the critical tier (tag or score).
func (s *Store) Critical() []alert.Alert {
	return s.filter(func(a alert.Alert) bool { return alert.Classify(a).Critical })
}

// HighRisk returns the alerts in the high tier (tag or score band).
func (s *Store) HighRisk() []alert.Alert {
	return s.filter(func(a alert.Alert) bool { return alert.Classify(a).High })
}

// Acknowledged returns the acknowledged alerts.
func (s *Store) Acknowledged() []alert.Alert {
	return s.filter(func(a alert.Alert) bool { return a.Acknowledged })
}

// Stats summarizes the current snapshot.
func (s *Store) Stats() alert.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := alert.Stats{Total: len(s.alerts)}
	for _, a := range s.alerts {
		if a.Acknowledged {
			st.Acknowledged++
		} else {
			st.Active++
		}
		t := alert.Classify(a)
		if t.Critical {
			st.Critical++
		}
		if t.High {
			st.HighRisk++
		}
	}
	return st
}

// Len reports the number of alerts held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// Close drops all future writes. Reads continue to serve the last snapshot.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Store) filter(keep func(alert.Alert) bool) []alert.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]alert.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
