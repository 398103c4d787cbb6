// Package session holds the in-memory per-stand session state: the liveness
// and confirmation timers and the set of online transactions awaiting
// confirmation. Nothing here is persisted; a restart starts from empty state.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// TimerKind identifies one of the two per-stand timers.
type TimerKind int

const (
	// Liveness marks a stand inactive when it stops reporting.
	Liveness TimerKind = iota
	// Confirmation discards pending online transactions that were not confirmed in time.
	Confirmation

	timerKinds
)

// String returns the timer kind name.
func (k TimerKind) String() string {
	switch k {
	case Liveness:
		return "liveness"
	case Confirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// timerCounters counts timer lifecycle events for one kind.
type timerCounters struct {
	armed     atomic.Int64
	cancelled atomic.Int64
	fired     atomic.Int64
	live      atomic.Int64
}

// TimerStats is a snapshot of timerCounters.
type TimerStats struct {
	Armed     int64 `json:"armed"`
	Cancelled int64 `json:"cancelled"`
	Fired     int64 `json:"fired"`
	Live      int64 `json:"live"`
}

// Stats is a snapshot of the registry's instrumentation.
type Stats struct {
	Sessions     int        `json:"sessions"`
	PendingIDs   int        `json:"pending_ids"`
	Liveness     TimerStats `json:"liveness"`
	Confirmation TimerStats `json:"confirmation"`
}

// Registry maps stand serial numbers to their session state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*State
	counters [timerKinds]timerCounters
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*State),
		now:      time.Now,
	}
}

// GetOrCreate returns the state for serialNumber, allocating it on first use.
func (r *Registry) GetOrCreate(serialNumber string) *State {
	r.mu.RLock()
	s, ok := r.sessions[serialNumber]
	if ok {
		// touched under the read lock so EvictIdle cannot drop s in between
		s.touch(r.now())
	}
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok = r.sessions[serialNumber]; !ok {
		s = newState(serialNumber, r)
		r.sessions[serialNumber] = s
	}
	s.touch(r.now())
	return s
}

// Get returns the state for serialNumber without creating it.
func (r *Registry) Get(serialNumber string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[serialNumber]
	return s, ok
}

// ResetPending clears the pending set of serialNumber. Ids currently being
// committed are not affected.
func (r *Registry) ResetPending(serialNumber string) {
	if s, ok := r.Get(serialNumber); ok {
		s.resetPending()
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle drops sessions not seen for longer than threshold that hold no
// live timer and no pending or in-flight transaction ids.
func (r *Registry) EvictIdle(threshold time.Duration) int {
	cutoff := r.now().Add(-threshold)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for serial, s := range r.sessions {
		if s.idleSince(cutoff) {
			delete(r.sessions, serial)
			evicted++
		}
	}
	return evicted
}

// StopAll disarms every live timer of every session and returns how many it
// stopped. Callbacks already running are not waited for.
func (r *Registry) StopAll() int {
	r.mu.RLock()
	sessions := make([]*State, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	stopped := 0
	for _, s := range sessions {
		for kind := TimerKind(0); kind < timerKinds; kind++ {
			if s.Disarm(kind) {
				stopped++
			}
		}
	}
	return stopped
}

// Stats returns a snapshot of the registry's instrumentation.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	sessions := make([]*State, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	stats := Stats{Sessions: len(sessions)}
	for _, s := range sessions {
		stats.PendingIDs += s.PendingLen()
	}
	stats.Liveness = r.timerStats(Liveness)
	stats.Confirmation = r.timerStats(Confirmation)
	return stats
}

func (r *Registry) timerStats(kind TimerKind) TimerStats {
	c := &r.counters[kind]
	return TimerStats{
		Armed:     c.armed.Load(),
		Cancelled: c.cancelled.Load(),
		Fired:     c.fired.Load(),
		Live:      c.live.Load(),
	}
}
