package session

import (
	"sync"
	"time"
)

type timerSlot struct {
	timer *time.Timer
	gen   uint64
}

// State is the in-memory session of one stand.
//
// The mutex guards only in-memory fields and is never held across store I/O
// or while a timer callback runs.
type State struct {
	serial   string
	registry *Registry

	mu       sync.Mutex
	lastSeen time.Time
	timers   [timerKinds]timerSlot
	pending  []string
	queued   map[string]struct{}
	inflight map[string]struct{}

	// epoch advances on every Complete. While a store read started by
	// Observe is open, settled records the epoch each completed id was
	// settled at so ReplacePending can drop ids the read saw before they
	// were confirmed or deleted.
	epoch   uint64
	readers int
	settled map[string]uint64
}

func newState(serial string, r *Registry) *State {
	return &State{
		serial:   serial,
		registry: r,
		queued:   make(map[string]struct{}),
		inflight: make(map[string]struct{}),
		settled:  make(map[string]uint64),
	}
}

// Serial returns the stand serial number this state belongs to.
func (s *State) Serial() string {
	return s.serial
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns when the state was last looked up.
func (s *State) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Arm cancels any live timer of kind and starts a new one that calls fn after d.
// A timer cancelled by Disarm or superseded by a later Arm never calls fn.
func (s *State) Arm(kind TimerKind, d time.Duration, fn func()) {
	counters := &s.registry.counters[kind]

	s.mu.Lock()
	defer s.mu.Unlock()

	slot := &s.timers[kind]
	if slot.timer != nil {
		slot.timer.Stop()
		counters.cancelled.Add(1)
	} else {
		counters.live.Add(1)
	}
	counters.armed.Add(1)

	slot.gen++
	gen := slot.gen
	slot.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if slot.gen != gen || slot.timer == nil {
			s.mu.Unlock()
			return
		}
		slot.timer = nil
		s.mu.Unlock()

		counters.live.Add(-1)
		counters.fired.Add(1)
		fn()
	})
}

// Disarm cancels the live timer of kind. It reports whether one was live.
func (s *State) Disarm(kind TimerKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := &s.timers[kind]
	if slot.timer == nil {
		return false
	}
	slot.timer.Stop()
	slot.timer = nil
	slot.gen++

	counters := &s.registry.counters[kind]
	counters.live.Add(-1)
	counters.cancelled.Add(1)
	return true
}

// Armed reports whether a timer of kind is live.
func (s *State) Armed(kind TimerKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[kind].timer != nil
}

// Observe marks the start of a store read whose pending ids will be handed
// to ReplacePending. It returns the epoch to pass along. Every Observe must
// be paired with Done.
func (s *State) Observe() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readers++
	return s.epoch
}

// Done ends a read started by Observe.
func (s *State) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readers--
	if s.readers == 0 && len(s.settled) > 0 {
		s.settled = make(map[string]uint64)
	}
}

// ReplacePending makes ids the pending set, keeping their order and dropping
// duplicates. ids must come from a store read started at epoch since. Ids
// currently being committed, and ids settled after since, are skipped.
// Previously pending ids absent from ids are pruned. It returns the resulting
// pending set.
func (s *State) ReplacePending(since uint64, ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = make([]string, 0, len(ids))
	s.queued = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, busy := s.inflight[id]; busy {
			continue
		}
		if at, ok := s.settled[id]; ok && at > since {
			continue
		}
		if _, dup := s.queued[id]; dup {
			continue
		}
		s.queued[id] = struct{}{}
		s.pending = append(s.pending, id)
	}
	return append([]string(nil), s.pending...)
}

// Claim moves every pending id into the in-flight set and returns them.
// The caller must hand them back with Complete or Release.
func (s *State) Claim() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := s.pending
	s.pending = nil
	s.queued = make(map[string]struct{})
	for _, id := range claimed {
		s.inflight[id] = struct{}{}
	}
	return claimed
}

// Complete forgets ids whose commit succeeded.
func (s *State) Complete(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	for _, id := range ids {
		delete(s.inflight, id)
		if s.readers > 0 {
			s.settled[id] = s.epoch
		}
	}
}

// Release returns ids whose commit failed to the front of the pending set.
func (s *State) Release(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := make([]string, 0, len(ids)+len(s.pending))
	for _, id := range ids {
		delete(s.inflight, id)
		if _, dup := s.queued[id]; dup {
			continue
		}
		s.queued[id] = struct{}{}
		restored = append(restored, id)
	}
	s.pending = append(restored, s.pending...)
}

// Pending returns a copy of the pending set in order.
func (s *State) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pending...)
}

// PendingLen returns the number of pending ids.
func (s *State) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *State) resetPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.queued = make(map[string]struct{})
}

func (s *State) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSeen.After(cutoff) {
		return false
	}
	for _, slot := range s.timers {
		if slot.timer != nil {
			return false
		}
	}
	return len(s.pending) == 0 && len(s.inflight) == 0 && s.readers == 0
}
