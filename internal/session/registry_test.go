package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replacePending runs ReplacePending inside its own store read.
func replacePending(s *State, ids []string) []string {
	since := s.Observe()
	defer s.Done()
	return s.ReplacePending(since, ids)
}

func TestRegistry_GetOrCreateReturnsSameState(t *testing.T) {
	r := NewRegistry()

	a := r.GetOrCreate("SN1")
	b := r.GetOrCreate("SN1")
	c := r.GetOrCreate("SN2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "SN1", a.Serial())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_GetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	states := make([]*State, 50)
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = r.GetOrCreate("SN1")
		}(i)
	}
	wg.Wait()

	for _, s := range states {
		assert.Same(t, states[0], s)
	}
	assert.Equal(t, 1, r.Len())
}

func TestState_ArmSupersedesPreviousTimer(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("SN1")

	var first, second atomic.Int32
	s.Arm(Liveness, 30*time.Millisecond, func() { first.Add(1) })
	s.Arm(Liveness, 30*time.Millisecond, func() { second.Add(1) })

	stats := r.Stats().Liveness
	assert.Equal(t, int64(1), stats.Live)
	assert.Equal(t, int64(2), stats.Armed)
	assert.Equal(t, int64(1), stats.Cancelled)

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
	assert.False(t, s.Armed(Liveness))
	assert.Equal(t, int64(0), r.Stats().Liveness.Live)
	assert.Equal(t, int64(1), r.Stats().Liveness.Fired)
}

func TestState_DisarmPreventsCallback(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("SN1")

	var fired atomic.Bool
	s.Arm(Confirmation, 20*time.Millisecond, func() { fired.Store(true) })
	require.True(t, s.Armed(Confirmation))

	assert.True(t, s.Disarm(Confirmation))
	assert.False(t, s.Disarm(Confirmation))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Equal(t, int64(0), r.Stats().Confirmation.Live)
}

func TestState_TimerKindsAreIndependent(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("SN1")

	s.Arm(Liveness, time.Hour, func() {})
	s.Arm(Confirmation, time.Hour, func() {})
	defer s.Disarm(Liveness)
	defer s.Disarm(Confirmation)

	s.Arm(Confirmation, time.Hour, func() {})

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Liveness.Live)
	assert.Equal(t, int64(1), stats.Confirmation.Live)
	assert.Equal(t, int64(0), stats.Liveness.Cancelled)
	assert.Equal(t, int64(1), stats.Confirmation.Cancelled)
}

func TestState_ManyRearmsKeepOneLiveTimer(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("SN1")

	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Arm(Liveness, 200*time.Millisecond, func() { fired.Add(1) })
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), r.Stats().Liveness.Live)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestState_ReplacePending(t *testing.T) {
	s := NewRegistry().GetOrCreate("SN1")

	got := replacePending(s, []string{"A", "B", "A", "C"})
	assert.Equal(t, []string{"A", "B", "C"}, got)

	got = replacePending(s, []string{"C", "D"})
	assert.Equal(t, []string{"C", "D"}, got, "ids no longer reported are pruned")

	got = replacePending(s, nil)
	assert.Empty(t, got)
	assert.Equal(t, 0, s.PendingLen())
}

func TestState_ClaimCompleteRelease(t *testing.T) {
	s := NewRegistry().GetOrCreate("SN1")
	replacePending(s, []string{"A", "B"})

	claimed := s.Claim()
	assert.Equal(t, []string{"A", "B"}, claimed)
	assert.Empty(t, s.Pending())

	// in-flight ids are not re-queued by a concurrent reconcile
	assert.Equal(t, []string{"C"}, replacePending(s, []string{"A", "B", "C"}))

	s.Release(claimed)
	assert.Equal(t, []string{"A", "B", "C"}, s.Pending())

	claimed = s.Claim()
	s.Complete(claimed)
	assert.Empty(t, s.Pending())
	assert.Empty(t, s.Claim())
}

func TestRegistry_ResetPending(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("SN1")
	replacePending(s, []string{"A"})

	r.ResetPending("SN1")
	r.ResetPending("unknown")

	assert.Empty(t, s.Pending())
}

func TestRegistry_EvictIdle(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.now = func() time.Time { return now }

	idle := r.GetOrCreate("idle")
	busyTimer := r.GetOrCreate("timer")
	busyTimer.Arm(Liveness, time.Hour, func() {})
	defer busyTimer.Disarm(Liveness)
	busyPending := r.GetOrCreate("pending")
	replacePending(busyPending, []string{"A"})

	now = now.Add(2 * time.Hour)
	r.GetOrCreate("fresh")

	evicted := r.EvictIdle(time.Hour)

	assert.Equal(t, 1, evicted)
	_, ok := r.Get("idle")
	assert.False(t, ok)
	for _, serial := range []string{"timer", "pending", "fresh"} {
		_, ok := r.Get(serial)
		assert.True(t, ok, serial)
	}
	assert.NotSame(t, idle, r.GetOrCreate("idle"))
}

func TestTimerKind_String(t *testing.T) {
	assert.Equal(t, "liveness", Liveness.String())
	assert.Equal(t, "confirmation", Confirmation.String())
	assert.Equal(t, "unknown", TimerKind(7).String())
}

func TestState_ReplacePendingSkipsIDsSettledDuringRead(t *testing.T) {
	s := NewRegistry().GetOrCreate("SN1")
	replacePending(s, []string{"A", "B"})

	// a read starts while A and B are pending
	since := s.Observe()

	claimed := s.Claim()
	s.Complete(claimed)

	// the read still reports A and B as pending, plus a newer C
	got := s.ReplacePending(since, []string{"A", "B", "C"})
	s.Done()
	assert.Equal(t, []string{"C"}, got)

	// a read started after the commit sees the store as it is
	assert.Equal(t, []string{"A", "C"}, replacePending(s, []string{"A", "C"}))
}

func TestState_SettledIDsForgottenWithoutReaders(t *testing.T) {
	s := NewRegistry().GetOrCreate("SN1")
	replacePending(s, []string{"A"})

	since := s.Observe()
	s.Complete(s.Claim())
	s.Done()

	s.mu.Lock()
	assert.Empty(t, s.settled)
	s.mu.Unlock()

	// a stale epoch alone no longer filters anything
	assert.Equal(t, []string{"A"}, s.ReplacePending(since, []string{"A"}))
}

func TestRegistry_EvictIdleKeepsStatesWithOpenReads(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("SN1")
	s.Observe()

	assert.Equal(t, 0, r.EvictIdle(-time.Hour))
	s.Done()
	assert.Equal(t, 1, r.EvictIdle(-time.Hour))
}

func TestRegistry_StopAll(t *testing.T) {
	r := NewRegistry()

	var fired atomic.Int32
	for _, serial := range []string{"SN1", "SN2"} {
		s := r.GetOrCreate(serial)
		s.Arm(Liveness, 30*time.Millisecond, func() { fired.Add(1) })
		s.Arm(Confirmation, 30*time.Millisecond, func() { fired.Add(1) })
	}

	assert.Equal(t, 4, r.StopAll())

	stats := r.Stats()
	assert.Equal(t, int64(0), stats.Liveness.Live)
	assert.Equal(t, int64(0), stats.Confirmation.Live)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, r.StopAll())
}
