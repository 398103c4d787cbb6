package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"candlestand-api/internal/model"
	"candlestand-api/internal/repository"
	"candlestand-api/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyStore fails batch operations on demand and can hold a transaction
// query after it has read the store.
type flakyStore struct {
	*repository.MemoryStore

	mu         sync.Mutex
	failUpdate error
	failDelete error
	held       *queryGate
}

type queryGate struct {
	entered chan struct{}
	release chan struct{}
}

// holdNextQuery parks the next FindTransactionsByStand between reading the
// store and returning until release is closed.
func (f *flakyStore) holdNextQuery() (entered <-chan struct{}, release chan<- struct{}) {
	g := &queryGate{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.held = g
	f.mu.Unlock()
	return g.entered, g.release
}

func (f *flakyStore) FindTransactionsByStand(ctx context.Context, sessionID string) ([]model.Transaction, error) {
	txs, err := f.MemoryStore.FindTransactionsByStand(ctx, sessionID)

	f.mu.Lock()
	g := f.held
	f.held = nil
	f.mu.Unlock()

	if g != nil {
		close(g.entered)
		<-g.release
	}
	return txs, err
}

func (f *flakyStore) setFailures(update, del error) {
	f.mu.Lock()
	f.failUpdate, f.failDelete = update, del
	f.mu.Unlock()
}

func (f *flakyStore) BatchUpdateTransactions(ctx context.Context, ids []string, update model.TransactionUpdate) error {
	f.mu.Lock()
	err := f.failUpdate
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.BatchUpdateTransactions(ctx, ids, update)
}

func (f *flakyStore) BatchDeleteTransactions(ctx context.Context, ids []string) error {
	f.mu.Lock()
	err := f.failDelete
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.BatchDeleteTransactions(ctx, ids)
}

type fixture struct {
	svc      *StandService
	store    *flakyStore
	registry *session.Registry
}

func newFixture(t *testing.T, liveness, confirmation time.Duration) *fixture {
	t.Helper()

	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	registry := session.NewRegistry()
	cfg := DefaultConfig()
	cfg.LivenessWindow = liveness
	cfg.ConfirmationWindow = confirmation
	cfg.StoreTimeout = time.Second

	return &fixture{
		svc:      NewStandService(store, registry, cfg, zap.NewNop()),
		store:    store,
		registry: registry,
	}
}

func (f *fixture) stand(t *testing.T, serial string) *model.Stand {
	t.Helper()
	stand, err := f.store.FindStandBySerial(context.Background(), serial)
	require.NoError(t, err)
	return stand
}

func (f *fixture) transaction(t *testing.T, id string) *model.Transaction {
	t.Helper()
	tx, err := f.store.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func (f *fixture) exists(id string) bool {
	_, err := f.store.GetTransaction(context.Background(), id)
	return err == nil
}

func TestRegisterOrFetch_CreatesStandWithDefaults(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	stand, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)

	assert.Equal(t, "SN1", stand.SerialNumber)
	assert.NotEmpty(t, stand.SessionID)
	assert.True(t, stand.IsActive)
	assert.Equal(t, 5, stand.TotalCandles)
	assert.Equal(t, 0, stand.CandlesOn)
	assert.Equal(t, "DefaultMessage", stand.Message)
	assert.Equal(t, "DefaultAddress", stand.Address)
	assert.Equal(t, 1, stand.Currency)
	assert.Equal(t, "Unassigned", stand.OwnerUID)
	assert.Equal(t, int64(0), stand.Balance)
}

func TestRegisterOrFetch_IsIdempotent(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	first, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	second, err := f.svc.RegisterOrFetch(ctx, "SN1", 3, 9)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)

	_, created, err := f.svc.Register(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	assert.False(t, created)
	_, created, err = f.svc.Register(ctx, "SN2", 0, 5)
	require.NoError(t, err)
	assert.True(t, created)

	stats, err := f.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_stands"])
	assert.Equal(t, int64(2), f.registry.Stats().Liveness.Live)
}

func TestRegisterOrFetch_ReactivatesStand(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	stand, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)

	inactive := false
	require.NoError(t, f.store.UpdateStand(ctx, stand.SessionID, model.StandUpdate{IsActive: &inactive}))

	again, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	assert.True(t, again.IsActive)
	assert.True(t, f.stand(t, "SN1").IsActive)
}

func TestRegisterOrFetch_Validation(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)

	_, err := f.svc.RegisterOrFetch(context.Background(), "", 0, 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RegisterOrFetch(context.Background(), "SN1", -1, 5)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 0, f.registry.Len())
}

func TestLiveness_MarksStandInactiveAfterWindow(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond, time.Hour)

	_, err := f.svc.RegisterOrFetch(context.Background(), "SN1", 0, 5)
	require.NoError(t, err)
	require.True(t, f.stand(t, "SN1").IsActive)

	require.Eventually(t, func() bool {
		return !f.stand(t, "SN1").IsActive
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), f.registry.Stats().Liveness.Live)
}

func TestLiveness_ReportsKeepStandActive(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond, time.Hour)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		_, err := f.svc.Reconcile(ctx, "SN1", 1, 0)
		require.NoError(t, err)
	}

	assert.True(t, f.stand(t, "SN1").IsActive)
	assert.Equal(t, int64(0), f.registry.Stats().Liveness.Fired)
	assert.Equal(t, int64(1), f.registry.Stats().Liveness.Live)

	require.Eventually(t, func() bool {
		return !f.stand(t, "SN1").IsActive
	}, time.Second, 5*time.Millisecond)
}

func TestLiveness_UnknownStandIsIgnored(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond, time.Hour)

	f.svc.liveness.ReportAlive("ghost")

	require.Eventually(t, func() bool {
		return f.registry.Stats().Liveness.Fired == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.store.FindStandBySerial(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReconcile_BooksSettledTotalAndAggregatesPending(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	stand, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	online, err := f.svc.RecordOnlinePayment(ctx, "SN1", 50, 3, "for grandma")
	require.NoError(t, err)

	result, err := f.svc.Reconcile(ctx, "SN1", 2, 100)
	require.NoError(t, err)

	assert.Equal(t, ActionDisplay, result.Action)
	assert.Equal(t, int64(50), result.Total)
	assert.Equal(t, 3, result.TotalCandles)
	assert.Equal(t, []string{online.ID}, result.PendingIDs)

	txs, err := f.store.FindTransactionsByStand(ctx, stand.SessionID)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	var onSite *model.Transaction
	for i := range txs {
		if txs[i].ID != online.ID {
			onSite = &txs[i]
		}
	}
	require.NotNil(t, onSite)
	assert.Equal(t, int64(100), onSite.Amount)
	assert.True(t, onSite.Confirmed)
	assert.False(t, onSite.Online)
	assert.Equal(t, model.OnSiteContent, onSite.Content)

	updated := f.stand(t, "SN1")
	assert.Equal(t, 2, updated.CandlesOn)
	assert.Equal(t, int64(0), updated.Balance, "on-site payments do not change the balance")
	assert.Equal(t, int64(1), f.registry.Stats().Confirmation.Live)
}

func TestReconcile_ZeroSettledTotalOnlyUpdatesCandles(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	stand, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)

	result, err := f.svc.Reconcile(ctx, "SN1", 4, 0)
	require.NoError(t, err)

	assert.Equal(t, ActionNone, result.Action)
	assert.Zero(t, result.Total)
	assert.Equal(t, 4, f.stand(t, "SN1").CandlesOn)

	txs, err := f.store.FindTransactionsByStand(ctx, stand.SessionID)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, int64(0), f.registry.Stats().Confirmation.Armed)
}

func TestReconcile_Errors(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.Reconcile(ctx, "", 0, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Reconcile(ctx, "SN404", 1, 100)
	assert.ErrorIs(t, err, ErrStandNotFound)

	stats, err := f.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats["total_transactions"])
	assert.Equal(t, int64(0), f.registry.Stats().Liveness.Armed)
}

func TestReconcile_RepeatedReportsKeepOneTimerAndNoDuplicates(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 10, 1, "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		result, err := f.svc.Reconcile(ctx, "SN1", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID}, result.PendingIDs)
		assert.Equal(t, int64(10), result.Total)
	}

	stats := f.registry.Stats()
	assert.Equal(t, int64(1), stats.Confirmation.Live)
	assert.Equal(t, int64(1), stats.Liveness.Live)
	assert.Equal(t, 1, stats.PendingIDs)
}

func TestConfirm_MarksExactlyTheReconciledSnapshot(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)
	b, err := f.svc.RecordOnlinePayment(ctx, "SN1", 30, 2, "")
	require.NoError(t, err)

	result, err := f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.ID, b.ID}, result.PendingIDs)
	assert.Equal(t, int64(50), result.Total)
	assert.Equal(t, 3, result.TotalCandles)

	late, err := f.svc.RecordOnlinePayment(ctx, "SN1", 40, 1, "")
	require.NoError(t, err)

	n, err := f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, f.transaction(t, a.ID).Confirmed)
	assert.True(t, f.transaction(t, b.ID).Confirmed)
	assert.False(t, f.transaction(t, late.ID).Confirmed)

	state, ok := f.registry.Get("SN1")
	require.True(t, ok)
	assert.Empty(t, state.Pending())
	assert.False(t, state.Armed(session.Confirmation))
	assert.Equal(t, int64(2), f.svc.window.Stats().Confirmed)
}

func TestConfirm_NothingPending(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)

	n, err := f.svc.Confirm(context.Background(), "SN1")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.Confirm(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmationWindow_ExpiryDeletesPendingSet(t *testing.T) {
	f := newFixture(t, time.Hour, 40*time.Millisecond)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)

	result, err := f.svc.Reconcile(ctx, "SN1", 0, 75)
	require.NoError(t, err)
	require.Equal(t, ActionDisplay, result.Action)

	require.Eventually(t, func() bool {
		return f.svc.window.Stats().Expired == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, f.exists(a.ID))
	state, _ := f.registry.Get("SN1")
	assert.Empty(t, state.Pending())

	result, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action)

	stats, err := f.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["total_transactions"], "the confirmed on-site payment survives")
}

func TestConfirmationWindow_ConfirmBeforeExpiry(t *testing.T) {
	f := newFixture(t, time.Hour, 60*time.Millisecond)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)

	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	assert.True(t, f.transaction(t, a.ID).Confirmed)
	assert.Equal(t, int64(0), f.registry.Stats().Confirmation.Fired)
}

func TestConfirmationWindow_ExpiryFailureKeepsPendingSet(t *testing.T) {
	f := newFixture(t, time.Hour, 30*time.Millisecond)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)

	f.store.setFailures(nil, errors.New("batch rejected"))

	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.svc.window.Stats().ExpiryFailures == 1
	}, time.Second, 5*time.Millisecond)

	state, _ := f.registry.Get("SN1")
	assert.Equal(t, []string{a.ID}, state.Pending())
	assert.True(t, f.exists(a.ID))

	f.store.setFailures(nil, nil)
	n, err := f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.transaction(t, a.ID).Confirmed)
}

func TestConfirm_FailureKeepsPendingSetForRetry(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)
	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)

	f.store.setFailures(errors.New("batch rejected"), nil)
	_, err = f.svc.Confirm(ctx, "SN1")
	require.ErrorIs(t, err, ErrConfirmCommitFailed)

	state, _ := f.registry.Get("SN1")
	assert.Equal(t, []string{a.ID}, state.Pending())
	assert.False(t, f.transaction(t, a.ID).Confirmed)

	f.store.setFailures(nil, nil)
	n, err := f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.transaction(t, a.ID).Confirmed)
}

type reconcileOutcome struct {
	result *AggregateResult
	err    error
}

func reconcileAsync(f *fixture, serial string) <-chan reconcileOutcome {
	out := make(chan reconcileOutcome, 1)
	go func() {
		result, err := f.svc.Reconcile(context.Background(), serial, 0, 0)
		out <- reconcileOutcome{result, err}
	}()
	return out
}

func TestReconcile_StaleReadDoesNotRequeueConfirmed(t *testing.T) {
	f := newFixture(t, time.Hour, 40*time.Millisecond)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)
	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)

	entered, release := f.store.holdNextQuery()
	done := reconcileAsync(f, "SN1")
	<-entered

	// the held query has already seen a as unconfirmed
	n, err := f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	close(release)

	out := <-done
	require.NoError(t, out.err)
	assert.Empty(t, out.result.PendingIDs)
	assert.Equal(t, ActionNone, out.result.Action)

	state, _ := f.registry.Get("SN1")
	assert.Empty(t, state.Pending())
	assert.False(t, state.Armed(session.Confirmation))

	time.Sleep(100 * time.Millisecond)

	require.True(t, f.exists(a.ID))
	assert.True(t, f.transaction(t, a.ID).Confirmed)
	assert.Zero(t, f.svc.window.Stats().Expired)
}

func TestReconcile_StaleReadDoesNotRequeueExpired(t *testing.T) {
	f := newFixture(t, time.Hour, 30*time.Millisecond)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)
	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)

	entered, release := f.store.holdNextQuery()
	done := reconcileAsync(f, "SN1")
	<-entered

	require.Eventually(t, func() bool {
		return f.svc.window.Stats().Expired == 1
	}, time.Second, 5*time.Millisecond)
	close(release)

	out := <-done
	require.NoError(t, out.err)
	assert.Empty(t, out.result.PendingIDs)
	assert.False(t, f.exists(a.ID))

	n, err := f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcile_PrunesIDsRemovedFromStore(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)
	b, err := f.svc.RecordOnlinePayment(ctx, "SN1", 30, 1, "")
	require.NoError(t, err)

	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)

	require.NoError(t, f.store.BatchDeleteTransactions(ctx, []string{a.ID}))

	result, err := f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, result.PendingIDs)
	assert.Equal(t, int64(30), result.Total)

	n, err := f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegisterOrFetch_ResetsPendingSet(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 20, 1, "")
	require.NoError(t, err)
	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)

	_, err = f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)

	n, err := f.svc.Confirm(ctx, "SN1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, f.transaction(t, a.ID).Confirmed)
}

func TestRecordOnlinePayment(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.RecordOnlinePayment(ctx, "SN1", 10, 1, "")
	assert.ErrorIs(t, err, ErrStandNotFound)

	_, err = f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)

	_, err = f.svc.RecordOnlinePayment(ctx, "SN1", 0, 1, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.RecordOnlinePayment(ctx, "SN1", 10, -1, "")
	assert.ErrorIs(t, err, ErrValidation)

	tx, err := f.svc.RecordOnlinePayment(ctx, "SN1", 10, 2, "hello")
	require.NoError(t, err)
	assert.True(t, tx.Online)
	assert.False(t, tx.Confirmed)
	assert.Equal(t, "hello", tx.Content)
}

func TestGetStand(t *testing.T) {
	f := newFixture(t, time.Hour, time.Hour)
	ctx := context.Background()

	_, err := f.svc.GetStand(ctx, "SN1")
	assert.ErrorIs(t, err, ErrStandNotFound)

	_, err = f.svc.RegisterOrFetch(ctx, "SN1", 0, 5)
	require.NoError(t, err)
	a, err := f.svc.RecordOnlinePayment(ctx, "SN1", 10, 2, "")
	require.NoError(t, err)
	_, err = f.svc.Reconcile(ctx, "SN1", 0, 0)
	require.NoError(t, err)

	view, err := f.svc.GetStand(ctx, "SN1")
	require.NoError(t, err)
	assert.Equal(t, "SN1", view.Stand.SerialNumber)
	assert.Equal(t, []string{a.ID}, view.PendingIDs)
	assert.True(t, view.LivenessArmed)
	assert.True(t, view.ConfirmationArmed)
}

func TestSessionSweeper_RunNow(t *testing.T) {
	registry := session.NewRegistry()
	registry.GetOrCreate("SN1")

	sweeper := NewSessionSweeper(registry, SweepConfig{IdleThreshold: time.Nanosecond, Interval: time.Hour}, zap.NewNop())
	sweeper.Start()
	sweeper.Start()
	defer sweeper.Stop()

	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, sweeper.RunNow())
	assert.Equal(t, 0, registry.Len())
	sweeper.Stop()
}
