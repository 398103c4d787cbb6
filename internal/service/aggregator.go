package service

import (
	"context"
	"errors"
	"time"

	"candlestand-api/internal/model"
	"candlestand-api/internal/repository"
	"candlestand-api/internal/session"
	"candlestand-api/pkg/uid"

	"go.uber.org/zap"
)

// Reconcile actions returned to the stand.
const (
	ActionNone    = 0 // nothing to dispense
	ActionDisplay = 1 // online payments are waiting for the stand to confirm
)

// AggregateResult is the outcome of a liveness report.
type AggregateResult struct {
	Action       int      `json:"action"`
	Total        int64    `json:"total"`
	TotalCandles int      `json:"totalcandles"`
	PendingIDs   []string `json:"-"`
}

// Aggregator handles liveness reports: it books payments settled at the
// stand and gathers the online payments still waiting for confirmation.
type Aggregator struct {
	registry *session.Registry
	store    repository.Store
	liveness *LivenessSupervisor
	window   *ConfirmationWindow
	log      *zap.Logger
	now      func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(registry *session.Registry, store repository.Store, liveness *LivenessSupervisor, window *ConfirmationWindow, log *zap.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		store:    store,
		liveness: liveness,
		window:   window,
		log:      log.Named("Aggregator"),
		now:      time.Now,
	}
}

// Reconcile processes one liveness report of a stand.
//
// A positive settledTotal is booked as a confirmed on-site transaction; the
// stand balance is not touched. The lit candle count is always updated.
// The pending set becomes the online transactions that are unconfirmed in the
// store at query time, and a non-empty set opens the confirmation window.
func (a *Aggregator) Reconcile(ctx context.Context, serialNumber string, litCandles int, settledTotal int64) (*AggregateResult, error) {
	if serialNumber == "" {
		return nil, validationError("serial number is required")
	}
	if litCandles < 0 {
		return nil, validationError("lit candles must not be negative")
	}

	stand, err := a.store.FindStandBySerial(ctx, serialNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStandNotFound
	}
	if err != nil {
		return nil, storeError("find stand", err)
	}

	if settledTotal > 0 {
		onSite := &model.Transaction{
			ID:        uid.NewTime(),
			StandID:   stand.SessionID,
			Amount:    settledTotal,
			Content:   model.OnSiteContent,
			Confirmed: true,
			Online:    false,
			Timestamp: a.now().UTC(),
		}
		if err := a.store.CreateTransaction(ctx, onSite); err != nil {
			return nil, storeError("create transaction", err)
		}
	}

	active := true
	if err := a.store.UpdateStand(ctx, stand.SessionID, model.StandUpdate{
		CandlesOn: &litCandles,
		IsActive:  &active,
	}); err != nil {
		return nil, storeError("update stand", err)
	}

	a.liveness.ReportAlive(serialNumber)

	// commits that finish while the query runs must not be re-queued from it
	state := a.registry.GetOrCreate(serialNumber)
	since := state.Observe()
	defer state.Done()

	txs, err := a.store.FindTransactionsByStand(ctx, stand.SessionID)
	if err != nil {
		return nil, storeError("find transactions", err)
	}

	candidates := make(map[string]*model.Transaction)
	ids := make([]string, 0)
	for i := range txs {
		if txs[i].IsPendingOnline() {
			candidates[txs[i].ID] = &txs[i]
			ids = append(ids, txs[i].ID)
		}
	}

	// ids being confirmed or deleted, or settled since the query began, are left out
	pending := state.ReplacePending(since, ids)

	result := &AggregateResult{Action: ActionNone, PendingIDs: pending}
	if len(pending) == 0 {
		return result, nil
	}
	for _, id := range pending {
		result.Total += candidates[id].Amount
		result.TotalCandles += candidates[id].Candles
	}

	a.window.Arm(serialNumber)
	result.Action = ActionDisplay

	a.log.Debug("pending online transactions",
		zap.String("serial", serialNumber),
		zap.Int("count", len(result.PendingIDs)),
		zap.Int64("total", result.Total))
	return result, nil
}
