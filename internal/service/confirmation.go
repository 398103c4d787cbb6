package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"candlestand-api/internal/model"
	"candlestand-api/internal/repository"
	"candlestand-api/internal/session"

	"go.uber.org/zap"
)

// ConfirmationStats counts confirmation window outcomes.
type ConfirmationStats struct {
	Confirmed      int64 `json:"confirmed"`
	Expired        int64 `json:"expired"`
	ExpiryFailures int64 `json:"expiry_failures"`
}

// ConfirmationWindow bounds how long aggregated online transactions may stay
// unconfirmed. Confirm commits them; the window running out deletes them.
type ConfirmationWindow struct {
	registry     *session.Registry
	store        repository.Store
	window       time.Duration
	storeTimeout time.Duration
	log          *zap.Logger

	confirmed      atomic.Int64
	expired        atomic.Int64
	expiryFailures atomic.Int64
}

// NewConfirmationWindow creates a window manager.
func NewConfirmationWindow(registry *session.Registry, store repository.Store, window, storeTimeout time.Duration, log *zap.Logger) *ConfirmationWindow {
	return &ConfirmationWindow{
		registry:     registry,
		store:        store,
		window:       window,
		storeTimeout: storeTimeout,
		log:          log.Named("ConfirmationWindow"),
	}
}

// Arm restarts the confirmation timer of the stand.
func (c *ConfirmationWindow) Arm(serialNumber string) {
	state := c.registry.GetOrCreate(serialNumber)
	state.Arm(session.Confirmation, c.window, func() {
		c.expire(state)
	})
}

// Confirm cancels the confirmation timer and marks every pending transaction
// of the stand confirmed in one atomic batch. It returns how many were
// confirmed. On failure the pending set is kept.
func (c *ConfirmationWindow) Confirm(ctx context.Context, serialNumber string) (int, error) {
	if serialNumber == "" {
		return 0, validationError("serial number is required")
	}

	state, ok := c.registry.Get(serialNumber)
	if !ok {
		return 0, nil
	}
	state.Disarm(session.Confirmation)

	ids := state.Claim()
	if len(ids) == 0 {
		return 0, nil
	}

	confirmed := true
	if err := c.store.BatchUpdateTransactions(ctx, ids, model.TransactionUpdate{Confirmed: &confirmed}); err != nil {
		state.Release(ids)
		return 0, fmt.Errorf("%w: %w", ErrConfirmCommitFailed, err)
	}
	state.Complete(ids)
	c.confirmed.Add(int64(len(ids)))

	c.log.Info("transactions confirmed", zap.String("serial", serialNumber), zap.Int("count", len(ids)))
	return len(ids), nil
}

// expire deletes the pending transactions of a stand whose window ran out.
// A rejected batch leaves them pending for the next arm or confirm.
func (c *ConfirmationWindow) expire(state *session.State) {
	ids := state.Claim()
	if len(ids) == 0 {
		return
	}

	log := c.log.With(zap.String("serial", state.Serial()))

	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()

	if err := c.store.BatchDeleteTransactions(ctx, ids); err != nil {
		state.Release(ids)
		c.expiryFailures.Add(1)
		log.Error("failed to delete expired transactions",
			zap.Strings("trzids", ids), zap.Error(fmt.Errorf("%w: %w", ErrExpiryCommitFailed, err)))
		return
	}
	state.Complete(ids)
	c.expired.Add(int64(len(ids)))

	log.Info("online transactions deleted due to timeout", zap.Strings("trzids", ids))
}

// Stats returns the outcome counters.
func (c *ConfirmationWindow) Stats() ConfirmationStats {
	return ConfirmationStats{
		Confirmed:      c.confirmed.Load(),
		Expired:        c.expired.Load(),
		ExpiryFailures: c.expiryFailures.Load(),
	}
}
