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

// Config holds the timing and defaults of the stand service.
type Config struct {
	// LivenessWindow is how long a stand may stay silent before it is marked inactive.
	LivenessWindow time.Duration

	// ConfirmationWindow is how long aggregated online transactions may stay unconfirmed.
	ConfirmationWindow time.Duration

	// StoreTimeout bounds store calls made from timer callbacks.
	StoreTimeout time.Duration

	// Defaults are the field values of newly registered stands.
	Defaults model.StandDefaults
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		LivenessWindow:     10 * time.Second,
		ConfirmationWindow: 3 * time.Second,
		StoreTimeout:       10 * time.Second,
		Defaults:           model.DefaultStandDefaults(),
	}
}

// StandView is a stand together with its in-memory session.
type StandView struct {
	Stand             *model.Stand `json:"stand"`
	PendingIDs        []string     `json:"pending_trzids"`
	LivenessArmed     bool         `json:"liveness_armed"`
	ConfirmationArmed bool         `json:"confirmation_armed"`
}

// StandService is the entry point used by the HTTP layer.
type StandService struct {
	store      repository.Store
	registry   *session.Registry
	liveness   *LivenessSupervisor
	window     *ConfirmationWindow
	aggregator *Aggregator
	defaults   model.StandDefaults
	log        *zap.Logger
}

// NewStandService wires the session components around store.
func NewStandService(store repository.Store, registry *session.Registry, cfg Config, log *zap.Logger) *StandService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultConfig().StoreTimeout
	}

	liveness := NewLivenessSupervisor(registry, store, cfg.LivenessWindow, cfg.StoreTimeout, log)
	window := NewConfirmationWindow(registry, store, cfg.ConfirmationWindow, cfg.StoreTimeout, log)

	return &StandService{
		store:      store,
		registry:   registry,
		liveness:   liveness,
		window:     window,
		aggregator: NewAggregator(registry, store, liveness, window, log),
		defaults:   cfg.Defaults,
		log:        log.Named("StandService"),
	}
}

// RegisterOrFetch handles a stand start-up report. It returns the stored stand,
// marking it active, or registers a new one with default values. The stand's
// pending set is reset and its liveness timer restarted.
func (s *StandService) RegisterOrFetch(ctx context.Context, serialNumber string, litCandles, capacity int) (*model.Stand, error) {
	stand, _, err := s.Register(ctx, serialNumber, litCandles, capacity)
	return stand, err
}

// Register is RegisterOrFetch that also reports whether the stand was created.
func (s *StandService) Register(ctx context.Context, serialNumber string, litCandles, capacity int) (*model.Stand, bool, error) {
	if serialNumber == "" {
		return nil, false, validationError("serial number is required")
	}
	if litCandles < 0 || capacity < 0 {
		return nil, false, validationError("candle counts must not be negative")
	}

	s.liveness.ReportAlive(serialNumber)
	s.registry.ResetPending(serialNumber)

	stand, err := s.store.FindStandBySerial(ctx, serialNumber)
	if err == nil {
		active := true
		if err := s.store.UpdateStand(ctx, stand.SessionID, model.StandUpdate{IsActive: &active}); err != nil {
			return nil, false, storeError("update stand", err)
		}
		stand.IsActive = true
		return stand, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, storeError("find stand", err)
	}

	stand = s.defaults.NewStand(uid.NewTime(), serialNumber, litCandles, capacity)
	stand.IsActive = true
	if err := s.store.CreateStand(ctx, stand); err != nil {
		// a concurrent start-up of the same stand may have won the insert
		if existing, findErr := s.store.FindStandBySerial(ctx, serialNumber); findErr == nil {
			return existing, false, nil
		}
		return nil, false, storeError("create stand", err)
	}

	s.log.Info("registered stand", zap.String("serial", serialNumber), zap.String("stid", stand.SessionID))
	return stand, true, nil
}

// Reconcile handles a periodic liveness report.
func (s *StandService) Reconcile(ctx context.Context, serialNumber string, litCandles int, settledTotal int64) (*AggregateResult, error) {
	return s.aggregator.Reconcile(ctx, serialNumber, litCandles, settledTotal)
}

// Confirm commits the online transactions the stand has dispensed.
func (s *StandService) Confirm(ctx context.Context, serialNumber string) (int, error) {
	return s.window.Confirm(ctx, serialNumber)
}

// RecordOnlinePayment stores an online payment for a stand. It stays pending
// until the stand confirms it or its confirmation window runs out.
func (s *StandService) RecordOnlinePayment(ctx context.Context, serialNumber string, amount int64, candles int, content string) (*model.Transaction, error) {
	if serialNumber == "" {
		return nil, validationError("serial number is required")
	}
	if amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	if candles < 0 {
		return nil, validationError("candles must not be negative")
	}

	stand, err := s.store.FindStandBySerial(ctx, serialNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStandNotFound
	}
	if err != nil {
		return nil, storeError("find stand", err)
	}

	tx := &model.Transaction{
		ID:        uid.NewTime(),
		StandID:   stand.SessionID,
		Amount:    amount,
		Candles:   candles,
		Content:   content,
		Confirmed: false,
		Online:    true,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, storeError("create transaction", err)
	}

	s.log.Info("online payment recorded", zap.String("serial", serialNumber), zap.String("trzid", tx.ID), zap.Int64("amount", amount))
	return tx, nil
}

// GetStand returns the stored stand and its in-memory session.
func (s *StandService) GetStand(ctx context.Context, serialNumber string) (*StandView, error) {
	if serialNumber == "" {
		return nil, validationError("serial number is required")
	}

	stand, err := s.store.FindStandBySerial(ctx, serialNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStandNotFound
	}
	if err != nil {
		return nil, storeError("find stand", err)
	}

	view := &StandView{Stand: stand, PendingIDs: []string{}}
	if state, ok := s.registry.Get(serialNumber); ok {
		view.PendingIDs = state.Pending()
		view.LivenessArmed = state.Armed(session.Liveness)
		view.ConfirmationArmed = state.Armed(session.Confirmation)
	}
	return view, nil
}

// Stats returns session and confirmation counters.
func (s *StandService) Stats() map[string]interface{} {
	return map[string]interface{}{
		"sessions":     s.registry.Stats(),
		"confirmation": s.window.Stats(),
	}
}
