package service

import (
	"context"
	"errors"
	"time"

	"candlestand-api/internal/model"
	"candlestand-api/internal/repository"
	"candlestand-api/internal/session"

	"go.uber.org/zap"
)

// LivenessSupervisor marks stands inactive when they stop reporting.
type LivenessSupervisor struct {
	registry     *session.Registry
	store        repository.Store
	window       time.Duration
	storeTimeout time.Duration
	log          *zap.Logger
}

// NewLivenessSupervisor creates a supervisor with the given inactivity window.
func NewLivenessSupervisor(registry *session.Registry, store repository.Store, window, storeTimeout time.Duration, log *zap.Logger) *LivenessSupervisor {
	return &LivenessSupervisor{
		registry:     registry,
		store:        store,
		window:       window,
		storeTimeout: storeTimeout,
		log:          log.Named("LivenessSupervisor"),
	}
}

// ReportAlive restarts the inactivity timer of the stand. The last report wins.
func (l *LivenessSupervisor) ReportAlive(serialNumber string) {
	l.registry.GetOrCreate(serialNumber).Arm(session.Liveness, l.window, func() {
		l.expire(serialNumber)
	})
}

// expire runs when no report arrived within the window. A stand that is not
// in the store is left alone.
func (l *LivenessSupervisor) expire(serialNumber string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.storeTimeout)
	defer cancel()

	log := l.log.With(zap.String("serial", serialNumber))

	stand, err := l.store.FindStandBySerial(ctx, serialNumber)
	if errors.Is(err, repository.ErrNotFound) {
		log.Debug("liveness expired for unknown stand")
		return
	}
	if err != nil {
		log.Error("liveness expiry lookup failed", zap.Error(storeError("find stand", err)))
		return
	}

	inactive := false
	if err := l.store.UpdateStand(ctx, stand.SessionID, model.StandUpdate{IsActive: &inactive}); err != nil {
		log.Error("failed to mark stand inactive", zap.Error(storeError("update stand", err)))
		return
	}

	log.Info("stand set to inactive due to timeout", zap.Duration("window", l.window))
}
