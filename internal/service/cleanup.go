package service

import (
	"sync"
	"time"

	"candlestand-api/internal/session"

	"go.uber.org/zap"
)

// SweepConfig holds configuration for the session sweeper.
type SweepConfig struct {
	// IdleThreshold is how long a session may go unseen before it is evicted.
	// Default: 1 hour
	IdleThreshold time.Duration

	// Interval is how often the sweep runs.
	// Default: 10 minutes
	Interval time.Duration
}

// DefaultSweepConfig returns default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		IdleThreshold: 1 * time.Hour,
		Interval:      10 * time.Minute,
	}
}

// SessionSweeper periodically evicts sessions of stands that stopped
// reporting, so the registry does not grow without bound.
type SessionSweeper struct {
	registry  *session.Registry
	config    SweepConfig
	log       *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewSessionSweeper creates a new sweeper.
func NewSessionSweeper(registry *session.Registry, config SweepConfig, log *zap.Logger) *SessionSweeper {
	defaults := DefaultSweepConfig()
	if config.IdleThreshold <= 0 {
		config.IdleThreshold = defaults.IdleThreshold
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SessionSweeper{
		registry: registry,
		config:   config,
		log:      log.Named("SessionSweeper"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop. Calling it twice is a no-op.
func (s *SessionSweeper) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.log.Info("started", zap.Duration("interval", s.config.Interval), zap.Duration("idle_threshold", s.config.IdleThreshold))

	go s.run()
}

func (s *SessionSweeper) run() {
	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stopCh:
			s.log.Info("stopped")
			return
		}
	}
}

// RunNow evicts idle sessions immediately and returns how many were dropped.
func (s *SessionSweeper) RunNow() int {
	evicted := s.registry.EvictIdle(s.config.IdleThreshold)
	if evicted > 0 {
		s.log.Info("evicted idle sessions", zap.Int("count", evicted), zap.Int("remaining", s.registry.Len()))
	}
	return evicted
}

// Stop stops the sweeper.
func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
