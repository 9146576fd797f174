package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/internal/idp/store"
)

// DefaultHousekeepingInterval is used when no interval is configured.
const DefaultHousekeepingInterval = time.Hour

// HousekeepingService periodically removes expired refresh tokens and
// clears authorization codes that were never exchanged.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// HousekeepingResult counts the rows one cleanup touched.
type HousekeepingResult struct {
	RefreshTokens int64
	Codes         int64
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval falls back to DefaultHousekeepingInterval.
func NewHousekeepingService(s store.Store, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		Store:    s,
		Logger:   logger,
		Metrics:  m,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and waits for an in-flight cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass. Each deletion is independent; a failure is
// logged and the next one still runs.
func (s *HousekeepingService) Cleanup(ctx context.Context) HousekeepingResult {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	var res HousekeepingResult
	var err error

	if res.RefreshTokens, err = s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "err", err)
	} else {
		s.Metrics.HousekeepingRemoved("refresh_tokens", res.RefreshTokens)
	}

	if res.Codes, err = s.Store.Registrations().ClearExpiredCodes(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired authorization codes", "err", err)
	} else {
		s.Metrics.HousekeepingRemoved("authorization_codes", res.Codes)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"refresh_tokens", res.RefreshTokens,
		"authorization_codes", res.Codes,
	)
	return res
}
