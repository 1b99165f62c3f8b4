package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
)

type catalogSource interface {
	Refresh(ctx context.Context) (*models.SessionStats, error)
}

// CatalogRefresher periodically re-primes the session catalog so cached staff
// and learner views are never staler than the polling interval.
type CatalogRefresher struct {
	source   catalogSource
	interval time.Duration
	logger   *zap.Logger
}

// NewCatalogRefresher constructs a refresher. Non-positive intervals default to 30s.
func NewCatalogRefresher(source catalogSource, interval time.Duration, logger *zap.Logger) *CatalogRefresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRefresher{source: source, interval: interval, logger: logger}
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (r *CatalogRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Start runs the refresher in a goroutine.
func (r *CatalogRefresher) Start(ctx context.Context) {
	go r.Run(ctx)
}

func (r *CatalogRefresher) refresh(ctx context.Context) {
	stats, err := r.source.Refresh(ctx)
	if err != nil {
		r.logger.Warn("catalog refresh failed", zap.Error(err))
		return
	}
	r.logger.Debug("catalog refreshed", zap.Int("active", stats.Active), zap.Int("live", stats.Live), zap.Int("registrations", stats.Registrations))
}
