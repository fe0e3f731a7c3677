package performance

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/interfaces/repository"
	"futures_engine/internal/models"
)

// Service rolls up the prior day's closed_positions into one PerformanceMetric
// row per tick, grounded on accountsync.Service's periodic-reconciliation
// loop shape (a ticker driving one idempotent upsert per cycle).
type Service struct {
	exchangeID uint
	closed     repository.ClosedPositionRepository
	snapshots  repository.PortfolioSnapshotRepository
	metrics    repository.PerformanceMetricRepository
	settings   repository.AccountSettingsRepository
}

func New(exchangeID uint, closed repository.ClosedPositionRepository, snapshots repository.PortfolioSnapshotRepository, metrics repository.PerformanceMetricRepository, settings repository.AccountSettingsRepository) *Service {
	return &Service{exchangeID: exchangeID, closed: closed, snapshots: snapshots, metrics: metrics, settings: settings}
}

// Run ticks every interval and rolls up the previous UTC day. A short
// interval just means most ticks re-upsert the same row, which is harmless
// since Upsert is keyed on exchange_id+date.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.rollupPreviousDay(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rollupPreviousDay(ctx)
		}
	}
}

func (s *Service) rollupPreviousDay(ctx context.Context) {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(-24 * time.Hour)
	if err := s.Rollup(ctx, day); err != nil {
		log.Printf("performance: rollup failed for %s: %v", day.Format("2006-01-02"), err)
	}
}

// Rollup computes and upserts the PerformanceMetric for the UTC calendar day
// containing `day`. Ending equity is the latest portfolio snapshot at call
// time — close enough for a daily rollup that's recomputed continuously.
func (s *Service) Rollup(ctx context.Context, day time.Time) error {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	sinceStart, err := s.closed.ListRecent(ctx, s.exchangeID, start)
	if err != nil {
		return err
	}

	within := make([]models.ClosedPosition, 0, len(sinceStart))
	for _, cp := range sinceStart {
		if cp.ExitTime.Before(end) {
			within = append(within, cp)
		}
	}

	endingEquity := decimal.Zero
	if snap, err := s.snapshots.Latest(ctx, s.exchangeID); err != nil {
		log.Printf("performance: no snapshot available for ending equity on %s: %v", start.Format("2006-01-02"), err)
	} else if snap != nil {
		endingEquity = snap.TotalEquity
	}

	initialCapital := decimal.Zero
	if settings, err := s.settings.GetByExchange(ctx, s.exchangeID); err != nil {
		log.Printf("performance: no account settings available for total-return baseline on %s: %v", start.Format("2006-01-02"), err)
	} else if settings != nil {
		initialCapital = settings.InitialCapital
	}

	metric := ComputeDailyMetric(s.exchangeID, start, within, endingEquity, initialCapital)
	return s.metrics.Upsert(ctx, metric)
}
