package performance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
	"futures_engine/internal/performance"
)

type fakeClosedRepo struct {
	rows []models.ClosedPosition
}

func (f *fakeClosedRepo) Create(ctx context.Context, cp *models.ClosedPosition) error { return nil }
func (f *fakeClosedRepo) ListRecent(ctx context.Context, exchangeID uint, since time.Time) ([]models.ClosedPosition, error) {
	var out []models.ClosedPosition
	for _, cp := range f.rows {
		if !cp.ExitTime.Before(since) {
			out = append(out, cp)
		}
	}
	return out, nil
}

type fakeSnapshotRepo struct {
	latest *models.PortfolioSnapshot
}

func (f *fakeSnapshotRepo) Create(ctx context.Context, snap *models.PortfolioSnapshot) error { return nil }
func (f *fakeSnapshotRepo) Upsert(ctx context.Context, snap *models.PortfolioSnapshot) error { return nil }
func (f *fakeSnapshotRepo) Latest(ctx context.Context, exchangeID uint) (*models.PortfolioSnapshot, error) {
	return f.latest, nil
}

type fakeMetricsRepo struct {
	upserted []models.PerformanceMetric
}

func (f *fakeMetricsRepo) Upsert(ctx context.Context, m *models.PerformanceMetric) error {
	f.upserted = append(f.upserted, *m)
	return nil
}
func (f *fakeMetricsRepo) Range(ctx context.Context, exchangeID uint, from, to time.Time) ([]models.PerformanceMetric, error) {
	return f.upserted, nil
}

type fakeSettingsRepo struct {
	settings *models.AccountSettings
}

func (f *fakeSettingsRepo) GetByExchange(ctx context.Context, exchangeID uint) (*models.AccountSettings, error) {
	return f.settings, nil
}
func (f *fakeSettingsRepo) Update(ctx context.Context, settings *models.AccountSettings) error {
	f.settings = settings
	return nil
}

func TestRollup_UpsertsOneRowForTheDay(t *testing.T) {
	day := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	closed := &fakeClosedRepo{rows: []models.ClosedPosition{
		{RealizedPnl: decimal.NewFromInt(50), RealizedPnlPct: decimal.NewFromInt(1), ExitTime: day.Add(3 * time.Hour)},
		{RealizedPnl: decimal.NewFromInt(-20), RealizedPnlPct: decimal.NewFromInt(-1), ExitTime: day.Add(23 * time.Hour)},
		{RealizedPnl: decimal.NewFromInt(999), RealizedPnlPct: decimal.NewFromInt(10), ExitTime: day.Add(25 * time.Hour)}, // next day, excluded
	}}
	snapshots := &fakeSnapshotRepo{latest: &models.PortfolioSnapshot{TotalEquity: decimal.NewFromInt(12000)}}
	metrics := &fakeMetricsRepo{}
	settings := &fakeSettingsRepo{settings: &models.AccountSettings{InitialCapital: decimal.NewFromInt(10000)}}

	svc := performance.New(1, closed, snapshots, metrics, settings)
	if err := svc.Rollup(context.Background(), day); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(metrics.upserted) != 1 {
		t.Fatalf("expected exactly one upsert, got %d", len(metrics.upserted))
	}
	row := metrics.upserted[0]
	if row.TradesClosed != 2 {
		t.Errorf("expected the next-day closure to be excluded, got %d trades", row.TradesClosed)
	}
	if !row.EndingEquity.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("expected ending equity from the latest snapshot, got %s", row.EndingEquity)
	}
	if !row.TotalReturnPct.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected total return pct 20 against a 10000 baseline, got %s", row.TotalReturnPct)
	}
}

func TestRollup_NoSnapshotYetDefaultsEquityToZero(t *testing.T) {
	day := time.Now().UTC()
	svc := performance.New(1, &fakeClosedRepo{}, &fakeSnapshotRepo{}, &fakeMetricsRepo{}, &fakeSettingsRepo{})

	if err := svc.Rollup(context.Background(), day); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
