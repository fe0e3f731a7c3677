package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/api/controllers"
	"futures_engine/internal/coordinator"
	"futures_engine/internal/models"
)

type fakePositionRepo struct {
	open []models.Position
}

func (f *fakePositionRepo) GetOpen(ctx context.Context, exchangeID uint, symbol string, side models.OrderSide) (*models.Position, error) {
	return nil, nil
}
func (f *fakePositionRepo) ListOpen(ctx context.Context, exchangeID uint) ([]models.Position, error) {
	return f.open, nil
}
func (f *fakePositionRepo) Upsert(ctx context.Context, pos *models.Position) error { return nil }
func (f *fakePositionRepo) Close(ctx context.Context, id uint) error               { return nil }

type fakeClosedRepo struct {
	recent []models.ClosedPosition
	since  time.Time
}

func (f *fakeClosedRepo) Create(ctx context.Context, cp *models.ClosedPosition) error { return nil }
func (f *fakeClosedRepo) ListRecent(ctx context.Context, exchangeID uint, since time.Time) ([]models.ClosedPosition, error) {
	f.since = since
	return f.recent, nil
}

type fakeSignalRepo struct {
	recent []models.TradingSignal
	since  time.Time
}

func (f *fakeSignalRepo) Create(ctx context.Context, sig *models.TradingSignal) error { return nil }
func (f *fakeSignalRepo) LatestForSymbol(ctx context.Context, symbol string, since time.Time) (*models.TradingSignal, error) {
	return nil, nil
}
func (f *fakeSignalRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]models.TradingSignal, error) {
	f.since = since
	return f.recent, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGetOpenPositions_ReturnsCount(t *testing.T) {
	positions := &fakePositionRepo{open: []models.Position{{Symbol: "BTC/USDT:USDT"}}}
	tc := controllers.NewTradingController(1, coordinator.New(nil, nil, nil, nil, time.Minute, time.Hour), positions, &fakeClosedRepo{}, &fakeSignalRepo{})

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)

	tc.GetOpenPositions(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("expected count 1, got %d", body.Count)
	}
}

func TestGetCurrentRegime_NotFoundWithNoCycleYet(t *testing.T) {
	coord := coordinator.New(nil, nil, nil, nil, time.Minute, time.Hour)
	tc := controllers.NewTradingController(1, coord, &fakePositionRepo{}, &fakeClosedRepo{}, &fakeSignalRepo{})

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/regime", nil)

	tc.GetCurrentRegime(ctx)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any strategist cycle has run, got %d", w.Code)
	}
}

func TestGetClosedPositions_DefaultsLookbackTo24Hours(t *testing.T) {
	closed := &fakeClosedRepo{recent: []models.ClosedPosition{{Symbol: "ETH/USDT:USDT"}}}
	tc := controllers.NewTradingController(1, coordinator.New(nil, nil, nil, nil, time.Minute, time.Hour), &fakePositionRepo{}, closed, &fakeSignalRepo{})

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/positions/closed", nil)

	tc.GetClosedPositions(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if lookback := time.Since(closed.since); lookback < 24*time.Hour || lookback > 24*time.Hour+time.Minute {
		t.Errorf("expected a 24h default lookback, got %v", lookback)
	}
}

func TestGetRecentSignals_HonorsMinutesQueryParam(t *testing.T) {
	signals := &fakeSignalRepo{recent: []models.TradingSignal{{Symbol: "BTC/USDT:USDT"}}}
	tc := controllers.NewTradingController(1, coordinator.New(nil, nil, nil, nil, time.Minute, time.Hour), &fakePositionRepo{}, &fakeClosedRepo{}, signals)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/signals?minutes=15", nil)

	tc.GetRecentSignals(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if lookback := time.Since(signals.since); lookback < 15*time.Minute || lookback > 16*time.Minute {
		t.Errorf("expected the minutes=15 query param to set a 15m lookback, got %v", lookback)
	}
}
