package controllers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/api/controllers"
	"futures_engine/internal/models"
)

type fakePerformanceRepo struct {
	rows []models.PerformanceMetric
}

func (f *fakePerformanceRepo) Upsert(ctx context.Context, m *models.PerformanceMetric) error {
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakePerformanceRepo) Range(ctx context.Context, exchangeID uint, from, to time.Time) ([]models.PerformanceMetric, error) {
	return f.rows, nil
}

func TestGetRange_ReturnsRollups(t *testing.T) {
	repo := &fakePerformanceRepo{rows: []models.PerformanceMetric{{ExchangeID: 1, TradesClosed: 3}}}
	pc := controllers.NewPerformanceController(1, repo)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/performance?days=7", nil)

	pc.GetRange(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
