package controllers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/api/controllers"
	"futures_engine/internal/models"
)

type fakeStrategyRepo struct {
	active *models.Strategy
	all    []models.Strategy
}

func (f *fakeStrategyRepo) Active(ctx context.Context) (*models.Strategy, error) { return f.active, nil }
func (f *fakeStrategyRepo) List(ctx context.Context) ([]models.Strategy, error)  { return f.all, nil }

func TestListStrategies_ReturnsAll(t *testing.T) {
	repo := &fakeStrategyRepo{all: []models.Strategy{{Name: "default"}, {Name: "aggressive"}}}
	sc := controllers.NewStrategyController(repo)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/strategies", nil)

	sc.ListStrategies(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetActiveStrategy_NotFoundWhenNoneActive(t *testing.T) {
	sc := controllers.NewStrategyController(&fakeStrategyRepo{})

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/strategies/active", nil)

	sc.GetActiveStrategy(ctx)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no strategy is active, got %d", w.Code)
	}
}

func TestGetActiveStrategy_ReturnsTheActiveOne(t *testing.T) {
	repo := &fakeStrategyRepo{active: &models.Strategy{Name: "default"}}
	sc := controllers.NewStrategyController(repo)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/strategies/active", nil)

	sc.GetActiveStrategy(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
