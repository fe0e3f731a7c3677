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

type fakeSystemEventRepo struct {
	rows []models.SystemEvent
}

func (f *fakeSystemEventRepo) Create(ctx context.Context, ev *models.SystemEvent) error {
	f.rows = append(f.rows, *ev)
	return nil
}

func (f *fakeSystemEventRepo) Recent(ctx context.Context, limit int) ([]models.SystemEvent, error) {
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func TestGetRecent_ReturnsEvents(t *testing.T) {
	repo := &fakeSystemEventRepo{rows: []models.SystemEvent{
		{Source: "decision_loop", Severity: models.SeverityCritical, Message: "loop panicked and is restarting"},
		{Source: "account_sync", Severity: models.SeverityInfo, Message: "reconciled 3 positions"},
	}}
	sc := controllers.NewSystemEventController(repo)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/system/events?limit=1", nil)

	sc.GetRecent(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
