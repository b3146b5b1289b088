package status

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

type MockService struct{ mock.Mock }

func (m *MockService) CheckStatus(ctx context.Context, owner string) models.TrialState {
	return m.Called(ctx, owner).Get(0).(models.TrialState)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	started := time.UnixMilli(1_700_000_000_000)

	svc := new(MockService)
	svc.On("CheckStatus", mock.Anything, "user-1").Return(models.TrialState{
		StartedAt:     &started,
		Status:        models.StatusTrial,
		TimeRemaining: 2 * time.Hour,
	}).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
	req = req.WithContext(middlewarectx.WithSession(req.Context(), &models.Session{UserID: "user-1", AccessToken: "t"}))
	w := httptest.NewRecorder()
	New(logger, svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","data":{"status":"trial","trial_started_at":1700000000000,"time_remaining_ms":7200000}}`, w.Body.String())
	svc.AssertExpectations(t)

	w = httptest.NewRecorder()
	New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
