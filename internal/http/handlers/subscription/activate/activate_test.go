package activate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

type MockService struct{ mock.Mock }

func (m *MockService) Activate(ctx context.Context, owner string) error {
	return m.Called(ctx, owner).Error(0)
}

func TestActivateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"успешная активация", nil, http.StatusOK, `{"status":"OK","data":{"status":"active"}}`},
		{"ошибка хранилища", errors.New("redis down"), http.StatusInternalServerError, `{"status":"Error","error":"could not activate subscription"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Activate", mock.Anything, "user-1").Return(tt.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/activate", nil)
			req = req.WithContext(middlewarectx.WithSession(req.Context(), &models.Session{UserID: "user-1", AccessToken: "t"}))
			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
