package profiletype

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/username"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	profileservice "github.com/magabrotheeeer/kuitter-gate/internal/services/profile"
)

type MockService struct{ mock.Mock }

func (m *MockService) SetProfileType(ctx context.Context, userID string, req models.ProfileTypeRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func TestProfileTypeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное сохранение",
			body: `{"profile_type":"anonymous","username":"Day_One"}`,
			setupMock: func(m *MockService) {
				m.On("SetProfileType", mock.Anything, "user-1", models.ProfileTypeRequest{ProfileType: "anonymous", Username: "Day_One"}).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"profile_type":"anonymous","username":"day_one"}}`,
		},
		{
			name:           "некорректный JSON",
			body:           `{`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "неизвестный тип профиля",
			body:           `{"profile_type":"private","username":"quitter"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field ProfileType must be one of [public anonymous]"}`,
		},
		{
			name: "имя занято",
			body: `{"profile_type":"public","username":"quitter"}`,
			setupMock: func(m *MockService) {
				m.On("SetProfileType", mock.Anything, "user-1", mock.Anything).Return(fmt.Errorf("op: %w", username.ErrTaken)).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"username is already taken"}`,
		},
		{
			name: "короткое имя",
			body: `{"profile_type":"public","username":"ab"}`,
			setupMock: func(m *MockService) {
				m.On("SetProfileType", mock.Anything, "user-1", mock.Anything).Return(fmt.Errorf("op: %w", username.ErrTooShort)).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"username must be at least 3 characters"}`,
		},
		{
			name: "тип профиля отвергнут сервисом",
			body: `{"profile_type":"public","username":"quitter"}`,
			setupMock: func(m *MockService) {
				m.On("SetProfileType", mock.Anything, "user-1", mock.Anything).Return(fmt.Errorf("op: %w", profileservice.ErrInvalidVisibility)).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"profile type must be public or anonymous"}`,
		},
		{
			name: "ошибка хранилища",
			body: `{"profile_type":"public","username":"quitter"}`,
			setupMock: func(m *MockService) {
				m.On("SetProfileType", mock.Anything, "user-1", mock.Anything).Return(errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not save profile"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/functions/v1/set-profile-type", strings.NewReader(tt.body))
			req = req.WithContext(middlewarectx.WithSession(req.Context(), &models.Session{UserID: "user-1", AccessToken: "t"}))
			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
