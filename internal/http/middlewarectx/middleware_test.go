package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	userID := uuid.NewString()
	valid, err := maker.GenerateToken(userID, "a@example.com", "authenticated")
	require.NoError(t, err)
	notUUID, err := maker.GenerateToken("user-1", "", "")
	require.NoError(t, err)
	upper, err := maker.GenerateToken(strings.ToUpper(userID), "", "")
	require.NoError(t, err)
	foreign, err := jwt.NewJWTMaker("other", time.Hour).GenerateToken(userID, "", "")
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantCalled bool
	}{
		{"missing header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, false},
		{"garbage token", "Bearer abc", http.StatusUnauthorized, false},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, false},
		{"subject not uuid", "Bearer " + notUUID, http.StatusUnauthorized, false},
		{"valid", "Bearer " + valid, http.StatusOK, true},
		{"uppercase subject", "Bearer " + upper, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				s, ok := middlewarectx.SessionFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, userID, s.UserID)
				assert.Equal(t, strings.TrimPrefix(tt.authHeader, "Bearer "), s.AccessToken)
				assert.False(t, s.ExpiresAt.IsZero())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/route", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(maker, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if !tt.wantCalled {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestSessionFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := middlewarectx.SessionFrom(req.Context())
	assert.False(t, ok)

	ctx := middlewarectx.WithSession(req.Context(), &models.Session{UserID: "u"})
	_, ok = middlewarectx.SessionFrom(ctx)
	assert.False(t, ok, "session without token is not authenticated")
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("blocks requests exceeding burst", func(t *testing.T) {
		h := middlewarectx.RateLimitMiddleware(middlewarectx.NewLimiter(0.001, 2), newNoopLogger())(ok)
		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("buckets are per user", func(t *testing.T) {
		h := middlewarectx.RateLimitMiddleware(middlewarectx.NewLimiter(0.001, 1), newNoopLogger())(ok)
		for _, user := range []string{"alice", "bob"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(middlewarectx.WithSession(req.Context(), &models.Session{UserID: user, AccessToken: "t"}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, user)
		}
	})
}
