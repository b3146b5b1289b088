// Package logout реализует выход пользователя на стороне gate-api.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/response"
)

// Service фиксирует выход пользователя.
type Service interface {
	LogOut(ctx context.Context, userID string)
}

// Handler обрабатывает POST /api/v1/logout.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход из аккаунта
// @Description Публикует событие выхода. Подписка и пробный период пользователя сохраняются.
// @Tags Session
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.OKResponse "Выход выполнен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /api/v1/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.logout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	s, ok := middlewarectx.SessionFrom(r.Context())
	if !ok {
		log.Error("session not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	h.service.LogOut(r.Context(), s.UserID)

	log.Info("logged out", slog.String("user_id", s.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"logged_out": true,
	}))
}
