// Package activate реализует HTTP-обработчик записи оплаченной подписки.
package activate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/response"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

// Service активация подписки.
type Service interface {
	Activate(ctx context.Context, owner string) error
}

// Handler обрабатывает POST /api/v1/subscription/activate. Повторный вызов безопасен.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Активировать подписку
// @Description Записывает оплаченную подписку. Повторный вызов безопасен.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.OKResponse "Подписка активна"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /api/v1/subscription/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.activate"
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

	if err := h.service.Activate(r.Context(), s.UserID); err != nil {
		log.Error("failed to activate subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not activate subscription"))
		return
	}

	log.Info("subscription activated", slog.String("user_id", s.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": models.StatusActive,
	}))
}
