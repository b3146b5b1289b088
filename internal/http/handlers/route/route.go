// Package route реализует HTTP-обработчик выбора экрана для пользователя из токена.
package route

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

// Service вычисляет решение роутера для сессии.
type Service interface {
	Evaluate(ctx context.Context, s *models.Session) (models.Decision, error)
}

// Handler обрабатывает GET /api/v1/route.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Решение роутера
// @Description Проходит гейты по порядку и возвращает состояние и экран. Hold тоже валидное решение: навигации нет, причина в поле reason.
// @Tags Gate
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.OKResponse "Решение роутера"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /api/v1/route [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.route"
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

	d, err := h.service.Evaluate(r.Context(), s)
	if err != nil {
		log.Warn("gate result unknown", slog.String("user_id", s.UserID), sl.Err(err))
	}

	log.Info("route decided", slog.String("user_id", s.UserID), slog.String("state", d.State.String()))
	render.JSON(w, r, response.OKWithData(d))
}
