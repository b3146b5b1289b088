// Package username реализует проверку доступности имени пользователя.
package username

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/response"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/username"
	profileservice "github.com/magabrotheeeer/kuitter-gate/internal/services/profile"
)

// Service проверка имени.
type Service interface {
	CheckUsername(ctx context.Context, name, currentUserID string) (bool, error)
}

// Handler обрабатывает GET /api/v1/username/availability?username=.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Доступность имени пользователя
// @Description Проверяет формат имени и занято ли оно другим пользователем. Сравнение без учёта регистра.
// @Tags Profile
// @Produce  json
// @Security BearerAuth
// @Param username query string true "Имя пользователя"
// @Success 200 {object} response.OKResponse "Результат проверки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Недопустимое имя"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /api/v1/username/availability [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.username.availability"
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

	name := r.URL.Query().Get("username")
	available, err := h.service.CheckUsername(r.Context(), name, s.UserID)
	if err != nil {
		if profileservice.IsValidationError(err) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(response.Cause(err)))
			return
		}
		log.Error("failed to check username", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check username"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"username":  username.Normalize(name),
		"available": available,
	}))
}
