// Package profiletype реализует функцию set-profile-type: выбор видимости профиля и имени.
package profiletype

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/response"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/username"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	profileservice "github.com/magabrotheeeer/kuitter-gate/internal/services/profile"
)

// Service сохранение типа профиля.
type Service interface {
	SetProfileType(ctx context.Context, userID string, req models.ProfileTypeRequest) error
}

// Handler обрабатывает POST /functions/v1/set-profile-type.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сохранить тип профиля
// @Description Сохраняет видимость профиля и имя пользователя. Имя приводится к нижнему регистру.
// @Tags Functions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.ProfileTypeRequest true "Тип профиля и имя"
// @Success 200 {object} response.OKResponse "Профиль сохранён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Имя занято"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /functions/v1/set-profile-type [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.functions.profiletype"
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

	var req models.ProfileTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.SetProfileType(r.Context(), s.UserID, req)
	switch {
	case err == nil:
	case errors.Is(err, username.ErrTaken):
		log.Info("username taken", slog.String("user_id", s.UserID))
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error(username.ErrTaken.Error()))
		return
	case profileservice.IsValidationError(err):
		log.Warn("invalid profile", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(response.Cause(err)))
		return
	default:
		log.Error("failed to set profile type", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not save profile"))
		return
	}

	log.Info("profile type set", slog.String("user_id", s.UserID), slog.String("profile_type", req.ProfileType))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"profile_type": req.ProfileType,
		"username":     username.Normalize(req.Username),
	}))
}
