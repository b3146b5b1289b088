// Package onboardinganswers реализует функцию set-onboarding-answers.
package onboardinganswers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/response"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	onboardingservice "github.com/magabrotheeeer/kuitter-gate/internal/services/onboarding"
)

// Service сохранение ответов онбординга.
type Service interface {
	SaveAnswers(ctx context.Context, userID string, req models.OnboardingAnswersRequest) error
}

// Handler обрабатывает POST /functions/v1/set-onboarding-answers.
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
// @Summary Сохранить ответы онбординга
// @Tags Functions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.OnboardingAnswersRequest true "Ответы по вопросам"
// @Success 200 {object} response.OKResponse "Ответы сохранены"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /functions/v1/set-onboarding-answers [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.functions.onboardinganswers"
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

	var req models.OnboardingAnswersRequest
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

	err := h.service.SaveAnswers(r.Context(), s.UserID, req)
	switch {
	case err == nil:
	case onboardingservice.IsValidationError(err):
		log.Warn("invalid request", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(response.Cause(err)))
		return
	default:
		log.Error("failed to save onboarding answers", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not save onboarding answers"))
		return
	}

	log.Info("onboarding answers saved", slog.String("user_id", s.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"saved": len(req.Answers),
	}))
}
