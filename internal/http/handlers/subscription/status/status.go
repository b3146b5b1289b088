// Package status реализует HTTP-обработчик статуса пробного периода и подписки.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/response"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

// Service проверка пробного периода.
type Service interface {
	CheckStatus(ctx context.Context, owner string) models.TrialState
}

// Handler обрабатывает GET /api/v1/subscription.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

type statusResponse struct {
	Status          models.SubscriptionStatus `json:"status"`
	TrialStartedAt  *int64                    `json:"trial_started_at,omitempty"`
	TimeRemainingMS int64                     `json:"time_remaining_ms"`
	Fallback        bool                      `json:"fallback,omitempty"`
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Description Возвращает trial, expired или active и остаток пробного периода. При первом запросе пробный период начинается.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.OKResponse "Статус подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /api/v1/subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
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

	st := h.service.CheckStatus(r.Context(), s.UserID)
	resp := statusResponse{
		Status:          st.Status,
		TimeRemainingMS: st.TimeRemaining.Milliseconds(),
		Fallback:        st.Fallback,
	}
	if st.StartedAt != nil {
		ms := st.StartedAt.UnixMilli()
		resp.TrialStartedAt = &ms
	}
	render.JSON(w, r, response.OKWithData(resp))
}
