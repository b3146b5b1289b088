package gateapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/kuitter-gate/docs"

	"github.com/magabrotheeeer/kuitter-gate/internal/gate"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/functions/onboardinganswers"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/functions/profiletype"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/functions/recoverygoals"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/health"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/logout"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/route"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/subscription/activate"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/username"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	onboardingservice "github.com/magabrotheeeer/kuitter-gate/internal/services/onboarding"
	profileservice "github.com/magabrotheeeer/kuitter-gate/internal/services/profile"
	subservice "github.com/magabrotheeeer/kuitter-gate/internal/services/subscription"
)

// Services зависимости обработчиков.
type Services struct {
	Router       *gate.Router
	Subscription *subservice.SubscriptionService
	Profile      *profileservice.ProfileService
	Onboarding   *onboardingservice.OnboardingService
	Tokens       middlewarectx.TokenParser
	Limiter      *middlewarectx.Limiter
	Health       map[string]health.Pinger
	Metrics      http.Handler
}

// RegisterRoutes регистрирует все маршруты gate-api.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, svc.Health).ServeHTTP)
	if svc.Metrics != nil {
		r.Handle("/metrics", svc.Metrics)
	}
	r.Get("/docs/*", httpSwagger.WrapHandler)

	// Всё остальное требует bearer-токен.
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(svc.Tokens, logger))
		r.Use(middlewarectx.RateLimitMiddleware(svc.Limiter, logger))

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/route", route.New(logger, svc.Router).ServeHTTP)
			r.Get("/subscription", status.New(logger, svc.Subscription).ServeHTTP)
			r.Post("/subscription/activate", activate.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/username/availability", username.New(logger, svc.Profile).ServeHTTP)
			r.Post("/logout", logout.New(logger, svc.Subscription).ServeHTTP)
		})

		r.Route("/functions/v1", func(r chi.Router) {
			r.Post("/set-profile-type", profiletype.New(logger, svc.Profile).ServeHTTP)
			r.Post("/set-onboarding-answers", onboardinganswers.New(logger, svc.Onboarding).ServeHTTP)
			r.Post("/set-recovery-goals", recoverygoals.New(logger, svc.Onboarding).ServeHTTP)
		})
	})
}
