// Package gateapi собирает gate-api: хранилище записей, key-value хранилище,
// публикацию событий, роутер гейтов и HTTP-сервер.
package gateapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/kuitter-gate/internal/config"
	"github.com/magabrotheeeer/kuitter-gate/internal/events"
	"github.com/magabrotheeeer/kuitter-gate/internal/gate"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/handlers/health"
	"github.com/magabrotheeeer/kuitter-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/metrics"
	"github.com/magabrotheeeer/kuitter-gate/internal/migrations"
	onboardingservice "github.com/magabrotheeeer/kuitter-gate/internal/services/onboarding"
	profileservice "github.com/magabrotheeeer/kuitter-gate/internal/services/profile"
	subservice "github.com/magabrotheeeer/kuitter-gate/internal/services/subscription"
	"github.com/magabrotheeeer/kuitter-gate/internal/session"
	"github.com/magabrotheeeer/kuitter-gate/internal/storage/kv"
	"github.com/magabrotheeeer/kuitter-gate/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App приложение gate-api.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	kv     *kv.Redis
	amqp   *amqp.Connection

	audit        *amqp.Channel
	auditWorkers int
}

// New подключается ко всем зависимостям и собирает HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.gateapi.New"

	policies, err := gate.PoliciesFromConfig(cfg.Gate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisKV, err := kv.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{logger: logger, db: db, kv: redisKV}

	var publisher events.Publisher = events.Discard{}
	if cfg.RabbitURL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitURL, cfg.ConnectRetries, cfg.ConnectDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqp = conn
		ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.EventQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher = events.NewAMQPPublisher(ch, cfg.Exchange, logger)
		logger.Info("publishing domain events", slog.String("exchange", cfg.Exchange))

		if cfg.Audit {
			if app.audit, err = conn.Channel(); err != nil {
				app.close()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			app.auditWorkers = cfg.AuditWorkers
		}
	} else {
		logger.Warn("rabbitmq url is empty, domain events are discarded")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	subscriptionService := subservice.NewSubscriptionService(redisKV, logger,
		subservice.WithTrialDuration(cfg.TrialDuration),
		subservice.WithPublisher(publisher),
	)
	profileService := profileservice.NewProfileService(db, publisher, logger)
	onboardingService := onboardingservice.NewOnboardingService(db, publisher, logger)

	router := gate.NewRouter(session.NewFixed(nil), subscriptionService, profileService, onboardingService, logger,
		gate.WithPolicies(policies),
		gate.WithOwner(gate.UserOwner),
		gate.WithMetrics(metrics.NewGate(reg)),
	)

	mux := chi.NewRouter()
	RegisterRoutes(mux, logger, Services{
		Router:       router,
		Subscription: subscriptionService,
		Profile:      profileService,
		Onboarding:   onboardingService,
		Tokens:       jwt.NewJWTMaker(cfg.JWTSecretKey, time.Hour).WithIssuer(cfg.Issuer),
		Limiter:      middlewarectx.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		Health:       map[string]health.Pinger{"postgres": db, "redis": redisKV},
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      mux,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if a.audit != nil {
		g.Go(func() error {
			a.logger.Info("consuming audit events", slog.String("queue", rabbitmq.AuditQueue))
			return rabbitmq.ConsumeMessages(gctx, a.audit, rabbitmq.AuditQueue, a.auditWorkers, a.logger, events.AuditHandler(a.logger))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	})
	return g.Wait()
}

func (a *App) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", sl.Err(err))
		}
	}
}
