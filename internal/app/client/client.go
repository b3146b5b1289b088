// Package client собирает клиентскую оболочку kuitter: сессию, локальное хранилище
// устройства, гейты и навигатор экранов поверх хостингового бэкенда.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/kuitter-gate/internal/client/backend"
	"github.com/magabrotheeeer/kuitter-gate/internal/config"
	"github.com/magabrotheeeer/kuitter-gate/internal/events"
	"github.com/magabrotheeeer/kuitter-gate/internal/gate"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/navigator"
	onboardingservice "github.com/magabrotheeeer/kuitter-gate/internal/services/onboarding"
	profileservice "github.com/magabrotheeeer/kuitter-gate/internal/services/profile"
	subservice "github.com/magabrotheeeer/kuitter-gate/internal/services/subscription"
	themeservice "github.com/magabrotheeeer/kuitter-gate/internal/services/theme"
	"github.com/magabrotheeeer/kuitter-gate/internal/session"
	"github.com/magabrotheeeer/kuitter-gate/internal/storage/kv"
)

// ErrNotSignedIn действие требует входа.
var ErrNotSignedIn = errors.New("not signed in")

// App клиентская оболочка.
type App struct {
	logger    *slog.Logger
	namespace string

	store    *kv.SQLite
	auth     *backend.Auth
	provider *session.Provider
	nav      *navigator.Navigator

	subscription *subservice.SubscriptionService
	profile      *profileservice.ProfileService
	onboarding   *onboardingservice.OnboardingService
	theme        *themeservice.ThemeService

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New открывает локальное хранилище, восстанавливает сессию и запускает её обновление.
// sink получает каждый переход между экранами.
func New(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger, sink navigator.Sink) (*App, error) {
	const op = "app.client.New"

	policies, err := gate.PoliciesFromConfig(cfg.Gate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, err := kv.OpenSQLite(ctx, cfg.LocalStorePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	device := store.For(cfg.DeviceNamespace)

	api := backend.NewClient(cfg.BackendURL, cfg.AnonKey, cfg.TimeoutBackend)
	auth := backend.NewAuth(api, device, logger)
	records := backend.NewRecords(api, auth)

	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		logger:       logger,
		namespace:    cfg.DeviceNamespace,
		store:        store,
		auth:         auth,
		provider:     session.NewProvider(ctx, auth, logger),
		subscription: subservice.NewSubscriptionService(store, logger, subservice.WithTrialDuration(cfg.TrialDuration)),
		profile:      profileservice.NewProfileService(records, events.Discard{}, logger),
		onboarding:   onboardingservice.NewOnboardingService(records, events.Discard{}, logger),
		theme:        themeservice.NewThemeService(device, logger),
		cancel:       cancel,
	}

	router := gate.NewRouter(a.provider, a.subscription, a.profile, a.onboarding, logger,
		gate.WithPolicies(policies),
		gate.WithOwner(gate.DeviceOwner(cfg.DeviceNamespace)),
	)
	a.nav = navigator.New(router, sink, logger)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		auth.RunRefresher(ctx, cfg.RefreshMargin)
	}()
	return a, nil
}

// Close останавливает обновление сессии и закрывает хранилище.
func (a *App) Close() error {
	a.cancel()
	a.wg.Wait()
	a.provider.Close()
	return a.store.Close()
}

// Show монтирует экран from, дожидается загрузки сессии и проверяет гейты.
// Возвращает решение и признак перехода.
func (a *App) Show(ctx context.Context, from models.Route, opts ...navigator.MountOption) (models.Decision, bool, error) {
	const op = "app.client.Show"
	if _, err := a.provider.Wait(ctx); err != nil {
		return models.NewDecision(models.StateHold, "session unavailable"), false, fmt.Errorf("%s: %w", op, err)
	}

	screen := a.nav.Mount(ctx, from, opts...)
	defer screen.Unmount()
	return screen.Revalidate()
}

// Login входит и переходит с экрана входа на следующий экран.
func (a *App) Login(ctx context.Context, email, password string) (models.Decision, bool, error) {
	const op = "app.client.Login"
	if _, err := a.auth.SignIn(ctx, email, password); err != nil {
		return models.Decision{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return a.Show(ctx, models.RouteAuth)
}

// Logout завершает сессию и очищает все ключи устройства.
func (a *App) Logout(ctx context.Context) error {
	const op = "app.client.Logout"
	signOutErr := a.auth.SignOut(ctx)
	if signOutErr != nil {
		a.logger.Warn("sign out incomplete, clearing device anyway", sl.Op(op), sl.Err(signOutErr))
	}
	if err := a.subscription.Reset(ctx, a.namespace); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(signOutErr, err))
	}
	return nil
}

// Status состояние пробного периода устройства.
func (a *App) Status(ctx context.Context) models.TrialState {
	return a.subscription.CheckStatus(ctx, a.namespace)
}

// Activate записывает оплату и уходит с экрана оплаты.
func (a *App) Activate(ctx context.Context) (models.Decision, bool, error) {
	const op = "app.client.Activate"
	if err := a.subscription.Activate(ctx, a.namespace); err != nil {
		return models.Decision{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return a.Show(ctx, models.RoutePaywall)
}

// CheckUsername проверяет имя и его доступность для текущего пользователя.
func (a *App) CheckUsername(ctx context.Context, name string) (bool, error) {
	s, err := a.session(ctx)
	if err != nil {
		return false, err
	}
	return a.profile.CheckUsername(ctx, name, s.UserID)
}

// SaveProfile сохраняет видимость и имя на экране видимости. fromSettings
// возвращает в настройки вместо продолжения онбординга.
func (a *App) SaveProfile(ctx context.Context, req models.ProfileTypeRequest, fromSettings bool) (models.Route, bool, error) {
	s, err := a.session(ctx)
	if err != nil {
		return models.RouteNone, false, err
	}
	var opts []navigator.MountOption
	if fromSettings {
		opts = append(opts, navigator.FromSettings())
	}
	return a.complete(ctx, models.RouteVisibility, opts, func() error {
		return a.profile.SetProfileType(ctx, s.UserID, req)
	})
}

// SaveAnswers сохраняет ответы онбординга.
func (a *App) SaveAnswers(ctx context.Context, req models.OnboardingAnswersRequest) (models.Route, bool, error) {
	s, err := a.session(ctx)
	if err != nil {
		return models.RouteNone, false, err
	}
	return a.complete(ctx, models.RouteOnboarding, nil, func() error {
		return a.onboarding.SaveAnswers(ctx, s.UserID, req)
	})
}

// SaveGoals сохраняет цели восстановления.
func (a *App) SaveGoals(ctx context.Context, req models.RecoveryGoalsRequest) (models.Route, bool, error) {
	s, err := a.session(ctx)
	if err != nil {
		return models.RouteNone, false, err
	}
	return a.complete(ctx, models.RouteGoals, nil, func() error {
		return a.onboarding.SaveGoals(ctx, s.UserID, req)
	})
}

// Onboarding прогресс онбординга текущего пользователя по данным бэкенда.
func (a *App) Onboarding(ctx context.Context) (models.OnboardingState, error) {
	s, err := a.session(ctx)
	if err != nil {
		return models.OnboardingState{}, err
	}
	return a.onboarding.Status(ctx, s)
}

// Theme текущая тема.
func (a *App) Theme(ctx context.Context) themeservice.Theme {
	return a.theme.Get(ctx)
}

// ToggleTheme переключает тему.
func (a *App) ToggleTheme(ctx context.Context) (themeservice.Theme, error) {
	return a.theme.Toggle(ctx)
}

// complete монтирует экран, выполняет сохранение и завершает экран.
// При ошибке сохранения экран остаётся на месте.
func (a *App) complete(ctx context.Context, route models.Route, opts []navigator.MountOption, save func() error) (models.Route, bool, error) {
	screen := a.nav.Mount(ctx, route, opts...)
	defer screen.Unmount()

	if err := save(); err != nil {
		return models.RouteNone, false, err
	}
	return screen.Completed()
}

func (a *App) session(ctx context.Context) (*models.Session, error) {
	const op = "app.client.session"
	st, err := a.provider.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !st.Session.IsAuthenticated() {
		return nil, fmt.Errorf("%s: %w", op, ErrNotSignedIn)
	}
	return st.Session, nil
}
