// Package services реализует гейт подписки: пробный период, истечение и активацию.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/kuitter-gate/internal/events"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/storage/kv"
)

// SubscriptionService проверяет статус подписки по данным key-value хранилища.
//
// Ошибки хранилища не блокируют навигацию: гейт логирует их и возвращает trial
// с признаком Fallback.
type SubscriptionService struct {
	stores        kv.Factory
	publisher     events.Publisher
	log           *slog.Logger
	trialDuration time.Duration
	now           func() time.Time
}

// Option настраивает SubscriptionService.
type Option func(*SubscriptionService)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *SubscriptionService) { s.now = now }
}

// WithTrialDuration задаёт длительность пробного периода.
func WithTrialDuration(d time.Duration) Option {
	return func(s *SubscriptionService) {
		if d > 0 {
			s.trialDuration = d
		}
	}
}

// WithPublisher задаёт публикатор событий активации.
func WithPublisher(p events.Publisher) Option {
	return func(s *SubscriptionService) { s.publisher = p }
}

// NewSubscriptionService создаёт гейт подписки.
func NewSubscriptionService(stores kv.Factory, log *slog.Logger, opts ...Option) *SubscriptionService {
	s := &SubscriptionService{
		stores:        stores,
		publisher:     events.Discard{},
		log:           log,
		trialDuration: models.TrialDuration,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrialDuration возвращает длительность пробного периода.
func (s *SubscriptionService) TrialDuration() time.Duration {
	return s.trialDuration
}

// CheckStatus возвращает статус подписки владельца owner (устройства или пользователя).
//
// Статус active возвращается сразу, без расчёта пробного периода. Иначе читается
// момент начала пробного периода; если его нет, он записывается не более одного раза
// и перечитывается, так что параллельная первая проверка не меняет уже записанное значение.
func (s *SubscriptionService) CheckStatus(ctx context.Context, owner string) models.TrialState {
	const op = "services.subscription.CheckStatus"
	log := s.log.With(sl.Op(op), slog.String("owner", owner))
	store := s.stores.For(owner)

	status, found, err := store.Get(ctx, kv.KeySubscription)
	if err != nil {
		log.Error("failed to read subscription status, falling back to trial", sl.Err(err))
		return s.fallback()
	}
	if found && models.SubscriptionStatus(status) == models.StatusActive {
		return models.TrialState{Status: models.StatusActive}
	}

	now := s.now()
	startedAt, fresh, err := s.trialStart(ctx, store, now)
	if err != nil {
		log.Error("failed to resolve trial start, falling back to trial", sl.Err(err))
		return s.fallback()
	}

	var elapsed time.Duration
	if !fresh {
		elapsed = max(now.Sub(startedAt), 0)
	}
	if elapsed >= s.trialDuration {
		log.Info("trial expired", slog.Time("started_at", startedAt))
		return models.TrialState{StartedAt: &startedAt, Status: models.StatusExpired}
	}
	return models.TrialState{
		StartedAt:     &startedAt,
		Status:        models.StatusTrial,
		TimeRemaining: s.trialDuration - elapsed,
	}
}

// trialStart читает или впервые записывает момент начала пробного периода.
// fresh означает, что значение записано этим вызовом.
func (s *SubscriptionService) trialStart(ctx context.Context, store kv.Store, now time.Time) (time.Time, bool, error) {
	const op = "services.subscription.trialStart"
	raw, found, err := store.Get(ctx, kv.KeyTrialStart)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		written, err := store.SetNX(ctx, kv.KeyTrialStart, strconv.FormatInt(now.UnixMilli(), 10))
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%s: %w", op, err)
		}
		if written {
			return time.UnixMilli(now.UnixMilli()), true, nil
		}
		// Другая проверка успела записать своё значение.
		raw, found, err = store.Get(ctx, kv.KeyTrialStart)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%s: %w", op, err)
		}
		if !found {
			return time.Time{}, false, fmt.Errorf("%s: trial start vanished after concurrent write", op)
		}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: malformed trial start %q: %w", op, raw, err)
	}
	return time.UnixMilli(ms), false, nil
}

func (s *SubscriptionService) fallback() models.TrialState {
	return models.TrialState{Status: models.StatusTrial, Fallback: true}
}

// Activate записывает статус active безусловно. Повторный вызов ничего не меняет.
func (s *SubscriptionService) Activate(ctx context.Context, owner string) error {
	const op = "services.subscription.Activate"
	if err := s.stores.For(owner).Set(ctx, kv.KeySubscription, string(models.StatusActive)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription activated", sl.Op(op), slog.String("owner", owner))
	events.Emit(ctx, s.publisher, s.log, events.New(models.EventSubscriptionActivated, owner, nil))
	return nil
}

// Reset очищает все ключи владельца. Вызывается клиентом при выходе из аккаунта,
// owner здесь пространство устройства, а не пользователь.
func (s *SubscriptionService) Reset(ctx context.Context, owner string) error {
	const op = "services.subscription.Reset"
	if err := s.stores.For(owner).Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	events.Emit(ctx, s.publisher, s.log, events.New(models.EventLoggedOut, owner, nil))
	return nil
}

// LogOut фиксирует выход пользователя на сервере. Статус подписки и начало пробного
// периода принадлежат пользователю и переживают выход, поэтому ключи не трогаются.
func (s *SubscriptionService) LogOut(ctx context.Context, userID string) {
	const op = "services.subscription.LogOut"
	s.log.Info("user logged out", sl.Op(op), slog.String("user_id", userID))
	events.Emit(ctx, s.publisher, s.log, events.New(models.EventLoggedOut, userID, nil))
}
