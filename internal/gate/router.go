package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/metrics"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/session"
)

// SubscriptionGate проверка пробного периода.
type SubscriptionGate interface {
	CheckStatus(ctx context.Context, owner string) models.TrialState
}

// ProfileGate проверка завершённости профиля.
type ProfileGate interface {
	IsProfileComplete(ctx context.Context, s *models.Session) (bool, error)
}

// OnboardingGate проверки онбординга.
type OnboardingGate interface {
	HasAnswers(ctx context.Context, s *models.Session) (bool, error)
	HasGoals(ctx context.Context, s *models.Session) (bool, error)
}

// OwnerFunc выбирает пространство имён подписки для сессии.
type OwnerFunc func(s *models.Session) string

// DeviceOwner пробный период привязан к устройству: одно пространство имён на любую сессию.
func DeviceOwner(namespace string) OwnerFunc {
	return func(*models.Session) string { return namespace }
}

// UserOwner пробный период привязан к пользователю.
func UserOwner(s *models.Session) string {
	return s.UserID
}

// Имена гейтов в логах и метриках.
const (
	GateSubscription = "subscription"
	GateProfile      = "profile"
	GateAnswers      = "onboarding_answers"
	GateGoals        = "recovery_goals"
)

// Router последовательно проверяет гейты и возвращает решение.
type Router struct {
	session      session.Source
	subscription SubscriptionGate
	profile      ProfileGate
	onboarding   OnboardingGate

	owner    OwnerFunc
	policies Policies
	metrics  *metrics.Gate
	log      *slog.Logger
}

// Option настраивает Router.
type Option func(*Router)

// WithPolicies задаёт политики отказа гейтов.
func WithPolicies(p Policies) Option {
	return func(r *Router) { r.policies = p }
}

// WithOwner задаёт выбор пространства имён подписки. По умолчанию UserOwner.
func WithOwner(fn OwnerFunc) Option {
	return func(r *Router) {
		if fn != nil {
			r.owner = fn
		}
	}
}

// WithMetrics включает метрики.
func WithMetrics(m *metrics.Gate) Option {
	return func(r *Router) { r.metrics = m }
}

// NewRouter создаёт Router.
func NewRouter(
	src session.Source,
	subscription SubscriptionGate,
	profile ProfileGate,
	onboarding OnboardingGate,
	log *slog.Logger,
	opts ...Option,
) *Router {
	r := &Router{
		session:      src,
		subscription: subscription,
		profile:      profile,
		onboarding:   onboarding,
		owner:        UserOwner,
		log:          log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithSession возвращает копию роутера с другим источником сессии.
func (r *Router) WithSession(src session.Source) *Router {
	cp := *r
	cp.session = src
	return &cp
}

// Evaluate выбирает маршрут для уже известной сессии, например восстановленной из токена запроса.
func (r *Router) Evaluate(ctx context.Context, s *models.Session) (models.Decision, error) {
	return r.WithSession(session.NewFixed(s)).Next(ctx)
}

// Next проверяет гейты по порядку и останавливается на первом определяющем.
// Ошибка возвращается только вместе с StateHold и объединяет все неизвестные результаты.
func (r *Router) Next(ctx context.Context) (models.Decision, error) {
	const op = "gate.Router.Next"
	log := r.log.With(sl.Op(op))

	var failures []error
	finish := func(d models.Decision) (models.Decision, error) {
		r.metrics.Decision(d)
		log.Debug("route decided",
			slog.String("state", d.State.String()),
			slog.String("route", d.Route.String()),
			slog.String("reason", d.Reason))
		if d.State == models.StateHold {
			return d, fmt.Errorf("%s: %w", op, errors.Join(failures...))
		}
		return d, nil
	}

	st := r.session.GetSession()
	if st.Err != nil {
		failures = append(failures, st.Err)
	}
	if d, done := decideSession(st); done {
		return finish(d)
	}

	started := time.Now()
	trial := r.subscription.CheckStatus(ctx, r.owner(st.Session))
	r.metrics.Check(GateSubscription, time.Since(started), nil)
	if trial.Fallback {
		log.Warn("subscription gate fell back to trial", slog.String("user_id", st.Session.UserID))
	}
	if d, done := decideTrial(trial); done {
		return finish(d)
	}

	steps := []struct {
		gate   string
		policy Policy
		state  models.State
		reason string
		check  func(context.Context, *models.Session) (bool, error)
	}{
		{GateProfile, r.policies.Profile, models.StateNeedsProfile, reasonProfile, r.profile.IsProfileComplete},
		{GateAnswers, r.policies.Answers, models.StateNeedsOnboarding, reasonAnswers, r.onboarding.HasAnswers},
		{GateGoals, r.policies.Goals, models.StateNeedsGoals, reasonGoals, r.onboarding.HasGoals},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			return finish(models.NewDecision(models.StateHold, "cancelled"))
		}

		started := time.Now()
		passed, err := step.check(ctx, st.Session)
		r.metrics.Check(step.gate, time.Since(started), err)

		c := Check{Passed: passed, Err: err}
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", step.gate, err))
			if step.policy == FailOpen {
				log.Warn("gate check failed, treating as passed",
					slog.String("gate", step.gate), slog.String("policy", step.policy.String()), sl.Err(err))
			} else {
				log.Error("gate check failed, holding navigation",
					slog.String("gate", step.gate), slog.String("policy", step.policy.String()), sl.Err(err))
			}
		}
		if d, done := decideCheck(c, step.policy, step.state, step.reason); done {
			return finish(d)
		}
	}

	return finish(models.NewDecision(models.StateReady, reasonReady))
}
