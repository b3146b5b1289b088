// Package services реализует гейт онбординга: ответы на вопросы и цели восстановления.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/kuitter-gate/internal/events"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

var (
	// ErrNoSession проверка вызвана без аутентифицированной сессии.
	ErrNoSession = errors.New("no authenticated session")
	// ErrNoAnswers пустой набор ответов.
	ErrNoAnswers = errors.New("at least one answer is required")
	// ErrNoGoals пустой список целей.
	ErrNoGoals = errors.New("at least one recovery goal is required")
	// ErrInvalidTimeline срок не из допустимого набора.
	ErrInvalidTimeline = errors.New("timeline must be one of 7, 30, 90, 180, 365 days")
)

// Timelines допустимые сроки целей в днях.
var Timelines = []int{7, 30, 90, 180, 365}

// OnboardingRepository хранилище записей онбординга.
type OnboardingRepository interface {
	OnboardingAnswersExist(ctx context.Context, userID string) (bool, error)
	RecoveryGoalsExist(ctx context.Context, userID string) (bool, error)
	SaveOnboardingAnswers(ctx context.Context, userID string, answers map[string][]string) error
	SaveRecoveryGoals(ctx context.Context, userID string, goals []string, timelineDays int) error
}

// OnboardingService гейт онбординга.
type OnboardingService struct {
	repo      OnboardingRepository
	publisher events.Publisher
	log       *slog.Logger
}

// NewOnboardingService создаёт OnboardingService. publisher может быть nil.
func NewOnboardingService(repo OnboardingRepository, publisher events.Publisher, log *slog.Logger) *OnboardingService {
	return &OnboardingService{repo: repo, publisher: publisher, log: log}
}

// HasAnswers проверяет наличие записи с ответами онбординга.
func (s *OnboardingService) HasAnswers(ctx context.Context, session *models.Session) (bool, error) {
	const op = "services.onboarding.HasAnswers"
	if !session.IsAuthenticated() {
		return false, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	ok, err := s.repo.OnboardingAnswersExist(ctx, session.UserID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// HasGoals проверяет наличие записи с целями восстановления.
func (s *OnboardingService) HasGoals(ctx context.Context, session *models.Session) (bool, error) {
	const op = "services.onboarding.HasGoals"
	if !session.IsAuthenticated() {
		return false, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	ok, err := s.repo.RecoveryGoalsExist(ctx, session.UserID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// Status читает обе проверки. Цели не запрашиваются, если нет ответов.
func (s *OnboardingService) Status(ctx context.Context, session *models.Session) (models.OnboardingState, error) {
	const op = "services.onboarding.Status"
	var state models.OnboardingState

	answered, err := s.HasAnswers(ctx, session)
	if err != nil {
		return state, fmt.Errorf("%s: %w", op, err)
	}
	state.AnsweredQuestions = answered
	if !answered {
		return state, nil
	}

	goals, err := s.HasGoals(ctx, session)
	if err != nil {
		return state, fmt.Errorf("%s: %w", op, err)
	}
	state.RecoveryGoalsSet = goals
	return state, nil
}

// SaveAnswers сохраняет ответы онбординга.
func (s *OnboardingService) SaveAnswers(ctx context.Context, userID string, req models.OnboardingAnswersRequest) error {
	const op = "services.onboarding.SaveAnswers"
	if len(req.Answers) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoAnswers)
	}
	if err := s.repo.SaveOnboardingAnswers(ctx, userID, req.Answers); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("onboarding answers saved", slog.String("op", op), slog.String("user_id", userID), slog.Int("questions", len(req.Answers)))

	events.Emit(ctx, s.publisher, s.log, events.New(models.EventOnboardingAnswers, userID, map[string]any{
		"questions": len(req.Answers),
	}))
	return nil
}

// SaveGoals сохраняет цели восстановления и срок.
func (s *OnboardingService) SaveGoals(ctx context.Context, userID string, req models.RecoveryGoalsRequest) error {
	const op = "services.onboarding.SaveGoals"
	if len(req.Goals) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoGoals)
	}
	if !validTimeline(req.TimelineDays) {
		return fmt.Errorf("%s: %w", op, ErrInvalidTimeline)
	}
	if err := s.repo.SaveRecoveryGoals(ctx, userID, req.Goals, req.TimelineDays); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("recovery goals saved", slog.String("op", op), slog.String("user_id", userID), slog.Int("timeline_days", req.TimelineDays))

	events.Emit(ctx, s.publisher, s.log, events.New(models.EventRecoveryGoals, userID, map[string]any{
		"goals":         req.Goals,
		"timeline_days": req.TimelineDays,
	}))
	return nil
}

func validTimeline(days int) bool {
	for _, d := range Timelines {
		if d == days {
			return true
		}
	}
	return false
}

// IsValidationError сообщает, что ошибка вызвана данными пользователя.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoAnswers) || errors.Is(err, ErrNoGoals) || errors.Is(err, ErrInvalidTimeline)
}
