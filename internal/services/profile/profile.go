// Package services реализует гейт завершённости профиля: выбор видимости,
// проверку доступности имени пользователя и сохранение типа профиля.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/kuitter-gate/internal/events"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/username"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

var (
	// ErrUsernameTaken имя уже занято другим пользователем.
	ErrUsernameTaken = username.ErrTaken
	// ErrInvalidVisibility неизвестный тип профиля.
	ErrInvalidVisibility = errors.New("profile type must be public or anonymous")
	// ErrNoSession проверка вызвана без аутентифицированной сессии.
	ErrNoSession = errors.New("no authenticated session")
)

// ProfileRepository хранилище записей профилей.
type ProfileRepository interface {
	// ProfileExists сообщает, есть ли у пользователя запись с видимостью и именем.
	ProfileExists(ctx context.Context, userID string) (bool, error)
	// UsernameTaken сообщает, занято ли имя кем-то кроме excludeUserID.
	UsernameTaken(ctx context.Context, name, excludeUserID string) (bool, error)
	// SaveProfile записывает видимость и имя пользователя.
	SaveProfile(ctx context.Context, userID string, visibility models.Visibility, name string) error
}

// ProfileService гейт профиля.
type ProfileService struct {
	repo      ProfileRepository
	publisher events.Publisher
	log       *slog.Logger
}

// NewProfileService создаёт ProfileService. publisher может быть nil.
func NewProfileService(repo ProfileRepository, publisher events.Publisher, log *slog.Logger) *ProfileService {
	return &ProfileService{repo: repo, publisher: publisher, log: log}
}

// IsProfileComplete проверяет запись профиля в удалённом хранилище. Локальному кешу
// доверять нельзя: профиль меняется и из настроек. Ошибка означает, что результат неизвестен.
func (s *ProfileService) IsProfileComplete(ctx context.Context, session *models.Session) (bool, error) {
	const op = "services.profile.IsProfileComplete"
	if !session.IsAuthenticated() {
		return false, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	ok, err := s.repo.ProfileExists(ctx, session.UserID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// CheckUsername проверяет формат имени и его доступность.
// Собственная запись currentUserID занятостью не считается.
func (s *ProfileService) CheckUsername(ctx context.Context, name, currentUserID string) (bool, error) {
	const op = "services.profile.CheckUsername"
	if err := username.Validate(name); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	taken, err := s.repo.UsernameTaken(ctx, username.Normalize(name), currentUserID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return !taken, nil
}

// SetProfileType сохраняет тип профиля и имя (в нижнем регистре).
func (s *ProfileService) SetProfileType(ctx context.Context, userID string, req models.ProfileTypeRequest) error {
	const op = "services.profile.SetProfileType"
	visibility := models.Visibility(req.ProfileType)
	if visibility != models.VisibilityPublic && visibility != models.VisibilityAnonymous {
		return fmt.Errorf("%s: %w", op, ErrInvalidVisibility)
	}

	available, err := s.CheckUsername(ctx, req.Username, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !available {
		return fmt.Errorf("%s: %w", op, ErrUsernameTaken)
	}

	name := username.Normalize(req.Username)
	if err := s.repo.SaveProfile(ctx, userID, visibility, name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("profile saved", sl.Op(op), slog.String("user_id", userID), slog.String("profile_type", string(visibility)))

	events.Emit(ctx, s.publisher, s.log, events.New(models.EventProfileUpdated, userID, map[string]any{
		"profile_type": string(visibility),
		"username":     name,
	}))
	return nil
}

// IsValidationError сообщает, что ошибка вызвана данными пользователя, а не сбоем.
func IsValidationError(err error) bool {
	return errors.Is(err, username.ErrRequired) ||
		errors.Is(err, username.ErrTooShort) ||
		errors.Is(err, username.ErrInvalidChars) ||
		errors.Is(err, ErrInvalidVisibility)
}
