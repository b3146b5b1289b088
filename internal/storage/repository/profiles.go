package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/username"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

// ProfileExists сообщает, выбраны ли у пользователя тип профиля и имя.
func (s *Storage) ProfileExists(ctx context.Context, userID string) (bool, error) {
	const op = "storage.ProfileExists"
	query := `SELECT EXISTS (
			      SELECT 1 FROM profiles
			      WHERE user_id = $1
			        AND profile_type IS NOT NULL
			        AND username IS NOT NULL AND username <> ''
			  )`
	ok, err := exists(ctx, s.DB, query, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// UsernameTaken сообщает, занято ли имя кем-то кроме excludeUserID. Сравнение без учёта регистра;
// excludeUserID сравнивается как uuid, пустая строка никого не исключает.
func (s *Storage) UsernameTaken(ctx context.Context, name, excludeUserID string) (bool, error) {
	const op = "storage.UsernameTaken"
	query := `SELECT EXISTS (
			      SELECT 1 FROM profiles
			      WHERE lower(username) = lower($1) AND user_id IS DISTINCT FROM NULLIF($2, '')::uuid
			  )`
	ok, err := exists(ctx, s.DB, query, name, excludeUserID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// SaveProfile создаёт или обновляет профиль. Конфликт уникального имени даёт username.ErrTaken.
func (s *Storage) SaveProfile(ctx context.Context, userID string, visibility models.Visibility, name string) error {
	const op = "storage.SaveProfile"
	query := `INSERT INTO profiles (user_id, profile_type, username)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO UPDATE
			  SET profile_type = EXCLUDED.profile_type,
			      username = EXCLUDED.username,
			      updated_at = now()`
	if _, err := s.DB.ExecContext(ctx, query, userID, string(visibility), name); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, username.ErrTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
