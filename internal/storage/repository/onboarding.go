package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// OnboardingAnswersExist сообщает, сохранены ли ответы онбординга.
func (s *Storage) OnboardingAnswersExist(ctx context.Context, userID string) (bool, error) {
	const op = "storage.OnboardingAnswersExist"
	ok, err := exists(ctx, s.DB, `SELECT EXISTS (SELECT 1 FROM onboarding_answers WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// RecoveryGoalsExist сообщает, поставлены ли цели восстановления.
func (s *Storage) RecoveryGoalsExist(ctx context.Context, userID string) (bool, error) {
	const op = "storage.RecoveryGoalsExist"
	ok, err := exists(ctx, s.DB, `SELECT EXISTS (SELECT 1 FROM recovery_goals WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// SaveOnboardingAnswers сохраняет ответы; повторное сохранение перезаписывает их.
func (s *Storage) SaveOnboardingAnswers(ctx context.Context, userID string, answers map[string][]string) error {
	const op = "storage.SaveOnboardingAnswers"
	body, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO onboarding_answers (user_id, answers)
			  VALUES ($1, $2)
			  ON CONFLICT (user_id) DO UPDATE
			  SET answers = EXCLUDED.answers, updated_at = now()`
	if _, err := s.DB.ExecContext(ctx, query, userID, string(body)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveRecoveryGoals сохраняет цели и срок.
func (s *Storage) SaveRecoveryGoals(ctx context.Context, userID string, goals []string, timelineDays int) error {
	const op = "storage.SaveRecoveryGoals"
	body, err := json.Marshal(goals)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO recovery_goals (user_id, goals, timeline_days)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO UPDATE
			  SET goals = EXCLUDED.goals,
			      timeline_days = EXCLUDED.timeline_days,
			      updated_at = now()`
	if _, err := s.DB.ExecContext(ctx, query, userID, string(body), timelineDays); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
