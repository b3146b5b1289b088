package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

// Таблицы хранилища записей.
const (
	TableProfiles          = "profiles"
	TableOnboardingAnswers = "onboarding_answers"
	TableRecoveryGoals     = "recovery_goals"
)

// Records хранилище записей через REST и серверные функции бэкенда.
// Реализует репозитории сервисов профиля и онбординга на стороне клиента.
type Records struct {
	client *Client
	tokens TokenSource
}

// NewRecords создаёт Records; запросы идут от имени владельца токена.
func NewRecords(client *Client, tokens TokenSource) *Records {
	return &Records{client: client, tokens: tokens}
}

// ProfileExists сообщает, выбраны ли у пользователя видимость и имя.
func (r *Records) ProfileExists(ctx context.Context, userID string) (bool, error) {
	const op = "backend.Records.ProfileExists"
	ok, err := r.exists(ctx, TableProfiles, url.Values{
		"user_id":      {"eq." + userID},
		"profile_type": {"not.is.null"},
		"username":     {"not.is.null"},
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// UsernameTaken сообщает, занято ли имя кем-то кроме excludeUserID.
// Имена хранятся в нижнем регистре, поэтому сравнение точное.
func (r *Records) UsernameTaken(ctx context.Context, name, excludeUserID string) (bool, error) {
	const op = "backend.Records.UsernameTaken"
	q := url.Values{"username": {"eq." + name}}
	if excludeUserID != "" {
		q.Set("user_id", "neq."+excludeUserID)
	}
	ok, err := r.exists(ctx, TableProfiles, q)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// SaveProfile вызывает функцию set-profile-type.
func (r *Records) SaveProfile(ctx context.Context, _ string, visibility models.Visibility, name string) error {
	const op = "backend.Records.SaveProfile"
	body := models.ProfileTypeRequest{ProfileType: string(visibility), Username: name}
	if err := r.invoke(ctx, "set-profile-type", body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// OnboardingAnswersExist сообщает, есть ли ответы онбординга.
func (r *Records) OnboardingAnswersExist(ctx context.Context, userID string) (bool, error) {
	const op = "backend.Records.OnboardingAnswersExist"
	ok, err := r.exists(ctx, TableOnboardingAnswers, url.Values{"user_id": {"eq." + userID}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// RecoveryGoalsExist сообщает, поставлены ли цели восстановления.
func (r *Records) RecoveryGoalsExist(ctx context.Context, userID string) (bool, error) {
	const op = "backend.Records.RecoveryGoalsExist"
	ok, err := r.exists(ctx, TableRecoveryGoals, url.Values{"user_id": {"eq." + userID}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// SaveOnboardingAnswers вызывает функцию set-onboarding-answers.
func (r *Records) SaveOnboardingAnswers(ctx context.Context, _ string, answers map[string][]string) error {
	const op = "backend.Records.SaveOnboardingAnswers"
	if err := r.invoke(ctx, "set-onboarding-answers", models.OnboardingAnswersRequest{Answers: answers}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveRecoveryGoals вызывает функцию set-recovery-goals.
func (r *Records) SaveRecoveryGoals(ctx context.Context, _ string, goals []string, timelineDays int) error {
	const op = "backend.Records.SaveRecoveryGoals"
	body := models.RecoveryGoalsRequest{Goals: goals, TimelineDays: timelineDays}
	if err := r.invoke(ctx, "set-recovery-goals", body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// exists запрашивает не более одной строки таблицы по фильтрам.
func (r *Records) exists(ctx context.Context, table string, filters url.Values) (bool, error) {
	token := r.tokens.AccessToken()
	if token == "" {
		return false, ErrNoSession
	}
	q := url.Values{"select": {"user_id"}, "limit": {"1"}}
	for k, v := range filters {
		q[k] = v
	}
	req, err := r.client.newRequest(ctx, http.MethodGet, "/rest/v1/"+table, q, token, nil)
	if err != nil {
		return false, err
	}
	var rows []map[string]any
	if err := r.client.do(req, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// invoke вызывает серверную функцию. Ответ с полем error считается ошибкой.
func (r *Records) invoke(ctx context.Context, name string, body any) error {
	token := r.tokens.AccessToken()
	if token == "" {
		return ErrNoSession
	}
	req, err := r.client.newRequest(ctx, http.MethodPost, "/functions/v1/"+name, nil, token, body)
	if err != nil {
		return err
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := r.client.do(req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", ErrFunctionFailed, resp.Error)
	}
	return nil
}
