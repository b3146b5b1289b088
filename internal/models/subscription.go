package models

import "time"

// TrialDuration длительность пробного периода: три дня.
const TrialDuration = 3 * 24 * time.Hour

// SubscriptionStatus статус подписки пользователя.
type SubscriptionStatus string

const (
	// StatusTrial пробный период ещё идёт.
	StatusTrial SubscriptionStatus = "trial"
	// StatusExpired пробный период закончился, подписка не оплачена.
	StatusExpired SubscriptionStatus = "expired"
	// StatusActive подписка оплачена.
	StatusActive SubscriptionStatus = "active"
)

// IsValid проверяет, что статус входит в допустимый набор.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusTrial, StatusExpired, StatusActive:
		return true
	}
	return false
}

// TrialState результат проверки гейта подписки.
//
// Fallback выставляется, когда локальное хранилище вернуло ошибку и гейт
// откатился к статусу trial, не блокируя навигацию.
type TrialState struct {
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	Status        SubscriptionStatus `json:"status"`
	TimeRemaining time.Duration      `json:"time_remaining"`
	Fallback      bool               `json:"fallback,omitempty"`
}
