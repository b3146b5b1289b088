package models

import "time"

// EventType тип доменного события.
type EventType string

const (
	EventProfileUpdated        EventType = "profile.updated"
	EventOnboardingAnswers     EventType = "onboarding.answers_saved"
	EventRecoveryGoals         EventType = "onboarding.goals_saved"
	EventSubscriptionActivated EventType = "subscription.activated"
	EventLoggedOut             EventType = "session.logged_out"
)

// Event доменное событие, публикуемое после успешной записи.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	UserID     string         `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}
