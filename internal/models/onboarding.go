package models

// OnboardingState состояние онбординга, прочитанное из хранилища записей.
type OnboardingState struct {
	AnsweredQuestions bool `json:"answered_questions"`
	RecoveryGoalsSet  bool `json:"recovery_goals_set"`
}

// Complete сообщает, что пройдены и вопросы, и постановка целей.
func (o OnboardingState) Complete() bool {
	return o.AnsweredQuestions && o.RecoveryGoalsSet
}

// OnboardingAnswersRequest тело запроса set-onboarding-answers.
// Ключ — идентификатор вопроса, значение — выбранные варианты.
type OnboardingAnswersRequest struct {
	Answers map[string][]string `json:"answers" validate:"required,min=1"`
}

// RecoveryGoalsRequest тело запроса set-recovery-goals.
type RecoveryGoalsRequest struct {
	Goals        []string `json:"goals" validate:"required,min=1,dive,required"`
	TimelineDays int      `json:"timeline_days" validate:"required,oneof=7 30 90 180 365"`
}
