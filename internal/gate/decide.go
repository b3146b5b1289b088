// Package gate выбирает экран, на который должен попасть пользователь, по состоянию
// сессии, подписки, профиля и онбординга.
//
// Порядок проверок фиксирован: сессия, подписка, профиль, ответы онбординга, цели.
// Первый непройденный гейт определяет маршрут; истёкший пробный период важнее
// незаполненного профиля.
package gate

import (
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/session"
)

// Check результат одного удалённого гейта. Непустой Err означает, что результат неизвестен.
type Check struct {
	Passed bool
	Err    error
}

// Inputs последние известные значения всех гейтов.
type Inputs struct {
	Session session.State
	Trial   models.TrialState
	Profile Check
	Answers Check
	Goals   Check
}

// Decide чистая функция выбора маршрута.
func Decide(in Inputs, p Policies) models.Decision {
	if d, done := decideSession(in.Session); done {
		return d
	}
	if d, done := decideTrial(in.Trial); done {
		return d
	}
	if d, done := decideCheck(in.Profile, p.Profile, models.StateNeedsProfile, reasonProfile); done {
		return d
	}
	if d, done := decideCheck(in.Answers, p.Answers, models.StateNeedsOnboarding, reasonAnswers); done {
		return d
	}
	if d, done := decideCheck(in.Goals, p.Goals, models.StateNeedsGoals, reasonGoals); done {
		return d
	}
	return models.NewDecision(models.StateReady, reasonReady)
}

const (
	reasonLoading      = "session is loading"
	reasonSessionError = "session could not be loaded"
	reasonNoSession    = "no session"
	reasonExpired      = "trial expired"
	reasonProfile      = "profile incomplete"
	reasonAnswers      = "onboarding answers missing"
	reasonGoals        = "recovery goals not set"
	reasonReady        = "all gates passed"
	reasonUnknown      = "gate result unknown: "
)

func decideSession(st session.State) (models.Decision, bool) {
	switch {
	case st.Err != nil:
		return models.NewDecision(models.StateHold, reasonSessionError), true
	case st.Loading:
		return models.NewDecision(models.StateAuthenticating, reasonLoading), true
	case !st.Session.IsAuthenticated():
		return models.NewDecision(models.StateUnauthenticated, reasonNoSession), true
	}
	return models.Decision{}, false
}

func decideTrial(t models.TrialState) (models.Decision, bool) {
	if t.Status == models.StatusExpired {
		return models.NewDecision(models.StateExpiredTrial, reasonExpired), true
	}
	return models.Decision{}, false
}

func decideCheck(c Check, p Policy, failed models.State, reason string) (models.Decision, bool) {
	if c.Err != nil {
		if p == FailOpen {
			return models.Decision{}, false
		}
		return models.NewDecision(models.StateHold, reasonUnknown+reason), true
	}
	if !c.Passed {
		return models.NewDecision(failed, reason), true
	}
	return models.Decision{}, false
}
