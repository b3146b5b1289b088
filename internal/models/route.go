package models

import "fmt"

// State состояние автомата навигации.
type State uint8

const (
	// StateAuthenticating сессия ещё загружается, навигация запрещена.
	StateAuthenticating State = iota
	// StateUnauthenticated сессии нет.
	StateUnauthenticated
	// StateExpiredTrial пробный период истёк, нужна оплата.
	StateExpiredTrial
	// StateNeedsProfile не выбран тип профиля или имя пользователя.
	StateNeedsProfile
	// StateNeedsOnboarding нет ответов на вопросы онбординга.
	StateNeedsOnboarding
	// StateNeedsGoals не поставлены цели восстановления.
	StateNeedsGoals
	// StateReady все гейты пройдены.
	StateReady
	// StateHold результат одного из гейтов неизвестен, экран остаётся на месте.
	StateHold
)

var stateNames = [...]string{
	StateAuthenticating:  "authenticating",
	StateUnauthenticated: "unauthenticated",
	StateExpiredTrial:    "expired_trial",
	StateNeedsProfile:    "needs_profile",
	StateNeedsOnboarding: "needs_onboarding",
	StateNeedsGoals:      "needs_goals",
	StateReady:           "ready",
	StateHold:            "hold",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText кодирует состояние строкой.
func (s State) MarshalText() ([]byte, error) {
	if int(s) >= len(stateNames) {
		return nil, fmt.Errorf("unknown state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// Route экран, на который ведёт решение роутера.
type Route uint8

const (
	// RouteNone навигации нет.
	RouteNone Route = iota
	// RouteAuth экран входа.
	RouteAuth
	// RoutePaywall экран оплаты.
	RoutePaywall
	// RouteVisibility экран выбора видимости профиля и имени.
	RouteVisibility
	// RouteOnboarding вопросы онбординга.
	RouteOnboarding
	// RouteGoals постановка целей восстановления.
	RouteGoals
	// RouteMain основное приложение.
	RouteMain
	// RouteSettings настройки; сюда возвращается экран видимости, открытый из настроек.
	RouteSettings
)

var routeNames = [...]string{
	RouteNone:       "none",
	RouteAuth:       "auth",
	RoutePaywall:    "paywall",
	RouteVisibility: "visibility",
	RouteOnboarding: "onboarding",
	RouteGoals:      "goals",
	RouteMain:       "main",
	RouteSettings:   "settings",
}

func (r Route) String() string {
	if int(r) < len(routeNames) {
		return routeNames[r]
	}
	return fmt.Sprintf("route(%d)", uint8(r))
}

// MarshalText кодирует маршрут строкой.
func (r Route) MarshalText() ([]byte, error) {
	if int(r) >= len(routeNames) {
		return nil, fmt.Errorf("unknown route %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText разбирает маршрут из строки.
func (r *Route) UnmarshalText(text []byte) error {
	for i, name := range routeNames {
		if name == string(text) {
			*r = Route(i)
			return nil
		}
	}
	return fmt.Errorf("unknown route %q", text)
}

// Route возвращает экран для состояния. Каждому состоянию соответствует ровно один маршрут.
func (s State) Route() Route {
	switch s {
	case StateAuthenticating, StateHold:
		return RouteNone
	case StateUnauthenticated:
		return RouteAuth
	case StateExpiredTrial:
		return RoutePaywall
	case StateNeedsProfile:
		return RouteVisibility
	case StateNeedsOnboarding:
		return RouteOnboarding
	case StateNeedsGoals:
		return RouteGoals
	case StateReady:
		return RouteMain
	}
	return RouteNone
}

// Decision решение роутера.
type Decision struct {
	State    State  `json:"state"`
	Route    Route  `json:"route"`
	Navigate bool   `json:"navigate"`
	Reason   string `json:"reason,omitempty"`
}

// NewDecision строит решение для состояния; навигация разрешена, только если у состояния есть маршрут.
func NewDecision(s State, reason string) Decision {
	route := s.Route()
	return Decision{
		State:    s,
		Route:    route,
		Navigate: route != RouteNone,
		Reason:   reason,
	}
}
