package gate

import (
	"fmt"
	"strings"

	"github.com/magabrotheeeer/kuitter-gate/internal/config"
)

// Policy определяет поведение гейта, результат которого неизвестен.
type Policy uint8

const (
	// FailClosed неизвестный результат останавливает навигацию (StateHold).
	FailClosed Policy = iota
	// FailOpen неизвестный результат считается пройденным гейтом.
	FailOpen
)

func (p Policy) String() string {
	if p == FailOpen {
		return "fail_open"
	}
	return "fail_closed"
}

// ParsePolicy разбирает политику из конфига. Пустая строка даёт FailClosed.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail_closed", "closed":
		return FailClosed, nil
	case "fail_open", "open":
		return FailOpen, nil
	}
	return FailClosed, fmt.Errorf("unknown gate policy %q", s)
}

// Policies политики гейтов, обращающихся к удалённому хранилищу.
type Policies struct {
	Profile Policy
	Answers Policy
	Goals   Policy
}

// PoliciesFromConfig читает политики из секции gate.
func PoliciesFromConfig(cfg config.Gate) (Policies, error) {
	const op = "gate.PoliciesFromConfig"
	var (
		p   Policies
		err error
	)
	if p.Profile, err = ParsePolicy(cfg.ProfilePolicy); err != nil {
		return p, fmt.Errorf("%s: profile: %w", op, err)
	}
	if p.Answers, err = ParsePolicy(cfg.OnboardingPolicy); err != nil {
		return p, fmt.Errorf("%s: onboarding: %w", op, err)
	}
	if p.Goals, err = ParsePolicy(cfg.GoalsPolicy); err != nil {
		return p, fmt.Errorf("%s: goals: %w", op, err)
	}
	return p, nil
}
