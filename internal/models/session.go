// Package models содержит доменные структуры гейта навигации: сессию,
// состояние пробного периода и подписки, профиль, онбординг, а также
// закрытые перечисления состояний и маршрутов.
package models

import "time"

// Session описывает аутентифицированную сессию пользователя.
type Session struct {
	UserID       string    `json:"user_id"`       // Идентификатор пользователя (claim sub)
	AccessToken  string    `json:"access_token"`  // Bearer-токен для запросов к бэкенду
	RefreshToken string    `json:"refresh_token"` // Токен для обновления сессии
	ExpiresAt    time.Time `json:"expires_at"`    // Момент истечения access-токена
}

// IsAuthenticated сообщает, что сессия содержит пользователя и токен.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != "" && s.AccessToken != ""
}

// Expired сообщает, истёк ли access-токен к моменту now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
