// Package jwt реализует выпуск и разбор access-токенов бэкенда.
//
// Токены подписываются HS256 общим секретом проекта; идентификатор пользователя
// лежит в стандартном claim sub.
package jwt

import (
	"time"
)

// Maker описывает выпуск и проверку токенов.
type Maker interface {
	// GenerateToken выпускает токен для пользователя.
	GenerateToken(userID, email, role string) (string, error)
	// ParseToken проверяет подпись и срок действия и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на секретном ключе и TTL.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	issuer    string
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// WithIssuer задаёт ожидаемый issuer; пустая строка отключает проверку.
func (j *MakerImpl) WithIssuer(issuer string) *MakerImpl {
	j.issuer = issuer
	return j
}
