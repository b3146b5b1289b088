// Package username проверяет и нормализует имена пользователей.
package username

import (
	"errors"
	"regexp"
	"strings"
)

// MinLength минимальная длина имени.
const MinLength = 3

var (
	// ErrRequired имя не задано.
	ErrRequired = errors.New("username is required")
	// ErrTooShort имя короче MinLength.
	ErrTooShort = errors.New("username must be at least 3 characters")
	// ErrInvalidChars имя содержит символы кроме букв, цифр и подчёркивания.
	ErrInvalidChars = errors.New("username can only contain letters, numbers, and underscores")
	// ErrTaken имя занято другим пользователем.
	ErrTaken = errors.New("username is already taken")
)

var allowed = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Validate проверяет имя; длина считается по исходной строке.
func Validate(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrRequired
	}
	if len(name) < MinLength {
		return ErrTooShort
	}
	if !allowed.MatchString(name) {
		return ErrInvalidChars
	}
	return nil
}

// Normalize приводит имя к нижнему регистру: имена уникальны без учёта регистра.
func Normalize(name string) string {
	return strings.ToLower(name)
}
