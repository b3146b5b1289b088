// Package services хранит выбранную тему оформления в локальном key-value хранилище.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/storage/kv"
)

// Theme тема оформления.
type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// Default тема до первого переключения.
const Default = Dark

// ThemeService читает и переключает тему.
type ThemeService struct {
	store kv.Store
	log   *slog.Logger
}

// NewThemeService создаёт ThemeService поверх хранилища устройства.
func NewThemeService(store kv.Store, log *slog.Logger) *ThemeService {
	return &ThemeService{store: store, log: log}
}

// Get возвращает сохранённую тему. Ошибка чтения и неизвестное значение дают Default.
func (s *ThemeService) Get(ctx context.Context) Theme {
	const op = "services.theme.Get"
	v, ok, err := s.store.Get(ctx, kv.KeyTheme)
	if err != nil {
		s.log.Error("failed to load theme", sl.Op(op), sl.Err(err))
		return Default
	}
	if !ok {
		return Default
	}
	switch t := Theme(v); t {
	case Dark, Light:
		return t
	}
	return Default
}

// Toggle переключает тему и сохраняет её. При ошибке записи новая тема всё равно
// возвращается вместе с ошибкой: выбор действует до перезапуска.
func (s *ThemeService) Toggle(ctx context.Context) (Theme, error) {
	const op = "services.theme.Toggle"
	next := Light
	if s.Get(ctx) == Light {
		next = Dark
	}
	if err := s.store.Set(ctx, kv.KeyTheme, string(next)); err != nil {
		return next, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}
