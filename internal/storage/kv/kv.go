// Package kv реализует локальное key-value хранилище: флаг подписки,
// момент начала пробного периода, тема оформления и сохранённая сессия.
//
// Запись каждого ключа независима: атомарности между ключами нет, параллельные
// записи одного ключа разрешаются по принципу "последняя побеждает". Исключение —
// SetNX, который записывает значение не более одного раза.
package kv

import "context"

// Ключи, используемые клиентом и gate-api.
const (
	KeyTrialStart   = "trial_start_date"
	KeySubscription = "subscription_status"
	KeyTheme        = "theme"
	KeySession      = "session"
)

// Store хранилище строк в пределах одного пространства имён.
type Store interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set записывает значение, перезаписывая прежнее.
	Set(ctx context.Context, key, value string) error
	// SetNX записывает значение, только если ключа ещё нет; возвращает true, если запись произошла.
	SetNX(ctx context.Context, key, value string) (bool, error)
	// Delete удаляет ключ; отсутствие ключа не ошибка.
	Delete(ctx context.Context, key string) error
	// Clear удаляет все ключи пространства имён.
	Clear(ctx context.Context) error
}

// Factory выдаёт хранилище для пространства имён: устройства или пользователя.
type Factory interface {
	For(namespace string) Store
}
