// Package navigator связывает роутер с экранами: каждый смонтированный экран
// перепроверяет гейты, а результат, пришедший после размонтирования, отбрасывается.
package navigator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/session"
)

// Decider источник решений о маршруте.
type Decider interface {
	Next(ctx context.Context) (models.Decision, error)
}

// Sink выполняет переход на экран. Вызывается под блокировкой экрана,
// поэтому не должен синхронно размонтировать его.
type Sink interface {
	Navigate(route models.Route)
}

// SinkFunc адаптер функции к Sink.
type SinkFunc func(models.Route)

// Navigate вызывает f.
func (f SinkFunc) Navigate(r models.Route) { f(r) }

// Watcher источник уведомлений о смене сессии.
type Watcher interface {
	Subscribe(fn func(session.State)) func()
}

// Navigator монтирует экраны.
type Navigator struct {
	router Decider
	sink   Sink
	log    *slog.Logger
}

// New создаёт Navigator.
func New(router Decider, sink Sink, log *slog.Logger) *Navigator {
	return &Navigator{router: router, sink: sink, log: log}
}

// MountOption настраивает экран.
type MountOption func(*Screen)

// FromSettings экран открыт из настроек: после сохранения возвращаемся в настройки,
// а не продолжаем цепочку онбординга.
func FromSettings() MountOption {
	return func(s *Screen) { s.fromSettings = true }
}

// Screen смонтированный экран.
type Screen struct {
	nav          *Navigator
	route        models.Route
	fromSettings bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	mounted bool
	unwatch []func()
}

// Mount монтирует экран route. Проверки экрана отменяются при отмене ctx или Unmount.
func (n *Navigator) Mount(ctx context.Context, route models.Route, opts ...MountOption) *Screen {
	ctx, cancel := context.WithCancel(ctx)
	s := &Screen{
		nav:     n,
		route:   route,
		ctx:     ctx,
		cancel:  cancel,
		mounted: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Route экран, который смонтирован.
func (s *Screen) Route() models.Route { return s.route }

// Mounted сообщает, смонтирован ли экран.
func (s *Screen) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Revalidate запрашивает решение у роутера и переходит, если экран ещё смонтирован,
// решение разрешает навигацию и ведёт на другой экран. Возвращает решение и признак перехода.
func (s *Screen) Revalidate() (models.Decision, bool, error) {
	const op = "navigator.Screen.Revalidate"
	log := s.nav.log.With(sl.Op(op), slog.String("screen", s.route.String()))

	d, err := s.nav.router.Next(s.ctx)
	if err != nil {
		log.Warn("route check did not complete", sl.Err(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		log.Debug("discarding decision for unmounted screen", slog.String("route", d.Route.String()))
		return d, false, err
	}
	if !d.Navigate || d.Route == s.route {
		return d, false, err
	}
	s.nav.sink.Navigate(d.Route)
	return d, true, err
}

// RevalidateAsync запускает Revalidate в отдельной горутине. Unmount её дожидается.
func (s *Screen) RevalidateAsync() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		_, _, _ = s.Revalidate()
	}()
}

// Watch перепроверяет экран при каждой смене сессии.
func (s *Screen) Watch(w Watcher) {
	unsub := w.Subscribe(func(session.State) { s.RevalidateAsync() })

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		unsub()
		return
	}
	s.unwatch = append(s.unwatch, unsub)
}

// Completed вызывается после успешного сохранения на экране. Экран видимости,
// открытый из настроек, возвращает в настройки; остальные экраны перепроверяют гейты.
func (s *Screen) Completed() (models.Route, bool, error) {
	if s.fromSettings && s.route == models.RouteVisibility {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.mounted {
			return models.RouteNone, false, nil
		}
		s.nav.sink.Navigate(models.RouteSettings)
		return models.RouteSettings, true, nil
	}
	d, navigated, err := s.Revalidate()
	return d.Route, navigated, err
}

// Unmount отменяет проверки экрана и дожидается асинхронных. Повторный вызов безопасен.
func (s *Screen) Unmount() {
	s.mu.Lock()
	s.mounted = false
	unwatch := s.unwatch
	s.unwatch = nil
	s.mu.Unlock()

	for _, fn := range unwatch {
		fn()
	}
	s.cancel()
	s.wg.Wait()
}
