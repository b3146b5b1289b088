// Package session хранит текущую сессию аутентификации и оповещает подписчиков о её смене.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

// AuthService источник сессий.
type AuthService interface {
	// GetSession возвращает сохранённую сессию или nil, если пользователь не вошёл.
	GetSession(ctx context.Context) (*models.Session, error)
	// OnSessionChange регистрирует обработчик смены сессии и возвращает функцию отписки.
	OnSessionChange(fn func(*models.Session)) (unsubscribe func())
}

// State снимок состояния сессии. Пока Loading, решения о навигации не принимаются.
// Err заполнен, если первичная загрузка завершилась ошибкой; Loading при этом остаётся true.
type State struct {
	Session *models.Session
	Loading bool
	Err     error
}

// Source отдаёт текущий снимок сессии.
type Source interface {
	GetSession() State
}

// Provider держит последнюю известную сессию.
type Provider struct {
	log *slog.Logger

	mu        sync.Mutex
	state     State
	version   uint64
	delivered uint64
	notifying bool
	closed    bool
	subs      map[int]func(State)
	nextSub   int

	settled     chan struct{}
	settledOnce sync.Once

	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

// NewProvider подписывается на смену сессии и запускает одну асинхронную загрузку.
// Уведомление о смене, пришедшее раньше результата загрузки, имеет приоритет.
func NewProvider(ctx context.Context, auth AuthService, log *slog.Logger) *Provider {
	ctx, cancel := context.WithCancel(ctx)
	p := &Provider{
		log:     log,
		state:   State{Loading: true},
		subs:    make(map[int]func(State)),
		settled: make(chan struct{}),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	p.unsubscribe = auth.OnSessionChange(p.onChange)

	go p.fetch(ctx, auth, 0)
	return p
}

func (p *Provider) fetch(ctx context.Context, auth AuthService, version uint64) {
	const op = "session.Provider.fetch"
	defer close(p.done)

	sess, err := auth.GetSession(ctx)

	p.mu.Lock()
	if p.closed || p.version != version {
		p.mu.Unlock()
		p.log.Debug("discarding stale session fetch", sl.Op(op))
		return
	}
	if err != nil {
		p.state = State{Loading: true, Err: err}
		p.log.Error("failed to load session", sl.Op(op), sl.Err(err))
	} else {
		p.state = State{Session: sess}
	}
	p.version++
	p.mu.Unlock()

	p.settle()
	p.publish()
}

func (p *Provider) onChange(sess *models.Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.version++
	p.state = State{Session: sess}
	p.mu.Unlock()

	p.settle()
	p.publish()
}

// publish доставляет подписчикам последнее состояние. Одновременно доставкой
// занимается только один вызов: остальные, в том числе вложенные из подписчика,
// только отмечают новую версию, и активный цикл доставит её следом. Подписчики
// никогда не получают состояние старше уже доставленного.
func (p *Provider) publish() {
	p.mu.Lock()
	if p.notifying {
		p.mu.Unlock()
		return
	}
	p.notifying = true
	for !p.closed && p.delivered != p.version {
		p.delivered = p.version
		state, subs := p.state, p.snapshotSubs()
		p.mu.Unlock()

		notify(subs, state)

		p.mu.Lock()
	}
	p.notifying = false
	p.mu.Unlock()
}

func (p *Provider) settle() {
	p.settledOnce.Do(func() { close(p.settled) })
}

func (p *Provider) snapshotSubs() []func(State) {
	subs := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(State), state State) {
	for _, fn := range subs {
		fn(state)
	}
}

// GetSession возвращает согласованный снимок состояния.
func (p *Provider) GetSession() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Wait ждёт завершения первичной загрузки или первой смены сессии.
// Если загрузка завершилась ошибкой, она возвращается вместе со снимком.
func (p *Provider) Wait(ctx context.Context) (State, error) {
	select {
	case <-p.settled:
		state := p.GetSession()
		return state, state.Err
	case <-ctx.Done():
		return p.GetSession(), ctx.Err()
	}
}

// Subscribe регистрирует обработчик, вызываемый после каждой смены состояния.
func (p *Provider) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Close отписывается от источника сессий и дожидается загрузки. Повторный вызов ничего не делает.
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.subs = map[int]func(State){}
		p.mu.Unlock()

		p.cancel()
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		<-p.done
	})
}

// Fixed источник с заранее известной сессией. Используется gate-api, где сессия
// восстанавливается из токена запроса.
type Fixed struct {
	session *models.Session
}

// NewFixed создаёт Fixed.
func NewFixed(s *models.Session) Fixed {
	return Fixed{session: s}
}

// GetSession возвращает сессию без признака загрузки.
func (f Fixed) GetSession() State {
	return State{Session: f.session}
}
