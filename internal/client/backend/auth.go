package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/storage/kv"
)

// minRefreshWait не даёт циклу обновления крутиться, если токен уже почти истёк.
const minRefreshWait = time.Second

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// Auth сессия пользователя на стороне клиента.
//
// Сессия хранится в памяти и дублируется в локальном хранилище под ключом session,
// чтобы пережить перезапуск. Подписчики получают каждую смену сессии, включая nil при выходе.
type Auth struct {
	client *Client
	store  kv.Store
	log    *slog.Logger

	refreshMu sync.Mutex

	mu       sync.Mutex
	session  *models.Session
	restored bool
	nextID   int
	subs     map[int]func(*models.Session)
}

// NewAuth создаёт Auth поверх клиента и хранилища устройства.
func NewAuth(client *Client, store kv.Store, log *slog.Logger) *Auth {
	return &Auth{
		client: client,
		store:  store,
		log:    log,
		subs:   make(map[int]func(*models.Session)),
	}
}

// GetSession возвращает текущую сессию; при первом вызове восстанавливает её из хранилища.
// Отсутствие сессии не ошибка: возвращается nil. Истёкшая сессия обновляется по
// refresh-токену; если бэкенд отверг токен, сессия удаляется.
func (a *Auth) GetSession(ctx context.Context) (*models.Session, error) {
	const op = "backend.Auth.GetSession"

	s, err := a.current(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s == nil || !s.Expired(time.Now()) {
		return s, nil
	}

	// Параллельный вызов мог уже обновить сессию.
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	if s, err = a.current(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s == nil || !s.Expired(time.Now()) {
		return s, nil
	}
	if s.RefreshToken == "" {
		a.log.Info("session expired without refresh token, signing out", sl.Op(op))
		if err := a.set(ctx, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, nil
	}

	fresh, err := a.refresh(ctx, s)
	var statusErr *StatusError
	switch {
	case err == nil:
		return fresh, nil
	case errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500:
		a.log.Warn("refresh token rejected, signing out", sl.Op(op), sl.Err(err))
		if err := a.set(ctx, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
}

// current возвращает сессию из памяти, при первом вызове читая её из хранилища.
func (a *Auth) current(ctx context.Context) (*models.Session, error) {
	const op = "backend.Auth.current"

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.restored {
		return a.session, nil
	}

	raw, found, err := a.store.Get(ctx, kv.KeySession)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.restored = true
	if !found {
		return nil, nil
	}
	var s models.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		a.log.Warn("stored session is malformed, ignoring", sl.Op(op), sl.Err(err))
		return nil, nil
	}
	if !s.IsAuthenticated() {
		return nil, nil
	}
	a.session = &s
	return a.session, nil
}

// AccessToken текущий access-токен или пустая строка.
func (a *Auth) AccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

// OnSessionChange подписывает fn на смену сессии и возвращает функцию отписки.
func (a *Auth) OnSessionChange(fn func(*models.Session)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

// SignIn входит по email и паролю.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "backend.Auth.SignIn"
	body := map[string]string{"email": email, "password": password}
	s, err := a.token(ctx, "password", body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := a.set(ctx, s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.log.Info("signed in", sl.Op(op), slog.String("user_id", s.UserID))
	return s, nil
}

// Refresh обменивает refresh-токен на новую пару токенов.
func (a *Auth) Refresh(ctx context.Context) (*models.Session, error) {
	const op = "backend.Auth.Refresh"
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	cur, err := a.current(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s, err := a.refresh(ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (a *Auth) refresh(ctx context.Context, cur *models.Session) (*models.Session, error) {
	if cur == nil || cur.RefreshToken == "" {
		return nil, ErrNoSession
	}
	s, err := a.token(ctx, "refresh_token", map[string]string{"refresh_token": cur.RefreshToken})
	if err != nil {
		return nil, err
	}
	if err := a.set(ctx, s); err != nil {
		return nil, err
	}
	a.log.Debug("session refreshed", slog.Time("expires_at", s.ExpiresAt))
	return s, nil
}

// SignOut завершает сессию на бэкенде и локально. Локальная сессия удаляется
// даже при ошибке бэкенда; ошибка при этом возвращается.
func (a *Auth) SignOut(ctx context.Context) error {
	const op = "backend.Auth.SignOut"
	token := a.AccessToken()

	var remoteErr error
	if token != "" {
		req, err := a.client.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil, token, nil)
		if err == nil {
			err = a.client.do(req, nil)
		}
		if err != nil {
			a.log.Warn("remote sign out failed", sl.Op(op), sl.Err(err))
			remoteErr = err
		}
	}

	if err := a.set(ctx, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if remoteErr != nil {
		return fmt.Errorf("%s: %w", op, remoteErr)
	}
	return nil
}

// RunRefresher обновляет сессию за margin до истечения токена, пока ctx не отменён.
// Неудачное обновление логируется и повторяется при следующей смене сессии.
func (a *Auth) RunRefresher(ctx context.Context, margin time.Duration) {
	const op = "backend.Auth.RunRefresher"
	log := a.log.With(sl.Op(op))

	changed := make(chan struct{}, 1)
	unsubscribe := a.OnSessionChange(func(*models.Session) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		s, err := a.GetSession(ctx)
		if err != nil {
			log.Error("failed to read session", sl.Err(err))
		}

		var (
			t     *time.Timer
			timer <-chan time.Time
		)
		if s != nil && !s.ExpiresAt.IsZero() && s.RefreshToken != "" {
			t = time.NewTimer(max(time.Until(s.ExpiresAt.Add(-margin)), minRefreshWait))
			timer = t.C
		}

		select {
		case <-ctx.Done():
			if t != nil {
				t.Stop()
			}
			return
		case <-changed:
			if t != nil {
				t.Stop()
			}
		case <-timer:
			if _, err := a.Refresh(ctx); err != nil {
				log.Error("failed to refresh session", sl.Err(err))
				select {
				case <-ctx.Done():
					return
				case <-changed:
				}
			}
		}
	}
}

func (a *Auth) token(ctx context.Context, grant string, body any) (*models.Session, error) {
	q := url.Values{"grant_type": {grant}}
	req, err := a.client.newRequest(ctx, http.MethodPost, "/auth/v1/token", q, "", body)
	if err != nil {
		return nil, err
	}
	var resp tokenResponse
	if err := a.client.do(req, &resp); err != nil {
		return nil, err
	}
	return sessionFromToken(resp)
}

func sessionFromToken(resp tokenResponse) (*models.Session, error) {
	claims, err := jwt.ParseUnverified(resp.AccessToken)
	if err != nil {
		return nil, err
	}
	s := &models.Session{
		UserID:       claims.Subject,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	switch {
	case claims.ExpiresAt != nil:
		s.ExpiresAt = claims.ExpiresAt.Time
	case resp.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return s, nil
}

// set сохраняет сессию и оповещает подписчиков. nil удаляет сессию.
func (a *Auth) set(ctx context.Context, s *models.Session) error {
	if s == nil {
		if err := a.store.Delete(ctx, kv.KeySession); err != nil {
			return err
		}
	} else {
		raw, err := json.Marshal(s)
		if err != nil {
			return err
		}
		if err := a.store.Set(ctx, kv.KeySession, string(raw)); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.session = s
	a.restored = true
	subs := make([]func(*models.Session), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return nil
}
