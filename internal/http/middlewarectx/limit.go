package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/kuitter-gate/internal/http/response"
)

// DefaultLimiterIdle время простоя, после которого bucket клиента удаляется.
const DefaultLimiterIdle = 10 * time.Minute

// Limiter хранит отдельный token bucket на каждого пользователя.
// Bucket, простаивавший дольше idle, удаляется при очередном обходе; к этому
// моменту он уже полностью восстановлен, так что удаление не меняет лимит.
type Limiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// LimiterOption настраивает Limiter.
type LimiterOption func(*Limiter)

// WithIdle задаёт время простоя до удаления bucket.
func WithIdle(d time.Duration) LimiterOption {
	return func(l *Limiter) {
		if d > 0 {
			l.idle = d
		}
	}
}

// WithLimiterClock подменяет источник времени.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter создаёт Limiter.
func NewLimiter(rps float64, burst int, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     DefaultLimiterIdle,
		now:      time.Now,
		limiters: make(map[string]*visitor),
	}
	for _, opt := range opts {
		opt(l)
	}
	if rps > 0 {
		l.idle = max(l.idle, time.Duration(float64(burst)/rps*float64(time.Second)))
	}
	l.lastSweep = l.now()
	return l
}

// Allow сообщает, можно ли пропустить запрос с ключом key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	v, ok := l.limiters[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.lim.AllowN(now, 1)
}

// sweep удаляет простаивающие bucket. Вызывается под l.mu.
func (l *Limiter) sweep(now time.Time) {
	for key, v := range l.limiters {
		if now.Sub(v.lastSeen) >= l.idle {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimitMiddleware ограничивает частоту запросов. Ключ — пользователь из
// контекста, для анонимных запросов — адрес клиента.
func RateLimitMiddleware(l *Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !l.Allow(key) {
				log.Warn("too many requests", slog.String("client", key))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if s, ok := SessionFrom(r.Context()); ok {
		return "user:" + s.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
