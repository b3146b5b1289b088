package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/storage/kv"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}
func (m *StoreMock) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}
func (m *StoreMock) SetNX(ctx context.Context, key, value string) (bool, error) {
	args := m.Called(ctx, key, value)
	return args.Bool(0), args.Error(1)
}
func (m *StoreMock) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
func (m *StoreMock) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type singleStore struct{ store kv.Store }

func (f singleStore) For(string) kv.Store { return f.store }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func setup(t *testing.T) (*SubscriptionService, *fakeClock, kv.Factory) {
	stores, err := kv.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewSubscriptionService(stores, newNoopLogger(), WithClock(clock.Now))
	return svc, clock, stores
}

func TestCheckStatus_FreshInstallStartsTrial(t *testing.T) {
	svc, clock, stores := setup(t)
	ctx := context.Background()

	first := svc.CheckStatus(ctx, "device")
	assert.Equal(t, models.StatusTrial, first.Status)
	assert.Equal(t, models.TrialDuration, first.TimeRemaining)
	require.NotNil(t, first.StartedAt)
	assert.False(t, first.Fallback)

	raw, found, err := stores.For("device").Get(ctx, kv.KeyTrialStart)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, strconv.FormatInt(clock.Now().UnixMilli(), 10), raw)

	clock.Advance(5 * time.Millisecond)
	second := svc.CheckStatus(ctx, "device")
	assert.Equal(t, models.StatusTrial, second.Status)
	assert.Less(t, second.TimeRemaining, first.TimeRemaining)
	assert.Equal(t, models.TrialDuration-5*time.Millisecond, second.TimeRemaining)
	assert.True(t, first.StartedAt.Equal(*second.StartedAt))
}

func TestCheckStatus_Expiry(t *testing.T) {
	tests := []struct {
		name       string
		advance    time.Duration
		wantStatus models.SubscriptionStatus
		wantLeft   time.Duration
	}{
		{"one hour in", time.Hour, models.StatusTrial, models.TrialDuration - time.Hour},
		{"one millisecond before end", models.TrialDuration - time.Millisecond, models.StatusTrial, time.Millisecond},
		{"exactly at end", models.TrialDuration, models.StatusExpired, 0},
		{"long after", 30 * 24 * time.Hour, models.StatusExpired, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, clock, _ := setup(t)
			ctx := context.Background()
			svc.CheckStatus(ctx, "device")

			clock.Advance(tt.advance)
			got := svc.CheckStatus(ctx, "device")
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantLeft, got.TimeRemaining)
		})
	}
}

func TestCheckStatus_ExpiredStaysExpired(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()
	svc.CheckStatus(ctx, "device")
	clock.Advance(models.TrialDuration + time.Minute)

	for i := 0; i < 3; i++ {
		assert.Equal(t, models.StatusExpired, svc.CheckStatus(ctx, "device").Status)
	}
}

func TestActivate_IsIdempotentAndFinal(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()
	svc.CheckStatus(ctx, "device")
	clock.Advance(models.TrialDuration * 2)
	require.Equal(t, models.StatusExpired, svc.CheckStatus(ctx, "device").Status)

	require.NoError(t, svc.Activate(ctx, "device"))
	assert.Equal(t, models.StatusActive, svc.CheckStatus(ctx, "device").Status)

	require.NoError(t, svc.Activate(ctx, "device"))
	clock.Advance(365 * 24 * time.Hour)
	got := svc.CheckStatus(ctx, "device")
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Nil(t, got.StartedAt)
}

func TestCheckStatus_OwnersAreIndependent(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()
	svc.CheckStatus(ctx, "alice")
	clock.Advance(models.TrialDuration)

	assert.Equal(t, models.StatusExpired, svc.CheckStatus(ctx, "alice").Status)
	assert.Equal(t, models.StatusTrial, svc.CheckStatus(ctx, "bob").Status)
}

func TestReset_RestartsTrial(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.Activate(ctx, "device"))

	require.NoError(t, svc.Reset(ctx, "device"))
	clock.Advance(time.Hour)
	got := svc.CheckStatus(ctx, "device")
	assert.Equal(t, models.StatusTrial, got.Status)
	assert.Equal(t, models.TrialDuration, got.TimeRemaining)
}

func TestCheckStatus_ConcurrentWriterWins(t *testing.T) {
	store := new(StoreMock)
	earlier := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	now := earlier.Add(time.Hour)
	store.On("Get", mock.Anything, kv.KeySubscription).Return("", false, nil).Once()
	store.On("Get", mock.Anything, kv.KeyTrialStart).Return("", false, nil).Once()
	store.On("SetNX", mock.Anything, kv.KeyTrialStart, strconv.FormatInt(now.UnixMilli(), 10)).Return(false, nil).Once()
	store.On("Get", mock.Anything, kv.KeyTrialStart).Return(strconv.FormatInt(earlier.UnixMilli(), 10), true, nil).Once()

	svc := NewSubscriptionService(singleStore{store}, newNoopLogger(), WithClock(func() time.Time { return now }))
	got := svc.CheckStatus(context.Background(), "device")

	assert.Equal(t, models.StatusTrial, got.Status)
	assert.Equal(t, models.TrialDuration-time.Hour, got.TimeRemaining)
	assert.True(t, earlier.Equal(*got.StartedAt))
	store.AssertExpectations(t)
}

func TestCheckStatus_StorageErrorsFallBackToTrial(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *StoreMock)
	}{
		{
			name: "status read fails",
			setup: func(s *StoreMock) {
				s.On("Get", mock.Anything, kv.KeySubscription).Return("", false, errors.New("disk I/O error"))
			},
		},
		{
			name: "trial start read fails",
			setup: func(s *StoreMock) {
				s.On("Get", mock.Anything, kv.KeySubscription).Return("", false, nil)
				s.On("Get", mock.Anything, kv.KeyTrialStart).Return("", false, errors.New("disk I/O error"))
			},
		},
		{
			name: "trial start write fails",
			setup: func(s *StoreMock) {
				s.On("Get", mock.Anything, kv.KeySubscription).Return("", false, nil)
				s.On("Get", mock.Anything, kv.KeyTrialStart).Return("", false, nil)
				s.On("SetNX", mock.Anything, kv.KeyTrialStart, mock.Anything).Return(false, errors.New("read-only"))
			},
		},
		{
			name: "malformed trial start",
			setup: func(s *StoreMock) {
				s.On("Get", mock.Anything, kv.KeySubscription).Return("", false, nil)
				s.On("Get", mock.Anything, kv.KeyTrialStart).Return("yesterday", true, nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(StoreMock)
			tt.setup(store)
			svc := NewSubscriptionService(singleStore{store}, newNoopLogger())

			got := svc.CheckStatus(context.Background(), "device")
			assert.Equal(t, models.StatusTrial, got.Status)
			assert.True(t, got.Fallback)
			store.AssertExpectations(t)
		})
	}
}

func TestActivate_StorageError(t *testing.T) {
	store := new(StoreMock)
	store.On("Set", mock.Anything, kv.KeySubscription, "active").Return(errors.New("disk full")).Once()
	svc := NewSubscriptionService(singleStore{store}, newNoopLogger())

	err := svc.Activate(context.Background(), "device")
	assert.ErrorContains(t, err, "disk full")
	store.AssertExpectations(t)
}

func TestWithTrialDuration(t *testing.T) {
	svc := NewSubscriptionService(nil, newNoopLogger(), WithTrialDuration(time.Hour))
	assert.Equal(t, time.Hour, svc.TrialDuration())

	svc = NewSubscriptionService(nil, newNoopLogger(), WithTrialDuration(0))
	assert.Equal(t, models.TrialDuration, svc.TrialDuration())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func TestLogOut_KeepsBillingState(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(ctx context.Context, svc *SubscriptionService, clock *fakeClock)
		want    models.SubscriptionStatus
	}{
		{
			name: "оплаченная подписка остаётся активной",
			prepare: func(ctx context.Context, svc *SubscriptionService, _ *fakeClock) {
				require.NoError(t, svc.Activate(ctx, "user-1"))
			},
			want: models.StatusActive,
		},
		{
			name: "истёкший пробный период не начинается заново",
			prepare: func(ctx context.Context, svc *SubscriptionService, clock *fakeClock) {
				svc.CheckStatus(ctx, "user-1")
				clock.Advance(models.TrialDuration + time.Hour)
			},
			want: models.StatusExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, clock, _ := setup(t)
			pub := &recordingPublisher{}
			WithPublisher(pub)(svc)
			ctx := context.Background()
			tt.prepare(ctx, svc, clock)

			svc.LogOut(ctx, "user-1")

			assert.Equal(t, tt.want, svc.CheckStatus(ctx, "user-1").Status)
			pub.mu.Lock()
			defer pub.mu.Unlock()
			require.NotEmpty(t, pub.events)
			last := pub.events[len(pub.events)-1]
			assert.Equal(t, models.EventLoggedOut, last.Type)
			assert.Equal(t, "user-1", last.UserID)
		})
	}
}
