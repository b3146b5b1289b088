package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) OnboardingAnswersExist(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) RecoveryGoalsExist(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) SaveOnboardingAnswers(ctx context.Context, userID string, answers map[string][]string) error {
	return m.Called(ctx, userID, answers).Error(0)
}
func (m *RepoMock) SaveRecoveryGoals(ctx context.Context, userID string, goals []string, timelineDays int) error {
	return m.Called(ctx, userID, goals, timelineDays).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, event models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var session = &models.Session{UserID: "user-1", AccessToken: "token"}

func TestStatus(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *RepoMock)
		want    models.OnboardingState
		wantErr bool
	}{
		{
			name: "complete",
			setup: func(r *RepoMock) {
				r.On("OnboardingAnswersExist", mock.Anything, "user-1").Return(true, nil).Once()
				r.On("RecoveryGoalsExist", mock.Anything, "user-1").Return(true, nil).Once()
			},
			want: models.OnboardingState{AnsweredQuestions: true, RecoveryGoalsSet: true},
		},
		{
			name: "answers without goals is incomplete",
			setup: func(r *RepoMock) {
				r.On("OnboardingAnswersExist", mock.Anything, "user-1").Return(true, nil).Once()
				r.On("RecoveryGoalsExist", mock.Anything, "user-1").Return(false, nil).Once()
			},
			want: models.OnboardingState{AnsweredQuestions: true},
		},
		{
			name: "goals not queried without answers",
			setup: func(r *RepoMock) {
				r.On("OnboardingAnswersExist", mock.Anything, "user-1").Return(false, nil).Once()
			},
			want: models.OnboardingState{},
		},
		{
			name: "goals lookup fails",
			setup: func(r *RepoMock) {
				r.On("OnboardingAnswersExist", mock.Anything, "user-1").Return(true, nil).Once()
				r.On("RecoveryGoalsExist", mock.Anything, "user-1").Return(false, errors.New("timeout")).Once()
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)
			svc := NewOnboardingService(repo, nil, newNoopLogger())

			got, err := svc.Status(context.Background(), session)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.want.AnsweredQuestions && tt.want.RecoveryGoalsSet, got.Complete())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestHasAnswers_NoSession(t *testing.T) {
	svc := NewOnboardingService(new(RepoMock), nil, newNoopLogger())
	_, err := svc.HasAnswers(context.Background(), &models.Session{})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = svc.HasGoals(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSaveAnswers(t *testing.T) {
	answers := map[string][]string{"triggers": {"stress", "boredom"}}

	t.Run("saved and published", func(t *testing.T) {
		repo := new(RepoMock)
		pub := new(PublisherMock)
		repo.On("SaveOnboardingAnswers", mock.Anything, "user-1", answers).Return(nil).Once()
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e models.Event) bool {
			return e.Type == models.EventOnboardingAnswers && e.UserID == "user-1"
		})).Return(nil).Once()

		svc := NewOnboardingService(repo, pub, newNoopLogger())
		require.NoError(t, svc.SaveAnswers(context.Background(), "user-1", models.OnboardingAnswersRequest{Answers: answers}))
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		repo := new(RepoMock)
		pub := new(PublisherMock)
		repo.On("SaveOnboardingAnswers", mock.Anything, "user-1", answers).Return(nil).Once()
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		svc := NewOnboardingService(repo, pub, newNoopLogger())
		assert.NoError(t, svc.SaveAnswers(context.Background(), "user-1", models.OnboardingAnswersRequest{Answers: answers}))
	})

	t.Run("empty", func(t *testing.T) {
		svc := NewOnboardingService(new(RepoMock), nil, newNoopLogger())
		err := svc.SaveAnswers(context.Background(), "user-1", models.OnboardingAnswersRequest{})
		assert.ErrorIs(t, err, ErrNoAnswers)
		assert.True(t, IsValidationError(err))
	})
}

func TestSaveGoals(t *testing.T) {
	goals := []string{"quit vaping"}

	for _, days := range Timelines {
		repo := new(RepoMock)
		repo.On("SaveRecoveryGoals", mock.Anything, "user-1", goals, days).Return(nil).Once()
		svc := NewOnboardingService(repo, nil, newNoopLogger())
		assert.NoError(t, svc.SaveGoals(context.Background(), "user-1", models.RecoveryGoalsRequest{Goals: goals, TimelineDays: days}))
		repo.AssertExpectations(t)
	}

	svc := NewOnboardingService(new(RepoMock), nil, newNoopLogger())
	err := svc.SaveGoals(context.Background(), "user-1", models.RecoveryGoalsRequest{Goals: goals, TimelineDays: 14})
	assert.ErrorIs(t, err, ErrInvalidTimeline)

	err = svc.SaveGoals(context.Background(), "user-1", models.RecoveryGoalsRequest{TimelineDays: 30})
	assert.ErrorIs(t, err, ErrNoGoals)

	repo := new(RepoMock)
	repo.On("SaveRecoveryGoals", mock.Anything, "user-1", goals, 90).Return(errors.New("db down")).Once()
	svc = NewOnboardingService(repo, nil, newNoopLogger())
	err = svc.SaveGoals(context.Background(), "user-1", models.RecoveryGoalsRequest{Goals: goals, TimelineDays: 90})
	assert.ErrorContains(t, err, "db down")
	assert.False(t, IsValidationError(err))
}
