package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/fastingtracker/internal"
)

func setupGormStorage(t *testing.T) *GormStorage {
	t.Helper()
	s, err := NewGormStorage(filepath.Join(t.TempDir(), "test.db"), internal.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormInsertConflictAndComplete(t *testing.T) {
	s := setupGormStorage(t)
	ctx := context.Background()
	start := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertSession(ctx, newSession("s1", start)))
	err := s.InsertSession(ctx, newSession("s2", start.Add(time.Hour)))
	assert.True(t, errors.Is(err, internal.ErrConflict))

	sess, err := s.CompleteSession(ctx, "s1", start.Add(20*time.Hour))
	require.NoError(t, err)
	assert.True(t, sess.IsCompleted)
	assert.InDelta(t, 20.0, sess.ActualFastingHours, 0.001)

	_, err = s.CompleteSession(ctx, "s1", start.Add(21*time.Hour))
	assert.True(t, errors.Is(err, internal.ErrInvalidState))

	active, err := s.ActiveSession(ctx)
	assert.NoError(t, err)
	assert.Nil(t, active)

	completed, err := s.ListCompleted(ctx, nil)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "s1", completed[0].ID)
}

func TestGormCancelKeepsRow(t *testing.T) {
	s := setupGormStorage(t)
	ctx := context.Background()
	start := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertSession(ctx, newSession("s1", start)))
	require.NoError(t, s.CancelSession(ctx, "s1", start.Add(2*time.Hour)))

	active, err := s.ActiveSession(ctx)
	assert.NoError(t, err)
	assert.Nil(t, active)

	n, err := s.CountCancelled(ctx, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	completed, err := s.ListCompleted(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, completed)
}

func TestGormProfileUpsert(t *testing.T) {
	s := setupGormStorage(t)
	ctx := context.Background()

	prof, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, prof.TotalCompletedFasts)

	prof.TotalCompletedFasts = 2
	prof.CurrentStreak = 2
	prof.LongestStreak = 2
	prof.UpdatedAt = time.Now()
	require.NoError(t, s.SaveProfile(ctx, prof))

	prof.TotalCompletedFasts = 3
	require.NoError(t, s.SaveProfile(ctx, prof))

	got, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCompletedFasts)
	assert.Equal(t, 2, got.LongestStreak)
}

func TestGormOnboardingFlag(t *testing.T) {
	s := setupGormStorage(t)
	ctx := context.Background()

	done, err := s.Onboarded(ctx)
	assert.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.SetOnboarded(ctx, true))
	done, err = s.Onboarded(ctx)
	assert.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, s.SetOnboarded(ctx, false))
	done, _ = s.Onboarded(ctx)
	assert.False(t, done)
}

func TestGormTransactRollback(t *testing.T) {
	s := setupGormStorage(t)
	ctx := context.Background()
	start := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := s.Transact(ctx, func(tx Store) error {
		if err := tx.InsertSession(ctx, newSession("s1", start)); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	active, err := s.ActiveSession(ctx)
	assert.NoError(t, err)
	assert.Nil(t, active)
}
