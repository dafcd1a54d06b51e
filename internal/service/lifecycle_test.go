package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/fastingtracker/internal"
	"github.com/yourname/fastingtracker/internal/plan"
	"github.com/yourname/fastingtracker/internal/storage"
)

func setupStore(t *testing.T) storage.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.NewFileStorage(
		filepath.Join(dir, "sessions.json"),
		filepath.Join(dir, "profile.json"),
		internal.NewNopLogger(),
	)
	require.NoError(t, err)
	return s
}

func setupLifecycle(t *testing.T, keepCancelled bool) (*Lifecycle, storage.Store) {
	t.Helper()
	st := setupStore(t)
	lc := NewLifecycle(st, plan.NewCatalog(), time.UTC, keepCancelled, internal.NewNopLogger())
	return lc, st
}

// completeOn runs one start+complete cycle on the given calendar day.
func completeOn(t *testing.T, lc *Lifecycle, day time.Time) *internal.UserProfile {
	t.Helper()
	ctx := context.Background()
	_, err := lc.StartFast(ctx, "16-8", day)
	require.NoError(t, err)
	_, prof, err := lc.CompleteFast(ctx, day.Add(16*time.Hour))
	require.NoError(t, err)
	return prof
}

func TestStartFastUnknownPlan(t *testing.T) {
	lc, st := setupLifecycle(t, false)
	ctx := context.Background()

	_, err := lc.StartFast(ctx, "no-such-plan", time.Now())
	assert.True(t, errors.Is(err, internal.ErrNotFound))

	active, _ := st.ActiveSession(ctx)
	assert.Nil(t, active)
}

func TestSingleActiveSession(t *testing.T) {
	lc, st := setupLifecycle(t, false)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	first, err := lc.StartFast(ctx, "16-8", start)
	require.NoError(t, err)

	_, err = lc.StartFast(ctx, "18-6", start.Add(time.Hour))
	assert.True(t, errors.Is(err, internal.ErrConflict))

	// Store unchanged by the rejected start.
	active, err := st.ActiveSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, "16-8", active.PlanID)
}

func TestCancelLeavesProfileUntouched(t *testing.T) {
	lc, st := setupLifecycle(t, false)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := lc.StartFast(ctx, "16-8", start)
	require.NoError(t, err)
	require.NoError(t, lc.CancelFast(ctx, start.Add(3*time.Hour)))

	active, _ := st.ActiveSession(ctx)
	assert.Nil(t, active)

	prof, err := st.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, prof.TotalCompletedFasts)
	assert.Equal(t, 0.0, prof.TotalHoursFasted)
	assert.Equal(t, 0, prof.CurrentStreak)
	assert.Nil(t, prof.LastFastingDate)
}

func TestCancelWithoutActive(t *testing.T) {
	lc, _ := setupLifecycle(t, false)
	err := lc.CancelFast(context.Background(), time.Now())
	assert.True(t, errors.Is(err, internal.ErrNotFound))
}

func TestCompleteWithoutActive(t *testing.T) {
	lc, _ := setupLifecycle(t, false)
	_, _, err := lc.CompleteFast(context.Background(), time.Now())
	assert.True(t, errors.Is(err, internal.ErrNotFound))
}

func TestCompleteBeforeStartLeavesEverythingUnmodified(t *testing.T) {
	lc, st := setupLifecycle(t, false)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	started, err := lc.StartFast(ctx, "16-8", start)
	require.NoError(t, err)

	_, _, err = lc.CompleteFast(ctx, start.Add(-time.Minute))
	assert.True(t, errors.Is(err, internal.ErrInvalidState))

	active, _ := st.ActiveSession(ctx)
	require.NotNil(t, active)
	assert.Equal(t, started.ID, active.ID)
	assert.False(t, active.IsCompleted)

	prof, _ := st.Profile(ctx)
	assert.Equal(t, 0, prof.TotalCompletedFasts)
}

func TestCompleteUpdatesAggregates(t *testing.T) {
	lc, _ := setupLifecycle(t, false)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	_, err := lc.StartFast(ctx, "16-8", start)
	require.NoError(t, err)

	sess, prof, err := lc.CompleteFast(ctx, start.Add(16*time.Hour))
	require.NoError(t, err)
	assert.True(t, sess.IsCompleted)
	assert.InDelta(t, 16.0, sess.ActualFastingHours, 0.001)
	assert.Equal(t, 1, prof.TotalCompletedFasts)
	assert.InDelta(t, 16.0, prof.TotalHoursFasted, 0.001)
	assert.Equal(t, 1, prof.CurrentStreak)
	assert.Equal(t, 1, prof.LongestStreak)
	require.NotNil(t, prof.LastFastingDate)
	// Completed at 2025-03-02 12:00 UTC.
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), *prof.LastFastingDate)
}

func TestStreakSequenceWithGap(t *testing.T) {
	lc, _ := setupLifecycle(t, false)
	base := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

	// Days 1, 2, 3 consecutive, then skip to day 6.
	wantCurrent := []int{1, 2, 3, 1}
	days := []int{0, 1, 2, 5}
	for i, offset := range days {
		prof := completeOn(t, lc, base.AddDate(0, 0, offset))
		assert.Equal(t, wantCurrent[i], prof.CurrentStreak, "day offset %d", offset)
		assert.True(t, prof.CurrentStreak <= prof.LongestStreak)
	}

	prof := completeOn(t, lc, base.AddDate(0, 0, 6))
	assert.Equal(t, 2, prof.CurrentStreak)
	assert.Equal(t, 3, prof.LongestStreak)
}

func TestStreakAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	dir := t.TempDir()
	open := func() storage.Store {
		s, err := storage.NewFileStorage(
			filepath.Join(dir, "sessions.json"),
			filepath.Join(dir, "profile.json"),
			internal.NewNopLogger(),
		)
		require.NoError(t, err)
		return s
	}
	ctx := context.Background()

	// Clocks spring forward the morning of 2025-03-09; local midnights on
	// either side of it are 23 hours apart.
	st := open()
	lc := NewLifecycle(st, plan.NewCatalog(), loc, false, internal.NewNopLogger())
	day1 := time.Date(2025, 3, 9, 10, 0, 0, 0, loc)
	_, err = lc.StartFast(ctx, "16-8", day1)
	require.NoError(t, err)
	_, prof, err := lc.CompleteFast(ctx, day1.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, prof.CurrentStreak)
	require.NoError(t, st.Close())

	// Reload so LastFastingDate comes back from JSON in a fixed-offset zone.
	st = open()
	lc = NewLifecycle(st, plan.NewCatalog(), loc, false, internal.NewNopLogger())
	day2 := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)
	_, err = lc.StartFast(ctx, "16-8", day2)
	require.NoError(t, err)
	_, prof, err = lc.CompleteFast(ctx, day2.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, prof.CurrentStreak)
	assert.Equal(t, 2, prof.LongestStreak)
}

func TestSameDayCompletionIsIdempotentForStreak(t *testing.T) {
	lc, _ := setupLifecycle(t, false)
	ctx := context.Background()
	day := time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC)

	_, err := lc.StartFast(ctx, "16-8", day)
	require.NoError(t, err)
	_, prof, err := lc.CompleteFast(ctx, day.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, prof.CurrentStreak)

	// Second fast completed the same calendar day.
	_, err = lc.StartFast(ctx, "16-8", day.Add(6*time.Hour))
	require.NoError(t, err)
	_, prof, err = lc.CompleteFast(ctx, day.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, prof.CurrentStreak)
	assert.Equal(t, 2, prof.TotalCompletedFasts)
}

func TestTotalHoursMatchesIndependentRecomputation(t *testing.T) {
	lc, st := setupLifecycle(t, false)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

	durations := []time.Duration{14 * time.Hour, 16 * time.Hour, 20 * time.Hour}
	for i, d := range durations {
		day := base.AddDate(0, 0, i)
		_, err := lc.StartFast(ctx, "16-8", day)
		require.NoError(t, err)
		_, _, err = lc.CompleteFast(ctx, day.Add(d))
		require.NoError(t, err)
	}

	prof, err := st.Profile(ctx)
	require.NoError(t, err)

	sessions, err := st.ListCompleted(ctx, nil)
	require.NoError(t, err)
	sum := 0.0
	for _, s := range sessions {
		sum += s.ActualFastingHours
	}
	assert.InDelta(t, sum, prof.TotalHoursFasted, 0.001)
	assert.Equal(t, len(sessions), prof.TotalCompletedFasts)
}

func TestKeepCancelledRetainsRow(t *testing.T) {
	lc, st := setupLifecycle(t, true)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := lc.StartFast(ctx, "16-8", start)
	require.NoError(t, err)
	require.NoError(t, lc.CancelFast(ctx, start.Add(2*time.Hour)))

	n, err := st.CountCancelled(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A cancelled fast frees the slot for a new one.
	_, err = lc.StartFast(ctx, "16-8", start.Add(3*time.Hour))
	assert.NoError(t, err)
}

func TestActiveFastPlannedEnd(t *testing.T) {
	lc, _ := setupLifecycle(t, false)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	sess, plannedEnd, err := lc.ActiveFast(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, plannedEnd)

	_, err = lc.StartFast(ctx, "18-6", start)
	require.NoError(t, err)

	sess, plannedEnd, err = lc.ActiveFast(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, plannedEnd)
	assert.Equal(t, start.Add(18*time.Hour), *plannedEnd)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, 1, LevelFor(0))
	assert.Equal(t, 1, LevelFor(2))
	assert.Equal(t, 2, LevelFor(3))
	assert.Equal(t, 3, LevelFor(7))
	assert.Equal(t, 10, LevelFor(365))
	assert.Equal(t, 10, LevelFor(9999))

	prev := 0
	for n := 0; n <= 400; n++ {
		lvl := LevelFor(n)
		assert.GreaterOrEqual(t, lvl, prev)
		prev = lvl
	}
}
