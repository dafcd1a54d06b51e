package service

import (
	"context"
	"sort"
	"time"

	"github.com/yourname/fastingtracker/internal"
	"github.com/yourname/fastingtracker/internal/storage"
)

// Analytics derives snapshots from the store. It is read-only: it never
// mutates sessions or the profile, and it never caches across requests.
type Analytics struct {
	store          storage.Store
	loc            *time.Location
	trackCancelled bool
}

func NewAnalytics(store storage.Store, loc *time.Location, trackCancelled bool) *Analytics {
	return &Analytics{store: store, loc: loc, trackCancelled: trackCancelled}
}

// window returns the inclusive bounds for a period relative to ref, or
// (nil, nil) for allTime.
func (a *Analytics) window(period internal.Period, ref time.Time) (*time.Time, *time.Time) {
	switch period {
	case internal.PeriodWeek:
		day := internal.DayOf(ref, a.loc)
		start := day.AddDate(0, 0, -6)
		end := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return &start, &end
	case internal.PeriodMonth:
		r := ref.In(a.loc)
		start := time.Date(r.Year(), r.Month(), 1, 0, 0, 0, 0, a.loc)
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return &start, &end
	default:
		return nil, nil
	}
}

// Snapshot computes the aggregate view for the period ending at ref. All
// reads happen inside a single store transaction so the profile and the
// session list are never observed torn. Empty input degrades to zeros.
func (a *Analytics) Snapshot(ctx context.Context, period internal.Period, ref time.Time) (*internal.AnalyticsSnapshot, error) {
	start, end := a.window(period, ref)

	snap := &internal.AnalyticsSnapshot{
		Period:      period,
		WindowStart: start,
		WindowEnd:   end,
		GeneratedAt: time.Now(),
	}

	err := a.store.Transact(ctx, func(tx storage.Store) error {
		prof, err := tx.Profile(ctx)
		if err != nil {
			return err
		}
		sessions, err := tx.ListCompleted(ctx, nil)
		if err != nil {
			return err
		}
		cancelled := 0
		if a.trackCancelled {
			cancelled, err = tx.CountCancelled(ctx, start, end)
			if err != nil {
				return err
			}
		}

		snap.CurrentStreak = prof.CurrentStreak
		snap.BestStreak = prof.LongestStreak

		for _, s := range sessions {
			if !inWindow(s.StartDate, start, end) {
				continue
			}
			snap.TotalFasts++
			snap.TotalHours += s.ActualFastingHours
			if s.ActualFastingHours > snap.LongestFastHours {
				snap.LongestFastHours = s.ActualFastingHours
			}
		}
		if snap.TotalFasts > 0 {
			snap.AverageHours = snap.TotalHours / float64(snap.TotalFasts)
		}
		snap.SuccessRate = a.successRate(snap.TotalFasts, cancelled)
		snap.WeeklyData = weeklyBuckets(sessions, ref, a.loc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (a *Analytics) successRate(completed, cancelled int) float64 {
	if a.trackCancelled {
		attempts := completed + cancelled
		if attempts == 0 {
			return 0
		}
		return float64(completed) / float64(attempts)
	}
	// Without cancellation tracking only completed sessions exist, so every
	// recorded attempt succeeded.
	if completed == 0 {
		return 0
	}
	return 1
}

func inWindow(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

// weeklyBuckets sums fasting hours per calendar day over the 7 days ending
// at ref, keyed by each session's start day. Always exactly 7 entries,
// ascending, zero for empty days.
func weeklyBuckets(sessions []internal.FastingSession, ref time.Time, loc *time.Location) []internal.DayHours {
	last := internal.DayOf(ref, loc)
	byDay := make(map[time.Time]float64, 7)
	for _, s := range sessions {
		day := internal.DayOf(s.StartDate, loc)
		byDay[day] += s.ActualFastingHours
	}
	out := make([]internal.DayHours, 0, 7)
	for i := 6; i >= 0; i-- {
		day := last.AddDate(0, 0, -i)
		out = append(out, internal.DayHours{Day: day, Hours: byDay[day]})
	}
	return out
}

// RecomputeStreaksFromHistory independently re-derives the streak counters
// by walking completed sessions' calendar dates. A full scan, idempotent;
// used to verify the incrementally maintained profile values.
func (a *Analytics) RecomputeStreaksFromHistory(ctx context.Context) (current, longest int, err error) {
	return a.recomputeStreaks(ctx, a.store)
}

// VerifyStreaks recomputes the streaks and reads the profile inside one
// transaction, so a completion landing between the two reads cannot produce
// a spurious mismatch.
func (a *Analytics) VerifyStreaks(ctx context.Context) (current, longest int, prof *internal.UserProfile, err error) {
	err = a.store.Transact(ctx, func(tx storage.Store) error {
		if prof, err = tx.Profile(ctx); err != nil {
			return err
		}
		current, longest, err = a.recomputeStreaks(ctx, tx)
		return err
	})
	if err != nil {
		return 0, 0, nil, err
	}
	return current, longest, prof, nil
}

func (a *Analytics) recomputeStreaks(ctx context.Context, st storage.Store) (current, longest int, err error) {
	sessions, err := st.ListCompleted(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[time.Time]bool)
	days := []time.Time{}
	for _, s := range sessions {
		at := s.StartDate
		if s.EndDate != nil {
			at = *s.EndDate
		}
		day := internal.DayOf(at, a.loc)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	current, longest = StreaksFromDays(days)
	return current, longest, nil
}

// StreaksFromDays finds the maximal runs of consecutive calendar days.
// days must be distinct midnights in ascending order. current is the length
// of the run ending at the most recent day.
func StreaksFromDays(days []time.Time) (current, longest int) {
	run := 0
	for i, day := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(day) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	current = run
	return current, longest
}
