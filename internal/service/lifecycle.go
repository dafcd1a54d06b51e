// Package service holds the fasting session lifecycle and the analytics
// aggregator. Both take an injected store; there is no ambient global state.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourname/fastingtracker/internal"
	"github.com/yourname/fastingtracker/internal/plan"
	"github.com/yourname/fastingtracker/internal/storage"
)

// Lifecycle drives the Idle -> Fasting -> Completed/Cancelled state machine.
// The store enforces the single-active-session invariant; the lifecycle owns
// every mutation of the profile aggregate.
type Lifecycle struct {
	store         storage.Store
	catalog       *plan.Catalog
	loc           *time.Location
	keepCancelled bool
	logger        internal.Logger
}

func NewLifecycle(store storage.Store, catalog *plan.Catalog, loc *time.Location, keepCancelled bool, logger internal.Logger) *Lifecycle {
	return &Lifecycle{
		store:         store,
		catalog:       catalog,
		loc:           loc,
		keepCancelled: keepCancelled,
		logger:        logger,
	}
}

// StartFast opens a new session against the named plan. internal.ErrNotFound
// for an unknown plan, internal.ErrConflict while a fast is already running.
func (l *Lifecycle) StartFast(ctx context.Context, planID string, now time.Time) (*internal.FastingSession, error) {
	if _, err := l.catalog.Find(planID); err != nil {
		return nil, err
	}
	sess := &internal.FastingSession{
		ID:        uuid.NewString(),
		PlanID:    planID,
		StartDate: now,
		CreatedAt: now,
	}
	if err := l.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	l.logger.Infof("started fast %s on plan %s", sess.ID, planID)
	return sess, nil
}

// ActiveFast returns the running session and, for timed plans, its planned
// end so an external notifier can schedule a reminder. (nil, nil, nil) when
// idle.
func (l *Lifecycle) ActiveFast(ctx context.Context) (*internal.FastingSession, *time.Time, error) {
	sess, err := l.store.ActiveSession(ctx)
	if err != nil || sess == nil {
		return nil, nil, err
	}
	if p, err := l.catalog.Find(sess.PlanID); err == nil {
		if end, ok := p.PlannedEnd(sess.StartDate); ok {
			return sess, &end, nil
		}
	}
	return sess, nil, nil
}

// CancelFast abandons the active session. An uncompleted fast never touches
// the profile aggregates. With cancellation tracking on, the session is kept
// as a cancelled row so the success rate has a true denominator; otherwise
// it is deleted.
func (l *Lifecycle) CancelFast(ctx context.Context, now time.Time) error {
	return l.store.Transact(ctx, func(tx storage.Store) error {
		active, err := tx.ActiveSession(ctx)
		if err != nil {
			return err
		}
		if active == nil {
			return fmt.Errorf("cancel fast: no active session: %w", internal.ErrNotFound)
		}
		if l.keepCancelled {
			err = tx.CancelSession(ctx, active.ID, now)
		} else {
			err = tx.DeleteSession(ctx, active.ID)
		}
		if err != nil {
			return err
		}
		l.logger.Infof("cancelled fast %s", active.ID)
		return nil
	})
}

// CompleteFast finalizes the active session at the given time and folds it
// into the profile, all inside one store transaction: a failure leaves both
// session and profile untouched.
func (l *Lifecycle) CompleteFast(ctx context.Context, at time.Time) (*internal.FastingSession, *internal.UserProfile, error) {
	var (
		sess *internal.FastingSession
		prof *internal.UserProfile
	)
	err := l.store.Transact(ctx, func(tx storage.Store) error {
		active, err := tx.ActiveSession(ctx)
		if err != nil {
			return err
		}
		if active == nil {
			return fmt.Errorf("complete fast: no active session: %w", internal.ErrNotFound)
		}
		if at.Before(active.StartDate) {
			return fmt.Errorf("complete fast: end %s before start %s: %w",
				at.Format(time.RFC3339), active.StartDate.Format(time.RFC3339), internal.ErrInvalidState)
		}
		sess, err = tx.CompleteSession(ctx, active.ID, at)
		if err != nil {
			return err
		}
		prof, err = tx.Profile(ctx)
		if err != nil {
			return err
		}
		applyCompletion(prof, sess, l.loc)
		return tx.SaveProfile(ctx, prof)
	})
	if err != nil {
		return nil, nil, err
	}
	l.logger.Infof("completed fast %s: %.1fh, streak %d", sess.ID, sess.ActualFastingHours, prof.CurrentStreak)
	return sess, prof, nil
}

// applyCompletion folds one completed session into the profile aggregate.
// Streak rules: +1 when the previous fasting day is exactly the previous
// calendar day, unchanged for a second completion on the same day, reset to
// 1 after a gap of two or more days or with no prior date.
func applyCompletion(p *internal.UserProfile, s *internal.FastingSession, loc *time.Location) {
	p.TotalCompletedFasts++
	p.TotalHoursFasted += s.ActualFastingHours

	today := internal.DayOf(*s.EndDate, loc)
	if p.LastFastingDate == nil {
		p.CurrentStreak = 1
	} else {
		// Persisted dates can come back in a fixed-offset zone, where
		// AddDate moves exactly 24h; renormalize into loc so the next-day
		// check holds across DST transitions.
		last := internal.DayOf(*p.LastFastingDate, loc)
		switch {
		case last.Equal(today):
			// Same-day duplicate; streak already counts this day.
		case last.AddDate(0, 0, 1).Equal(today):
			p.CurrentStreak++
		default:
			p.CurrentStreak = 1
		}
	}
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastFastingDate = &today
	p.Level = LevelFor(p.TotalCompletedFasts)
	p.UpdatedAt = *s.EndDate
}
