// Package storage is the durable session + profile store behind the
// lifecycle and analytics services. Three backends implement the same Store
// interface: JSON files, embedded SQLite and Postgres.
package storage

import (
	"context"
	"time"

	"github.com/yourname/fastingtracker/internal"
)

// Store is the persistence contract of the engine. Every mutation is durable
// before the call returns. Implementations serialize writers, so a
// getActive+complete pair inside Transact cannot race a concurrent start.
type Store interface {
	// InsertSession adds a new active session. Fails with
	// internal.ErrConflict while another active session exists.
	InsertSession(ctx context.Context, s *internal.FastingSession) error

	// ActiveSession returns the running session, or (nil, nil) when idle.
	ActiveSession(ctx context.Context) (*internal.FastingSession, error)

	// CompleteSession finalizes the session: sets EndDate, IsCompleted and
	// ActualFastingHours and returns the updated copy. Fails with
	// internal.ErrNotFound for an unknown id and internal.ErrInvalidState
	// when the session is already finalized or end precedes its start.
	CompleteSession(ctx context.Context, id string, end time.Time) (*internal.FastingSession, error)

	// DeleteSession removes the session entirely (hard cancel).
	DeleteSession(ctx context.Context, id string) error

	// CancelSession keeps the row but marks it cancelled at the given time
	// (soft cancel, used when cancellation tracking is on). Cancelled
	// sessions never count toward any aggregate.
	CancelSession(ctx context.Context, id string, at time.Time) error

	// ListCompleted returns completed sessions ordered by StartDate
	// ascending, optionally restricted to StartDate >= since.
	ListCompleted(ctx context.Context, since *time.Time) ([]internal.FastingSession, error)

	// CountCancelled counts soft-cancelled sessions with StartDate inside
	// [from, to]. Nil bounds are open.
	CountCancelled(ctx context.Context, from, to *time.Time) (int, error)

	// Profile returns the singleton aggregate, a fresh zero profile when
	// none has been saved yet.
	Profile(ctx context.Context) (*internal.UserProfile, error)
	SaveProfile(ctx context.Context, p *internal.UserProfile) error

	// Onboarded is the opaque "has completed onboarding" flag of the
	// surrounding app.
	Onboarded(ctx context.Context) (bool, error)
	SetOnboarded(ctx context.Context, done bool) error

	// Transact runs fn with exclusive ownership of the store. All mutations
	// made through the passed Store commit together or not at all; reads
	// inside fn observe a consistent, untorn view.
	Transact(ctx context.Context, fn func(Store) error) error

	Close() error
}
