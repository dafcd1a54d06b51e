package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourname/fastingtracker/internal"
)

// pgxQuerier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same methods serve both plain calls and Transact callbacks.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage backs the store with a Postgres database, for self-hosted
// deployments that outlive a single device.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	q      pgxQuerier
	logger internal.Logger
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS fasting_sessions (
	id                   TEXT PRIMARY KEY,
	plan_id              TEXT NOT NULL,
	start_date           TIMESTAMPTZ NOT NULL,
	end_date             TIMESTAMPTZ,
	is_completed         BOOLEAN NOT NULL DEFAULT FALSE,
	cancelled            BOOLEAN NOT NULL DEFAULT FALSE,
	actual_fasting_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fasting_sessions_start_date ON fasting_sessions (start_date);
CREATE TABLE IF NOT EXISTS user_profiles (
	id                    TEXT PRIMARY KEY,
	total_completed_fasts INTEGER NOT NULL DEFAULT 0,
	total_hours_fasted    DOUBLE PRECISION NOT NULL DEFAULT 0,
	current_streak        INTEGER NOT NULL DEFAULT 0,
	longest_streak        INTEGER NOT NULL DEFAULT 0,
	level                 INTEGER NOT NULL DEFAULT 1,
	last_fasting_date     TIMESTAMPTZ,
	updated_at            TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS app_settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func NewPostgresStorage(ctx context.Context, dsn string, logger internal.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ensure schema: %w", err)
	}
	return &PostgresStorage{pool: pool, q: pool, logger: logger}, nil
}

const sessionColumns = "id, plan_id, start_date, end_date, is_completed, cancelled, actual_fasting_hours, created_at"

func scanSession(row pgx.Row) (*internal.FastingSession, error) {
	var s internal.FastingSession
	err := row.Scan(&s.ID, &s.PlanID, &s.StartDate, &s.EndDate, &s.IsCompleted, &s.Cancelled, &s.ActualFastingHours, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PostgresStorage) InsertSession(ctx context.Context, sess *internal.FastingSession) error {
	var count int
	err := p.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM fasting_sessions WHERE end_date IS NULL AND NOT cancelled`).Scan(&count)
	if err != nil {
		return fmt.Errorf("storage: check active: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("storage: insert session: %w", internal.ErrConflict)
	}
	_, err = p.q.Exec(ctx,
		`INSERT INTO fasting_sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sess.ID, sess.PlanID, sess.StartDate, sess.EndDate, sess.IsCompleted, sess.Cancelled, sess.ActualFastingHours, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: insert session: %w", err)
	}
	return nil
}

func (p *PostgresStorage) ActiveSession(ctx context.Context) (*internal.FastingSession, error) {
	sess, err := scanSession(p.q.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM fasting_sessions WHERE end_date IS NULL AND NOT cancelled LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: active session: %w", err)
	}
	return sess, nil
}

func (p *PostgresStorage) CompleteSession(ctx context.Context, id string, end time.Time) (*internal.FastingSession, error) {
	sess, err := scanSession(p.q.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM fasting_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("storage: session %q: %w", id, internal.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: session %q: %w", id, err)
	}
	if sess.IsCompleted || sess.Cancelled {
		return nil, fmt.Errorf("storage: session %q already finalized: %w", id, internal.ErrInvalidState)
	}
	if end.Before(sess.StartDate) {
		return nil, fmt.Errorf("storage: end before start: %w", internal.ErrInvalidState)
	}
	sess.EndDate = &end
	sess.IsCompleted = true
	sess.ActualFastingHours = end.Sub(sess.StartDate).Hours()
	_, err = p.q.Exec(ctx,
		`UPDATE fasting_sessions SET end_date = $2, is_completed = TRUE, actual_fasting_hours = $3 WHERE id = $1`,
		sess.ID, sess.EndDate, sess.ActualFastingHours)
	if err != nil {
		return nil, fmt.Errorf("storage: complete session %q: %w", id, err)
	}
	return sess, nil
}

func (p *PostgresStorage) DeleteSession(ctx context.Context, id string) error {
	tag, err := p.q.Exec(ctx, `DELETE FROM fasting_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: delete session %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: session %q: %w", id, internal.ErrNotFound)
	}
	return nil
}

func (p *PostgresStorage) CancelSession(ctx context.Context, id string, at time.Time) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE fasting_sessions SET cancelled = TRUE, end_date = $2 WHERE id = $1 AND NOT is_completed AND NOT cancelled`,
		id, at)
	if err != nil {
		return fmt.Errorf("storage: cancel session %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: session %q not cancellable: %w", id, internal.ErrNotFound)
	}
	return nil
}

func (p *PostgresStorage) ListCompleted(ctx context.Context, since *time.Time) ([]internal.FastingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM fasting_sessions WHERE is_completed`
	args := []any{}
	if since != nil {
		query += ` AND start_date >= $1`
		args = append(args, *since)
	}
	query += ` ORDER BY start_date ASC`

	rows, err := p.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list completed: %w", err)
	}
	defer rows.Close()

	sessions := []internal.FastingSession{}
	for rows.Next() {
		var s internal.FastingSession
		if err := rows.Scan(&s.ID, &s.PlanID, &s.StartDate, &s.EndDate, &s.IsCompleted, &s.Cancelled, &s.ActualFastingHours, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (p *PostgresStorage) CountCancelled(ctx context.Context, from, to *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM fasting_sessions WHERE cancelled`
	args := []any{}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND start_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND start_date <= $%d", len(args))
	}
	var n int
	if err := p.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count cancelled: %w", err)
	}
	return n, nil
}

func (p *PostgresStorage) Profile(ctx context.Context) (*internal.UserProfile, error) {
	var prof internal.UserProfile
	err := p.q.QueryRow(ctx,
		`SELECT id, total_completed_fasts, total_hours_fasted, current_streak, longest_streak, level, last_fasting_date, updated_at
		 FROM user_profiles WHERE id = $1`, internal.ProfileID).
		Scan(&prof.ID, &prof.TotalCompletedFasts, &prof.TotalHoursFasted, &prof.CurrentStreak,
			&prof.LongestStreak, &prof.Level, &prof.LastFastingDate, &prof.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.NewUserProfile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load profile: %w", err)
	}
	return &prof, nil
}

func (p *PostgresStorage) SaveProfile(ctx context.Context, prof *internal.UserProfile) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO user_profiles (id, total_completed_fasts, total_hours_fasted, current_streak, longest_streak, level, last_fasting_date, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			total_completed_fasts = EXCLUDED.total_completed_fasts,
			total_hours_fasted    = EXCLUDED.total_hours_fasted,
			current_streak        = EXCLUDED.current_streak,
			longest_streak        = EXCLUDED.longest_streak,
			level                 = EXCLUDED.level,
			last_fasting_date     = EXCLUDED.last_fasting_date,
			updated_at            = EXCLUDED.updated_at`,
		prof.ID, prof.TotalCompletedFasts, prof.TotalHoursFasted, prof.CurrentStreak,
		prof.LongestStreak, prof.Level, prof.LastFastingDate, prof.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: save profile: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Onboarded(ctx context.Context) (bool, error) {
	var value string
	err := p.q.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, onboardedKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: load onboarding flag: %w", err)
	}
	return value == "true", nil
}

func (p *PostgresStorage) SetOnboarded(ctx context.Context, done bool) error {
	value := "false"
	if done {
		value = "true"
	}
	_, err := p.q.Exec(ctx,
		`INSERT INTO app_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		onboardedKey, value)
	if err != nil {
		return fmt.Errorf("storage: save onboarding flag: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Transact(ctx context.Context, fn func(Store) error) error {
	if p.pool == nil {
		// Already inside a transaction.
		return fn(p)
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStorage{q: tx, logger: p.logger}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// --- Compile-time assertions ---
var _ Store = (*PostgresStorage)(nil)
