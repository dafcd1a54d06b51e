package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/yourname/fastingtracker/internal"
)

// FileStorage keeps the full state in memory and mirrors it to two JSON
// files with atomic tmp+rename writes. Every mutation is flushed before the
// call returns; there is no deferred save.
type FileStorage struct {
	mu           sync.RWMutex
	sessions     map[string]*internal.FastingSession
	profile      *internal.UserProfile
	onboarded    bool
	sessionsFile string
	profileFile  string
	logger       internal.Logger
}

// profileState is the on-disk shape of the profile file: the singleton
// aggregate plus the opaque onboarding flag.
type profileState struct {
	Profile   *internal.UserProfile `json:"profile"`
	Onboarded bool                  `json:"onboarded"`
}

func NewFileStorage(sessionsFile, profileFile string, logger internal.Logger) (*FileStorage, error) {
	for _, f := range []string{sessionsFile, profileFile} {
		if dir := filepath.Dir(f); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("storage: create data dir: %w", err)
			}
		}
	}
	s := &FileStorage{
		sessions:     make(map[string]*internal.FastingSession),
		sessionsFile: sessionsFile,
		profileFile:  profileFile,
		logger:       logger,
	}
	if err := s.loadSessions(); err != nil {
		return nil, fmt.Errorf("storage: load sessions: %w", err)
	}
	if err := s.loadProfile(); err != nil {
		return nil, fmt.Errorf("storage: load profile: %w", err)
	}
	return s, nil
}

func (s *FileStorage) loadSessions() error {
	file, err := os.Open(s.sessionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var sessions []*internal.FastingSession
	if err := json.NewDecoder(file).Decode(&sessions); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}
	return nil
}

func (s *FileStorage) loadProfile() error {
	file, err := os.Open(s.profileFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var state profileState
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	s.profile = state.Profile
	s.onboarded = state.Onboarded
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

// saveAllLocked flushes both files. Callers hold the write lock.
func (s *FileStorage) saveAllLocked() error {
	sessions := make([]*internal.FastingSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartDate.Before(sessions[j].StartDate)
	})
	if err := atomicWriteFileJSON(s.sessionsFile, sessions); err != nil {
		return err
	}
	return atomicWriteFileJSON(s.profileFile, profileState{Profile: s.profile, Onboarded: s.onboarded})
}

type fileSnapshot struct {
	sessions  map[string]*internal.FastingSession
	profile   *internal.UserProfile
	onboarded bool
}

func (s *FileStorage) snapshotLocked() fileSnapshot {
	snap := fileSnapshot{
		sessions:  make(map[string]*internal.FastingSession, len(s.sessions)),
		onboarded: s.onboarded,
	}
	for id, sess := range s.sessions {
		snap.sessions[id] = copySession(sess)
	}
	if s.profile != nil {
		snap.profile = copyProfile(s.profile)
	}
	return snap
}

func (s *FileStorage) restoreLocked(snap fileSnapshot) {
	s.sessions = snap.sessions
	s.profile = snap.profile
	s.onboarded = snap.onboarded
}

func copySession(sess *internal.FastingSession) *internal.FastingSession {
	c := *sess
	if sess.EndDate != nil {
		end := *sess.EndDate
		c.EndDate = &end
	}
	return &c
}

func copyProfile(p *internal.UserProfile) *internal.UserProfile {
	c := *p
	if p.LastFastingDate != nil {
		d := *p.LastFastingDate
		c.LastFastingDate = &d
	}
	return &c
}

// --- lock-free internals (callers hold s.mu) ---

func (s *FileStorage) insertLocked(sess *internal.FastingSession) error {
	for _, existing := range s.sessions {
		if existing.IsActive() {
			return fmt.Errorf("storage: insert session: %w", internal.ErrConflict)
		}
	}
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *FileStorage) activeLocked() *internal.FastingSession {
	for _, sess := range s.sessions {
		if sess.IsActive() {
			return copySession(sess)
		}
	}
	return nil
}

func (s *FileStorage) completeLocked(id string, end time.Time) (*internal.FastingSession, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("storage: session %q: %w", id, internal.ErrNotFound)
	}
	if sess.IsCompleted || sess.Cancelled {
		return nil, fmt.Errorf("storage: session %q already finalized: %w", id, internal.ErrInvalidState)
	}
	if end.Before(sess.StartDate) {
		return nil, fmt.Errorf("storage: end before start: %w", internal.ErrInvalidState)
	}
	endCopy := end
	sess.EndDate = &endCopy
	sess.IsCompleted = true
	sess.ActualFastingHours = end.Sub(sess.StartDate).Hours()
	return copySession(sess), nil
}

func (s *FileStorage) deleteLocked(id string) error {
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("storage: session %q: %w", id, internal.ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

func (s *FileStorage) cancelLocked(id string, at time.Time) error {
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("storage: session %q: %w", id, internal.ErrNotFound)
	}
	if sess.IsCompleted || sess.Cancelled {
		return fmt.Errorf("storage: session %q already finalized: %w", id, internal.ErrInvalidState)
	}
	atCopy := at
	sess.Cancelled = true
	sess.EndDate = &atCopy
	return nil
}

func (s *FileStorage) listCompletedLocked(since *time.Time) []internal.FastingSession {
	out := []internal.FastingSession{}
	for _, sess := range s.sessions {
		if !sess.IsCompleted {
			continue
		}
		if since != nil && sess.StartDate.Before(*since) {
			continue
		}
		out = append(out, *copySession(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

func (s *FileStorage) countCancelledLocked(from, to *time.Time) int {
	n := 0
	for _, sess := range s.sessions {
		if !sess.Cancelled {
			continue
		}
		if from != nil && sess.StartDate.Before(*from) {
			continue
		}
		if to != nil && sess.StartDate.After(*to) {
			continue
		}
		n++
	}
	return n
}

func (s *FileStorage) profileLocked() *internal.UserProfile {
	if s.profile == nil {
		return internal.NewUserProfile()
	}
	return copyProfile(s.profile)
}

// --- Store ---

func (s *FileStorage) InsertSession(ctx context.Context, sess *internal.FastingSession) error {
	return s.Transact(ctx, func(tx Store) error {
		return tx.InsertSession(ctx, sess)
	})
}

func (s *FileStorage) ActiveSession(ctx context.Context) (*internal.FastingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(), nil
}

func (s *FileStorage) CompleteSession(ctx context.Context, id string, end time.Time) (*internal.FastingSession, error) {
	var out *internal.FastingSession
	err := s.Transact(ctx, func(tx Store) error {
		var err error
		out, err = tx.CompleteSession(ctx, id, end)
		return err
	})
	return out, err
}

func (s *FileStorage) DeleteSession(ctx context.Context, id string) error {
	return s.Transact(ctx, func(tx Store) error {
		return tx.DeleteSession(ctx, id)
	})
}

func (s *FileStorage) CancelSession(ctx context.Context, id string, at time.Time) error {
	return s.Transact(ctx, func(tx Store) error {
		return tx.CancelSession(ctx, id, at)
	})
}

func (s *FileStorage) ListCompleted(ctx context.Context, since *time.Time) ([]internal.FastingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCompletedLocked(since), nil
}

func (s *FileStorage) CountCancelled(ctx context.Context, from, to *time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countCancelledLocked(from, to), nil
}

func (s *FileStorage) Profile(ctx context.Context) (*internal.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profileLocked(), nil
}

func (s *FileStorage) SaveProfile(ctx context.Context, p *internal.UserProfile) error {
	return s.Transact(ctx, func(tx Store) error {
		return tx.SaveProfile(ctx, p)
	})
}

func (s *FileStorage) Onboarded(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onboarded, nil
}

func (s *FileStorage) SetOnboarded(ctx context.Context, done bool) error {
	return s.Transact(ctx, func(tx Store) error {
		return tx.SetOnboarded(ctx, done)
	})
}

// Transact takes the write lock for the whole callback, snapshots the state
// and restores it when fn or the flush fails, so a failed transaction leaves
// neither memory nor disk modified.
func (s *FileStorage) Transact(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	err := fn(&fileTx{s: s})
	if err == nil {
		err = s.saveAllLocked()
	}
	if err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

func (s *FileStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAllLocked()
}

// fileTx is the view of FileStorage handed to Transact callbacks: same
// operations, no locking and no flushing.
type fileTx struct {
	s *FileStorage
}

func (t *fileTx) InsertSession(ctx context.Context, sess *internal.FastingSession) error {
	return t.s.insertLocked(sess)
}

func (t *fileTx) ActiveSession(ctx context.Context) (*internal.FastingSession, error) {
	return t.s.activeLocked(), nil
}

func (t *fileTx) CompleteSession(ctx context.Context, id string, end time.Time) (*internal.FastingSession, error) {
	return t.s.completeLocked(id, end)
}

func (t *fileTx) DeleteSession(ctx context.Context, id string) error {
	return t.s.deleteLocked(id)
}

func (t *fileTx) CancelSession(ctx context.Context, id string, at time.Time) error {
	return t.s.cancelLocked(id, at)
}

func (t *fileTx) ListCompleted(ctx context.Context, since *time.Time) ([]internal.FastingSession, error) {
	return t.s.listCompletedLocked(since), nil
}

func (t *fileTx) CountCancelled(ctx context.Context, from, to *time.Time) (int, error) {
	return t.s.countCancelledLocked(from, to), nil
}

func (t *fileTx) Profile(ctx context.Context) (*internal.UserProfile, error) {
	return t.s.profileLocked(), nil
}

func (t *fileTx) SaveProfile(ctx context.Context, p *internal.UserProfile) error {
	t.s.profile = copyProfile(p)
	return nil
}

func (t *fileTx) Onboarded(ctx context.Context) (bool, error) {
	return t.s.onboarded, nil
}

func (t *fileTx) SetOnboarded(ctx context.Context, done bool) error {
	t.s.onboarded = done
	return nil
}

func (t *fileTx) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *fileTx) Close() error { return nil }

// --- Compile-time assertions ---
var _ Store = (*FileStorage)(nil)
var _ Store = (*fileTx)(nil)
