package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yourname/fastingtracker/internal"
)

// GormStorage is the embedded SQLite backend, the default for a
// single-device install. A DSN of "memory" opens a shared in-memory
// database, which the tests use.
type GormStorage struct {
	db     *gorm.DB
	logger internal.Logger
	tx     bool
}

// appSetting is a small key/value table for flags that are not part of the
// core data model, such as the onboarding flag.
type appSetting struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (appSetting) TableName() string { return "app_settings" }

const onboardedKey = "onboarding_complete"

func NewGormStorage(dsn string, logger internal.Logger) (*GormStorage, error) {
	if dsn == "memory" || dsn == "" {
		dsn = "file::memory:?cache=shared"
	} else if dir := filepath.Dir(dsn); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&internal.FastingSession{}, &internal.UserProfile{}, &appSetting{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &GormStorage{db: db, logger: logger}, nil
}

func (s *GormStorage) InsertSession(ctx context.Context, sess *internal.FastingSession) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&internal.FastingSession{}).
			Where("end_date IS NULL AND cancelled = ?", false).
			Count(&count).Error; err != nil {
			return fmt.Errorf("storage: check active: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("storage: insert session: %w", internal.ErrConflict)
		}
		if err := tx.Create(sess).Error; err != nil {
			return fmt.Errorf("storage: insert session: %w", err)
		}
		return nil
	})
}

func (s *GormStorage) ActiveSession(ctx context.Context) (*internal.FastingSession, error) {
	var sess internal.FastingSession
	err := s.db.WithContext(ctx).
		Where("end_date IS NULL AND cancelled = ?", false).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: active session: %w", err)
	}
	return &sess, nil
}

func (s *GormStorage) CompleteSession(ctx context.Context, id string, end time.Time) (*internal.FastingSession, error) {
	var sess internal.FastingSession
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
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
	if err := s.db.WithContext(ctx).Save(&sess).Error; err != nil {
		return nil, fmt.Errorf("storage: complete session %q: %w", id, err)
	}
	return &sess, nil
}

func (s *GormStorage) DeleteSession(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&internal.FastingSession{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("storage: delete session %q: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("storage: session %q: %w", id, internal.ErrNotFound)
	}
	return nil
}

func (s *GormStorage) CancelSession(ctx context.Context, id string, at time.Time) error {
	var sess internal.FastingSession
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("storage: session %q: %w", id, internal.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("storage: session %q: %w", id, err)
	}
	if sess.IsCompleted || sess.Cancelled {
		return fmt.Errorf("storage: session %q already finalized: %w", id, internal.ErrInvalidState)
	}
	sess.Cancelled = true
	sess.EndDate = &at
	if err := s.db.WithContext(ctx).Save(&sess).Error; err != nil {
		return fmt.Errorf("storage: cancel session %q: %w", id, err)
	}
	return nil
}

func (s *GormStorage) ListCompleted(ctx context.Context, since *time.Time) ([]internal.FastingSession, error) {
	q := s.db.WithContext(ctx).Where("is_completed = ?", true)
	if since != nil {
		q = q.Where("start_date >= ?", *since)
	}
	sessions := []internal.FastingSession{}
	if err := q.Order("start_date asc").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("storage: list completed: %w", err)
	}
	return sessions, nil
}

func (s *GormStorage) CountCancelled(ctx context.Context, from, to *time.Time) (int, error) {
	q := s.db.WithContext(ctx).Model(&internal.FastingSession{}).Where("cancelled = ?", true)
	if from != nil {
		q = q.Where("start_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("start_date <= ?", *to)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("storage: count cancelled: %w", err)
	}
	return int(n), nil
}

func (s *GormStorage) Profile(ctx context.Context) (*internal.UserProfile, error) {
	var p internal.UserProfile
	err := s.db.WithContext(ctx).First(&p, "id = ?", internal.ProfileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return internal.NewUserProfile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load profile: %w", err)
	}
	return &p, nil
}

func (s *GormStorage) SaveProfile(ctx context.Context, p *internal.UserProfile) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(p).Error
	if err != nil {
		return fmt.Errorf("storage: save profile: %w", err)
	}
	return nil
}

func (s *GormStorage) Onboarded(ctx context.Context) (bool, error) {
	var setting appSetting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", onboardedKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: load onboarding flag: %w", err)
	}
	done, _ := strconv.ParseBool(setting.Value)
	return done, nil
}

func (s *GormStorage) SetOnboarded(ctx context.Context, done bool) error {
	setting := appSetting{Key: onboardedKey, Value: strconv.FormatBool(done)}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&setting).Error
	if err != nil {
		return fmt.Errorf("storage: save onboarding flag: %w", err)
	}
	return nil
}

// Transact maps directly onto a database transaction; nested calls become
// savepoints.
func (s *GormStorage) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStorage{db: tx, logger: s.logger, tx: true})
	})
}

func (s *GormStorage) Close() error {
	if s.tx {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Compile-time assertions ---
var _ Store = (*GormStorage)(nil)
