package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parley/domain"
	"parley/logging"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger wraps the parley logger for GORM
type gormLogger struct {
	level logger.LogLevel
}

// LogMode sets the log level
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

// Info logs info messages
func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

// Warn logs warn messages
func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

// Error logs error messages
func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs SQL queries - only in debug mode
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else if elapsed > 200*time.Millisecond {
		logging.Logger.Warn("slow query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else {
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

// newGormLogger creates a GORM logger that respects parley's debug settings
func newGormLogger() logger.Interface {
	if os.Getenv("PARLEY_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// Store is the local session cache backed by SQLite
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the cache database with WAL mode enabled
func NewStore(dbPath string) (*Store, error) {
	// Expand home directory if present
	if len(dbPath) > 0 && dbPath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		PrepareStmt: false, // Disable to avoid transaction conflicts
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for concurrent access (TUI process + SSH sessions)
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&CachedSession{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session cache schema: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// List returns the cached session list, newest first
func (s *Store) List(ctx context.Context) ([]domain.Session, error) {
	var cached []CachedSession
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Order("created_at DESC, id ASC").Find(&cached).Error
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached sessions: %w", err)
	}

	sessions := make([]domain.Session, len(cached))
	for i, c := range cached {
		sessions[i] = toDomain(c)
	}
	return sessions, nil
}

// ReplaceAll swaps the whole cache for a fresh backend listing
func (s *Store) ReplaceAll(ctx context.Context, sessions []domain.Session) error {
	now := time.Now().UTC()
	return withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("1 = 1").Delete(&CachedSession{}).Error; err != nil {
				return fmt.Errorf("failed to clear session cache: %w", err)
			}
			for _, sess := range sessions {
				row := fromDomain(sess)
				row.RefreshedAt = now
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to cache session %s: %w", sess.ID, err)
				}
			}
			return nil
		})
	}, 3)
}

// Remove deletes a single entry, used when a session is deleted server-side
func (s *Store) Remove(ctx context.Context, id string) error {
	return withRetry(func() error {
		return s.db.WithContext(ctx).Delete(&CachedSession{}, "id = ?", id).Error
	}, 3)
}

// Clear empties the cache, used when the auth session goes away
func (s *Store) Clear(ctx context.Context) error {
	return withRetry(func() error {
		return s.db.WithContext(ctx).Where("1 = 1").Delete(&CachedSession{}).Error
	}, 3)
}

func toDomain(c CachedSession) domain.Session {
	return domain.Session{
		ID:            c.ID,
		CreatedAt:     c.CreatedAt,
		MessageCount:  c.MessageCount,
		WorkspacePath: c.WorkspacePath,
		ActiveRepo:    c.ActiveRepo,
	}
}

func fromDomain(s domain.Session) CachedSession {
	return CachedSession{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		MessageCount:  s.MessageCount,
		WorkspacePath: s.WorkspacePath,
		ActiveRepo:    s.ActiveRepo,
	}
}

// withRetry retries an operation on SQLite busy/locked errors
func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
