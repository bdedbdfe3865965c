package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxListLimit = 500

// GormAttemptRepository implements AttemptRepository on top of gorm
type GormAttemptRepository struct {
	db *gorm.DB
}

// NewSQLiteAttemptRepository opens (or creates) a sqlite database at path and migrates it.
func NewSQLiteAttemptRepository(path string) (*GormAttemptRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return NewGormAttemptRepository(db)
}

// NewGormAttemptRepository wraps an existing connection
func NewGormAttemptRepository(db *gorm.DB) (*GormAttemptRepository, error) {
	if err := db.AutoMigrate(&Attempt{}); err != nil {
		return nil, fmt.Errorf("failed to migrate attempts: %w", err)
	}
	return &GormAttemptRepository{db: db}, nil
}

// SaveAttempt stores a completed submission attempt
func (r *GormAttemptRepository) SaveAttempt(ctx context.Context, attempt *Attempt) error {
	if attempt == nil || attempt.SessionID == "" || attempt.Outcome == "" {
		return ErrInvalidAttempt
	}
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

// RecentAttempts returns the newest attempts first
func (r *GormAttemptRepository) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	var attempts []Attempt
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// SessionAttempts returns the newest attempts of one session first
func (r *GormAttemptRepository) SessionAttempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error) {
	var attempts []Attempt
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list session attempts: %w", err)
	}
	return attempts, nil
}

// Close releases the underlying connection pool
func (r *GormAttemptRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
