package repository

import (
	"context"
	"time"

	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// AttemptRepository defines the interface for attempt history operations
type AttemptRepository interface {
	// SaveAttempt stores a completed submission attempt
	SaveAttempt(ctx context.Context, attempt *Attempt) error

	// RecentAttempts returns the newest attempts first
	RecentAttempts(ctx context.Context, limit int) ([]Attempt, error)

	// SessionAttempts returns the newest attempts of one session first
	SessionAttempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error)

	Close() error
}

// Attempt is the persisted form of one completed submission
type Attempt struct {
	ID             uint   `gorm:"primaryKey"`
	SessionID      string `gorm:"index;size:64;not null"`
	FileName       string `gorm:"size:255"`
	Outcome        string `gorm:"index;size:32;not null"`
	Classification string `gorm:"size:128"`
	MetadataFlags  bool
	LogoVerified   bool
	TemplateOK     bool
	UpstreamStatus int
	Message        string `gorm:"size:512"`
	DurationMs     int64
	CreatedAt      time.Time `gorm:"index"`
}

// Summary converts the record into its API representation
func (a Attempt) Summary() models.AttemptSummary {
	return models.AttemptSummary{
		FileName:       a.FileName,
		Outcome:        a.Outcome,
		Classification: a.Classification,
		MetadataFlags:  a.MetadataFlags,
		LogoVerified:   a.LogoVerified,
		TemplateOK:     a.TemplateOK,
		UpstreamStatus: a.UpstreamStatus,
		Message:        a.Message,
		DurationMs:     a.DurationMs,
		CreatedAt:      a.CreatedAt,
	}
}
