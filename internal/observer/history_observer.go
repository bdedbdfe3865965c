package observer

import (
	"context"
	"time"

	"github.com/anime-shed/authenticity-validator-go/internal/logger"
	"github.com/anime-shed/authenticity-validator-go/internal/repository"
)

// HistoryObserver persists every completed attempt
type HistoryObserver struct {
	repo    repository.AttemptRepository
	timeout time.Duration
}

// NewHistoryObserver creates a new history observer
func NewHistoryObserver(repo repository.AttemptRepository) *HistoryObserver {
	return &HistoryObserver{repo: repo, timeout: 5 * time.Second}
}

// OnStateChange saves the attempt once a submission has finished
func (o *HistoryObserver) OnStateChange(ctx context.Context, change StateChange) {
	if change.Attempt == nil {
		return
	}

	record := &repository.Attempt{
		SessionID:      change.ControllerID,
		FileName:       change.Attempt.FileName,
		Outcome:        change.Attempt.Outcome,
		UpstreamStatus: change.Attempt.UpstreamStatus,
		Message:        change.State.Message,
		DurationMs:     change.Attempt.Duration.Milliseconds(),
		CreatedAt:      change.Timestamp,
	}
	if r := change.State.Result; r != nil {
		record.Classification = r.Classification
		record.MetadataFlags = r.MetadataFlags
		record.LogoVerified = r.LogoVerified
		record.TemplateOK = r.TemplateOK
	}

	// The request context may already be finished when the attempt completes
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	if err := o.repo.SaveAttempt(saveCtx, record); err != nil {
		logger.WithComponent("history_observer").WithError(err).
			WithField("controller_id", change.ControllerID).
			Error("Failed to record attempt")
	}
}

// GetObserverName returns the observer name
func (o *HistoryObserver) GetObserverName() string {
	return "history_observer"
}
