package observer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/authenticity-validator-go/internal/logger"
	"github.com/anime-shed/authenticity-validator-go/internal/storage"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// ArchiveObserver copies every successful verdict to a ResultArchive
type ArchiveObserver struct {
	archive storage.ResultArchive
	timeout time.Duration
}

// NewArchiveObserver creates a new archive observer
func NewArchiveObserver(archive storage.ResultArchive) *ArchiveObserver {
	return &ArchiveObserver{archive: archive, timeout: 15 * time.Second}
}

// OnStateChange archives the result of a succeeded attempt
func (o *ArchiveObserver) OnStateChange(ctx context.Context, change StateChange) {
	if change.Attempt == nil || change.To != models.PhaseSucceeded || change.State.Result == nil {
		return
	}

	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	name, err := o.archive.Archive(archiveCtx, storage.ArchivedVerdict{
		SessionID:  change.ControllerID,
		FileName:   change.Attempt.FileName,
		ArchivedAt: change.Timestamp,
		Result:     change.State.Result,
	})
	entry := logger.WithComponent("archive_observer").WithFields(logrus.Fields{
		"controller_id": change.ControllerID,
		"file":          change.Attempt.FileName,
	})
	if err != nil {
		entry.WithError(err).Error("Failed to archive verdict")
		return
	}
	entry.WithField("blob", name).Debug("Verdict archived")
}

// GetObserverName returns the observer name
func (o *ArchiveObserver) GetObserverName() string {
	return "archive_observer"
}
