package observer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LoggingObserver logs state changes
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) *LoggingObserver {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnStateChange logs transitions at debug level and completed attempts at info
func (o *LoggingObserver) OnStateChange(ctx context.Context, change StateChange) {
	fields := logrus.Fields{
		"controller_id": change.ControllerID,
		"from":          change.From.String(),
		"to":            change.To.String(),
		"seq":           change.Seq,
	}

	if change.Attempt == nil {
		o.logger.WithFields(fields).Debug("Interaction state changed")
		return
	}

	fields["outcome"] = change.Attempt.Outcome
	fields["file"] = change.Attempt.FileName
	fields["processing_time_ms"] = change.Attempt.Duration.Milliseconds()
	if change.Attempt.UpstreamStatus != 0 {
		fields["upstream_status"] = change.Attempt.UpstreamStatus
	}
	if r := change.State.Result; r != nil {
		fields["classification"] = r.Classification
		fields["metadata_flags"] = r.MetadataFlags
		fields["logo_verified"] = r.LogoVerified
		fields["template_ok"] = r.TemplateOK
	}

	if change.Attempt.Cause != nil {
		o.logger.WithFields(fields).WithError(change.Attempt.Cause).Warn("Validation attempt failed")
		return
	}
	o.logger.WithFields(fields).Info("Validation attempt completed")
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}
