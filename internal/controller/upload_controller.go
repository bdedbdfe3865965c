// Package controller owns the upload/validate interaction state machine.
//
//	Idle --SelectFile(file)--> Selected --Submit--> Submitting --> Succeeded | Failed
//	Selected --SelectFile(nil)--> Idle
//	Succeeded | Failed --SelectFile(file)--> Selected
//	Idle --Submit--> Failed (no file selected)
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/authenticity-validator-go/internal/client"
	apperrors "github.com/anime-shed/authenticity-validator-go/internal/errors"
	"github.com/anime-shed/authenticity-validator-go/internal/logger"
	"github.com/anime-shed/authenticity-validator-go/internal/observer"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// User-facing messages. Underlying causes are logged, never shown.
const (
	MsgNoFileSelected = "Please select a file to upload."
	MsgNetworkFailure = "An error occurred during the upload process. Please try again."

	transportFailureFormat = "The validation service returned an error (status %d). Please try again."
)

// TransportFailureMessage is shown when the service answers with a non-success status
func TransportFailureMessage(status int) string {
	return fmt.Sprintf(transportFailureFormat, status)
}

// UploadController holds one user's interaction state. It is safe for
// concurrent use; at most one submission is in flight at any time.
type UploadController struct {
	id        string
	service   client.ValidationService
	publisher observer.Subject
	now       func() time.Time

	mu    sync.Mutex
	state models.InteractionState
	seq   uint64

	// notifyMu serialises transitions together with their notifications
	// so observers see changes in order
	notifyMu sync.Mutex
}

// Option configures an UploadController
type Option func(*UploadController)

// WithPublisher publishes every transition to the given subject
func WithPublisher(publisher observer.Subject) Option {
	return func(c *UploadController) {
		c.publisher = publisher
	}
}

// WithClock overrides the time source used for event timestamps and durations
func WithClock(now func() time.Time) Option {
	return func(c *UploadController) {
		c.now = now
	}
}

// New creates a controller in the Idle state
func New(id string, service client.ValidationService, opts ...Option) *UploadController {
	c := &UploadController{
		id:      id,
		service: service,
		now:     time.Now,
		state:   models.InteractionState{Phase: models.PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID identifies the controller in events and logs
func (c *UploadController) ID() string {
	return c.id
}

// SelectFile replaces the current selection and clears any previous result or
// error. A nil selection returns the controller to Idle. While a submission is
// in flight the call has no effect.
func (c *UploadController) SelectFile(ctx context.Context, sel *models.Selection) models.InteractionState {
	c.lock()
	if c.state.Phase == models.PhaseSubmitting {
		st := c.snapshotLocked()
		c.unlock()
		c.log().Debug("Selection ignored while a submission is in flight")
		return st
	}

	next := models.InteractionState{Phase: models.PhaseIdle}
	if sel != nil {
		next = models.InteractionState{Phase: models.PhaseSelected, Selection: sel}
	}
	return c.commit(ctx, next, nil)
}

// Submit sends the current selection to the validation service and blocks
// until the attempt completes. Calling it while another submission is in
// flight is a no-op returning the current state. Without a selection it fails
// locally and performs no network call. In every completed case the selection
// is cleared.
func (c *UploadController) Submit(ctx context.Context) models.InteractionState {
	st, sel, started := c.begin(ctx)
	if !started {
		return st
	}
	return c.finish(ctx, sel)
}

// Start behaves like Submit but returns as soon as the attempt is in flight.
// started reports whether this call began an upload; the check and the
// transition to Submitting happen under one lock. The channel receives the
// final state once and is then closed.
func (c *UploadController) Start(ctx context.Context) (st models.InteractionState, done <-chan models.InteractionState, started bool) {
	out := make(chan models.InteractionState, 1)

	st, sel, started := c.begin(ctx)
	if !started {
		out <- st
		close(out)
		return st, out, false
	}

	go func() {
		defer close(out)
		out <- c.finish(ctx, sel)
	}()
	return st, out, true
}

// begin moves Selected to Submitting. It reports false, with the resulting
// state, when no upload was started.
func (c *UploadController) begin(ctx context.Context) (models.InteractionState, *models.Selection, bool) {
	c.lock()
	if c.state.Phase == models.PhaseSubmitting {
		st := c.snapshotLocked()
		c.unlock()
		c.log().Debug("Submit ignored while a submission is in flight")
		return st, nil, false
	}

	sel := c.state.Selection
	if sel == nil {
		st := c.commit(ctx, models.InteractionState{Phase: models.PhaseFailed, Message: MsgNoFileSelected},
			&observer.AttemptOutcome{Outcome: models.OutcomeNoFileSelected, Cause: apperrors.NewNoFileSelectedError()})
		return st, nil, false
	}

	st := c.commit(ctx, models.InteractionState{Phase: models.PhaseSubmitting, Selection: sel}, nil)
	return st, sel, true
}

func (c *UploadController) finish(ctx context.Context, sel *models.Selection) models.InteractionState {
	start := c.now()
	result, err := c.validate(ctx, sel)
	attempt := &observer.AttemptOutcome{
		FileName: sel.Name,
		Duration: c.now().Sub(start),
	}

	var next models.InteractionState
	switch {
	case err == nil:
		attempt.Outcome = models.OutcomeSucceeded
		next = models.InteractionState{Phase: models.PhaseSucceeded, Result: result}
	case apperrors.IsType(err, apperrors.ErrorTypeTransport):
		attempt.Outcome = models.OutcomeTransportFailed
		attempt.UpstreamStatus = apperrors.UpstreamStatus(err)
		attempt.Cause = err
		next = models.InteractionState{Phase: models.PhaseFailed, Message: TransportFailureMessage(attempt.UpstreamStatus)}
	default:
		attempt.Outcome = models.OutcomeNetworkFailed
		attempt.Cause = err
		next = models.InteractionState{Phase: models.PhaseFailed, Message: MsgNetworkFailure}
	}

	if err != nil {
		c.log().WithError(err).WithFields(logrus.Fields{
			"file":            sel.Name,
			"outcome":         attempt.Outcome,
			"upstream_status": attempt.UpstreamStatus,
		}).Error("Upload failed")
	}

	c.lock()
	return c.commit(ctx, next, attempt)
}

// validate calls the service, turning a panic into a network failure so the
// controller can never be left in Submitting by a faulty collaborator.
func (c *UploadController) validate(ctx context.Context, sel *models.Selection) (result *models.ValidationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewNetworkError("validation service panicked", fmt.Errorf("%v", r))
		}
	}()
	return c.service.Validate(ctx, sel)
}

// lock acquires notifyMu then mu. Readers only take mu, so observers may
// read state while a change is being published.
func (c *UploadController) lock() {
	c.notifyMu.Lock()
	c.mu.Lock()
}

func (c *UploadController) unlock() {
	c.mu.Unlock()
	c.notifyMu.Unlock()
}

// commit installs next and publishes the change. It must be called after
// lock and releases both mutexes. Observers run before notifyMu is released,
// so anything slow must be wrapped in an observer.AsyncObserver.
func (c *UploadController) commit(ctx context.Context, next models.InteractionState, attempt *observer.AttemptOutcome) models.InteractionState {
	from := c.state.Phase
	c.state = next
	c.seq++
	change := observer.StateChange{
		ControllerID: c.id,
		Seq:          c.seq,
		From:         from,
		To:           next.Phase,
		State:        c.snapshotLocked(),
		Timestamp:    c.now(),
		Attempt:      attempt,
	}
	snapshot := c.snapshotLocked()

	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	c.log().WithFields(logrus.Fields{
		"from": from.String(),
		"to":   next.Phase.String(),
		"seq":  change.Seq,
	}).Debug("Interaction state changed")

	if c.publisher != nil {
		c.publisher.NotifyObservers(ctx, change)
	}
	return snapshot
}

func (c *UploadController) snapshotLocked() models.InteractionState {
	st := c.state
	st.Result = c.state.Result.Clone()
	return st
}

// State returns a copy of the current interaction state
func (c *UploadController) State() models.InteractionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Result returns the verdict when the last attempt succeeded, nil otherwise
func (c *UploadController) Result() *models.ValidationResult {
	return c.State().Result
}

// Error returns the message shown for a failed attempt, "" otherwise
func (c *UploadController) Error() string {
	return c.State().Message
}

// IsBusy reports whether a submission is in flight
func (c *UploadController) IsBusy() bool {
	return c.State().Busy()
}

// Selection returns the file pending submission, if any
func (c *UploadController) Selection() *models.Selection {
	return c.State().Selection
}

func (c *UploadController) log() *logrus.Entry {
	return logger.WithComponent("upload_controller").WithField("controller_id", c.id)
}
