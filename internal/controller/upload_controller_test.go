package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/authenticity-validator-go/internal/client"
	apperrors "github.com/anime-shed/authenticity-validator-go/internal/errors"
	"github.com/anime-shed/authenticity-validator-go/internal/observer"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// fakeService returns a canned response and records calls
type fakeService struct {
	calls   int32
	result  *models.ValidationResult
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeService) Validate(ctx context.Context, sel *models.Selection) (*models.ValidationResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

func (f *fakeService) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

// recorder collects published state changes
type recorder struct {
	mu      sync.Mutex
	changes []observer.StateChange
}

func (r *recorder) OnStateChange(ctx context.Context, change observer.StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recorder) GetObserverName() string { return "recorder" }

func (r *recorder) phases() []models.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Phase, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.To)
	}
	return out
}

func (r *recorder) last() observer.StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes[len(r.changes)-1]
}

func authenticResult() *models.ValidationResult {
	return &models.ValidationResult{
		Classification: "authentic",
		Details:        map[string]interface{}{},
		MetadataFlags:  true,
		LogoVerified:   true,
		TemplateOK:     true,
	}
}

func newController(svc client.ValidationService) (*UploadController, *recorder) {
	rec := &recorder{}
	pub := observer.NewEventPublisher()
	pub.Subscribe(rec)
	return New("test-session", svc, WithPublisher(pub)), rec
}

func sampleSelection() *models.Selection {
	return models.NewSelection("marksheet.pdf", []byte("%PDF-1.4\n%%EOF\n"))
}

func TestUploadController_InitialState(t *testing.T) {
	c, _ := newController(&fakeService{})

	st := c.State()
	assert.Equal(t, models.PhaseIdle, st.Phase)
	assert.Nil(t, c.Result())
	assert.Empty(t, c.Error())
	assert.False(t, c.IsBusy())
	assert.Nil(t, c.Selection())
	assert.False(t, st.CanSubmit())
}

func TestUploadController_SelectFile(t *testing.T) {
	c, rec := newController(&fakeService{})
	ctx := context.Background()
	sel := sampleSelection()

	st := c.SelectFile(ctx, sel)
	assert.Equal(t, models.PhaseSelected, st.Phase)
	assert.Same(t, sel, c.Selection())
	assert.True(t, st.CanSubmit())

	st = c.SelectFile(ctx, nil)
	assert.Equal(t, models.PhaseIdle, st.Phase)
	assert.Nil(t, c.Selection())

	assert.Equal(t, []models.Phase{models.PhaseSelected, models.PhaseIdle}, rec.phases())
}

func TestUploadController_SelectNoneFromIdleIsIdempotent(t *testing.T) {
	c, _ := newController(&fakeService{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st := c.SelectFile(ctx, nil)
		assert.Equal(t, models.PhaseIdle, st.Phase)
		assert.Nil(t, st.Selection)
		assert.Nil(t, st.Result)
		assert.Empty(t, st.Message)
	}
}

func TestUploadController_SubmitWithoutSelection(t *testing.T) {
	svc := &fakeService{result: authenticResult()}
	c, rec := newController(svc)

	st := c.Submit(context.Background())

	assert.Equal(t, models.PhaseFailed, st.Phase)
	assert.Equal(t, "Please select a file to upload.", st.Message)
	assert.Equal(t, 0, svc.callCount(), "no network call without a selection")

	last := rec.last()
	require.NotNil(t, last.Attempt)
	assert.Equal(t, models.OutcomeNoFileSelected, last.Attempt.Outcome)
	assert.True(t, apperrors.IsType(last.Attempt.Cause, apperrors.ErrorTypeNoFileSelected))
	assert.Equal(t, []models.Phase{models.PhaseFailed}, rec.phases())
}

func TestUploadController_SubmitSuccess(t *testing.T) {
	svc := &fakeService{result: authenticResult()}
	c, rec := newController(svc)
	ctx := context.Background()

	c.SelectFile(ctx, sampleSelection())
	st := c.Submit(ctx)

	assert.Equal(t, models.PhaseSucceeded, st.Phase)
	assert.Equal(t, authenticResult(), st.Result)
	assert.Equal(t, authenticResult(), c.Result())
	assert.Empty(t, c.Error())
	assert.Nil(t, c.Selection(), "selection is cleared after the attempt")
	assert.Equal(t, 1, svc.callCount())

	assert.Equal(t, []models.Phase{models.PhaseSelected, models.PhaseSubmitting, models.PhaseSucceeded}, rec.phases())
	last := rec.last()
	require.NotNil(t, last.Attempt)
	assert.Equal(t, models.OutcomeSucceeded, last.Attempt.Outcome)
	assert.Equal(t, "marksheet.pdf", last.Attempt.FileName)
	assert.NoError(t, last.Attempt.Cause)
}

func TestUploadController_SubmitTransportFailure(t *testing.T) {
	svc := &fakeService{err: apperrors.NewTransportError(500)}
	c, rec := newController(svc)
	ctx := context.Background()

	c.SelectFile(ctx, sampleSelection())
	st := c.Submit(ctx)

	assert.Equal(t, models.PhaseFailed, st.Phase)
	assert.Contains(t, st.Message, "500")
	assert.Nil(t, st.Result)
	assert.Nil(t, c.Selection())

	last := rec.last()
	require.NotNil(t, last.Attempt)
	assert.Equal(t, models.OutcomeTransportFailed, last.Attempt.Outcome)
	assert.Equal(t, 500, last.Attempt.UpstreamStatus)
}

func TestUploadController_SubmitNetworkFailure(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.7:8000: connect: connection refused")
	svc := &fakeService{err: apperrors.NewNetworkError("validation request failed", cause)}
	c, rec := newController(svc)
	ctx := context.Background()

	c.SelectFile(ctx, sampleSelection())
	st := c.Submit(ctx)

	assert.Equal(t, models.PhaseFailed, st.Phase)
	assert.Equal(t, MsgNetworkFailure, st.Message)
	assert.NotContains(t, st.Message, "connection refused")
	assert.NotContains(t, st.Message, "10.0.0.7")
	assert.Nil(t, c.Selection())

	last := rec.last()
	require.NotNil(t, last.Attempt)
	assert.Equal(t, models.OutcomeNetworkFailed, last.Attempt.Outcome)
	assert.ErrorIs(t, last.Attempt.Cause, cause)
}

func TestUploadController_UnclassifiedErrorIsNetworkFailure(t *testing.T) {
	c, _ := newController(&fakeService{err: errors.New("boom: secret internals")})
	ctx := context.Background()

	c.SelectFile(ctx, sampleSelection())
	st := c.Submit(ctx)

	assert.Equal(t, models.PhaseFailed, st.Phase)
	assert.Equal(t, MsgNetworkFailure, st.Message)
}

type panickingService struct{}

func (panickingService) Validate(ctx context.Context, sel *models.Selection) (*models.ValidationResult, error) {
	panic("unexpected nil map")
}

func TestUploadController_ServicePanicEndsAttempt(t *testing.T) {
	c, _ := newController(panickingService{})
	ctx := context.Background()

	c.SelectFile(ctx, sampleSelection())
	st := c.Submit(ctx)

	assert.Equal(t, models.PhaseFailed, st.Phase)
	assert.Equal(t, MsgNetworkFailure, st.Message)
	assert.False(t, c.IsBusy())
}

func TestUploadController_ReentrantSubmitIsNoop(t *testing.T) {
	svc := &fakeService{
		result:  authenticResult(),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	c, rec := newController(svc)
	ctx := context.Background()
	c.SelectFile(ctx, sampleSelection())

	done := make(chan models.InteractionState)
	go func() {
		done <- c.Submit(ctx)
	}()

	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("submission never reached the service")
	}
	require.True(t, c.IsBusy())

	// Neither a second submit nor a new selection disturbs the attempt in flight
	st := c.Submit(ctx)
	assert.Equal(t, models.PhaseSubmitting, st.Phase)
	st = c.SelectFile(ctx, models.NewSelection("other.png", []byte("png")))
	assert.Equal(t, models.PhaseSubmitting, st.Phase)
	assert.Equal(t, "marksheet.pdf", c.Selection().Name)
	assert.Equal(t, 1, svc.callCount())

	close(svc.block)
	final := <-done

	assert.Equal(t, models.PhaseSucceeded, final.Phase)
	assert.Equal(t, 1, svc.callCount())
	assert.Equal(t, []models.Phase{models.PhaseSelected, models.PhaseSubmitting, models.PhaseSucceeded}, rec.phases())
}

func TestUploadController_Start(t *testing.T) {
	svc := &fakeService{
		result:  authenticResult(),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	c, rec := newController(svc)
	ctx := context.Background()
	c.SelectFile(ctx, sampleSelection())

	st, done, started := c.Start(ctx)
	assert.True(t, started)
	assert.Equal(t, models.PhaseSubmitting, st.Phase)
	assert.True(t, c.IsBusy())

	// A second start while busy reports the attempt in flight without starting one
	again, againDone, againStarted := c.Start(ctx)
	assert.False(t, againStarted)
	assert.Equal(t, models.PhaseSubmitting, again.Phase)
	assert.Equal(t, models.PhaseSubmitting, (<-againDone).Phase)

	close(svc.block)
	select {
	case final := <-done:
		assert.Equal(t, models.PhaseSucceeded, final.Phase)
		assert.Equal(t, "authentic", final.Result.Classification)
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never completed")
	}
	_, open := <-done
	assert.False(t, open)

	assert.Equal(t, 1, svc.callCount())
	assert.Equal(t, []models.Phase{models.PhaseSelected, models.PhaseSubmitting, models.PhaseSucceeded}, rec.phases())
}

func TestUploadController_StartWithoutSelection(t *testing.T) {
	svc := &fakeService{}
	c, _ := newController(svc)

	st, done, started := c.Start(context.Background())
	assert.False(t, started)
	assert.Equal(t, models.PhaseFailed, st.Phase)
	assert.Equal(t, MsgNoFileSelected, st.Message)
	assert.Equal(t, st.Phase, (<-done).Phase)
	assert.Equal(t, 0, svc.callCount())
}

func TestUploadController_ReselectAfterOutcome(t *testing.T) {
	tests := []struct {
		name string
		svc  *fakeService
		want models.Phase
	}{
		{"after success", &fakeService{result: authenticResult()}, models.PhaseSucceeded},
		{"after failure", &fakeService{err: apperrors.NewTransportError(502)}, models.PhaseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newController(tt.svc)
			ctx := context.Background()

			c.SelectFile(ctx, sampleSelection())
			require.Equal(t, tt.want, c.Submit(ctx).Phase)

			st := c.SelectFile(ctx, models.NewSelection("second.pdf", []byte("%PDF-1.7")))
			assert.Equal(t, models.PhaseSelected, st.Phase)
			assert.Nil(t, st.Result)
			assert.Empty(t, st.Message)
			assert.Equal(t, "second.pdf", st.Selection.Name)
		})
	}
}

func TestUploadController_ResultIsNotShared(t *testing.T) {
	c, _ := newController(&fakeService{result: &models.ValidationResult{
		Classification: "authentic",
		Details:        map[string]interface{}{"subjects": map[string]interface{}{"MATH": "Present"}},
	}})
	ctx := context.Background()

	c.SelectFile(ctx, sampleSelection())
	c.Submit(ctx)

	r := c.Result()
	r.Classification = "tampered"
	r.Details["subjects"].(map[string]interface{})["MATH"] = "Absent"

	again := c.Result()
	assert.Equal(t, "authentic", again.Classification)
	assert.Equal(t, "Present", again.Details["subjects"].(map[string]interface{})["MATH"])
}

func TestUploadController_StateIsAlwaysOnePhase(t *testing.T) {
	svc := &fakeService{result: authenticResult()}
	c, rec := newController(svc)
	ctx := context.Background()

	ops := []func(){
		func() { c.Submit(ctx) },
		func() { c.SelectFile(ctx, nil) },
		func() { c.SelectFile(ctx, sampleSelection()) },
		func() { c.Submit(ctx) },
		func() { c.Submit(ctx) },
		func() { c.SelectFile(ctx, sampleSelection()) },
		func() { c.SelectFile(ctx, nil) },
	}
	for _, op := range ops {
		op()
		st := c.State()
		switch st.Phase {
		case models.PhaseIdle:
			assert.True(t, st.Selection == nil && st.Result == nil && st.Message == "")
		case models.PhaseSelected:
			assert.True(t, st.Selection != nil && st.Result == nil && st.Message == "")
		case models.PhaseSucceeded:
			assert.True(t, st.Selection == nil && st.Result != nil && st.Message == "")
		case models.PhaseFailed:
			assert.True(t, st.Selection == nil && st.Result == nil && st.Message != "")
		default:
			t.Fatalf("unexpected phase %s", st.Phase)
		}
	}

	// Sequence numbers are strictly increasing
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := 1; i < len(rec.changes); i++ {
		assert.Equal(t, rec.changes[i-1].Seq+1, rec.changes[i].Seq)
	}
}

func TestUploadController_WithHTTPService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Template file not found: class12cbse.png"}`))
	}))
	defer server.Close()

	base, err := url.Parse(server.URL)
	require.NoError(t, err)

	c := New("http", client.NewHTTPValidationClient(base, 5*time.Second))
	ctx := context.Background()
	c.SelectFile(ctx, sampleSelection())
	st := c.Submit(ctx)

	assert.Equal(t, models.PhaseFailed, st.Phase)
	assert.True(t, strings.Contains(st.Message, "500"))
	assert.NotContains(t, st.Message, "class12cbse")
}

func TestUploadController_SlowObserverDoesNotBlockInteraction(t *testing.T) {
	svc := &fakeService{result: authenticResult()}
	release := make(chan struct{})
	defer close(release)

	slow := observer.NewAsyncObserver(observer.ObserverFunc{Name: "archive", Fn: func(ctx context.Context, change observer.StateChange) {
		if change.To == models.PhaseSucceeded {
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
		}
	}}, 0)
	pub := observer.NewEventPublisher()
	pub.Subscribe(slow)
	c := New("slow", svc, WithPublisher(pub))
	ctx := context.Background()

	c.SelectFile(ctx, sampleSelection())

	start := time.Now()
	st := c.Submit(ctx)
	require.Equal(t, models.PhaseSucceeded, st.Phase)

	next := models.NewSelection("b.pdf", []byte("%PDF-1.4"))
	st = c.SelectFile(ctx, next)
	assert.Equal(t, models.PhaseSelected, st.Phase)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "submit and reselect must not wait for the archive")
}
