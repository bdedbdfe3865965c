package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/authenticity-validator-go/internal/controller"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

type blockingService struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingService) Validate(ctx context.Context, sel *models.Selection) (*models.ValidationResult, error) {
	close(s.started)
	<-s.release
	return &models.ValidationResult{Classification: "ok"}, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestRegistry(svc *blockingService) (*Registry, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(func(id string) *controller.UploadController {
		return controller.New(id, svc)
	})
	r.now = clock.now
	return r, clock
}

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r, _ := newTestRegistry(nil)

	a := r.Get("a")
	assert.Equal(t, "a", a.ID())
	assert.Same(t, a, r.Get("a"))
	assert.NotSame(t, a, r.Get("b"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_SweepIdle(t *testing.T) {
	r, clock := newTestRegistry(nil)

	old := r.Get("old")
	clock.t = clock.t.Add(20 * time.Minute)
	fresh := r.Get("fresh")
	clock.t = clock.t.Add(15 * time.Minute)

	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Equal(t, 1, r.Len())
	assert.Same(t, fresh, r.Get("fresh"))
	assert.NotSame(t, old, r.Get("old"), "a swept session starts over")
}

func TestRegistry_SweepKeepsBusySessions(t *testing.T) {
	svc := &blockingService{started: make(chan struct{}), release: make(chan struct{})}
	r, clock := newTestRegistry(svc)

	ctrl := r.Get("busy")
	ctrl.SelectFile(context.Background(), models.NewSelection("a.pdf", []byte("%PDF-1.4")))

	done := make(chan models.InteractionState)
	go func() { done <- ctrl.Submit(context.Background()) }()
	<-svc.started

	clock.t = clock.t.Add(time.Hour)
	assert.Equal(t, 0, r.Sweep(time.Minute))

	close(svc.release)
	final := <-done
	require.Equal(t, models.PhaseSucceeded, final.Phase)
	assert.Equal(t, 1, r.Sweep(time.Minute))
}

func TestIDs(t *testing.T) {
	id := NewID()
	assert.True(t, ValidID(id))
	assert.NotEqual(t, id, NewID())
	assert.False(t, ValidID("not-a-session"))
	assert.False(t, ValidID(""))
}
