package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/authenticity-validator-go/internal/logger"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// StateChange is published after every interaction state transition
type StateChange struct {
	ControllerID string
	Seq          uint64
	From         models.Phase
	To           models.Phase
	State        models.InteractionState
	Timestamp    time.Time

	// Attempt is set on the transition that completes a submission
	Attempt *AttemptOutcome
}

// AttemptOutcome describes how a submission ended
type AttemptOutcome struct {
	Outcome        string
	FileName       string
	UpstreamStatus int
	Duration       time.Duration
	// Cause is for operators only and must never reach the rendered state
	Cause error
}

// Observer defines the interface for state change observers.
// Observers run on the publishing goroutine and must not call mutating
// controller methods.
type Observer interface {
	OnStateChange(ctx context.Context, change StateChange)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, change StateChange)
}

// EventPublisher implements the Subject interface.
// Observers are notified one after another, in subscription order.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of a state change
func (p *EventPublisher) NotifyObservers(ctx context.Context, change StateChange) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, change)
	}
}

func notify(ctx context.Context, obs Observer, change StateChange) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"observer": obs.GetObserverName(),
				"panic":    r,
			}).Error("Observer panicked while handling state change")
		}
	}()
	obs.OnStateChange(ctx, change)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc struct {
	Name string
	Fn   func(ctx context.Context, change StateChange)
}

func (f ObserverFunc) OnStateChange(ctx context.Context, change StateChange) {
	f.Fn(ctx, change)
}

func (f ObserverFunc) GetObserverName() string {
	return f.Name
}
