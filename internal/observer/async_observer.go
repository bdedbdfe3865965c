package observer

import (
	"context"
	"sync"

	"github.com/anime-shed/authenticity-validator-go/internal/logger"
)

const defaultQueueSize = 64

type queuedChange struct {
	ctx    context.Context
	change StateChange
}

// AsyncObserver hands state changes to a wrapped observer on its own
// goroutine. Changes are delivered one at a time in publish order, so
// the wrapped observer may do slow I/O without holding up the controller.
type AsyncObserver struct {
	inner Observer
	queue chan queuedChange
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncObserver starts a delivery goroutine for inner. A size <= 0
// uses the default queue length.
func NewAsyncObserver(inner Observer, size int) *AsyncObserver {
	if size <= 0 {
		size = defaultQueueSize
	}
	o := &AsyncObserver{
		inner: inner,
		queue: make(chan queuedChange, size),
		done:  make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *AsyncObserver) run() {
	defer close(o.done)
	for q := range o.queue {
		notify(q.ctx, o.inner, q.change)
	}
}

// OnStateChange enqueues the change. When the queue is full the change is
// dropped and logged rather than blocking the publisher.
func (o *AsyncObserver) OnStateChange(ctx context.Context, change StateChange) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return
	}

	select {
	case o.queue <- queuedChange{ctx: context.WithoutCancel(ctx), change: change}:
	default:
		logger.WithComponent("async_observer").
			WithField("observer", o.inner.GetObserverName()).
			WithField("controller_id", change.ControllerID).
			WithField("seq", change.Seq).
			Error("Observer queue full, dropping state change")
	}
}

// GetObserverName returns the wrapped observer's name
func (o *AsyncObserver) GetObserverName() string {
	return o.inner.GetObserverName()
}

// Close stops accepting changes and waits until the queued ones are delivered
func (o *AsyncObserver) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	<-o.done
}
