// Package worker runs jobs on a fixed number of goroutines.
package worker

import (
	"runtime"
	"sync"
)

// Pool manages concurrent jobs
type Pool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPool creates a pool with the specified number of workers.
// Zero or less means one worker per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Workers returns the number of goroutines serving the queue
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches the workers. Calling it again has no effect.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	for job := range p.jobQueue {
		p.run(job)
	}
}

func (p *Pool) run(job func()) {
	defer p.wg.Done()
	job()
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job func()) {
	p.wg.Add(1)
	p.jobQueue <- job
}

// Wait blocks until every submitted job has returned
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close stops the workers once the queue drains. Submit must not be called afterwards.
func (p *Pool) Close() {
	close(p.jobQueue)
}
