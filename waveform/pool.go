// SPDX-License-Identifier: EPL-2.0

package waveform

import (
	"errors"
	"runtime"
	"sync"
)

var errPoolClosed = errors.New("waveform: pool closed")

// Pool is a fixed-size worker pool shared by every extraction job. Tasks
// are executed FIFO from a single queue, so concurrent jobs interleave
// fairly instead of one job reserving workers.
type Pool struct {
	tasks   chan func()
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts a pool with the given number of workers.
// workers <= 0 selects runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool{
		tasks:   make(chan func(), workers*4),
		workers: workers,
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

// Submit queues task for execution, blocking while the queue is full.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errPoolClosed
	}
	p.tasks <- task
	return nil
}

// Close stops accepting tasks, runs the queued ones, and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
