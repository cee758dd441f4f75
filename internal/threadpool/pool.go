// Package threadpool provides a fixed-size, channel-backed worker pool that
// runs submitted jobs on real goroutines, in the dispatcher/worker idiom of
// ygrebnov-workers: a job channel, a goroutine per worker draining it, and an
// inflight WaitGroup so Close can join outstanding work before returning.
package threadpool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/go-aio/internal/logging"
)

// Job is a unit of work dispatched to the pool. Panics inside a Job are
// recovered and logged; they never bring down a worker goroutine.
type Job func()

// Pool is a fixed-size pool of worker goroutines draining an unbuffered job
// channel. The spec's "unbounded queue" is realized here as an unbuffered
// channel: Dispatch blocks the caller instead of rejecting, which is the
// nearest safe Go analogue to an unbounded queue.
type Pool struct {
	size     int
	jobs     chan Job
	wg       sync.WaitGroup // worker goroutines
	inFlight sync.WaitGroup
	sending  sync.WaitGroup // in-progress Dispatch calls, guards the close-vs-send race
	started  atomic.Bool

	mu     sync.RWMutex // guards closed
	closed bool
	log    *logging.Logger
}

// New creates a pool with the given number of worker goroutines. size is
// clamped to at least 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size: size,
		jobs: make(chan Job),
		log:  logging.Default(),
	}
}

// Start launches the worker goroutines. Start may be called only once.
func (p *Pool) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("threadpool: already started")
	}
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
	return nil
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(job)
	}
}

func (p *Pool) execute(job Job) {
	defer p.inFlight.Done()
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("threadpool: job panicked: %v", r)
		}
	}()
	job()
}

// Dispatch hands a job to a free worker, blocking until one accepts it if
// all workers are busy. Dispatch returns an error if the pool has not been
// started or has already been closed.
func (p *Pool) Dispatch(job Job) error {
	if !p.started.Load() {
		return fmt.Errorf("threadpool: not started")
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("threadpool: closed")
	}
	p.sending.Add(1)
	p.mu.RUnlock()
	defer p.sending.Done()

	p.inFlight.Add(1)
	p.jobs <- job
	return nil
}

// Close stops accepting new jobs, closes the job channel, and waits for all
// dispatched jobs and worker goroutines to finish. Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Wait for any Dispatch calls already past the closed-check to finish
	// sending before closing the channel, so Close never races a send.
	p.sending.Wait()
	close(p.jobs)
	p.wg.Wait()
	return nil
}

// Wait blocks until every dispatched job has completed. It does not stop the
// pool from accepting further work.
func (p *Pool) Wait() {
	p.inFlight.Wait()
}
