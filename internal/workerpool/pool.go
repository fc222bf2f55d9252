package workerpool

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/breeze-rmm/drvstore/internal/logging"
)

var log = logging.L("workerpool")

// ErrStopped is returned by Submit after Shutdown has begun.
var ErrStopped = errors.New("worker pool stopped")

// Task is a unit of work submitted to the pool.
type Task func()

// Pool is a bounded goroutine pool with a fixed-size task queue.
type Pool struct {
	queue chan Task
	wg    sync.WaitGroup

	mu        sync.RWMutex
	accepting bool
	closeOnce sync.Once
}

// New creates a pool with maxWorkers goroutines and a task queue of queueSize.
func New(maxWorkers, queueSize int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		queue:     make(chan Task, queueSize),
		accepting: true,
	}
	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}

	log.Debug("worker pool started", "workers", maxWorkers, "queueSize", queueSize)
	return p
}

// Submit enqueues a task, waiting for queue space until ctx is done.
// wg.Add is called before enqueue so Shutdown never misses a task.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.accepting {
		return ErrStopped
	}

	p.wg.Add(1)
	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		p.wg.Done() // undo the Add since task was not enqueued
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for queued and running ones,
// respecting the context deadline. Worker goroutines exit afterwards.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.accepting = false
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		log.Debug("worker pool drained")
	case <-ctx.Done():
		err = ctx.Err()
		log.Warn("worker pool drain timed out")
	}

	// Close queue so worker goroutines exit and are not leaked
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	return err
}

func (p *Pool) worker() {
	for task := range p.queue {
		p.runTask(task)
	}
}

// runTask executes a single task with panic recovery. wg.Done is called here
// to match the wg.Add in Submit.
func (p *Pool) runTask(task Task) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
