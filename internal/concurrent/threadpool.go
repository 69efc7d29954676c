package concurrent

import (
	"fmt"
	"log"
	"runtime"
	"sync"
)

// Task tracks one submitted function. It reports done even when the function
// panicked; the panic is available through Err.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns the recovered panic of a finished task, if any.
func (t *Task) Err() error {
	if !t.IsDone() {
		return nil
	}
	return t.err
}

// Wait blocks until the task is done and returns Err.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

func (t *Task) run(fn func(), logger *log.Logger) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("task panicked: %v", r)
			if logger != nil {
				logger.Printf("recovered task panic: %v", r)
			}
		}
	}()
	fn()
}

type queued struct {
	task *Task
	fn   func()
}

// ThreadPool runs submitted functions on a fixed set of worker goroutines.
type ThreadPool struct {
	logger  *log.Logger
	workers int
	queue   chan queued
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewThreadPool starts workers goroutines (NumCPU when workers <= 0) fed by a
// queue of queueSize pending tasks.
func NewThreadPool(workers, queueSize int, logger *log.Logger) *ThreadPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	if logger == nil {
		logger = log.New(log.Writer(), "threadpool ", log.LstdFlags|log.Lmicroseconds)
	}
	p := &ThreadPool{
		logger:  logger,
		workers: workers,
		queue:   make(chan queued, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for q := range p.queue {
				q.task.run(q.fn, p.logger)
			}
		}()
	}
	return p
}

func (p *ThreadPool) Workers() int { return p.workers }

// Submit schedules fn and never blocks: when the queue is saturated or the
// pool has shut down, fn runs inline on the caller before Submit returns.
func (p *ThreadPool) Submit(fn func()) *Task {
	task := newTask()
	p.mu.RLock()
	if !p.closed {
		select {
		case p.queue <- queued{task: task, fn: fn}:
			p.mu.RUnlock()
			return task
		default:
		}
	}
	p.mu.RUnlock()
	task.run(fn, p.logger)
	return task
}

// Shutdown stops accepting work, drains the queue and waits for the workers.
// It is safe to call more than once.
func (p *ThreadPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
