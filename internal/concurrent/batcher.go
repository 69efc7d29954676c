package concurrent

import (
	"errors"
	"fmt"
	"log"
)

// Batcher collects units of work and joins them on Close.
type Batcher interface {
	Submit(fn func())
	Close() error
}

// NewBatcher returns an AsyncBatcher when batching is enabled and the pool
// has more than one worker, otherwise a SyncBatcher.
func NewBatcher(pool *ThreadPool, batching bool, logger *log.Logger) Batcher {
	if !batching || pool == nil || pool.Workers() <= 1 {
		return &SyncBatcher{}
	}
	return &AsyncBatcher{pool: pool, logger: logger}
}

// SyncBatcher runs every batch inline on the submitting goroutine.
type SyncBatcher struct {
	errs []error
}

func (b *SyncBatcher) Submit(fn func()) {
	task := newTask()
	task.run(fn, nil)
	if task.err != nil {
		b.errs = append(b.errs, task.err)
	}
}

func (b *SyncBatcher) Close() error {
	err := errors.Join(b.errs...)
	b.errs = nil
	return err
}

// AsyncBatcher hands batches to a ThreadPool. Close blocks until every
// submitted batch is done and reports the ones that crashed.
type AsyncBatcher struct {
	pool   *ThreadPool
	logger *log.Logger
	tasks  []*Task
}

func (b *AsyncBatcher) Submit(fn func()) {
	b.tasks = append(b.tasks, b.pool.Submit(fn))
}

func (b *AsyncBatcher) Close() error {
	var errs []error
	for i, task := range b.tasks {
		if err := task.Wait(); err != nil {
			if b.logger != nil {
				b.logger.Printf("batch %d/%d failed: %v", i+1, len(b.tasks), err)
			}
			errs = append(errs, fmt.Errorf("batch %d: %w", i, err))
		}
	}
	b.tasks = b.tasks[:0]
	return errors.Join(errs...)
}
