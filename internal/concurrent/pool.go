package concurrent

import (
	"sync"
	"sync/atomic"
)

// DefaultPoolCapacity bounds the free list when no capacity is configured.
const DefaultPoolCapacity = 100

// ObjectPool recycles values through a bounded free list guarded by a single
// mutex. Get never blocks; an empty free list allocates and a full one drops
// released items.
type ObjectPool[T any] struct {
	mu       sync.Mutex
	free     []*Item[T]
	capacity int
	newFn    func() T
	reset    func(*T)

	allocated atomic.Int64
}

// Item is a pooled value. It must not be used after Release.
type Item[T any] struct {
	value    T
	pool     *ObjectPool[T]
	released bool
}

// NewObjectPool creates a pool holding at most capacity idle items. newFn may
// be nil for zero-value items and reset, when set, runs on every Get.
func NewObjectPool[T any](capacity int, newFn func() T, reset func(*T)) *ObjectPool[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &ObjectPool[T]{
		free:     make([]*Item[T], 0, capacity),
		capacity: capacity,
		newFn:    newFn,
		reset:    reset,
	}
}

func (p *ObjectPool[T]) Get() *Item[T] {
	p.mu.Lock()
	n := len(p.free)
	var item *Item[T]
	if n > 0 {
		item = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if item == nil {
		item = &Item[T]{pool: p}
		if p.newFn != nil {
			item.value = p.newFn()
		}
		p.allocated.Add(1)
	}
	item.released = false
	if p.reset != nil {
		p.reset(&item.value)
	}
	return item
}

// Allocated reports how many items the pool has created over its lifetime.
func (p *ObjectPool[T]) Allocated() int64 {
	return p.allocated.Load()
}

// Idle reports the current free list length.
func (p *ObjectPool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

func (p *ObjectPool[T]) put(item *Item[T]) {
	p.mu.Lock()
	if len(p.free) < p.capacity {
		p.free = append(p.free, item)
	}
	p.mu.Unlock()
}

// Value returns the pooled value for in-place mutation.
func (i *Item[T]) Value() *T {
	return &i.value
}

// Release hands the item back to its pool. Releasing twice is a no-op.
func (i *Item[T]) Release() {
	if i == nil || i.released {
		return
	}
	i.released = true
	if i.pool != nil {
		i.pool.put(i)
	}
}
