package concurrent

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry memoizes one computation. The first published value wins and is
// never replaced.
type Entry[V any] struct {
	compute func() V
	value   atomic.Pointer[V]
	claimed atomic.Bool // a worker or waiter has started compute

	done     chan struct{}
	doneOnce sync.Once
	failed   chan struct{}
	failOnce sync.Once

	lastAccess time.Time // guarded by the owning cache's mutex
}

// NewEntry wraps compute without scheduling it.
func NewEntry[V any](compute func() V) *Entry[V] {
	return &Entry[V]{
		compute: compute,
		done:    make(chan struct{}),
		failed:  make(chan struct{}),
	}
}

func (e *Entry[V]) IsDone() bool {
	return e.value.Load() != nil
}

// Done is closed once a value has been published.
func (e *Entry[V]) Done() <-chan struct{} { return e.done }

// Get returns the published value, computing it inline on the caller when
// the scheduled computation has not finished yet.
func (e *Entry[V]) Get() V {
	if p := e.value.Load(); p != nil {
		return *p
	}
	return e.publish(e.compute())
}

// Wait blocks until the scheduled computation finishes. A computation that
// no worker has started yet runs inline on the caller, so a waiter on a
// saturated pool never waits on its own queue. If the run crashed the value
// is computed inline instead.
func (e *Entry[V]) Wait() V {
	if e.claimed.CompareAndSwap(false, true) {
		return e.execute()
	}
	select {
	case <-e.done:
	case <-e.failed:
	}
	return e.Get()
}

// Run computes and publishes the value unless a waiter already claimed it.
func (e *Entry[V]) Run() {
	if e.claimed.CompareAndSwap(false, true) {
		e.execute()
	}
}

// execute publishes compute's result. A panic marks the entry failed so
// waiters fall back to Get, then continues unwinding.
func (e *Entry[V]) execute() V {
	defer func() {
		if r := recover(); r != nil {
			e.failOnce.Do(func() { close(e.failed) })
			panic(r)
		}
	}()
	return e.publish(e.compute())
}

func (e *Entry[V]) publish(v V) V {
	if e.value.CompareAndSwap(nil, &v) {
		e.doneOnce.Do(func() { close(e.done) })
		return v
	}
	return *e.value.Load()
}

// Cache memoizes asynchronously computed values by int64 key. Expired
// entries are swept lazily from ComputeIfAbsent, at most once per interval.
// A cache that stops receiving writes keeps its stale entries.
type Cache[V any] struct {
	pool     *ThreadPool
	expire   time.Duration
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	entries   map[int64]*Entry[V]
	nextSweep time.Time
}

func NewCache[V any](pool *ThreadPool, expire, interval time.Duration) *Cache[V] {
	return &Cache[V]{
		pool:     pool,
		expire:   expire,
		interval: interval,
		now:      time.Now,
		entries:  make(map[int64]*Entry[V]),
	}
}

// SetClock replaces the time source.
func (c *Cache[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// ComputeIfAbsent returns the entry for key, scheduling compute on the pool
// when none exists. The returned entry may not be done yet.
func (c *Cache[V]) ComputeIfAbsent(key int64, compute func() V) *Entry[V] {
	c.mu.Lock()
	now := c.now()
	c.sweepLocked(now)
	if e, ok := c.entries[key]; ok {
		e.lastAccess = now
		c.mu.Unlock()
		return e
	}
	e := NewEntry(compute)
	e.lastAccess = now
	c.entries[key] = e
	c.mu.Unlock()

	if c.pool != nil {
		c.pool.Submit(e.Run)
	} else {
		e.Run()
	}
	return e
}

// Len reports the number of cached entries, including pending ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

func (c *Cache[V]) sweepLocked(now time.Time) {
	if c.expire <= 0 || now.Before(c.nextSweep) {
		return
	}
	c.nextSweep = now.Add(c.interval)
	for key, e := range c.entries {
		if now.Sub(e.lastAccess) > c.expire {
			delete(c.entries, key)
		}
	}
}

// PackKey packs two 32-bit coordinates into one cache key.
func PackKey(x, z int) int64 {
	return int64(x)<<32 | int64(uint32(z))
}

// UnpackKey reverses PackKey.
func UnpackKey(key int64) (int, int) {
	return int(int32(key >> 32)), int(int32(key))
}
