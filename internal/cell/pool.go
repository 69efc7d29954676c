package cell

import "worldgen/internal/concurrent"

// Resource is a pooled cell handle. Call Release when done with it.
type Resource = concurrent.Item[Cell]

// Pool hands out reset cells from a bounded free list.
type Pool struct {
	objects *concurrent.ObjectPool[Cell]
}

func NewPool(capacity int) *Pool {
	return &Pool{
		objects: concurrent.NewObjectPool[Cell](capacity, nil, (*Cell).Reset),
	}
}

// Acquire never blocks. The returned cell is reset.
func (p *Pool) Acquire() *Resource {
	return p.objects.Get()
}

// With runs fn on a pooled cell and releases it on every exit path.
func (p *Pool) With(fn func(c *Cell)) {
	res := p.Acquire()
	defer res.Release()
	fn(res.Value())
}

// Allocated reports how many cells the pool has created.
func (p *Pool) Allocated() int64 {
	return p.objects.Allocated()
}
