package memory

import "sync"

// Pool is a typed object pool.
// Values are reset before they go back, so Get never hands out stale state.
type Pool[T any] struct {
	p     *sync.Pool
	reset func(*T)
}

// NewPool builds a pool whose empty values come from ctor. reset may be nil,
// in which case returned values are zeroed.
func NewPool[T any](ctor func() *T, reset func(*T)) *Pool[T] {
	if reset == nil {
		reset = func(v *T) {
			var zero T
			*v = zero
		}
	}
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
		reset: reset,
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	p.reset(v)
	p.p.Put(v)
}
