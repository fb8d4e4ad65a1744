// Package pool provides scratch slices that live for one translation pass.
package pool

// Slices recycles slices of T between Acquire and Release. It is not safe
// for concurrent use; create one per pass.
type Slices[T any] struct {
	free        [][]T
	outstanding int
}

func NewSlices[T any]() *Slices[T] {
	return &Slices[T]{}
}

// Acquire returns an empty slice with at least capHint capacity.
func (p *Slices[T]) Acquire(capHint int) []T {
	p.outstanding++
	for i := len(p.free) - 1; i >= 0; i-- {
		if s := p.free[i]; cap(s) >= capHint {
			p.free = append(p.free[:i], p.free[i+1:]...)
			return s
		}
	}
	return make([]T, 0, capHint)
}

// Release returns s to the pool. The elements are zeroed so the pool does
// not keep referenced values alive.
func (p *Slices[T]) Release(s []T) {
	if s == nil {
		return
	}
	p.outstanding--
	clear(s[:cap(s)])
	p.free = append(p.free, s[:0])
}

// Outstanding is the number of acquired slices not yet released.
func (p *Slices[T]) Outstanding() int { return p.outstanding }
