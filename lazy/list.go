// Package lazy provides an indexable sequence whose elements are produced on
// demand.
//
// Nothing is cached: At(i) calls the element function every time, so a list
// over files can be iterated repeatedly while only one element is held in
// memory. Errors belong to the element that failed and surface when that index
// is accessed.
package lazy

import (
	"iter"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

// List is a fixed-length sequence of lazily computed elements.
type List[T any] struct {
	n  int
	fn func(i int) (T, error)
}

// New returns a list of n elements where element i is fn(i).
func New[T any](n int, fn func(i int) (T, error)) *List[T] {
	if n < 0 {
		n = 0
	}
	return &List[T]{n: n, fn: fn}
}

// FromSlice wraps an in-memory slice.
func FromSlice[T any](items []T) *List[T] {
	return New(len(items), func(i int) (T, error) { return items[i], nil })
}

// Len returns the number of elements.
func (l *List[T]) Len() int { return l.n }

// At computes element i.
func (l *List[T]) At(i int) (T, error) {
	if i < 0 || i >= l.n {
		var zero T
		return zero, errors.Wrapf(errors.ErrIndexOutOfRange, "index %d, len %d", i, l.n)
	}
	return l.fn(i)
}

// Slice returns the view [start, end). Bounds are clamped to the list.
func (l *List[T]) Slice(start, end int) *List[T] {
	start = clamp(start, 0, l.n)
	end = clamp(end, start, l.n)
	fn := l.fn
	return &List[T]{n: end - start, fn: func(i int) (T, error) { return fn(start + i) }}
}

// Head returns the first n elements, or the whole list when n <= 0 or n
// exceeds its length.
func (l *List[T]) Head(n int) *List[T] {
	if n <= 0 || n >= l.n {
		return l
	}
	return l.Slice(0, n)
}

// All iterates elements in order. Each call starts again from index 0.
func (l *List[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := 0; i < l.n; i++ {
			v, err := l.fn(i)
			if err != nil {
				err = errors.Wrapf(err, "element %d", i)
			}
			if !yield(v, err) {
				return
			}
		}
	}
}

// Map returns a list applying fn to each element of l on access. An error
// from l is returned without calling fn.
func Map[T, U any](l *List[T], fn func(T) (U, error)) *List[U] {
	return New(l.n, func(i int) (U, error) {
		v, err := l.fn(i)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
