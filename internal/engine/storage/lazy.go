package storage

import (
	"sync/atomic"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/shared/observability"
)

type cellState uint8

const (
	stateEmpty cellState = iota
	stateComputing
	statePostCompute
)

// cell is one memoized slot. state and value are guarded by the manager lock until done is
// set; after that value is immutable and read without locking.
type cell[T any] struct {
	done  atomic.Bool
	state cellState
	value T
}

// resolveCell computes c at most once. onRecursion, when non-nil, supplies the result for a
// reentrant request made while c is computing; otherwise such a request is fatal. post runs
// after compute with the fresh value already visible to the computing goroutine.
func resolveCell[T any](m *Manager, c *cell[T], kind string, compute func() T, onRecursion func() T, post func(T) T) T {
	if c.done.Load() {
		return c.value
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if c.done.Load() {
		return c.value
	}
	switch c.state {
	case stateComputing:
		observability.StorageRecursions.WithLabelValues(kind).Inc()
		m.logger.Debug("reentrant request on computing value", "kind", kind, "tolerant", onRecursion != nil)
		if onRecursion != nil {
			return onRecursion()
		}
		errors.Invariantf("recursion detected while computing %s value", kind)
	case statePostCompute:
		return c.value
	}

	c.state = stateComputing
	completed := false
	defer func() {
		if !completed {
			// A failed computation is not cached; the next request retries.
			var zero T
			c.value = zero
			c.state = stateEmpty
		}
	}()

	v := compute()
	observability.StorageComputations.WithLabelValues(kind).Inc()
	if post != nil {
		c.value = v
		c.state = statePostCompute
		v = post(v)
	}
	c.value = v
	c.state = stateEmpty
	c.done.Store(true)
	completed = true
	return v
}

// LazyValue is a zero-argument memoized computation.
type LazyValue[T any] struct {
	m           *Manager
	c           cell[T]
	compute     func() T
	onRecursion func() T
	post        func(T) T
	kind        string
}

func NewLazyValue[T any](m *Manager, compute func() T) *LazyValue[T] {
	return &LazyValue[T]{m: m, compute: compute, kind: "lazy"}
}

// NewRecursionTolerantLazyValue returns onRecursion instead of failing when the value is
// requested again while it is being computed.
func NewRecursionTolerantLazyValue[T any](m *Manager, compute func() T, onRecursion T) *LazyValue[T] {
	return &LazyValue[T]{
		m:           m,
		compute:     compute,
		onRecursion: func() T { return onRecursion },
		kind:        "lazy_tolerant",
	}
}

// NewLazyValueWithPostCompute runs post on the computed value before publishing it. While
// post runs, reentrant reads on the computing goroutine observe the unprocessed value and
// reads made while compute itself runs get onRecursion().
func NewLazyValueWithPostCompute[T any](m *Manager, compute func() T, onRecursion func() T, post func(T) T) *LazyValue[T] {
	return &LazyValue[T]{
		m:           m,
		compute:     compute,
		onRecursion: onRecursion,
		post:        post,
		kind:        "lazy_post_compute",
	}
}

func (v *LazyValue[T]) Get() T {
	return resolveCell(v.m, &v.c, v.kind, v.compute, v.onRecursion, v.post)
}

func (v *LazyValue[T]) IsComputed() bool {
	return v.c.done.Load()
}

type optional[T any] struct {
	value T
	ok    bool
}

// NullableLazyValue caches absence like any other result.
type NullableLazyValue[T any] struct {
	inner *LazyValue[optional[T]]
}

func NewNullableLazyValue[T any](m *Manager, compute func() (T, bool)) *NullableLazyValue[T] {
	inner := NewLazyValue(m, func() optional[T] {
		v, ok := compute()
		return optional[T]{value: v, ok: ok}
	})
	inner.kind = "lazy_nullable"
	return &NullableLazyValue[T]{inner: inner}
}

func (v *NullableLazyValue[T]) Get() (T, bool) {
	o := v.inner.Get()
	return o.value, o.ok
}

func (v *NullableLazyValue[T]) IsComputed() bool {
	return v.inner.IsComputed()
}
