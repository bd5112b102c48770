package storage

import (
	"sync"

	"lazyresolve/internal/shared/observability"
)

// cellTable maps keys to cells according to the retention mode. mu guards strong only;
// the soft table has its own lock.
type cellTable[K comparable, V any] struct {
	mu     sync.RWMutex
	strong map[K]*cell[V]
	soft   *softTable[K, *cell[V]]
}

func newCellTable[K comparable, V any](m *Manager, retention Retention) *cellTable[K, V] {
	t := &cellTable[K, V]{}
	if retention == Soft {
		t.soft = newSoftTable(m.softCapacity, func(K, *cell[V]) {
			observability.StorageSoftEvictions.Inc()
		})
		return t
	}
	t.strong = make(map[K]*cell[V])
	return t
}

func newCell[V any]() *cell[V] { return &cell[V]{} }

func (t *cellTable[K, V]) cellFor(key K) *cell[V] {
	if t.soft != nil {
		return t.soft.getOrAdd(key, newCell[V])
	}

	t.mu.RLock()
	c, ok := t.strong[key]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.strong[key]; ok {
		return c
	}
	c = newCell[V]()
	t.strong[key] = c
	return c
}

func (t *cellTable[K, V]) isComputed(key K) bool {
	var c *cell[V]
	var ok bool
	if t.soft != nil {
		c, ok = t.soft.peek(key)
	} else {
		t.mu.RLock()
		c, ok = t.strong[key]
		t.mu.RUnlock()
	}
	return ok && c.done.Load()
}

// MemoizedFunction computes compute(key) at most once per retained key.
type MemoizedFunction[K comparable, V any] struct {
	m       *Manager
	compute func(K) V
	cells   *cellTable[K, V]
}

func NewMemoizedFunction[K comparable, V any](m *Manager, compute func(K) V, retention Retention) *MemoizedFunction[K, V] {
	return &MemoizedFunction[K, V]{
		m:       m,
		compute: compute,
		cells:   newCellTable[K, V](m, retention),
	}
}

func (f *MemoizedFunction[K, V]) Get(key K) V {
	c := f.cells.cellFor(key)
	if c.done.Load() {
		return c.value
	}
	return resolveCell(f.m, c, "memoized", func() V { return f.compute(key) }, nil, nil)
}

func (f *MemoizedFunction[K, V]) IsComputed(key K) bool {
	return f.cells.isComputed(key)
}

// NullableMemoizedFunction is a MemoizedFunction whose absent results are cached too, so a
// failed lookup is never retried.
type NullableMemoizedFunction[K comparable, V any] struct {
	m       *Manager
	compute func(K) (V, bool)
	cells   *cellTable[K, optional[V]]
}

func NewNullableMemoizedFunction[K comparable, V any](m *Manager, compute func(K) (V, bool), retention Retention) *NullableMemoizedFunction[K, V] {
	return &NullableMemoizedFunction[K, V]{
		m:       m,
		compute: compute,
		cells:   newCellTable[K, optional[V]](m, retention),
	}
}

func (f *NullableMemoizedFunction[K, V]) Get(key K) (V, bool) {
	c := f.cells.cellFor(key)
	if c.done.Load() {
		return c.value.value, c.value.ok
	}
	o := resolveCell(f.m, c, "memoized_nullable", func() optional[V] {
		v, ok := f.compute(key)
		return optional[V]{value: v, ok: ok}
	}, nil, nil)
	return o.value, o.ok
}

func (f *NullableMemoizedFunction[K, V]) IsComputed(key K) bool {
	return f.cells.isComputed(key)
}
