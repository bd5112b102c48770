package storage

import "sync"

// softTable is the bounded key table behind Soft retention. Entries form a recency list with
// the most recently used entry at head; inserting into a full table drops the tail.
type softTable[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[K]*softEntry[K, V]
	head     *softEntry[K, V]
	tail     *softEntry[K, V]
	onEvict  func(K, V)
}

type softEntry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *softEntry[K, V]
}

// newSoftTable returns a table holding at most capacity entries (at least one). onEvict, if
// set, runs with the table lock held.
func newSoftTable[K comparable, V any](capacity int, onEvict func(K, V)) *softTable[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &softTable[K, V]{
		capacity: capacity,
		entries:  make(map[K]*softEntry[K, V]),
		onEvict:  onEvict,
	}
}

// getOrAdd returns the value for key, creating it when absent. Either way the entry becomes
// the most recently used.
func (t *softTable[K, V]) getOrAdd(key K, create func() V) V {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		t.unlink(e)
		t.pushHead(e)
		return e.value
	}
	if len(t.entries) >= t.capacity {
		t.evictTail()
	}
	e := &softEntry[K, V]{key: key, value: create()}
	t.entries[key] = e
	t.pushHead(e)
	return e.value
}

// peek reads key without touching its recency.
func (t *softTable[K, V]) peek(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

func (t *softTable[K, V]) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *softTable[K, V]) pushHead(e *softEntry[K, V]) {
	e.prev = nil
	e.next = t.head
	if t.head != nil {
		t.head.prev = e
	}
	t.head = e
	if t.tail == nil {
		t.tail = e
	}
}

func (t *softTable[K, V]) unlink(e *softEntry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		t.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		t.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (t *softTable[K, V]) evictTail() {
	e := t.tail
	if e == nil {
		return
	}
	t.unlink(e)
	delete(t.entries, e.key)
	if t.onEvict != nil {
		t.onEvict(e.key, e.value)
	}
}
