// Package storage provides the memoization primitives every lazy descriptor is built on.
//
// All values created from one Manager share a single reentrant lock. First computations are
// therefore totally ordered across goroutines, and a computation may freely trigger nested
// computations on the goroutine that already holds the lock. Reads of values that are
// already computed never take the lock.
package storage

import (
	"bytes"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Retention selects how long a memoized function keeps its values.
type Retention int

const (
	// Strong keeps every computed value for the lifetime of the function.
	Strong Retention = iota
	// Soft keeps values in a bounded LRU. Evicted keys are recomputed on the next request.
	Soft
)

func (r Retention) String() string {
	if r == Soft {
		return "soft"
	}
	return "strong"
}

// DefaultSoftCapacity bounds soft-retained functions when no capacity is configured.
const DefaultSoftCapacity = 4096

type Manager struct {
	lock         reentrantLock
	softCapacity int
	logger       *slog.Logger
}

type Option func(*Manager)

// WithSoftCapacity sets the per-function LRU bound for Soft retention.
func WithSoftCapacity(capacity int) Option {
	return func(m *Manager) {
		if capacity > 0 {
			m.softCapacity = capacity
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		softCapacity: DefaultSoftCapacity,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Locked runs fn while holding the shared lock.
func (m *Manager) Locked(fn func()) {
	m.lock.Lock()
	defer m.lock.Unlock()
	fn()
}

// HoldsLock reports whether the calling goroutine currently owns the shared lock.
func (m *Manager) HoldsLock() bool {
	return m.lock.heldByCurrent()
}

func (m *Manager) SoftCapacity() int {
	return m.softCapacity
}

// reentrantLock lets the owning goroutine re-acquire the lock. Only the owner touches depth.
type reentrantLock struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

func (l *reentrantLock) Lock() {
	id := goroutineID()
	if l.owner.Load() == id {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner.Store(id)
	l.depth = 1
}

func (l *reentrantLock) Unlock() {
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.mu.Unlock()
	}
}

func (l *reentrantLock) heldByCurrent() bool {
	owner := l.owner.Load()
	return owner != 0 && owner == goroutineID()
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID reads the current goroutine id from the runtime stack header
// ("goroutine 42 [running]:").
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(field, ' '); i >= 0 {
		field = field[:i]
	}
	id, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil {
		panic("storage: cannot parse goroutine id from " + strconv.Quote(string(buf[:n])))
	}
	return id
}
