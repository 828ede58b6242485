// Package mirror keeps a local best-effort copy of one remote property.
//
// The cache reflects the last successful fetch, the last push or the last
// optimistic write. It is never assumed fresh: controls validate against a
// live Get before writing through.
package mirror

import (
	"context"
	"log/slog"
	"sync"

	"github.com/trbjo/rogquick/fanout"
	"github.com/trbjo/rogquick/logger"
)

// Accessor is the remote side of a mirror.
type Accessor[T any] interface {
	Connected() bool
	Fetch(ctx context.Context) (T, error)
	Store(ctx context.Context, v T) error
	// Decode turns a push body into a value. prev is the current cache, for
	// pushes that only carry part of an aggregate.
	Decode(prev T, body []any) (T, error)
	Watch(handler func(body []any)) (cancel func())
}

// Source is what a control binds to. Mirror and Field both satisfy it.
type Source[T any] interface {
	Cached() T
	Get(ctx context.Context) T
	Set(ctx context.Context, v T) error
	Subscribe(s fanout.Subscriber)
	Unsubscribe(s fanout.Subscriber)
}

type Option func(*options)

type options struct {
	post func(func()) bool
}

// WithPoster routes notifications caused off the event loop (fetches and
// writes) through post. Without it subscribers are synced inline.
func WithPoster(post func(func()) bool) Option {
	return func(o *options) { o.post = post }
}

type Mirror[T any] struct {
	name    string
	acc     Accessor[T]
	equal   func(a, b T) bool
	initial T
	post    func(func()) bool
	subs    *fanout.Registry
	lg      *slog.Logger

	mu        sync.Mutex
	value     T
	gen       uint64
	confirmed bool
	cancel    func()
}

func New[T comparable](name string, acc Accessor[T], initial T, opts ...Option) *Mirror[T] {
	return NewFunc(name, acc, initial, func(a, b T) bool { return a == b }, opts...)
}

// NewFunc is New for values that cannot be compared with ==.
func NewFunc[T any](name string, acc Accessor[T], initial T, equal func(a, b T) bool, opts ...Option) *Mirror[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Mirror[T]{
		name:    name,
		acc:     acc,
		equal:   equal,
		initial: initial,
		value:   initial,
		post:    o.post,
		subs:    fanout.NewRegistry(name),
		lg:      logger.For("mirror").With("property", name),
	}
}

func (m *Mirror[T]) Name() string { return m.name }

// Attach subscribes to the push signal and primes the cache.
func (m *Mirror[T]) Attach(ctx context.Context) {
	cancel := m.acc.Watch(m.OnPush)
	m.mu.Lock()
	old := m.cancel
	m.cancel = cancel
	m.mu.Unlock()
	if old != nil {
		old()
	}
	m.Get(ctx)
}

// Detach drops the push subscription and every subscriber, then forgets
// the cached value.
func (m *Mirror[T]) Detach() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.subs.Clear()
	m.Reset()
}

func (m *Mirror[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = m.initial
	m.gen++
	m.confirmed = false
}

// Confirmed reports whether the cache holds a value the daemon has
// reported or accepted since the last Reset.
func (m *Mirror[T]) Confirmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmed
}

func (m *Mirror[T]) Cached() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// Get fetches the live value and stores it. On a disconnected channel or a
// failed fetch the cache is returned unchanged. Blocks; keep it off the loop.
func (m *Mirror[T]) Get(ctx context.Context) T {
	if !m.acc.Connected() {
		return m.Cached()
	}
	v, err := m.acc.Fetch(ctx)
	if err != nil {
		m.lg.Warn("fetch failed, keeping cached value", "error", err)
		return m.Cached()
	}

	m.mu.Lock()
	changed := !m.equal(m.value, v)
	m.value = v
	m.gen++
	m.confirmed = true
	m.mu.Unlock()

	if changed {
		m.notifyLater()
	}
	return v
}

// Set applies v to the cache and writes it through. A value equal to the
// cache is not written. A failed write restores the previous value unless
// something newer was applied meanwhile.
func (m *Mirror[T]) Set(ctx context.Context, v T) error {
	return m.write(ctx, func(T) T { return v }, m.acc.Store)
}

func (m *Mirror[T]) write(ctx context.Context, update func(T) T, store func(context.Context, T) error) error {
	if !m.acc.Connected() {
		return nil
	}

	m.mu.Lock()
	prev := m.value
	next := update(prev)
	if m.equal(prev, next) {
		m.mu.Unlock()
		return nil
	}
	m.value = next
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.notifyLater()

	err := store(ctx, next)
	if err == nil {
		m.mu.Lock()
		if m.gen == gen {
			m.confirmed = true
		}
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	rolledBack := m.gen == gen
	if rolledBack {
		m.value = prev
		m.gen++
	}
	m.mu.Unlock()

	m.lg.Warn("write failed", "error", err, "rolled_back", rolledBack)
	if rolledBack {
		m.notifyLater()
	}
	return err
}

// OnPush handles a change notification. It runs on the event loop, so
// subscribers are synced right away. A body that fails to decode leaves
// the cache alone.
func (m *Mirror[T]) OnPush(body []any) {
	m.mu.Lock()
	v, err := m.acc.Decode(m.value, body)
	if err != nil {
		m.mu.Unlock()
		m.lg.Warn("ignoring undecodable push", "error", err)
		return
	}
	m.value = v
	m.gen++
	m.confirmed = true
	m.mu.Unlock()

	m.lg.Debug("pushed", "value", v)
	m.subs.NotifyAll()
}

func (m *Mirror[T]) Subscribe(s fanout.Subscriber) { m.subs.Register(s) }

func (m *Mirror[T]) Unsubscribe(s fanout.Subscriber) { m.subs.Unregister(s) }

func (m *Mirror[T]) Subscribers() int { return m.subs.Len() }

func (m *Mirror[T]) notifyLater() {
	if m.post == nil {
		m.subs.NotifyAll()
		return
	}
	m.post(m.subs.NotifyAll)
}
