package widget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trbjo/rogquick/eventloop"
	"github.com/trbjo/rogquick/fanout"
)

// fakeSource is a mirror whose remote side is a plain variable.
type fakeSource[T any] struct {
	mu     sync.Mutex
	cached T
	live   T
	gets   int
	sets   []T
	setErr error
	subs   *fanout.Registry
	// unconfirmed makes Confirmed report false until the next push.
	unconfirmed bool
	// block, when set, holds Get until closed.
	block chan struct{}
}

func newFakeSource[T any](v T) *fakeSource[T] {
	return &fakeSource[T]{cached: v, live: v, subs: fanout.NewRegistry("fake")}
}

func (f *fakeSource[T]) Cached() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached
}

func (f *fakeSource[T]) Get(context.Context) T {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	f.cached = f.live
	return f.live
}

func (f *fakeSource[T]) Set(_ context.Context, v T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, v)
	if f.setErr != nil {
		return f.setErr
	}
	f.cached = v
	f.live = v
	return nil
}

func (f *fakeSource[T]) Subscribe(s fanout.Subscriber)   { f.subs.Register(s) }
func (f *fakeSource[T]) Unsubscribe(s fanout.Subscriber) { f.subs.Unregister(s) }

func (f *fakeSource[T]) Confirmed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unconfirmed
}

// push simulates a change notification. Call it on the loop.
func (f *fakeSource[T]) push(v T) {
	f.mu.Lock()
	f.unconfirmed = false
	f.cached = v
	f.live = v
	f.mu.Unlock()
	f.subs.NotifyAll()
}

func (f *fakeSource[T]) setCalls() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), f.sets...)
}

type recordingSurface struct {
	mu      sync.Mutex
	snaps   map[string]Snapshot
	puts    int
	removed []string
}

func newSurface() *recordingSurface {
	return &recordingSurface{snaps: map[string]Snapshot{}}
}

func (r *recordingSurface) Put(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[s.ID] = s
	r.puts++
}

func (r *recordingSurface) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snaps, id)
	r.removed = append(r.removed, id)
}

func (r *recordingSurface) get(id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snaps[id]
	return s, ok
}

func (r *recordingSurface) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

type memSettings struct {
	mu     sync.Mutex
	values map[string]any
	conns  map[string][]func()
	writes int
}

func newMemSettings(values map[string]any) *memSettings {
	if values == nil {
		values = map[string]any{}
	}
	return &memSettings{values: values, conns: map[string][]func(){}}
}

func (m *memSettings) Bool(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _ := m.values[key].(bool)
	return b
}

func (m *memSettings) Uint(key string) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := m.values[key].(uint)
	return n
}

func (m *memSettings) String(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.values[key].(string)
	return s
}

func (m *memSettings) SetBool(key string, v bool) error     { return m.set(key, v) }
func (m *memSettings) SetUint(key string, v uint) error     { return m.set(key, v) }
func (m *memSettings) SetString(key string, v string) error { return m.set(key, v) }

func (m *memSettings) set(key string, v any) error {
	if key == "" {
		return errors.New("empty key")
	}
	m.mu.Lock()
	if m.values[key] == v {
		m.mu.Unlock()
		return nil
	}
	m.values[key] = v
	m.writes++
	fns := append([]func(){}, m.conns[key]...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (m *memSettings) Connect(key string, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[key] = append(m.conns[key], fn)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.conns[key] = nil
	}
}

func (m *memSettings) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type harness struct {
	t       *testing.T
	loop    *eventloop.Loop
	surface *recordingSurface
	env     Env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	loop := eventloop.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	surface := newSurface()
	return &harness{
		t:       t,
		loop:    loop,
		surface: surface,
		env:     Env{Surface: surface, Post: loop.Post, Ctx: ctx, Timeout: time.Second},
	}
}

// on runs fn on the loop and waits for it.
func (h *harness) on(fn func()) {
	h.t.Helper()
	require.NoError(h.t, h.loop.Call(context.Background(), fn))
}

// settle waits until every callback queued so far has run.
func (h *harness) settle() {
	h.t.Helper()
	for i := 0; i < 3; i++ {
		h.on(func() {})
	}
}
