// Package rogbustest provides an in-memory daemon for tests.
package rogbustest

import (
	"context"
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/trbjo/rogquick/rogbus"
)

var ErrUnknownMethod = errors.New("org.freedesktop.DBus.Error.UnknownMethod")

type Call struct {
	Path   dbus.ObjectPath
	Method string
	Args   []any
}

type Handler func(args []any) ([]any, error)

// Bus records every call, answers from registered handlers and pushes
// signals to the channels watching a path.
type Bus struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
	watchers []*watcher
	dials    int

	DialErr error
	// Owned is what NameHasOwner reports.
	Owned bool
}

type watcher struct {
	path    dbus.ObjectPath
	iface   string
	signals chan *dbus.Signal
	closed  bool
}

func New() *Bus {
	return &Bus{handlers: map[string]Handler{}, Owned: true}
}

func key(path dbus.ObjectPath, member string) string {
	return string(path) + " " + member
}

// Dialer hands out connections to this bus.
func (b *Bus) Dialer() rogbus.Dialer {
	return func(ctx context.Context) (rogbus.Transport, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.DialErr != nil {
			return nil, b.DialErr
		}
		b.dials++
		return &conn{bus: b}, nil
	}
}

func (b *Bus) Handle(path dbus.ObjectPath, member string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[key(path, member)] = h
}

// Reply makes member always answer with values.
func (b *Bus) Reply(path dbus.ObjectPath, member string, values ...any) {
	b.Handle(path, member, func([]any) ([]any, error) { return values, nil })
}

func (b *Bus) Fail(path dbus.ObjectPath, member string, err error) {
	b.Handle(path, member, func([]any) ([]any, error) { return nil, err })
}

// Value backs a getter/setter pair with one stored value. Setter calls
// update it and, when notify is set, emit that signal with the new value.
func (b *Bus) Value(path dbus.ObjectPath, getter, setter, notify string, initial any) {
	var mu sync.Mutex
	v := initial
	b.Handle(path, getter, func([]any) ([]any, error) {
		mu.Lock()
		defer mu.Unlock()
		return []any{v}, nil
	})
	if setter == "" {
		return
	}
	b.Handle(path, setter, func(args []any) ([]any, error) {
		if len(args) > 0 {
			mu.Lock()
			v = args[0]
			mu.Unlock()
		}
		if notify != "" {
			b.Emit(path, notify, args...)
		}
		return nil, nil
	})
}

// Emit delivers a signal to every open watch on path.
func (b *Bus) Emit(path dbus.ObjectPath, member string, body ...any) {
	b.mu.Lock()
	targets := make([]*watcher, 0, len(b.watchers))
	for _, w := range b.watchers {
		if w.path == path && !w.closed {
			targets = append(targets, w)
		}
	}
	b.mu.Unlock()

	for _, w := range targets {
		sig := &dbus.Signal{Path: path, Name: w.iface + "." + member, Body: body}
		b.mu.Lock()
		if !w.closed {
			select {
			case w.signals <- sig:
			default:
			}
		}
		b.mu.Unlock()
	}
}

func (b *Bus) Calls(member string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Call
	for _, c := range b.calls {
		if c.Method == member {
			out = append(out, c)
		}
	}
	return out
}

func (b *Bus) CallCount(member string) int {
	return len(b.Calls(member))
}

func (b *Bus) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *Bus) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Watchers reports how many signal watches are open.
func (b *Bus) Watchers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, w := range b.watchers {
		if !w.closed {
			n++
		}
	}
	return n
}

type conn struct {
	bus *Bus
}

func (c *conn) Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	member := method
	if len(method) > len(rogbus.Interface)+1 && method[:len(rogbus.Interface)] == rogbus.Interface {
		member = method[len(rogbus.Interface)+1:]
	}

	b := c.bus
	b.mu.Lock()
	b.calls = append(b.calls, Call{Path: path, Method: member, Args: args})
	h := b.handlers[key(path, member)]
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrUnknownMethod
	}
	return h(args)
}

func (c *conn) Watch(path dbus.ObjectPath, iface string) (<-chan *dbus.Signal, func(), error) {
	w := &watcher{path: path, iface: iface, signals: make(chan *dbus.Signal, 64)}
	b := c.bus
	b.mu.Lock()
	b.watchers = append(b.watchers, w)
	b.mu.Unlock()

	return w.signals, func() {
		b.mu.Lock()
		w.closed = true
		b.mu.Unlock()
	}, nil
}

func (c *conn) NameHasOwner(name string) (bool, error) {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	return c.bus.Owned, nil
}

func (c *conn) Close() error { return nil }
