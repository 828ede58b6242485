package rogbus

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/trbjo/rogquick/logger"
)

// Channel is a connection to one daemon object. While disconnected every
// call and subscription is a no-op, so callers never need to check first.
type Channel struct {
	schemaName string
	path       dbus.ObjectPath
	service    string
	dial       Dialer
	dispatch   func(func()) bool
	timeout    time.Duration
	probe      bool
	lg         *slog.Logger

	mu        sync.Mutex
	schema    *Schema
	transport Transport
	stopWatch func()
	done      chan struct{}
	connected bool
	failed    bool
	subs      map[string][]*subscription
}

type subscription struct {
	handler func(body []any)
	active  atomic.Bool
}

type Option func(*Channel)

// WithDispatcher sets where signal handlers run. The default runs them on
// the goroutine reading the bus.
func WithDispatcher(post func(func()) bool) Option {
	return func(c *Channel) { c.dispatch = post }
}

func WithDialer(d Dialer) Option {
	return func(c *Channel) { c.dial = d }
}

func WithService(name string) Option {
	return func(c *Channel) { c.service = name }
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *Channel) { c.timeout = d }
}

// WithProbe makes Start fail when nobody owns the service name.
func WithProbe(probe bool) Option {
	return func(c *Channel) { c.probe = probe }
}

// NewChannel prepares a channel for the embedded schema. An empty path uses
// the object path recorded in the schema.
func NewChannel(schema string, path string, opts ...Option) *Channel {
	c := &Channel{
		schemaName: schema,
		path:       dbus.ObjectPath(path),
		service:    Service,
		dial:       SystemBus,
		dispatch:   func(fn func()) bool { fn(); return true },
		timeout:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lg = logger.For("channel").With("schema", schema)
	return c
}

func (c *Channel) Path() dbus.ObjectPath {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	err := c.connect(ctx)
	if err != nil {
		if !c.failed {
			c.lg.Warn("could not connect", "error", err)
		}
		c.failed = true
		return err
	}
	c.failed = false
	c.lg.Debug("connected", "path", c.path)
	return nil
}

func (c *Channel) connect(ctx context.Context) error {
	schema, err := LoadSchema(c.schemaName)
	if err != nil {
		return &ConnectionError{Path: string(c.path), Err: err}
	}
	if c.path == "" {
		c.path = schema.Path
	}

	t, err := c.dial(ctx)
	if err != nil {
		return &ConnectionError{Path: string(c.path), Err: err}
	}

	if c.probe {
		owned, err := t.NameHasOwner(c.service)
		if err == nil && !owned {
			err = ErrServiceMissing
		}
		if err != nil {
			_ = t.Close()
			return &ConnectionError{Path: string(c.path), Err: err}
		}
	}

	signals, stop, err := t.Watch(c.path, Interface)
	if err != nil {
		_ = t.Close()
		return &ConnectionError{Path: string(c.path), Err: err}
	}

	c.schema = schema
	c.transport = t
	c.stopWatch = stop
	c.done = make(chan struct{})
	c.subs = map[string][]*subscription{}
	c.connected = true

	go c.pump(c.path, signals, c.done)
	return nil
}

// Stop drops every subscription and closes the transport. Safe to call on a
// channel that never started.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}

	for _, list := range c.subs {
		for _, s := range list {
			s.active.Store(false)
		}
	}
	c.subs = nil

	close(c.done)
	c.stopWatch()
	if err := c.transport.Close(); err != nil {
		c.lg.Debug("close transport", "error", err)
	}
	c.transport = nil
	c.stopWatch = nil
	c.connected = false
	c.lg.Debug("stopped")
}

// Invoke calls method on the daemon object and returns the reply body.
// Disconnected channels return (nil, nil) without touching the bus. It
// blocks, so it must not run on the event loop.
func (c *Channel) Invoke(ctx context.Context, method string, args ...any) ([]any, error) {
	c.mu.Lock()
	connected, t, schema, path := c.connected, c.transport, c.schema, c.path
	c.mu.Unlock()

	if !connected {
		return nil, nil
	}
	if !schema.HasMethod(method) {
		return nil, &RemoteCallError{Path: string(path), Method: method, Err: ErrUnknownMethod}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := t.Call(ctx, c.service, path, Interface+"."+method, args...)
	if err != nil {
		return nil, &RemoteCallError{Path: string(path), Method: method, Err: err}
	}
	return body, nil
}

// Subscribe registers handler for signal. Handlers run through the
// dispatcher in arrival order. The returned cancel is idempotent.
func (c *Channel) Subscribe(signal string, handler func(body []any)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return func() {}
	}
	if !c.schema.HasSignal(signal) {
		c.lg.Warn("subscribe to unknown signal", "signal", signal)
		return func() {}
	}

	s := &subscription{handler: handler}
	s.active.Store(true)
	c.subs[signal] = append(c.subs[signal], s)

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(signal, s) })
	}
}

func (c *Channel) unsubscribe(signal string, s *subscription) {
	s.active.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.subs[signal]
	for i, existing := range list {
		if existing == s {
			c.subs[signal] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (c *Channel) pump(path dbus.ObjectPath, signals <-chan *dbus.Signal, done <-chan struct{}) {
	prefix := Interface + "."
	for {
		select {
		case <-done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if sig.Path != path || !strings.HasPrefix(sig.Name, prefix) {
				continue
			}
			c.deliver(strings.TrimPrefix(sig.Name, prefix), sig.Body)
		}
	}
}

func (c *Channel) deliver(member string, body []any) {
	c.mu.Lock()
	subs := append([]*subscription(nil), c.subs[member]...)
	c.mu.Unlock()

	for _, s := range subs {
		s := s
		if !c.dispatch(func() {
			if s.active.Load() {
				s.handler(body)
			}
		}) {
			return
		}
	}
}
