package widget

import (
	"github.com/trbjo/rogquick/mirror"
	"github.com/trbjo/rogquick/utilities"
)

type State uint8

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

// Binding ties one control to one mirror.
//
// Idle: the control shows the cached value. Activate moves it to Pending and
// shows the requested value right away; the live value is fetched and only
// written when it differs. Sync always returns it to Idle and never writes.
type Binding[T comparable] struct {
	env     Env
	id      string
	src     mirror.Source[T]
	base    Snapshot
	present func(T, *Snapshot)
	parse   func(value any, shown T) (T, bool)
	onDone  func()
	persist func(T)
	cleanup []func()

	shown     *utilities.SafeState[T]
	state     *utilities.SafeState[State]
	confirmed T
	synced    bool
	persisted bool
	drawnBusy bool
	destroyed bool
}

func newBinding[T comparable](env Env, base Snapshot, src mirror.Source[T], present func(T, *Snapshot), parse func(any, T) (T, bool), cfg config) *Binding[T] {
	var zero T
	base.Parent = cfg.parent
	base.Subtitle = cfg.subtitle
	base.Visible = true
	return &Binding[T]{
		env:     env,
		id:      base.ID,
		src:     src,
		base:    base,
		present: present,
		parse:   parse,
		onDone:  cfg.onDone,
		shown:   utilities.NewSafeState(zero),
		state:   utilities.NewSafeState(Idle),
	}
}

// start subscribes and draws the first frame. Constructors call it last.
func (b *Binding[T]) start() {
	b.src.Subscribe(b)
	b.Sync()
}

func (b *Binding[T]) ID() string { return b.id }

func (b *Binding[T]) Source() mirror.Source[T] { return b.src }

// Displayed is the value currently on screen. Safe from any goroutine.
func (b *Binding[T]) Displayed() T { return b.shown.Get() }

func (b *Binding[T]) State() State { return b.state.Get() }

func (b *Binding[T]) Activate(value any) {
	v, ok := b.parse(value, b.shown.Get())
	if !ok {
		lg.Debug("ignoring activation", "control", b.id, "value", value)
		return
	}
	b.Apply(v)
}

// Apply requests v. The write, if any, happens off the loop.
func (b *Binding[T]) Apply(v T) {
	if b.destroyed {
		return
	}
	if b.state.Swap(Pending) == Pending {
		lg.Debug("superseding pending request", "control", b.id, "value", v)
	}
	b.show(v, true)

	src, env := b.src, b.env
	go func() {
		ctx, cancel := env.callContext()
		defer cancel()
		if live := src.Get(ctx); live != v {
			if err := src.Set(ctx, v); err != nil {
				lg.Warn("could not apply", "control", b.id, "value", v, "error", err)
			}
		}
		env.Post(b.complete)
	}()
}

func (b *Binding[T]) complete() {
	if b.destroyed {
		return
	}
	b.state.Set(Idle)
	if b.onDone != nil {
		b.onDone()
	}
	b.Sync()
}

// Sync redraws from the cache. Calling it again without a cache change
// draws nothing.
func (b *Binding[T]) Sync() {
	if b.destroyed {
		return
	}
	b.state.Set(Idle)

	v := b.src.Cached()
	owed := b.persist != nil && !b.persisted
	if b.synced && !b.drawnBusy && !owed && v == b.confirmed && v == b.shown.Get() {
		return
	}
	changed := !b.synced || v != b.confirmed
	b.synced = true
	b.confirmed = v
	b.show(v, false)

	// an unconfirmed cache still holds the initial value and must not
	// overwrite the stored key
	if b.persist != nil && (changed || owed) && confirmed(b.src) {
		b.persisted = true
		b.persist(v)
	}
}

func (b *Binding[T]) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.src.Unsubscribe(b)
	for _, fn := range b.cleanup {
		fn()
	}
	b.env.Surface.Remove(b.id)
}

func (b *Binding[T]) show(v T, pending bool) {
	b.shown.Set(v)
	b.drawnBusy = pending
	snap := b.base
	snap.Pending = pending
	b.present(v, &snap)
	b.env.Surface.Put(snap)
}
