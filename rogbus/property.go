package rogbus

import (
	"context"
)

// PropertyID names every piece of daemon state a control can bind to.
type PropertyID uint8

const (
	PropMiniLed PropertyID = iota
	PropPanelOd
	PropGpuMux
	PropPostSound
	PropChargeLimit
	PropMainsOnline
	PropAura
	PropLedPower
	PropAnimeState
)

var propertyNames = []string{"MiniLed", "PanelOd", "GpuMux", "PostSound", "ChargeLimit", "MainsOnline", "Aura", "LedPower", "AnimeState"}

func (p PropertyID) String() string {
	if int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return "Unknown"
}

// Property is the typed accessor pair for one daemon property: a getter, an
// optional setter and the signal that pushes new values.
type Property[T any] struct {
	ID     PropertyID
	ch     *Channel
	getter string
	setter string
	signal string
	decode func(prev T, body []any) (T, error)
	encode func(v T) []any
	// fetch replaces the single getter call for aggregates assembled from
	// several replies.
	fetch func(ctx context.Context) (T, error)
}

func (p *Property[T]) Connected() bool { return p.ch.IsConnected() }

func (p *Property[T]) Channel() *Channel { return p.ch }

func (p *Property[T]) Fetch(ctx context.Context) (T, error) {
	var zero T
	if !p.ch.IsConnected() {
		return zero, ErrDisconnected
	}
	if p.fetch != nil {
		return p.fetch(ctx)
	}
	body, err := p.ch.Invoke(ctx, p.getter)
	if err != nil {
		return zero, err
	}
	if body == nil {
		return zero, ErrDisconnected
	}
	return p.decode(zero, body)
}

func (p *Property[T]) Store(ctx context.Context, v T) error {
	if p.setter == "" {
		return ErrReadOnly
	}
	_, err := p.ch.Invoke(ctx, p.setter, p.encode(v)...)
	return err
}

func (p *Property[T]) Decode(prev T, body []any) (T, error) {
	return p.decode(prev, body)
}

// Watch subscribes handler to the property's push signal.
func (p *Property[T]) Watch(handler func(body []any)) (cancel func()) {
	if p.signal == "" {
		return func() {}
	}
	return p.ch.Subscribe(p.signal, handler)
}

func boolProperty(id PropertyID, ch *Channel, getter, setter, signal string) *Property[bool] {
	p := &Property[bool]{
		ID:     id,
		ch:     ch,
		getter: getter,
		setter: setter,
		signal: signal,
		decode: func(_ bool, body []any) (bool, error) {
			v, err := first(getter, body)
			if err != nil {
				return false, err
			}
			return DecodeBool(v)
		},
	}
	p.encode = func(v bool) []any { return []any{v} }
	return p
}
