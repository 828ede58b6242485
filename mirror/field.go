package mirror

import (
	"context"

	"github.com/trbjo/rogquick/fanout"
)

// Field projects one member of an aggregate mirror. Writes go through the
// member's own remote setter but share the parent's cache and rollback.
type Field[S, T any] struct {
	parent *Mirror[S]
	get    func(S) T
	with   func(S, T) S
	store  func(context.Context, T) error
}

func NewField[S, T any](parent *Mirror[S], get func(S) T, with func(S, T) S, store func(context.Context, T) error) *Field[S, T] {
	return &Field[S, T]{parent: parent, get: get, with: with, store: store}
}

func (f *Field[S, T]) Cached() T { return f.get(f.parent.Cached()) }

func (f *Field[S, T]) Get(ctx context.Context) T { return f.get(f.parent.Get(ctx)) }

func (f *Field[S, T]) Confirmed() bool { return f.parent.Confirmed() }

func (f *Field[S, T]) Set(ctx context.Context, v T) error {
	return f.parent.write(ctx,
		func(s S) S { return f.with(s, v) },
		func(ctx context.Context, _ S) error { return f.store(ctx, v) },
	)
}

func (f *Field[S, T]) Subscribe(s fanout.Subscriber) { f.parent.Subscribe(s) }

func (f *Field[S, T]) Unsubscribe(s fanout.Subscriber) { f.parent.Unsubscribe(s) }
