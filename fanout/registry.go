package fanout

import (
	"fmt"
	"sync"

	"github.com/trbjo/rogquick/logger"
)

var lg = logger.For("fanout")

// Subscriber is anything that can reconcile itself against a mirror.
// Sync must be read-only towards the remote endpoint.
type Subscriber interface {
	Sync()
}

// SubscriberFunc adapts a plain function.
type SubscriberFunc struct {
	Name string
	Fn   func()
}

func (s *SubscriberFunc) Sync() { s.Fn() }

func (s *SubscriberFunc) String() string { return s.Name }

// Registry is an ordered set of subscribers.
type Registry struct {
	name string
	mu   sync.Mutex
	subs []Subscriber
}

func NewRegistry(name string) *Registry {
	return &Registry{name: name}
}

// Register adds s once. Registering an existing subscriber keeps its
// original position.
func (r *Registry) Register(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.subs {
		if existing == s {
			return
		}
	}
	r.subs = append(r.subs, s)
}

func (r *Registry) Unregister(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.subs {
		if existing == s {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Clear drops every subscriber.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = nil
}

// NotifyAll syncs every subscriber registered at call time, in order.
// A subscriber that panics is logged and skipped.
func (r *Registry) NotifyAll() {
	r.mu.Lock()
	subs := make([]Subscriber, len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	for _, s := range subs {
		r.notify(s)
	}
}

func (r *Registry) notify(s Subscriber) {
	defer func() {
		if rec := recover(); rec != nil {
			lg.Error("subscriber failed", "registry", r.name, "subscriber", fmt.Sprint(s), "panic", rec)
		}
	}()
	s.Sync()
}
