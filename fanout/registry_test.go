package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingSub struct {
	name  string
	calls int
	log   *[]string
	fail  bool
}

func (c *countingSub) Sync() {
	c.calls++
	if c.log != nil {
		*c.log = append(*c.log, c.name)
	}
	if c.fail {
		panic("sync exploded")
	}
}

func TestRegistry_NotifiesEachOnceInOrder(t *testing.T) {
	var order []string
	r := NewRegistry("MiniLed")
	a := &countingSub{name: "a", log: &order}
	b := &countingSub{name: "b", log: &order}
	c := &countingSub{name: "c", log: &order}
	r.Register(a)
	r.Register(b)
	r.Register(c)

	r.NotifyAll()

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestRegistry_DuplicateRegisterIsIgnored(t *testing.T) {
	r := NewRegistry("PanelOd")
	a := &countingSub{name: "a"}
	r.Register(a)
	r.Register(a)

	r.NotifyAll()

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, a.calls)
}

func TestRegistry_FailingSubscriberDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry("DeviceState")
	subs := []*countingSub{{name: "a"}, {name: "b", fail: true}, {name: "c"}}
	for _, s := range subs {
		r.Register(s)
	}

	assert.NotPanics(t, r.NotifyAll)
	for _, s := range subs {
		assert.Equal(t, 1, s.calls, s.name)
	}
}

func TestRegistry_UnregisteredIsNotCalled(t *testing.T) {
	r := NewRegistry("LedMode")
	a := &countingSub{name: "a"}
	b := &countingSub{name: "b"}
	r.Register(a)
	r.Register(b)
	r.Unregister(a)
	r.Unregister(a)

	r.NotifyAll()

	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_UnregisterDuringNotify(t *testing.T) {
	r := NewRegistry("Charge")
	b := &countingSub{name: "b"}
	var a *SubscriberFunc
	a = &SubscriberFunc{Name: "a", Fn: func() { r.Unregister(a); r.Unregister(b) }}
	r.Register(a)
	r.Register(b)

	r.NotifyAll()
	// the snapshot taken at notify time still reaches b
	assert.Equal(t, 1, b.calls)

	r.NotifyAll()
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, r.Len())
}
