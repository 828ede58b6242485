// Package widget binds mirrors to controls shown on a Surface.
//
// Every method of a control runs on the event loop. Remote validation and
// writes happen on their own goroutine and post their completion back.
package widget

import (
	"context"
	"errors"
	"time"

	"github.com/trbjo/rogquick/logger"
)

var lg = logger.For("widget")

type Kind uint8

const (
	KindToggle Kind = iota
	KindMenuItem
	KindSlider
	KindIndicator
	KindMenu
)

var kindNames = []string{"toggle", "item", "slider", "indicator", "menu"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Snapshot is everything a surface needs to draw one control.
type Snapshot struct {
	ID       string
	Parent   string
	Kind     Kind
	Title    string
	Subtitle string
	Checked  bool
	Level    uint8
	Options  []string
	Visible  bool
	Pending  bool
}

// Surface draws controls. Rendering is one way: user input comes back
// through Control.Activate, never through the surface.
type Surface interface {
	Put(s Snapshot)
	Remove(id string)
}

type Control interface {
	ID() string
	// Activate handles a user action. A nil value toggles.
	Activate(value any)
	Sync()
	Destroy()
}

// Settings is the persisted key store controls mirror their state into.
type Settings interface {
	Bool(key string) bool
	SetBool(key string, v bool) error
	Uint(key string) uint
	SetUint(key string, v uint) error
	String(key string) string
	SetString(key string, v string) error
	Connect(key string, fn func()) (disconnect func())
}

// Env is shared by every control of one extension instance.
type Env struct {
	Surface Surface
	Post    func(func()) bool
	// Ctx bounds remote calls started by controls.
	Ctx     context.Context
	Timeout time.Duration
}

func (e Env) callContext() (context.Context, context.CancelFunc) {
	ctx := e.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if e.Timeout > 0 {
		return context.WithTimeout(ctx, e.Timeout)
	}
	return context.WithCancel(ctx)
}

type Option func(*config)

type config struct {
	parent   string
	subtitle string
	onDone   func()
	settings Settings
	key      string
}

func WithParent(id string) Option {
	return func(c *config) { c.parent = id }
}

func WithSubtitle(s string) Option {
	return func(c *config) { c.subtitle = s }
}

// WithCompletion runs fn on the loop after every user action finished,
// whether or not a write was needed.
func WithCompletion(fn func()) Option {
	return func(c *config) { c.onDone = fn }
}

// WithSetting mirrors confirmed values into key.
func WithSetting(s Settings, key string) Option {
	return func(c *config) {
		c.settings = s
		c.key = key
	}
}

func buildConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

var errNotToggle = errors.New("not a toggle word")
