package widget

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/trbjo/rogquick/fanout"
	"github.com/trbjo/rogquick/mirror"
	"github.com/trbjo/rogquick/rogbus"
)

// NewToggle is a quick-settings switch.
func NewToggle(env Env, id, title string, src mirror.Source[bool], opts ...Option) *Binding[bool] {
	return newSwitch(env, Snapshot{ID: id, Kind: KindToggle, Title: title}, src, opts)
}

// NewMenuItem is a switch inside a menu. Give it a parent with WithParent.
func NewMenuItem(env Env, id, title string, src mirror.Source[bool], opts ...Option) *Binding[bool] {
	return newSwitch(env, Snapshot{ID: id, Kind: KindMenuItem, Title: title}, src, opts)
}

func newSwitch(env Env, base Snapshot, src mirror.Source[bool], opts []Option) *Binding[bool] {
	cfg := buildConfig(opts)
	b := newBinding(env, base, src, func(v bool, s *Snapshot) { s.Checked = v }, parseBool, cfg)
	if cfg.settings != nil {
		store, key := cfg.settings, cfg.key
		b.persist = func(v bool) {
			if err := store.SetBool(key, v); err != nil {
				lg.Warn("could not persist", "key", key, "error", err)
			}
		}
	}
	b.start()
	return b
}

// NewSlider is a 0..100 percent control. Edits to its settings key made
// outside the program move the slider without writing to the daemon.
func NewSlider(env Env, id, title string, src mirror.Source[uint8], opts ...Option) *Binding[uint8] {
	cfg := buildConfig(opts)
	present := func(v uint8, s *Snapshot) {
		s.Level = v
		if s.Subtitle == "" {
			s.Subtitle = fmt.Sprintf("%d%%", v)
		}
	}
	b := newBinding(env, Snapshot{ID: id, Kind: KindSlider, Title: title}, src, present, parseLevel, cfg)

	if cfg.settings != nil {
		store, key := cfg.settings, cfg.key
		b.persist = func(v uint8) {
			if err := store.SetUint(key, uint(v)); err != nil {
				lg.Warn("could not persist", "key", key, "error", err)
			}
		}
		disconnect := store.Connect(key, func() {
			env.Post(func() {
				if b.destroyed {
					return
				}
				b.show(clampLevel(store.Uint(key)), false)
			})
		})
		b.cleanup = append(b.cleanup, disconnect)
	}
	b.start()
	return b
}

var brightnessLevels = []rogbus.AnimeBrightness{
	rogbus.BrightnessOff,
	rogbus.BrightnessLow,
	rogbus.BrightnessMed,
	rogbus.BrightnessHigh,
}

// NewBrightnessMenu picks the AniMe display brightness. Clicking it steps
// to the next level and wraps from High to Off.
func NewBrightnessMenu(env Env, id, title string, src mirror.Source[rogbus.AnimeBrightness], opts ...Option) *Binding[rogbus.AnimeBrightness] {
	cfg := buildConfig(opts)
	names := make([]string, len(brightnessLevels))
	for i, l := range brightnessLevels {
		names[i] = l.String()
	}
	present := func(v rogbus.AnimeBrightness, s *Snapshot) {
		s.Subtitle = v.String()
		s.Checked = v != rogbus.BrightnessOff && v != rogbus.BrightnessUnknown
		s.Options = names
	}
	b := newBinding(env, Snapshot{ID: id, Kind: KindMenu, Title: title}, src, present, parseBrightness, cfg)
	b.start()
	return b
}

func parseBrightness(value any, shown rogbus.AnimeBrightness) (rogbus.AnimeBrightness, bool) {
	switch v := value.(type) {
	case nil:
		i := slices.Index(brightnessLevels, shown)
		return brightnessLevels[(i+1)%len(brightnessLevels)], true
	case string:
		if b := rogbus.ParseAnimeBrightness(v); b != rogbus.BrightnessUnknown {
			return b, true
		}
	}
	return shown, false
}

func parseBool(value any, shown bool) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return !shown, true
	case bool:
		return v, true
	case string:
		if strings.EqualFold(v, "toggle") {
			return !shown, true
		}
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	if n, ok := number(value); ok {
		return n != 0, true
	}
	return shown, false
}

func parseLevel(value any, shown uint8) (uint8, bool) {
	if s, ok := value.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return shown, false
		}
		value = n
	}
	n, ok := number(value)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return shown, false
	}
	switch {
	case n < 0:
		return 0, true
	case n > 100:
		return 100, true
	}
	return uint8(n), true
}

func clampLevel(n uint) uint8 {
	return uint8(min(n, 100))
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Invert shows the opposite of what the daemon reports. GPU MUX reports
// true for hybrid mode while the control reads "dGPU only".
func Invert(src mirror.Source[bool]) mirror.Source[bool] {
	return inverted{src}
}

type inverted struct {
	src mirror.Source[bool]
}

func (i inverted) Cached() bool                          { return !i.src.Cached() }
func (i inverted) Get(ctx context.Context) bool          { return !i.src.Get(ctx) }
func (i inverted) Set(ctx context.Context, v bool) error { return i.src.Set(ctx, !v) }
func (i inverted) Subscribe(s fanout.Subscriber)         { i.src.Subscribe(s) }
func (i inverted) Unsubscribe(s fanout.Subscriber)       { i.src.Unsubscribe(s) }
func (i inverted) Confirmed() bool                       { return confirmed(i.src) }

// confirmed reports whether src has heard from the daemon. Sources that
// cannot tell are taken at their word.
func confirmed(src any) bool {
	if c, ok := src.(interface{ Confirmed() bool }); ok {
		return c.Confirmed()
	}
	return true
}
