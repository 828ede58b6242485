package widget

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trbjo/rogquick/rogbus"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func TestToggle_InitialRenderAndIdempotentSync(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(true)

	var tg *Binding[bool]
	h.on(func() { tg = NewToggle(h.env, "mini-led", "Mini-LED", src) })

	snap, ok := h.surface.get("mini-led")
	require.True(t, ok)
	assert.Equal(t, KindToggle, snap.Kind)
	assert.True(t, snap.Checked)
	assert.True(t, snap.Visible)

	puts := h.surface.putCount()
	h.on(func() {
		tg.Sync()
		tg.Sync()
	})
	assert.Equal(t, puts, h.surface.putCount())
	assert.Empty(t, src.setCalls())
	assert.Equal(t, Idle, tg.State())
}

func TestToggle_ActivateWritesOnceAndCompletes(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(true)
	var done atomic.Int32

	var tg *Binding[bool]
	h.on(func() {
		tg = NewToggle(h.env, "mini-led", "Mini-LED", src, WithCompletion(func() { done.Add(1) }))
	})

	h.on(func() {
		tg.Activate(false)
		assert.Equal(t, Pending, tg.State())
		assert.False(t, tg.Displayed())
		snap, _ := h.surface.get("mini-led")
		assert.True(t, snap.Pending)
	})

	assert.Eventually(t, func() bool { return done.Load() == 1 }, waitFor, tick)
	h.settle()

	assert.Equal(t, []bool{false}, src.setCalls())
	assert.Equal(t, Idle, tg.State())
	assert.False(t, tg.Displayed())
	snap, _ := h.surface.get("mini-led")
	assert.False(t, snap.Pending)
}

func TestToggle_ActivateSkipsWriteWhenLiveMatches(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(false)
	src.live = true
	var done atomic.Int32

	var tg *Binding[bool]
	h.on(func() {
		tg = NewToggle(h.env, "panel-od", "Panel Overdrive", src, WithCompletion(func() { done.Add(1) }))
	})
	h.on(func() { tg.Activate(true) })

	assert.Eventually(t, func() bool { return done.Load() == 1 }, waitFor, tick)
	h.settle()
	assert.Empty(t, src.setCalls())
	assert.True(t, tg.Displayed())
}

func TestToggle_ActivateNilToggles(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(false)

	var tg *Binding[bool]
	h.on(func() { tg = NewToggle(h.env, "post-sound", "POST Sound", src) })
	h.on(func() { tg.Activate(nil) })

	assert.Eventually(t, func() bool { return len(src.setCalls()) == 1 }, waitFor, tick)
	assert.Equal(t, []bool{true}, src.setCalls())

	h.on(func() { tg.Activate(struct{}{}) })
	h.settle()
	assert.Len(t, src.setCalls(), 1)
}

func TestToggle_PushUpdatesWithoutWriting(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(true)

	h.on(func() { NewToggle(h.env, "mini-led", "Mini-LED", src) })
	h.on(func() { src.push(false) })

	snap, _ := h.surface.get("mini-led")
	assert.False(t, snap.Checked)
	assert.Empty(t, src.setCalls())
	assert.Zero(t, src.gets)
}

func TestToggle_DestroyDropsLateCompletion(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(true)
	src.block = make(chan struct{})
	var done atomic.Int32

	var tg *Binding[bool]
	h.on(func() {
		tg = NewToggle(h.env, "mini-led", "Mini-LED", src, WithCompletion(func() { done.Add(1) }))
	})
	h.on(func() {
		tg.Activate(false)
		tg.Destroy()
	})
	close(src.block)

	assert.Eventually(t, func() bool { return len(src.setCalls()) == 1 }, waitFor, tick)
	h.settle()

	assert.Zero(t, done.Load())
	assert.Zero(t, src.subs.Len())
	_, ok := h.surface.get("mini-led")
	assert.False(t, ok)
	assert.Contains(t, h.surface.removed, "mini-led")
}

func TestToggle_PersistsConfirmedValues(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(true)
	store := newMemSettings(nil)

	var tg *Binding[bool]
	h.on(func() {
		tg = NewToggle(h.env, "mini-led", "Mini-LED", src, WithSetting(store, "mini-led-enabled"))
	})
	assert.True(t, store.Bool("mini-led-enabled"))

	h.on(func() { tg.Activate(false) })
	assert.Eventually(t, func() bool { return !store.Bool("mini-led-enabled") }, waitFor, tick)

	h.on(func() { src.push(true) })
	assert.True(t, store.Bool("mini-led-enabled"))
	assert.Equal(t, 3, store.writeCount())
}

func TestToggle_UnconfirmedCacheKeepsStoredSetting(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(false)
	src.unconfirmed = true
	store := newMemSettings(map[string]any{"mini-led-enabled": true})

	h.on(func() {
		NewToggle(h.env, "mini-led", "Mini-LED", src, WithSetting(store, "mini-led-enabled"))
	})
	assert.True(t, store.Bool("mini-led-enabled"))
	assert.Zero(t, store.writeCount())

	// the first confirmed value is stored even when it matches the cache
	h.on(func() { src.push(false) })
	assert.False(t, store.Bool("mini-led-enabled"))
	assert.Equal(t, 1, store.writeCount())
}

func TestInvert(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(true)

	var tg *Binding[bool]
	h.on(func() { tg = NewToggle(h.env, "gpu-mux", "dGPU only", Invert(src)) })
	assert.False(t, tg.Displayed())

	h.on(func() { tg.Activate(true) })
	assert.Eventually(t, func() bool { return len(src.setCalls()) == 1 }, waitFor, tick)
	assert.Equal(t, []bool{false}, src.setCalls())
}

func TestSlider(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(uint8(80))
	store := newMemSettings(map[string]any{"charge-level": uint(80)})

	var sl *Binding[uint8]
	h.on(func() {
		sl = NewSlider(h.env, "charge", "Charge limit", src, WithSetting(store, "charge-level"))
	})
	snap, _ := h.surface.get("charge")
	assert.Equal(t, uint8(80), snap.Level)
	assert.Equal(t, "80%", snap.Subtitle)

	h.on(func() { sl.Activate(150) })
	assert.Eventually(t, func() bool { return len(src.setCalls()) == 1 }, waitFor, tick)
	assert.Equal(t, []uint8{100}, src.setCalls())
	assert.Eventually(t, func() bool { return store.Uint("charge-level") == 100 }, waitFor, tick)

	h.on(func() { sl.Activate("42%") })
	assert.Eventually(t, func() bool { return len(src.setCalls()) == 2 }, waitFor, tick)
	assert.Equal(t, uint8(42), src.setCalls()[1])

	// an external settings edit moves the slider but never writes through
	require.NoError(t, store.SetUint("charge-level", 10))
	h.settle()
	snap, _ = h.surface.get("charge")
	assert.Equal(t, uint8(10), snap.Level)
	assert.Len(t, src.setCalls(), 2)

	h.on(func() { sl.Destroy() })
	require.NoError(t, store.SetUint("charge-level", 20))
	h.settle()
	_, ok := h.surface.get("charge")
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want uint8
		ok   bool
	}{
		{50, 50, true},
		{-3, 0, true},
		{int64(300), 100, true},
		{uint8(7), 7, true},
		{55.9, 55, true},
		{"60", 60, true},
		{"60%", 60, true},
		{"high", 9, false},
		{"NaN", 9, false},
		{"-Inf", 9, false},
		{math.Inf(1), 9, false},
		{nil, 9, false},
	} {
		got, ok := parseLevel(tc.in, 9)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestBrightnessMenu(t *testing.T) {
	h := newHarness(t)
	src := newFakeSource(rogbus.BrightnessHigh)

	var m *Binding[rogbus.AnimeBrightness]
	h.on(func() { m = NewBrightnessMenu(h.env, "anime-brightness", "AniMe Brightness", src) })
	snap, ok := h.surface.get("anime-brightness")
	require.True(t, ok)
	assert.Equal(t, KindMenu, snap.Kind)
	assert.Equal(t, "High", snap.Subtitle)
	assert.True(t, snap.Checked)
	assert.Equal(t, []string{"Off", "Low", "Med", "High"}, snap.Options)

	h.on(func() { m.Activate(nil) })
	assert.Eventually(t, func() bool { return len(src.setCalls()) == 1 }, waitFor, tick)
	h.settle()
	assert.Equal(t, rogbus.BrightnessOff, src.setCalls()[0])
	snap, _ = h.surface.get("anime-brightness")
	assert.False(t, snap.Checked)

	h.on(func() { m.Activate("Bright") })
	h.on(func() { m.Activate("Low") })
	assert.Eventually(t, func() bool { return len(src.setCalls()) == 2 }, waitFor, tick)
	assert.Equal(t, rogbus.BrightnessLow, src.setCalls()[1])
}

func TestParseBrightness(t *testing.T) {
	for _, tc := range []struct {
		in    any
		shown rogbus.AnimeBrightness
		want  rogbus.AnimeBrightness
		ok    bool
	}{
		{nil, rogbus.BrightnessOff, rogbus.BrightnessLow, true},
		{nil, rogbus.BrightnessHigh, rogbus.BrightnessOff, true},
		{nil, rogbus.BrightnessUnknown, rogbus.BrightnessOff, true},
		{"Med", rogbus.BrightnessOff, rogbus.BrightnessMed, true},
		{"Unknown", rogbus.BrightnessLow, rogbus.BrightnessLow, false},
		{true, rogbus.BrightnessLow, rogbus.BrightnessLow, false},
	} {
		got, ok := parseBrightness(tc.in, tc.shown)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}
