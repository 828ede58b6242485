package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/trbjo/rogquick/eventloop"
	"github.com/trbjo/rogquick/mirror"
	"github.com/trbjo/rogquick/rogbus"
	"github.com/trbjo/rogquick/settings"
	"github.com/trbjo/rogquick/widget"
)

// Extension owns every channel, mirror and control of one enabled session.
// Enable and Disable may be called any number of times; nothing is built
// twice and a Disable tears down everything the last Enable built.
type Extension struct {
	cfg      *Config
	loop     *eventloop.Loop
	settings widget.Settings
	surface  widget.Surface
	dial     rogbus.Dialer

	mu       sync.Mutex
	enabled  bool
	ctx      context.Context
	cancel   context.CancelFunc
	channels []*rogbus.Channel
	mirrors  []mirrorHandle
	caps     rogbus.Capabilities
	device   rogbus.AuraDevice

	supported *rogbus.Supported
	platform  *rogbus.Platform
	power     *rogbus.Power
	aura      *rogbus.Aura
	anime     *rogbus.Anime

	miniLed    *mirror.Mirror[bool]
	panelOd    *mirror.Mirror[bool]
	gpuMux     *mirror.Mirror[bool]
	postSound  *mirror.Mirror[bool]
	charge     *mirror.Mirror[uint8]
	mains      *mirror.Mirror[bool]
	auraState  *mirror.Mirror[rogbus.AuraState]
	ledPower   *mirror.Mirror[rogbus.PowerStates]
	animeState *mirror.Mirror[rogbus.DeviceState]

	// loop only
	controls []widget.Control
	byID     map[string]widget.Control
}

type mirrorHandle struct {
	name    string
	live    bool
	attach  func(context.Context)
	detach  func()
	refresh func(context.Context)
}

func NewExtension(cfg *Config, loop *eventloop.Loop, store widget.Settings, surface widget.Surface, dial rogbus.Dialer) *Extension {
	return &Extension{
		cfg:      cfg,
		loop:     loop,
		settings: store,
		surface:  surface,
		dial:     dial,
	}
}

func (e *Extension) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *Extension) Capabilities() rogbus.Capabilities {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caps
}

// Enable connects to the daemon and builds the controls it can drive. It
// blocks on remote calls, so it must not run on the event loop.
func (e *Extension) Enable(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled {
		lg.Debug("extension already enabled")
		return nil
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.startChannels(ctx)

	caps, err := e.supported.Functions(ctx)
	if err != nil {
		lg.Warn("capability discovery failed, nothing will be shown", "error", err)
	}
	e.caps = caps
	lg.Info("capabilities", "anime", caps.AnimeCtrl, "charge", caps.ChargeLevelSet,
		"mini_led", caps.Bios.MiniLedMode, "panel_od", caps.Bios.PanelOverdrive,
		"gpu_mux", caps.Bios.GpuMux, "post_sound", caps.Bios.PostSound, "aura_modes", len(caps.Led.Modes))

	if e.auraSupported() {
		if e.device, err = e.aura.DeviceType(ctx); err != nil {
			lg.Warn("could not read aura device type", "error", err)
		}
	}

	e.buildMirrors()
	for _, m := range e.mirrors {
		if m.live {
			m.attach(ctx)
		}
	}

	if err := e.loop.Call(ctx, e.buildControls); err != nil {
		e.teardown()
		return fmt.Errorf("failed to build controls: %w", err)
	}
	e.enabled = true
	lg.Info("extension enabled", "layout", e.cfg.LayoutKind(), "controls", len(e.controls))
	return nil
}

// Disable destroys the controls in reverse construction order, then
// releases mirrors and channels.
func (e *Extension) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return
	}
	e.enabled = false
	e.teardown()
	lg.Info("extension disabled")
}

func (e *Extension) teardown() {
	if err := e.loop.Call(context.Background(), e.destroyControls); err != nil {
		// the loop is gone, nothing else can touch the controls
		e.destroyControls()
	}
	if e.cancel != nil {
		e.cancel()
	}
	for i := len(e.mirrors) - 1; i >= 0; i-- {
		e.mirrors[i].detach()
	}
	for i := len(e.channels) - 1; i >= 0; i-- {
		e.channels[i].Stop()
	}
	e.mirrors = nil
	e.channels = nil
	e.caps = rogbus.Capabilities{}
	e.device = rogbus.AuraDeviceUnknown
}

// Activate routes a user action to a control on the loop. It returns false
// once the loop has stopped.
func (e *Extension) Activate(id string, value any) bool {
	return e.loop.Post(func() {
		c, ok := e.byID[id]
		if !ok {
			lg.Debug("activate for unknown control", "id", id)
			return
		}
		c.Activate(value)
	})
}

// Refresh re-reads every live mirror. Pushes sent while the machine slept
// are lost, so this runs after resume.
func (e *Extension) Refresh(ctx context.Context) {
	e.mu.Lock()
	mirrors := e.mirrors
	enabled := e.enabled
	e.mu.Unlock()
	if !enabled {
		return
	}
	lg.Debug("refreshing mirrors", "count", len(mirrors))
	for _, m := range mirrors {
		if m.live {
			m.refresh(ctx)
		}
	}
}

func (e *Extension) startChannels(ctx context.Context) {
	opts := channelOptions(e.cfg, e.dial, e.loop.Post)
	e.supported = rogbus.NewSupported(opts...)
	e.platform = rogbus.NewPlatform(opts...)
	e.power = rogbus.NewPower(opts...)
	e.aura = rogbus.NewAura(opts...)
	e.anime = rogbus.NewAnime(opts...)
	e.channels = []*rogbus.Channel{
		e.supported.Channel,
		e.platform.Channel,
		e.power.Channel,
		e.aura.Channel,
		e.anime.Channel,
	}
	for _, ch := range e.channels {
		// a failed channel stays disconnected and every call on it is a no-op
		_ = ch.Start(ctx)
	}
}

func track[T any](e *Extension, m *mirror.Mirror[T], live bool) *mirror.Mirror[T] {
	e.mirrors = append(e.mirrors, mirrorHandle{
		name:    m.Name(),
		live:    live,
		attach:  m.Attach,
		detach:  m.Detach,
		refresh: func(ctx context.Context) { m.Get(ctx) },
	})
	return m
}

func (e *Extension) buildMirrors() {
	post := mirror.WithPoster(e.loop.Post)
	bios := e.caps.Bios

	e.miniLed = track(e, mirror.New("MiniLed", e.platform.MiniLed, false, post), bios.MiniLedMode)
	e.panelOd = track(e, mirror.New("PanelOd", e.platform.PanelOd, false, post), bios.PanelOverdrive)
	e.gpuMux = track(e, mirror.New("GpuMux", e.platform.GpuMux, false, post), bios.GpuMux)
	e.postSound = track(e, mirror.New("PostSound", e.platform.PostSound, false, post), bios.PostSound)
	e.charge = track(e, mirror.New[uint8]("ChargeLimit", e.power.ChargeLimit, 100, post), e.caps.ChargeLevelSet)
	e.mains = track(e, mirror.New("MainsOnline", e.power.MainsOnline, true, post), e.power.IsConnected())
	e.auraState = track(e, mirror.NewFunc("Aura", e.aura.State, rogbus.AuraState{}, rogbus.AuraState.Equal, post), e.auraSupported())
	e.ledPower = track(e, mirror.NewFunc("LedPower", e.aura.Power, rogbus.PowerStates{}, rogbus.PowerStates.Equal, post), e.auraSupported())
	e.animeState = track(e, mirror.New("AnimeState", e.anime.State, rogbus.DeviceState{}, post), e.caps.AnimeCtrl)
}

func (e *Extension) auraSupported() bool {
	return len(e.caps.Led.Modes) > 0
}

func (e *Extension) featureSupported(key string) bool {
	switch key {
	case widget.FeatureMiniLed:
		return e.caps.Bios.MiniLedMode
	case widget.FeaturePanelOd:
		return e.caps.Bios.PanelOverdrive
	case widget.FeatureAnimePower, widget.FeatureAnimeBuiltins:
		return e.caps.AnimeCtrl
	}
	return false
}

func (e *Extension) features() []widget.Feature {
	animePower := mirror.NewField(e.animeState,
		func(s rogbus.DeviceState) bool { return s.DisplayEnabled },
		func(s rogbus.DeviceState, on bool) rogbus.DeviceState { s.DisplayEnabled = on; return s },
		e.anime.SetEnableDisplay)
	animeBuiltins := mirror.NewField(e.animeState,
		func(s rogbus.DeviceState) bool { return s.BuiltinAnimsEnabled },
		func(s rogbus.DeviceState, on bool) rogbus.DeviceState { s.BuiltinAnimsEnabled = on; return s },
		e.anime.SetBuiltinsEnabled)

	return []widget.Feature{
		{Key: widget.FeatureMiniLed, Title: "Mini-LED", Source: e.miniLed, Setting: settings.KeyMiniLed},
		{Key: widget.FeaturePanelOd, Title: "Panel Overdrive", Source: e.panelOd, Setting: settings.KeyPanelOd},
		{Key: widget.FeatureAnimePower, Title: "AniMe Matrix", Source: animePower, Setting: settings.KeyAnimePower},
		{Key: widget.FeatureAnimeBuiltins, Title: "AniMe Animations", Source: animeBuiltins, Setting: settings.KeyAnimeBuiltins},
	}
}

// buildControls runs on the loop.
func (e *Extension) buildControls() {
	env := widget.Env{
		Surface: e.surface,
		Post:    e.loop.Post,
		Ctx:     e.ctx,
		Timeout: e.cfg.CallTimeout,
	}
	e.controls = nil
	e.byID = map[string]widget.Control{}
	add := func(c widget.Control) {
		e.controls = append(e.controls, c)
		e.byID[c.ID()] = c
	}

	switch e.cfg.LayoutKind() {
	case LayoutIndividual:
		for _, f := range e.features() {
			if !e.featureSupported(f.Key) {
				continue
			}
			add(widget.NewToggle(env, f.Key, f.Title, f.Source, widget.WithSetting(e.settings, f.Setting)))
		}
	default:
		if menu := widget.NewFeatureMenu(env, e.settings, e.features(), e.featureSupported); menu != nil {
			add(menu)
			for _, item := range menu.Items() {
				e.byID[item.ID()] = item
			}
		}
	}

	if e.caps.ChargeLevelSet {
		add(widget.NewSlider(env, idChargeLimit, "Charge Limit", e.charge,
			widget.WithSetting(e.settings, settings.KeyChargeLevel)))
	}
	if e.auraSupported() {
		add(widget.NewAuraMenu(env, e.auraState, e.caps.Led.Modes))
	}
	if e.caps.Bios.GpuMux {
		// the daemon reports true for hybrid mode
		add(widget.NewToggle(env, idGpuMux, "dGPU only", widget.Invert(e.gpuMux),
			widget.WithSubtitle("applies after reboot")))
	}
	if e.caps.Bios.PostSound {
		add(widget.NewToggle(env, idPostSound, "POST Sound", e.postSound))
	}
	if e.caps.AnimeCtrl {
		brightness := mirror.NewField(e.animeState,
			func(s rogbus.DeviceState) rogbus.AnimeBrightness { return s.DisplayBrightness },
			func(s rogbus.DeviceState, b rogbus.AnimeBrightness) rogbus.DeviceState { s.DisplayBrightness = b; return s },
			e.anime.SetBrightness)
		add(widget.NewBrightnessMenu(env, idBrightness, "AniMe Brightness", brightness))
	}
	if e.caps.Bios.MiniLedMode {
		add(widget.NewIndicator(env, idMiniLedIcon, "Mini-LED", e.settings, settings.KeyMiniLed))
	}
}

// destroyControls runs on the loop, or inline once the loop has stopped.
func (e *Extension) destroyControls() {
	for i := len(e.controls) - 1; i >= 0; i-- {
		e.controls[i].Destroy()
	}
	e.controls = nil
	e.byID = nil
}

// Status is a point-in-time reading of the mirrors for reporting.
type Status struct {
	Capabilities rogbus.Capabilities
	AuraDevice   rogbus.AuraDevice
	MainsKnown   bool
	MainsOnline  bool
	Aura         rogbus.AuraState
	LedPower     rogbus.PowerStates
	Anime        rogbus.DeviceState
}

var errNotEnabled = errors.New("extension not enabled")

func (e *Extension) Status() (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return Status{}, errNotEnabled
	}
	return Status{
		Capabilities: e.caps,
		AuraDevice:   e.device,
		MainsKnown:   e.power.IsConnected(),
		MainsOnline:  e.mains.Cached(),
		Aura:         e.auraState.Cached(),
		LedPower:     e.ledPower.Cached(),
		Anime:        e.animeState.Cached(),
	}, nil
}

// surfaces draws on every member.
type surfaces []widget.Surface

func (s surfaces) Put(snap widget.Snapshot) {
	for _, surface := range s {
		surface.Put(snap)
	}
}

func (s surfaces) Remove(id string) {
	for _, surface := range s {
		surface.Remove(id)
	}
}
