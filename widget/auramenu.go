package widget

import (
	"strings"

	"github.com/trbjo/rogquick/mirror"
	"github.com/trbjo/rogquick/rogbus"
	"github.com/trbjo/rogquick/utilities"
)

const AuraMenuID = "aura"

// AuraMenu switches keyboard lighting. Clicking it flips between Static and
// the last other mode; picking a named mode applies that mode's stored
// effect.
type AuraMenu struct {
	env     Env
	src     mirror.Source[rogbus.AuraState]
	allowed []rogbus.AuraMode

	last      rogbus.AuraMode
	shown     *utilities.SafeState[rogbus.AuraMode]
	destroyed bool
}

// NewAuraMenu offers the modes in allowed that the daemon has effects for.
// An empty allowed list offers every mode with an effect.
func NewAuraMenu(env Env, src mirror.Source[rogbus.AuraState], allowed []rogbus.AuraMode) *AuraMenu {
	m := &AuraMenu{
		env:     env,
		src:     src,
		allowed: allowed,
		last:    rogbus.AuraModeUnknown,
		shown:   utilities.NewSafeState(rogbus.AuraModeUnknown),
	}
	src.Subscribe(m)
	m.Sync()
	return m
}

func (m *AuraMenu) ID() string { return AuraMenuID }

func (m *AuraMenu) Displayed() rogbus.AuraMode { return m.shown.Get() }

func (m *AuraMenu) Sync() {
	if m.destroyed {
		return
	}
	state := m.src.Cached()
	if state.Current != rogbus.AuraStatic && state.Current != rogbus.AuraModeUnknown {
		m.last = state.Current
	}
	m.show(state, state.Current, false)
}

func (m *AuraMenu) Activate(value any) {
	if m.destroyed {
		return
	}
	state := m.src.Cached()
	current := m.shown.Get()

	var target rogbus.AuraMode
	switch v := value.(type) {
	case string:
		if on, err := parseToggleWord(v, lit(current)); err == nil {
			target = m.toggleTarget(state, on)
			break
		}
		target = rogbus.ParseAuraMode(v)
		if !m.offered(state, target) {
			lg.Debug("aura mode not offered", "mode", v)
			return
		}
	default:
		on, ok := parseBool(value, lit(current))
		if !ok {
			return
		}
		target = m.toggleTarget(state, on)
	}

	m.show(state, target, true)

	src, env := m.src, m.env
	go func() {
		ctx, cancel := env.callContext()
		defer cancel()
		live := src.Get(ctx)
		if live.Current != target {
			next := rogbus.AuraState{Current: target, Modes: live.Modes}
			if err := src.Set(ctx, next); err != nil {
				lg.Warn("could not set aura mode", "mode", target, "error", err)
			}
		}
		env.Post(func() {
			if m.destroyed {
				return
			}
			m.Sync()
		})
	}()
}

func (m *AuraMenu) toggleTarget(state rogbus.AuraState, on bool) rogbus.AuraMode {
	if !on {
		return rogbus.AuraStatic
	}
	if m.last != rogbus.AuraModeUnknown {
		return m.last
	}
	for _, mode := range m.options(state) {
		if mode != rogbus.AuraStatic {
			return mode
		}
	}
	return rogbus.AuraBreathe
}

func (m *AuraMenu) offered(state rogbus.AuraState, mode rogbus.AuraMode) bool {
	for _, o := range m.options(state) {
		if o == mode {
			return true
		}
	}
	return false
}

func (m *AuraMenu) options(state rogbus.AuraState) []rogbus.AuraMode {
	available := state.Available()
	if len(m.allowed) == 0 {
		return available
	}
	out := make([]rogbus.AuraMode, 0, len(available))
	for _, mode := range available {
		for _, a := range m.allowed {
			if a == mode {
				out = append(out, mode)
				break
			}
		}
	}
	return out
}

func (m *AuraMenu) show(state rogbus.AuraState, mode rogbus.AuraMode, pending bool) {
	m.shown.Set(mode)
	opts := m.options(state)
	names := make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.String()
	}
	m.env.Surface.Put(Snapshot{
		ID:       AuraMenuID,
		Kind:     KindMenu,
		Title:    "Keyboard",
		Subtitle: mode.String(),
		Checked:  lit(mode),
		Options:  names,
		Visible:  true,
		Pending:  pending,
	})
}

func (m *AuraMenu) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.src.Unsubscribe(m)
	m.env.Surface.Remove(AuraMenuID)
}

func lit(mode rogbus.AuraMode) bool {
	return mode != rogbus.AuraStatic && mode != rogbus.AuraModeUnknown
}

// parseToggleWord reads the on/off words. "toggle" flips on.
func parseToggleWord(s string, on bool) (bool, error) {
	switch strings.ToLower(s) {
	case "toggle":
		return !on, nil
	case "on", "true":
		return true, nil
	case "off", "false":
		return false, nil
	}
	return false, errNotToggle
}
