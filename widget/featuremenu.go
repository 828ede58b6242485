package widget

import (
	"slices"

	"github.com/trbjo/rogquick/mirror"
	"github.com/trbjo/rogquick/settings"
)

const FeatureMenuID = "features"

const (
	FeatureMiniLed       = "mini-led"
	FeaturePanelOd       = "panel-od"
	FeatureAnimePower    = "anime-power"
	FeatureAnimeBuiltins = "anime-builtins"
)

// selectionCycle is the order an unsupported primary selection is moved
// along until a supported feature is found.
var selectionCycle = []string{FeatureMiniLed, FeaturePanelOd, FeatureAnimePower}

// ResolveSelection maps a stored primary selection to one that is
// supported. Unsupported members of the cycle move to their successor,
// anything else starts the scan at mini-led. Returns "" when nothing
// qualifies.
func ResolveSelection(current string, supported func(key string) bool) string {
	if current != "" && supported(current) {
		return current
	}
	start := slices.Index(selectionCycle, current)
	for i := 1; i <= len(selectionCycle); i++ {
		key := selectionCycle[(start+i)%len(selectionCycle)]
		if supported(key) {
			return key
		}
	}
	if supported(FeatureAnimeBuiltins) {
		return FeatureAnimeBuiltins
	}
	return ""
}

type Feature struct {
	Key     string
	Title   string
	Source  mirror.Source[bool]
	Setting string
}

// FeatureMenu is the primary quick toggle. It acts on one selected feature
// and lists the others as menu items; using an item makes it the selection.
type FeatureMenu struct {
	env      Env
	settings Settings
	items    []*Binding[bool]
	byKey    map[string]*Binding[bool]
	titles   map[string]string

	selected  string
	destroyed bool
}

// NewFeatureMenu builds items for the supported features, in order. It
// returns nil when none is supported.
func NewFeatureMenu(env Env, store Settings, features []Feature, supported func(key string) bool) *FeatureMenu {
	f := &FeatureMenu{
		env:      env,
		settings: store,
		byKey:    map[string]*Binding[bool]{},
		titles:   map[string]string{},
	}

	for _, feat := range features {
		if !supported(feat.Key) {
			continue
		}
		key := feat.Key
		opts := []Option{
			WithParent(FeatureMenuID),
			WithCompletion(func() { f.choose(key) }),
		}
		if feat.Setting != "" {
			opts = append(opts, WithSetting(store, feat.Setting))
		}
		item := NewMenuItem(env, key, feat.Title, feat.Source, opts...)
		f.items = append(f.items, item)
		f.byKey[key] = item
		f.titles[key] = feat.Title
	}
	if len(f.items) == 0 {
		return nil
	}

	stored := store.String(settings.KeyPrimary)
	f.selected = ResolveSelection(stored, func(key string) bool { return f.byKey[key] != nil })
	if f.selected != stored {
		lg.Info("primary toggle remapped", "from", stored, "to", f.selected)
		f.persist()
	}

	for _, item := range f.items {
		item.Source().Subscribe(f)
	}
	f.Sync()
	return f
}

func (f *FeatureMenu) ID() string { return FeatureMenuID }

func (f *FeatureMenu) Selected() string { return f.selected }

// Items returns the sub-controls so a surface can address them directly.
func (f *FeatureMenu) Items() []Control {
	out := make([]Control, len(f.items))
	for i, item := range f.items {
		out[i] = item
	}
	return out
}

// Activate forwards to the selected feature only.
func (f *FeatureMenu) Activate(value any) {
	if f.destroyed {
		return
	}
	sel := f.byKey[f.selected]
	if sel == nil {
		return
	}
	sel.Activate(value)
	f.show(sel.Displayed(), sel.State() == Pending)
}

func (f *FeatureMenu) Sync() {
	if f.destroyed {
		return
	}
	sel := f.byKey[f.selected]
	if sel == nil {
		return
	}
	f.show(sel.Source().Cached(), false)
}

func (f *FeatureMenu) choose(key string) {
	if f.destroyed {
		return
	}
	if key != f.selected {
		f.selected = key
		f.persist()
	}
	f.Sync()
}

func (f *FeatureMenu) persist() {
	if err := f.settings.SetString(settings.KeyPrimary, f.selected); err != nil {
		lg.Warn("could not persist primary toggle", "error", err)
	}
}

func (f *FeatureMenu) show(checked, pending bool) {
	keys := make([]string, len(f.items))
	for i, item := range f.items {
		keys[i] = item.ID()
	}
	f.env.Surface.Put(Snapshot{
		ID:       FeatureMenuID,
		Kind:     KindMenu,
		Title:    f.titles[f.selected],
		Subtitle: f.selected,
		Checked:  checked,
		Options:  keys,
		Visible:  true,
		Pending:  pending,
	})
}

func (f *FeatureMenu) Destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true
	for _, item := range f.items {
		item.Source().Unsubscribe(f)
	}
	for i := len(f.items) - 1; i >= 0; i-- {
		f.items[i].Destroy()
	}
	f.env.Surface.Remove(FeatureMenuID)
}
