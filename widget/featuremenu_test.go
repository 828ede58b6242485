package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trbjo/rogquick/settings"
)

func supportedSet(keys ...string) func(string) bool {
	set := map[string]bool{}
	for _, k := range keys {
		set[k] = true
	}
	return func(k string) bool { return set[k] }
}

func TestResolveSelection(t *testing.T) {
	for _, tc := range []struct {
		name      string
		current   string
		supported []string
		want      string
	}{
		{"kept when supported", FeaturePanelOd, []string{FeatureMiniLed, FeaturePanelOd}, FeaturePanelOd},
		{"mini-led moves to panel-od", FeatureMiniLed, []string{FeaturePanelOd, FeatureAnimePower}, FeaturePanelOd},
		{"mini-led skips to anime-power", FeatureMiniLed, []string{FeatureAnimePower}, FeatureAnimePower},
		{"panel-od moves to anime-power", FeaturePanelOd, []string{FeatureMiniLed, FeatureAnimePower}, FeatureAnimePower},
		{"anime-power wraps to mini-led", FeatureAnimePower, []string{FeatureMiniLed, FeaturePanelOd}, FeatureMiniLed},
		{"builtins falls back to mini-led", FeatureAnimeBuiltins, []string{FeatureMiniLed, FeaturePanelOd}, FeatureMiniLed},
		{"builtins kept when supported", FeatureAnimeBuiltins, []string{FeatureAnimeBuiltins, FeatureMiniLed}, FeatureAnimeBuiltins},
		{"empty starts at mini-led", "", []string{FeatureMiniLed, FeaturePanelOd}, FeatureMiniLed},
		{"unknown starts at mini-led", "fan-curve", []string{FeaturePanelOd}, FeaturePanelOd},
		{"only builtins", FeatureMiniLed, []string{FeatureAnimeBuiltins}, FeatureAnimeBuiltins},
		{"nothing supported", FeatureMiniLed, nil, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveSelection(tc.current, supportedSet(tc.supported...))
			assert.Equal(t, tc.want, got)
			// same input, same answer
			assert.Equal(t, got, ResolveSelection(tc.current, supportedSet(tc.supported...)))
		})
	}
}

type featureFixture struct {
	h        *harness
	store    *memSettings
	miniLed  *fakeSource[bool]
	panelOd  *fakeSource[bool]
	anime    *fakeSource[bool]
	features []Feature
}

func newFeatureFixture(t *testing.T, primary string) *featureFixture {
	f := &featureFixture{
		h:       newHarness(t),
		store:   newMemSettings(map[string]any{settings.KeyPrimary: primary}),
		miniLed: newFakeSource(false),
		panelOd: newFakeSource(true),
		anime:   newFakeSource(false),
	}
	f.features = []Feature{
		{Key: FeatureMiniLed, Title: "Mini-LED", Source: f.miniLed, Setting: settings.KeyMiniLed},
		{Key: FeaturePanelOd, Title: "Panel Overdrive", Source: f.panelOd, Setting: settings.KeyPanelOd},
		{Key: FeatureAnimePower, Title: "AniMe Matrix", Source: f.anime, Setting: settings.KeyAnimePower},
	}
	return f
}

func (f *featureFixture) build(supported ...string) *FeatureMenu {
	var fm *FeatureMenu
	f.h.on(func() { fm = NewFeatureMenu(f.h.env, f.store, f.features, supportedSet(supported...)) })
	return fm
}

func TestFeatureMenu_RemapsUnsupportedSelection(t *testing.T) {
	f := newFeatureFixture(t, FeatureMiniLed)
	fm := f.build(FeaturePanelOd, FeatureAnimePower)
	require.NotNil(t, fm)

	assert.Equal(t, FeaturePanelOd, fm.Selected())
	assert.Equal(t, FeaturePanelOd, f.store.String(settings.KeyPrimary))

	snap, ok := f.h.surface.get(FeatureMenuID)
	require.True(t, ok)
	assert.Equal(t, "Panel Overdrive", snap.Title)
	assert.True(t, snap.Checked)
	assert.Equal(t, []string{FeaturePanelOd, FeatureAnimePower}, snap.Options)

	_, built := f.h.surface.get(FeatureMiniLed)
	assert.False(t, built, "unsupported features get no item")
}

func TestFeatureMenu_RemapSkipsTwo(t *testing.T) {
	f := newFeatureFixture(t, FeatureMiniLed)
	fm := f.build(FeatureAnimePower)
	require.NotNil(t, fm)
	assert.Equal(t, FeatureAnimePower, fm.Selected())
}

func TestFeatureMenu_NothingSupported(t *testing.T) {
	f := newFeatureFixture(t, FeatureMiniLed)
	assert.Nil(t, f.build())
	assert.Equal(t, FeatureMiniLed, f.store.String(settings.KeyPrimary))
}

func TestFeatureMenu_ActivateTargetsSelectionOnly(t *testing.T) {
	f := newFeatureFixture(t, FeatureMiniLed)
	fm := f.build(FeatureMiniLed, FeaturePanelOd, FeatureAnimePower)
	require.Equal(t, FeatureMiniLed, fm.Selected())

	f.h.on(func() { fm.Activate(true) })
	assert.Eventually(t, func() bool { return len(f.miniLed.setCalls()) == 1 }, waitFor, tick)
	f.h.settle()

	assert.Equal(t, []bool{true}, f.miniLed.setCalls())
	assert.Empty(t, f.panelOd.setCalls())
	assert.Empty(t, f.anime.setCalls())

	snap, _ := f.h.surface.get(FeatureMenuID)
	assert.True(t, snap.Checked)
	assert.Equal(t, FeatureMiniLed, fm.Selected())
}

func TestFeatureMenu_SyncFollowsSelectedSource(t *testing.T) {
	f := newFeatureFixture(t, FeatureMiniLed)
	fm := f.build(FeatureMiniLed, FeaturePanelOd)
	require.NotNil(t, fm)

	f.h.on(func() { f.panelOd.push(false) })
	snap, _ := f.h.surface.get(FeatureMenuID)
	assert.False(t, snap.Checked)
	assert.Equal(t, "Mini-LED", snap.Title)

	f.h.on(func() { f.miniLed.push(true) })
	snap, _ = f.h.surface.get(FeatureMenuID)
	assert.True(t, snap.Checked)
}

func TestFeatureMenu_ItemActivationSelectsIt(t *testing.T) {
	f := newFeatureFixture(t, FeatureMiniLed)
	fm := f.build(FeatureMiniLed, FeatureAnimePower)
	require.NotNil(t, fm)

	var anime Control
	for _, item := range fm.Items() {
		if item.ID() == FeatureAnimePower {
			anime = item
		}
	}
	require.NotNil(t, anime)

	f.h.on(func() { anime.Activate(true) })
	assert.Eventually(t, func() bool {
		return f.store.String(settings.KeyPrimary) == FeatureAnimePower
	}, waitFor, tick)
	f.h.settle()

	assert.Equal(t, FeatureAnimePower, fm.Selected())
	assert.True(t, f.store.Bool(settings.KeyAnimePower))
	snap, _ := f.h.surface.get(FeatureMenuID)
	assert.Equal(t, "AniMe Matrix", snap.Title)
	assert.True(t, snap.Checked)
}

func TestFeatureMenu_Destroy(t *testing.T) {
	f := newFeatureFixture(t, FeatureMiniLed)
	fm := f.build(FeatureMiniLed, FeaturePanelOd)
	require.NotNil(t, fm)

	f.h.on(fm.Destroy)
	assert.Zero(t, f.miniLed.subs.Len())
	assert.Zero(t, f.panelOd.subs.Len())
	assert.Equal(t, []string{FeaturePanelOd, FeatureMiniLed, FeatureMenuID}, f.h.surface.removed)

	f.h.on(func() { f.miniLed.push(true) })
	_, ok := f.h.surface.get(FeatureMenuID)
	assert.False(t, ok)
}
