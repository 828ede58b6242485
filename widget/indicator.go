package widget

// Indicator is a passive panel icon shown while a settings key is true.
type Indicator struct {
	env        Env
	id         string
	title      string
	settings   Settings
	key        string
	disconnect func()
	destroyed  bool
}

func NewIndicator(env Env, id, title string, settings Settings, key string) *Indicator {
	ind := &Indicator{env: env, id: id, title: title, settings: settings, key: key}
	ind.disconnect = settings.Connect(key, func() { env.Post(ind.Sync) })
	ind.Sync()
	return ind
}

func (i *Indicator) ID() string { return i.id }

func (i *Indicator) Activate(any) {}

func (i *Indicator) Visible() bool { return i.settings.Bool(i.key) }

func (i *Indicator) Sync() {
	if i.destroyed {
		return
	}
	on := i.settings.Bool(i.key)
	i.env.Surface.Put(Snapshot{
		ID:      i.id,
		Kind:    KindIndicator,
		Title:   i.title,
		Checked: on,
		Visible: on,
	})
}

func (i *Indicator) Destroy() {
	if i.destroyed {
		return
	}
	i.destroyed = true
	i.disconnect()
	i.env.Surface.Remove(i.id)
}
