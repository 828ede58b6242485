package rogbus

// Platform is the /org/asuslinux/Platform object: firmware toggles.
type Platform struct {
	*Channel
	MiniLed   *Property[bool]
	PanelOd   *Property[bool]
	GpuMux    *Property[bool]
	PostSound *Property[bool]
}

func NewPlatform(opts ...Option) *Platform {
	ch := NewChannel(SchemaPlatform, "/org/asuslinux/Platform", opts...)
	return &Platform{
		Channel:   ch,
		MiniLed:   boolProperty(PropMiniLed, ch, "MiniLedMode", "SetMiniLedMode", "NotifyMiniLedMode"),
		PanelOd:   boolProperty(PropPanelOd, ch, "PanelOd", "SetPanelOd", "NotifyPanelOd"),
		GpuMux:    boolProperty(PropGpuMux, ch, "GpuMuxMode", "SetGpuMuxMode", "NotifyGpuMuxMode"),
		PostSound: boolProperty(PropPostSound, ch, "PostBootSound", "SetPostBootSound", "NotifyPostBootSound"),
	}
}
