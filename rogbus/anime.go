package rogbus

import (
	"context"
)

// Anime is the /org/asuslinux/Anime matrix display object. Its state is one
// aggregate; individual fields are written with dedicated setters.
type Anime struct {
	*Channel
	State *Property[DeviceState]
}

func NewAnime(opts ...Option) *Anime {
	ch := NewChannel(SchemaAnime, "/org/asuslinux/Anime", opts...)
	return &Anime{
		Channel: ch,
		State: &Property[DeviceState]{
			ID:     PropAnimeState,
			ch:     ch,
			getter: "DeviceState",
			signal: "NotifyDeviceState",
			decode: func(_ DeviceState, body []any) (DeviceState, error) {
				return decodeDeviceStateBody(body)
			},
		},
	}
}

func (a *Anime) SetEnableDisplay(ctx context.Context, on bool) error {
	_, err := a.Invoke(ctx, "SetEnableDisplay", on)
	return err
}

func (a *Anime) SetBuiltinsEnabled(ctx context.Context, on bool) error {
	_, err := a.Invoke(ctx, "SetBuiltinsEnabled", on)
	return err
}

func (a *Anime) SetBrightness(ctx context.Context, b AnimeBrightness) error {
	if b == BrightnessUnknown {
		b = BrightnessMed
	}
	_, err := a.Invoke(ctx, "SetBrightness", b.String())
	return err
}
