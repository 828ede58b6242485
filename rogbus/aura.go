package rogbus

import (
	"context"
)

// Aura is the /org/asuslinux/Aura keyboard lighting object.
type Aura struct {
	*Channel
	State *Property[AuraState]
	Power *Property[PowerStates]
}

func NewAura(opts ...Option) *Aura {
	ch := NewChannel(SchemaAura, "/org/asuslinux/Aura", opts...)
	a := &Aura{Channel: ch}

	a.State = &Property[AuraState]{
		ID:     PropAura,
		ch:     ch,
		getter: "LedMode",
		setter: "SetLedMode",
		signal: "NotifyLed",
		// a pushed effect becomes the current mode and replaces its stored entry
		decode: func(prev AuraState, body []any) (AuraState, error) {
			v, err := first("AuraEffect", body)
			if err != nil {
				return prev, err
			}
			e, err := DecodeAuraEffect(v)
			if err != nil {
				return prev, err
			}
			return prev.With(e), nil
		},
		encode: func(s AuraState) []any { return []any{s.Effect(s.Current).wire()} },
		fetch:  a.fetchState,
	}

	a.Power = &Property[PowerStates]{
		ID:     PropLedPower,
		ch:     ch,
		getter: "LedPower",
		signal: "NotifyPowerStates",
		decode: func(_ PowerStates, body []any) (PowerStates, error) {
			v, err := first("PowerStates", body)
			if err != nil {
				return PowerStates{}, err
			}
			return DecodePowerStates(v)
		},
	}
	return a
}

func (a *Aura) fetchState(ctx context.Context) (AuraState, error) {
	body, err := a.Invoke(ctx, "LedModes")
	if err != nil {
		return AuraState{}, err
	}
	raw, err := first("LedModes", body)
	if err != nil {
		return AuraState{}, err
	}
	modes, err := DecodeLedModes(raw)
	if err != nil {
		return AuraState{}, err
	}

	body, err = a.Invoke(ctx, "LedMode")
	if err != nil {
		return AuraState{}, err
	}
	name, err := first("LedMode", body)
	if err != nil {
		return AuraState{}, err
	}
	s, _ := asString(name)
	return AuraState{Current: ParseAuraMode(s), Modes: modes}, nil
}

func (a *Aura) DeviceType(ctx context.Context) (AuraDevice, error) {
	body, err := a.Invoke(ctx, "DeviceType")
	if err != nil || body == nil {
		return AuraDeviceUnknown, err
	}
	return decodeEnum[AuraDevice](auraDeviceNames, body[0]), nil
}
