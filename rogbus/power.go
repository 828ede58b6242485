package rogbus

// Power is the /org/asuslinux/Power object.
type Power struct {
	*Channel
	ChargeLimit *Property[uint8]
	MainsOnline *Property[bool]
}

func NewPower(opts ...Option) *Power {
	ch := NewChannel(SchemaPower, "/org/asuslinux/Power", opts...)
	return &Power{
		Channel: ch,
		ChargeLimit: &Property[uint8]{
			ID:     PropChargeLimit,
			ch:     ch,
			getter: "ChargeControlEndThreshold",
			setter: "SetChargeControlEndThreshold",
			signal: "NotifyChargeControlEndThreshold",
			decode: func(_ uint8, body []any) (uint8, error) {
				v, err := first("ChargeControlEndThreshold", body)
				if err != nil {
					return 0, err
				}
				return DecodeUint8(v)
			},
			encode: func(v uint8) []any { return []any{min(v, 100)} },
		},
		MainsOnline: boolProperty(PropMainsOnline, ch, "MainsOnline", "", "NotifyMainsOnline"),
	}
}
