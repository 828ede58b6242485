package rogbus

import (
	"slices"
)

type Colour struct {
	R, G, B uint8
}

func decodeColour(v any) Colour {
	l, ok := asList(v)
	if !ok {
		return Colour{}
	}
	c := func(i int) uint8 {
		n, _ := asUint(at(l, i))
		return uint8(min(n, 255))
	}
	return Colour{R: c(0), G: c(1), B: c(2)}
}

type AuraEffect struct {
	Mode      AuraMode
	Zone      AuraZone
	Colour1   Colour
	Colour2   Colour
	Speed     Speed
	Direction Direction
}

// wireEffect is the (ss(yyy)(yyy)ss) shape godbus encodes for SetLedMode.
type wireEffect struct {
	Mode      string
	Zone      string
	Colour1   Colour
	Colour2   Colour
	Speed     string
	Direction string
}

func (e AuraEffect) wire() wireEffect {
	zone := e.Zone
	if zone == AuraZoneUnknown {
		zone = ZoneNone
	}
	speed := e.Speed
	if speed == SpeedUnknown {
		speed = SpeedMed
	}
	dir := e.Direction
	if dir == DirectionUnknown {
		dir = DirectionRight
	}
	return wireEffect{
		Mode:      e.Mode.String(),
		Zone:      zone.String(),
		Colour1:   e.Colour1,
		Colour2:   e.Colour2,
		Speed:     speed.String(),
		Direction: dir.String(),
	}
}

func DecodeAuraEffect(v any) (AuraEffect, error) {
	l, err := tuple("AuraEffect", v, 6)
	if err != nil {
		return AuraEffect{}, err
	}
	return AuraEffect{
		Mode:      decodeEnum[AuraMode](auraModeNames, l[0]),
		Zone:      decodeEnum[AuraZone](auraZoneNames, l[1]),
		Colour1:   decodeColour(l[2]),
		Colour2:   decodeColour(l[3]),
		Speed:     decodeEnum[Speed](speedNames, l[4]),
		Direction: decodeEnum[Direction](directionNames, l[5]),
	}, nil
}

// AuraState is the current mode plus the stored effect of every mode the
// keyboard offers.
type AuraState struct {
	Current AuraMode
	Modes   map[AuraMode]AuraEffect
}

// Effect returns the stored effect for mode, or a plain one when the
// daemon never reported it.
func (s AuraState) Effect(mode AuraMode) AuraEffect {
	if e, ok := s.Modes[mode]; ok {
		return e
	}
	return AuraEffect{Mode: mode, Zone: ZoneNone, Speed: SpeedMed, Direction: DirectionRight}
}

// With returns a copy of s with e applied as the current effect.
func (s AuraState) With(e AuraEffect) AuraState {
	modes := make(map[AuraMode]AuraEffect, len(s.Modes)+1)
	for k, v := range s.Modes {
		modes[k] = v
	}
	modes[e.Mode] = e
	return AuraState{Current: e.Mode, Modes: modes}
}

// Available lists the modes with a stored effect in wire order.
func (s AuraState) Available() []AuraMode {
	out := make([]AuraMode, 0, len(s.Modes))
	for _, m := range AuraModes() {
		if _, ok := s.Modes[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (s AuraState) Equal(o AuraState) bool {
	if s.Current != o.Current || len(s.Modes) != len(o.Modes) {
		return false
	}
	for k, v := range s.Modes {
		if ov, ok := o.Modes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func DecodeLedModes(v any) (map[AuraMode]AuraEffect, error) {
	m, ok := asMap(v)
	if !ok {
		return nil, &DecodeError{Type: "LedModes", Detail: "expected dict"}
	}
	out := make(map[AuraMode]AuraEffect, len(m))
	for name, raw := range m {
		mode := ParseAuraMode(name)
		if mode == AuraModeUnknown {
			continue
		}
		e, err := DecodeAuraEffect(raw)
		if err != nil {
			continue
		}
		e.Mode = mode
		out[mode] = e
	}
	return out, nil
}

type PowerZoneConfig struct {
	Zone     PowerZone
	Boot     bool
	Awake    bool
	Sleep    bool
	Shutdown bool
}

type PowerStates struct {
	Tuf    []string
	OldRog []string
	Rog    []PowerZoneConfig
}

func (p PowerStates) Equal(o PowerStates) bool {
	return slices.Equal(p.Tuf, o.Tuf) && slices.Equal(p.OldRog, o.OldRog) && slices.Equal(p.Rog, o.Rog)
}

// Zone returns the rule for zone and whether the daemon reported one.
func (p PowerStates) Zone(zone PowerZone) (PowerZoneConfig, bool) {
	for _, z := range p.Rog {
		if z.Zone == zone {
			return z, true
		}
	}
	return PowerZoneConfig{Zone: zone}, false
}

func DecodePowerStates(v any) (PowerStates, error) {
	l, err := tuple("PowerStates", v, 3)
	if err != nil {
		return PowerStates{}, err
	}
	rules, ok := asList(l[2])
	if !ok {
		return PowerStates{}, &DecodeError{Type: "PowerStates", Detail: "zone rules are not a list"}
	}

	p := PowerStates{
		Tuf:    stringsAt(l, 0),
		OldRog: stringsAt(l, 1),
		Rog:    make([]PowerZoneConfig, 0, len(rules)),
	}
	for _, raw := range rules {
		r, ok := asList(raw)
		if !ok {
			continue
		}
		p.Rog = append(p.Rog, PowerZoneConfig{
			Zone:     decodeEnum[PowerZone](powerZoneNames, at(r, 0)),
			Boot:     boolAt(r, 1),
			Awake:    boolAt(r, 2),
			Sleep:    boolAt(r, 3),
			Shutdown: boolAt(r, 4),
		})
	}
	return p, nil
}

type Animations struct {
	Boot     AnimBooting
	Awake    AnimAwake
	Sleep    AnimSleeping
	Shutdown AnimShutdown
}

// DeviceState describes the AniMe matrix display.
type DeviceState struct {
	DisplayEnabled      bool
	DisplayBrightness   AnimeBrightness
	BuiltinAnimsEnabled bool
	BuiltinAnims        Animations
	OffWhenUnplugged    bool
	OffWhenSuspended    bool
	OffWhenLidClosed    bool
	BrightnessOnBattery AnimeBrightness
}

func DecodeDeviceState(v any) (DeviceState, error) {
	l, err := tuple("DeviceState", v, 7)
	if err != nil {
		return DeviceState{}, err
	}
	anims, _ := asList(l[3])
	return DeviceState{
		DisplayEnabled:      boolAt(l, 0),
		DisplayBrightness:   decodeEnum[AnimeBrightness](brightnessNames, l[1]),
		BuiltinAnimsEnabled: boolAt(l, 2),
		BuiltinAnims: Animations{
			Boot:     decodeEnum[AnimBooting](animBootingNames, at(anims, 0)),
			Awake:    decodeEnum[AnimAwake](animAwakeNames, at(anims, 1)),
			Sleep:    decodeEnum[AnimSleeping](animSleepingNames, at(anims, 2)),
			Shutdown: decodeEnum[AnimShutdown](animShutdownNames, at(anims, 3)),
		},
		OffWhenUnplugged:    boolAt(l, 4),
		OffWhenSuspended:    boolAt(l, 5),
		OffWhenLidClosed:    boolAt(l, 6),
		BrightnessOnBattery: decodeEnum[AnimeBrightness](brightnessNames, at(l, 7)),
	}, nil
}

// decodeDeviceStateBody copes with the getter returning the fields as
// separate out args while the signal wraps them in one struct.
func decodeDeviceStateBody(body []any) (DeviceState, error) {
	if len(body) >= 7 {
		return DecodeDeviceState(body)
	}
	v, err := first("DeviceState", body)
	if err != nil {
		return DeviceState{}, err
	}
	return DecodeDeviceState(v)
}

type LedCapabilities struct {
	Device     AuraDevice
	Brightness bool
	Modes      []AuraMode
	Zones      []AuraZone
	Advanced   AdvancedAura
	PowerZones []PowerZone
}

type BiosCapabilities struct {
	PostSound      bool
	GpuMux         bool
	PanelOverdrive bool
	DgpuDisable    bool
	EgpuEnable     bool
	MiniLedMode    bool
}

// Capabilities is what the connected daemon reports it can drive.
type Capabilities struct {
	AnimeCtrl       bool
	ChargeLevelSet  bool
	PlatformProfile bool
	FanCurves       bool
	Led             LedCapabilities
	Bios            BiosCapabilities
}

// flag reads a bool that older daemons wrap in a one-element tuple.
func flag(v any) bool {
	if l, ok := asList(v); ok {
		return boolAt(l, 0)
	}
	b, _ := asBool(v)
	return b
}

func DecodeCapabilities(v any) (Capabilities, error) {
	l, err := tuple("SupportedFunctions", v, 5)
	if err != nil {
		return Capabilities{}, err
	}

	var c Capabilities
	c.AnimeCtrl = flag(l[0])
	c.ChargeLevelSet = flag(l[1])
	if profile, ok := asList(l[2]); ok {
		c.PlatformProfile = boolAt(profile, 0)
		c.FanCurves = boolAt(profile, 1)
	}

	if led, ok := asList(l[3]); ok {
		c.Led.Device = decodeEnum[AuraDevice](auraDeviceNames, at(led, 0))
		c.Led.Brightness = boolAt(led, 1)
		for _, name := range stringsAt(led, 2) {
			if m := ParseAuraMode(name); m != AuraModeUnknown {
				c.Led.Modes = append(c.Led.Modes, m)
			}
		}
		for _, name := range stringsAt(led, 3) {
			c.Led.Zones = append(c.Led.Zones, ParseAuraZone(name))
		}
		c.Led.Advanced = decodeAdvancedAura(at(led, 4))
		for _, name := range stringsAt(led, 5) {
			c.Led.PowerZones = append(c.Led.PowerZones, lookup[PowerZone](powerZoneNames, name))
		}
	}

	if bios, ok := asList(l[4]); ok {
		c.Bios = BiosCapabilities{
			PostSound:      boolAt(bios, 0),
			GpuMux:         boolAt(bios, 1),
			PanelOverdrive: boolAt(bios, 2),
			DgpuDisable:    boolAt(bios, 3),
			EgpuEnable:     boolAt(bios, 4),
			MiniLedMode:    boolAt(bios, 5),
		}
	}
	return c, nil
}
