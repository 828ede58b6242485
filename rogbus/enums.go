package rogbus

import "strconv"

// Every daemon enum travels as its member name. Index 0 of each name table
// is the Unknown member that unrecognised names decode to.

func lookup[E ~uint8](names []string, s string) E {
	for i := 1; i < len(names); i++ {
		if names[i] == s {
			return E(i)
		}
	}
	return 0
}

func nameOf[E ~uint8](names []string, e E) string {
	if int(e) < len(names) {
		return names[e]
	}
	return names[0]
}

func decodeEnum[E ~uint8](names []string, v any) E {
	s, _ := asString(v)
	return lookup[E](names, s)
}

type AuraMode uint8

const (
	AuraModeUnknown AuraMode = iota
	AuraStatic
	AuraBreathe
	AuraStrobe
	AuraRainbow
	AuraStar
	AuraRain
	AuraHighlight
	AuraLaser
	AuraRipple
	AuraPulse
	AuraComet
	AuraFlash
)

var auraModeNames = []string{"Unknown", "Static", "Breathe", "Strobe", "Rainbow", "Star", "Rain", "Highlight", "Laser", "Ripple", "Pulse", "Comet", "Flash"}

func (m AuraMode) String() string     { return nameOf(auraModeNames, m) }
func ParseAuraMode(s string) AuraMode { return lookup[AuraMode](auraModeNames, s) }

// AuraModes lists every known mode in wire order.
func AuraModes() []AuraMode {
	out := make([]AuraMode, 0, len(auraModeNames)-1)
	for i := 1; i < len(auraModeNames); i++ {
		out = append(out, AuraMode(i))
	}
	return out
}

type AuraZone uint8

const (
	AuraZoneUnknown AuraZone = iota
	ZoneNone
	ZoneKey1
	ZoneKey2
	ZoneKey3
	ZoneKey4
	ZoneLogo
	ZoneBarLeft
	ZoneBarRight
)

var auraZoneNames = []string{"Unknown", "None", "Key1", "Key2", "Key3", "Key4", "Logo", "BarLeft", "BarRight"}

func (z AuraZone) String() string     { return nameOf(auraZoneNames, z) }
func ParseAuraZone(s string) AuraZone { return lookup[AuraZone](auraZoneNames, s) }

type Speed uint8

const (
	SpeedUnknown Speed = iota
	SpeedLow
	SpeedMed
	SpeedHigh
)

var speedNames = []string{"Unknown", "Low", "Med", "High"}

func (s Speed) String() string { return nameOf(speedNames, s) }

type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionRight
	DirectionLeft
	DirectionUp
	DirectionDown
)

var directionNames = []string{"Unknown", "Right", "Left", "Up", "Down"}

func (d Direction) String() string { return nameOf(directionNames, d) }

type AuraDevice uint8

const (
	AuraDeviceUnknown AuraDevice = iota
	AuraDeviceTuf
	AuraDevice1854
	AuraDevice1869
	AuraDevice1866
	AuraDevice18c6
	AuraDevice19b6
	AuraDevice1a30
)

var auraDeviceNames = []string{"Unknown", "Tuf", "X1854", "X1869", "X1866", "X18c6", "X19b6", "X1a30"}

func (d AuraDevice) String() string { return nameOf(auraDeviceNames, d) }

type PowerZone uint8

const (
	PowerZoneUnknown PowerZone = iota
	PowerZoneLogo
	PowerZoneKeyboard
	PowerZoneLightbar
	PowerZoneLid
	PowerZoneRearGlow
)

var powerZoneNames = []string{"Unknown", "Logo", "Keyboard", "Lightbar", "Lid", "RearGlow"}

func (z PowerZone) String() string { return nameOf(powerZoneNames, z) }

type AnimeBrightness uint8

const (
	BrightnessUnknown AnimeBrightness = iota
	BrightnessOff
	BrightnessLow
	BrightnessMed
	BrightnessHigh
)

var brightnessNames = []string{"Unknown", "Off", "Low", "Med", "High"}

func (b AnimeBrightness) String() string            { return nameOf(brightnessNames, b) }
func ParseAnimeBrightness(s string) AnimeBrightness { return lookup[AnimeBrightness](brightnessNames, s) }

type AnimBooting uint8

const (
	AnimBootingUnknown AnimBooting = iota
	GlitchConstruction
	StaticEmergence
)

var animBootingNames = []string{"Unknown", "GlitchConstruction", "StaticEmergence"}

func (a AnimBooting) String() string { return nameOf(animBootingNames, a) }

type AnimAwake uint8

const (
	AnimAwakeUnknown AnimAwake = iota
	BinaryBannerScroll
	RogLogoGlitch
)

var animAwakeNames = []string{"Unknown", "BinaryBannerScroll", "RogLogoGlitch"}

func (a AnimAwake) String() string { return nameOf(animAwakeNames, a) }

type AnimSleeping uint8

const (
	AnimSleepingUnknown AnimSleeping = iota
	BannerSwipe
	Starfield
)

var animSleepingNames = []string{"Unknown", "BannerSwipe", "Starfield"}

func (a AnimSleeping) String() string { return nameOf(animSleepingNames, a) }

type AnimShutdown uint8

const (
	AnimShutdownUnknown AnimShutdown = iota
	GlitchOut
	SeeYa
)

var animShutdownNames = []string{"Unknown", "GlitchOut", "SeeYa"}

func (a AnimShutdown) String() string { return nameOf(animShutdownNames, a) }

type AdvancedAura uint8

const (
	AdvancedAuraUnknown AdvancedAura = iota
	AdvancedAuraNone
	AdvancedAuraZoned
	AdvancedAuraPerKey
)

var advancedAuraNames = []string{"Unknown", "None", "Zoned", "PerKey"}

func (a AdvancedAura) String() string { return nameOf(advancedAuraNames, a) }

// decodeAdvancedAura accepts the member name or its numeric discriminant,
// which older daemons send.
func decodeAdvancedAura(v any) AdvancedAura {
	if s, ok := asString(v); ok {
		if n, err := strconv.Atoi(s); err == nil {
			v = n
		} else {
			return lookup[AdvancedAura](advancedAuraNames, s)
		}
	}
	if n, ok := asUint(v); ok && n+1 < uint64(len(advancedAuraNames)) {
		return AdvancedAura(n + 1)
	}
	return AdvancedAuraUnknown
}
