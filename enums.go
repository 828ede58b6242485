package main

import (
	"fmt"
	"strconv"
	"strings"
)

func (l Layout) String() string {
	switch l {
	case LayoutMenu:
		return "menu"
	case LayoutIndividual:
		return "individual"
	default:
		t := strconv.Itoa(int(l))
		return t
	}
}

func (b BusKind) String() string {
	switch b {
	case BusSystem:
		return "system"
	case BusSession:
		return "session"
	default:
		t := strconv.Itoa(int(b))
		return t
	}
}

// Layout picks how the firmware toggles are presented.
type Layout int

// BusKind is the bus the daemon is looked up on. The session bus is only
// useful against a fake daemon.
type BusKind int

const (
	LayoutMenu Layout = iota
	LayoutIndividual
)

const (
	BusSystem BusKind = iota
	BusSession
)

func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "menu":
		return LayoutMenu, nil
	case "individual":
		return LayoutIndividual, nil
	}
	return LayoutMenu, fmt.Errorf("unknown layout %q", s)
}

func ParseBusKind(s string) (BusKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "system":
		return BusSystem, nil
	case "session":
		return BusSession, nil
	}
	return BusSystem, fmt.Errorf("unknown bus %q", s)
}

// control ids of the root-level widgets
const (
	idChargeLimit = "charge-limit"
	idGpuMux      = "gpu-mux"
	idPostSound   = "post-sound"
	idMiniLedIcon = "mini-led-indicator"
	idBrightness  = "anime-brightness"
)
