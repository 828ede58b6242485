package utilities

import (
	"os"
	"path/filepath"
	"strings"
)

// CreateNonBlockingSender returns a sender that never blocks. A full channel
// is drained first, so the receiver only ever sees the latest message.
func CreateNonBlockingSender[T any](ch chan T) func(T) {
	return func(msg T) {
		select {
		case ch <- msg:
		default:
			drainChannel(ch)
			select {
			case ch <- msg:
			default:
				// still full, another sender won the race
			}
		}
	}
}

func drainChannel[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/<app>, falling back to ~/.config/<app>.
func ConfigDir(app string) string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.Getenv("HOME")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, app)
}

var powerSupplyPath = "/sys/class/power_supply/"

// OnBattery reports whether the first AC adapter in sysfs is offline.
// Unknown states count as mains power.
func OnBattery() bool {
	files, err := os.ReadDir(powerSupplyPath)
	if err != nil {
		return false
	}

	for _, file := range files {
		if strings.HasPrefix(file.Name(), "AC") || strings.HasPrefix(file.Name(), "ADP") {
			data, err := os.ReadFile(filepath.Join(powerSupplyPath, file.Name(), "online"))
			if err != nil {
				return false
			}
			return strings.TrimSpace(string(data)) == "0"
		}
	}
	return false
}
