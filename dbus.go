package main

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/trbjo/rogquick/rogbus"
)

func dialerFor(kind BusKind) rogbus.Dialer {
	if kind == BusSession {
		return rogbus.SessionBus
	}
	return rogbus.SystemBus
}

func dbusConnection(ctx context.Context, kind BusKind) (*dbus.Conn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if kind == BusSession {
		conn, err = dbus.ConnectSessionBus(dbus.WithContext(ctx))
	} else {
		conn, err = dbus.ConnectSystemBus(dbus.WithContext(ctx))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s bus: %w", kind, err)
	}
	return conn, nil
}

// channelOptions are shared by every channel of one extension.
func channelOptions(cfg *Config, dial rogbus.Dialer, post func(func()) bool) []rogbus.Option {
	return []rogbus.Option{
		rogbus.WithDialer(dial),
		rogbus.WithService(cfg.Service),
		rogbus.WithCallTimeout(cfg.CallTimeout),
		rogbus.WithProbe(cfg.ProbeService),
		rogbus.WithDispatcher(post),
	}
}
