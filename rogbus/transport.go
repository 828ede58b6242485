package rogbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Transport is the part of a bus connection a Channel needs.
type Transport interface {
	Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error)
	// Watch delivers signals emitted by path on iface until stop is called.
	Watch(path dbus.ObjectPath, iface string) (signals <-chan *dbus.Signal, stop func(), err error)
	NameHasOwner(name string) (bool, error)
	Close() error
}

type Dialer func(ctx context.Context) (Transport, error)

// SystemBus dials a private system bus connection.
func SystemBus(ctx context.Context) (Transport, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("system bus: %w", err)
	}
	return &busTransport{conn: conn}, nil
}

// SessionBus dials a private session bus connection. Useful against a
// daemon simulator running as the user.
func SessionBus(ctx context.Context) (Transport, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	return &busTransport{conn: conn}, nil
}

type busTransport struct {
	conn *dbus.Conn
}

func (t *busTransport) Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	call := t.conn.Object(dest, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}
	return call.Body, nil
}

func (t *busTransport) Watch(path dbus.ObjectPath, iface string) (<-chan *dbus.Signal, func(), error) {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
	}
	if err := t.conn.AddMatchSignal(match...); err != nil {
		return nil, nil, fmt.Errorf("add match for %s: %w", path, err)
	}

	signals := make(chan *dbus.Signal, 16)
	t.conn.Signal(signals)

	stop := func() {
		t.conn.RemoveSignal(signals)
		_ = t.conn.RemoveMatchSignal(match...)
	}
	return signals, stop, nil
}

func (t *busTransport) NameHasOwner(name string) (bool, error) {
	var owned bool
	err := t.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned)
	return owned, err
}

func (t *busTransport) Close() error {
	return t.conn.Close()
}
