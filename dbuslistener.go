package main

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/trbjo/rogquick/logger"
	"github.com/trbjo/rogquick/widget"
)

const (
	dbusInterface = "io.github.trbjo.RogQuick"
	dbusPath      = "/io/github/trbjo/RogQuick"
)

type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// ControlEntry is one row of List, marshalled as (ssssbys).
type ControlEntry struct {
	ID       string
	Parent   string
	Kind     string
	Title    string
	Checked  bool
	Level    uint8
	Subtitle string
}

// RogQuickDbus is the session bus face of the controls. It is a Surface:
// every redraw becomes a ControlChanged signal, and Activate calls from
// the bus are routed back into the controls.
type RogQuickDbus struct {
	conn     emitter
	activate func(id string, value any) bool

	mu       sync.Mutex
	controls map[string]widget.Snapshot
	order    []string
}

func NewRogQuickDbus(activate func(id string, value any) bool) *RogQuickDbus {
	return &RogQuickDbus{
		activate: activate,
		controls: map[string]widget.Snapshot{},
	}
}

func (o *RogQuickDbus) Put(s widget.Snapshot) {
	o.mu.Lock()
	prev, known := o.controls[s.ID]
	o.controls[s.ID] = s
	if !known {
		o.order = append(o.order, s.ID)
	}
	conn := o.conn
	o.mu.Unlock()

	if known && sameSnapshot(prev, s) {
		return
	}
	o.emit(conn, "ControlChanged", s.ID, s.Checked, s.Level, s.Title)
}

func (o *RogQuickDbus) Remove(id string) {
	o.mu.Lock()
	_, known := o.controls[id]
	delete(o.controls, id)
	o.order = slices.DeleteFunc(o.order, func(v string) bool { return v == id })
	conn := o.conn
	o.mu.Unlock()

	if known {
		o.emit(conn, "ControlRemoved", id)
	}
}

func (o *RogQuickDbus) emit(conn emitter, member string, values ...interface{}) {
	if conn == nil {
		return
	}
	if err := conn.Emit(dbusPath, dbusInterface+"."+member, values...); err != nil {
		lg.Warn("failed to emit signal", "member", member, "error", err)
	}
}

func (o *RogQuickDbus) List() ([]ControlEntry, *dbus.Error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entries := make([]ControlEntry, 0, len(o.order))
	for _, id := range o.order {
		s := o.controls[id]
		entries = append(entries, ControlEntry{
			ID:       s.ID,
			Parent:   s.Parent,
			Kind:     s.Kind.String(),
			Title:    s.Title,
			Checked:  s.Checked,
			Level:    s.Level,
			Subtitle: s.Subtitle,
		})
	}
	return entries, nil
}

// Activate toggles the control when value is an empty string, otherwise
// passes the value on as is.
func (o *RogQuickDbus) Activate(id string, value dbus.Variant) *dbus.Error {
	o.mu.Lock()
	_, known := o.controls[id]
	o.mu.Unlock()
	if !known {
		return dbus.MakeFailedError(fmt.Errorf("unknown control %q", id))
	}

	v := value.Value()
	if s, ok := v.(string); ok && s == "" {
		v = nil
	}
	lg.Debug("activate over dbus", "id", id, "value", v)
	if !o.activate(id, v) {
		return dbus.MakeFailedError(fmt.Errorf("not running"))
	}
	return nil
}

func (o *RogQuickDbus) LogLevel(level string) *dbus.Error {
	logger.SetLogLevel(level)
	return nil
}

func sameSnapshot(a, b widget.Snapshot) bool {
	return a.ID == b.ID && a.Parent == b.Parent && a.Kind == b.Kind &&
		a.Title == b.Title && a.Subtitle == b.Subtitle && a.Checked == b.Checked &&
		a.Level == b.Level && a.Visible == b.Visible && a.Pending == b.Pending &&
		slices.Equal(a.Options, b.Options)
}

func (o *RogQuickDbus) introspection() introspect.Node {
	return introspect.Node{
		Name: dbusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    dbusInterface,
				Methods: introspect.Methods(o),
				Signals: []introspect.Signal{
					{Name: "ControlChanged", Args: []introspect.Arg{
						{Name: "id", Type: "s"},
						{Name: "checked", Type: "b"},
						{Name: "level", Type: "y"},
						{Name: "title", Type: "s"},
					}},
					{Name: "ControlRemoved", Args: []introspect.Arg{
						{Name: "id", Type: "s"},
					}},
				},
			},
		},
	}
}

// setupDbus claims the well known name and exports the object until ctx
// ends.
func setupDbus(ctx context.Context, obj *RogQuickDbus) error {
	conn, err := dbusConnection(ctx, BusSession)
	if err != nil {
		return err
	}

	reply, err := conn.RequestName(dbusInterface, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return fmt.Errorf("name %s already taken", dbusInterface)
	}

	if err := conn.Export(obj, dbusPath, dbusInterface); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export object: %w", err)
	}
	node := obj.introspection()
	if err := conn.Export(introspect.NewIntrospectable(&node), dbusPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	obj.mu.Lock()
	obj.conn = conn
	obj.mu.Unlock()
	lg.Debug("Listening on D-Bus", "interface", dbusInterface, "path", dbusPath)

	<-ctx.Done()
	obj.mu.Lock()
	obj.conn = nil
	obj.mu.Unlock()
	_ = conn.Close()
	return nil
}
