package main

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/trbjo/rogquick/utilities"
)

const (
	login1Manager   = "org.freedesktop.login1.Manager"
	prepareForSleep = login1Manager + ".PrepareForSleep"
)

// monitorResume listens for PrepareForSleep on the system bus and calls
// refresh after every resume until ctx ends.
func monitorResume(ctx context.Context, refresh func(context.Context)) error {
	conn, err := dbusConnection(ctx, BusSystem)
	if err != nil {
		return err
	}
	defer conn.Close()

	match := []dbus.MatchOption{
		dbus.WithMatchInterface(login1Manager),
		dbus.WithMatchMember("PrepareForSleep"),
	}
	if err := conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("failed to add match for signal: %w", err)
	}

	signalChan := make(chan *dbus.Signal, 10)
	conn.Signal(signalChan)
	defer func() {
		conn.RemoveSignal(signalChan)
		_ = conn.RemoveMatchSignal(match...)
	}()

	watchResume(ctx, signalChan, refresh)
	return nil
}

// watchResume runs refresh once per resume. Resumes arriving while a
// refresh is still running collapse into a single follow-up.
func watchResume(ctx context.Context, signals <-chan *dbus.Signal, refresh func(context.Context)) {
	pending := make(chan struct{}, 1)
	request := utilities.CreateNonBlockingSender(pending)

	done := make(chan struct{})
	defer func() { <-done }()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				refresh(ctx)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case signal, ok := <-signals:
			if !ok {
				return
			}
			if signal.Name != prepareForSleep || len(signal.Body) == 0 {
				continue
			}
			preparing, ok := signal.Body[0].(bool)
			if !ok {
				continue
			}
			if preparing {
				lg.Debug("system is going to sleep")
				continue
			}
			lg.Info("System has resumed from suspend")
			request(struct{}{})
		}
	}
}
