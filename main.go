package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/trbjo/rogquick/eventloop"
	"github.com/trbjo/rogquick/logger"
	"github.com/trbjo/rogquick/panel"
	"github.com/trbjo/rogquick/rogbus"
	"github.com/trbjo/rogquick/settings"
	"github.com/trbjo/rogquick/utilities"
)

var lg = logger.Slog

type app struct {
	configFile string
	v          *viper.Viper
	cfg        *Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               appName,
		Short:             "Quick settings for ASUS ROG laptops",
		Long:              "Mirrors the asusd firmware toggles, charge limit, keyboard lighting and AniMe display as quick settings.",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), false)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/rogquick/config.toml)")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("bus", "system", "bus asusd is reached on: system or session")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Serve the controls on the session bus until interrupted",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd.Context(), false)
			},
		},
		&cobra.Command{
			Use:   "tui",
			Short: "Show the controls as a terminal panel",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd.Context(), true)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print what the daemon supports and the current values",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.status(cmd.Context())
			},
		},
	)
	return root
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	a.v = newViper(a.configFile)
	flags := cmd.Root().PersistentFlags()
	if err := a.v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
		return fmt.Errorf("failed to bind --log-level: %w", err)
	}
	if err := a.v.BindPFlag("bus", flags.Lookup("bus")); err != nil {
		return fmt.Errorf("failed to bind --bus: %w", err)
	}

	cfg, err := loadConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger.SetLogLevel(cfg.LogLevel)
	lg.Debug("config loaded", "file", cfg.File(), "bus", cfg.BusKind(), "layout", cfg.LayoutKind())
	return nil
}

// run enables the extension and keeps it alive until a signal arrives or,
// with the panel, until the user quits it.
func (a *app) run(parent context.Context, withPanel bool) error {
	cfg := a.cfg
	ctx, stop := signalContext(parent)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := eventloop.New(0)
	store := settings.Open(cfg.SettingsPath)

	var ext *Extension
	activate := func(id string, value any) bool { return ext.Activate(id, value) }

	control := NewRogQuickDbus(activate)
	surface := surfaces{control}
	var pnl *panel.Panel
	if withPanel {
		pnl = panel.New(activate)
		surface = append(surface, pnl)
		closeLog, err := logToFile()
		if err != nil {
			return err
		}
		defer closeLog()
	}
	ext = NewExtension(cfg, loop, store, surface, dialerFor(cfg.BusKind()))

	// the loop outlives ctx so Disable can still run on it
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(loopCtx) })
	g.Go(func() error {
		defer stopLoop()
		if err := ext.Enable(gctx); err != nil {
			return err
		}
		if pnl != nil {
			pnl.SetHeader(headerLine(ext))
		}
		<-gctx.Done()
		ext.Disable()
		return nil
	})
	g.Go(func() error {
		if err := store.Watch(gctx); err != nil {
			lg.Warn("settings will not follow external edits", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := setupDbus(gctx, control); err != nil {
			lg.Warn("control object not exported", "error", err)
		}
		return nil
	})
	if cfg.ResyncOnResume {
		g.Go(func() error {
			if err := monitorResume(gctx, ext.Refresh); err != nil {
				lg.Warn("resume watcher unavailable", "error", err)
			}
			return nil
		})
	}
	if pnl != nil {
		g.Go(func() error {
			defer cancel()
			return pnl.Run(gctx)
		})
	}

	err := g.Wait()
	lg.Info("shut down")
	return err
}

func (a *app) status(parent context.Context) error {
	cfg := a.cfg
	ctx, cancel := context.WithTimeout(parent, 4*cfg.CallTimeout+time.Second)
	defer cancel()

	loop := eventloop.New(0)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	var ext *Extension
	control := NewRogQuickDbus(func(id string, value any) bool { return ext.Activate(id, value) })
	ext = NewExtension(cfg, loop, settings.Open(cfg.SettingsPath), control, dialerFor(cfg.BusKind()))
	if err := ext.Enable(ctx); err != nil {
		return err
	}
	defer ext.Disable()

	st, err := ext.Status()
	if err != nil {
		return err
	}
	entries, _ := control.List()

	bold := lipgloss.NewStyle().Bold(true)
	fmt.Println(bold.Render(headerLine(ext)))

	caps := st.Capabilities
	capTable := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FEATURE", "SUPPORTED").
		Row("Mini-LED", yesNo(caps.Bios.MiniLedMode)).
		Row("Panel overdrive", yesNo(caps.Bios.PanelOverdrive)).
		Row("GPU MUX", yesNo(caps.Bios.GpuMux)).
		Row("POST sound", yesNo(caps.Bios.PostSound)).
		Row("Charge limit", yesNo(caps.ChargeLevelSet)).
		Row("AniMe matrix", yesNo(caps.AnimeCtrl)).
		Row("Keyboard modes", fmt.Sprint(len(caps.Led.Modes)))
	fmt.Println(capTable.Render())

	controls := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CONTROL", "KIND", "STATE", "DETAIL")
	for _, e := range entries {
		state := yesNo(e.Checked)
		if e.Kind == "slider" {
			state = fmt.Sprintf("%d%%", e.Level)
		}
		title := e.Title
		if e.Parent != "" {
			title = "  " + title
		}
		controls.Row(title, e.Kind, state, e.Subtitle)
	}
	fmt.Println(controls.Render())

	if len(caps.Led.PowerZones) > 0 {
		zones := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("LED ZONE", "BOOT", "AWAKE", "SLEEP", "SHUTDOWN")
		for _, z := range caps.Led.PowerZones {
			rule, ok := st.LedPower.Zone(z)
			if !ok {
				zones.Row(z.String(), "?", "?", "?", "?")
				continue
			}
			zones.Row(z.String(), yesNo(rule.Boot), yesNo(rule.Awake), yesNo(rule.Sleep), yesNo(rule.Shutdown))
		}
		fmt.Println(zones.Render())
	}

	if caps.AnimeCtrl {
		fmt.Printf("AniMe: display %s, brightness %s, animations %s\n",
			yesNo(st.Anime.DisplayEnabled), st.Anime.DisplayBrightness, yesNo(st.Anime.BuiltinAnimsEnabled))
	}
	return nil
}

func headerLine(ext *Extension) string {
	st, err := ext.Status()
	if err != nil {
		return ""
	}
	onBattery := !st.MainsOnline
	if !st.MainsKnown {
		onBattery = utilities.OnBattery()
	}
	power := "AC"
	if onBattery {
		power = "Battery"
	}
	if st.AuraDevice == rogbus.AuraDeviceUnknown {
		return power
	}
	return fmt.Sprintf("%s · %s", st.AuraDevice, power)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, unix.SIGINT, unix.SIGTERM)
}

// logToFile keeps log lines off the panel's alternate screen.
func logToFile() (func(), error) {
	path := filepath.Join(os.TempDir(), appName+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return func() {
		logger.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
