package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/trbjo/rogquick/rogbus"
	"github.com/trbjo/rogquick/settings"
	"github.com/trbjo/rogquick/utilities"
)

const appName = "rogquick"

type Config struct {
	Bus            string        `mapstructure:"bus"`
	Service        string        `mapstructure:"service"`
	Layout         string        `mapstructure:"layout"`
	LogLevel       string        `mapstructure:"log_level"`
	SettingsPath   string        `mapstructure:"settings_path"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	ResyncOnResume bool          `mapstructure:"resync_on_resume"`
	ProbeService   bool          `mapstructure:"probe_service"`

	layout Layout
	bus    BusKind
	path   string
}

func (c *Config) LayoutKind() Layout { return c.layout }

func (c *Config) BusKind() BusKind { return c.bus }

// File is the config file that was read, empty when running on defaults.
func (c *Config) File() string { return c.path }

func setDefaults(v *viper.Viper) {
	v.SetDefault("bus", "system")
	v.SetDefault("service", rogbus.Service)
	v.SetDefault("layout", "menu")
	v.SetDefault("log_level", "info")
	v.SetDefault("settings_path", settings.DefaultPath(utilities.ConfigDir(appName)))
	v.SetDefault("call_timeout", 2*time.Second)
	v.SetDefault("resync_on_resume", true)
	v.SetDefault("probe_service", false)
}

// newViper reads file when given, otherwise config.toml from the config
// directory. Every key can be overridden with a ROGQUICK_ variable.
func newViper(file string) *viper.Viper {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(utilities.ConfigDir(appName))
	}
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// loadConfig runs on defaults when there is no config file. A file that
// exists but does not parse is an error.
func loadConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		lg.Debug("no config file, using defaults")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.path = v.ConfigFileUsed()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	var err error
	if c.layout, err = ParseLayout(c.Layout); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.bus, err = ParseBusKind(c.Bus); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Service == "" {
		c.Service = rogbus.Service
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 2 * time.Second
	}
	if c.SettingsPath == "" {
		c.SettingsPath = settings.DefaultPath(utilities.ConfigDir(appName))
	}
	return nil
}
