// Package settings persists the small set of desktop keys controls mirror
// their state into. The file is TOML and may be edited while we run.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/trbjo/rogquick/logger"
)

const (
	KeyMiniLed       = "mini-led-enabled"
	KeyPanelOd       = "panel-od-enabled"
	KeyAnimePower    = "anime-power"
	KeyAnimeBuiltins = "anime-builtins"
	KeyChargeLevel   = "charge-level"
	KeyPrimary       = "primary-quickmenu-toggle"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var ErrUnknownKey = errors.New("unknown settings key")

// defaults also fixes the type of every key: bool, int64 or string.
var defaults = map[string]any{
	KeyMiniLed:       false,
	KeyPanelOd:       false,
	KeyAnimePower:    false,
	KeyAnimeBuiltins: false,
	KeyChargeLevel:   int64(100),
	KeyPrimary:       "mini-led",
}

// DefaultPath is $XDG_CONFIG_HOME/rogquick/settings.toml.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "settings.toml")
}

type Store struct {
	path string
	lg   *slog.Logger

	mu        sync.Mutex
	values    map[string]any
	callbacks map[string][]*callback
}

type callback struct {
	fn func()
}

// Open loads path. A missing or unreadable file leaves every key at its
// default; it is created on the first write.
func Open(path string) *Store {
	s := &Store{
		path:      filepath.Clean(path),
		lg:        logger.For("settings"),
		values:    maps.Clone(defaults),
		callbacks: map[string][]*callback{},
	}
	if loaded, err := s.read(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.lg.Warn("using default settings", "path", s.path, "error", err)
		}
	} else {
		s.values = loaded
	}
	return s
}

func (s *Store) Path() string { return s.path }

// read parses the file and fills gaps and mistyped entries from defaults.
func (s *Store) read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	values := maps.Clone(defaults)
	for key, def := range defaults {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if coerced, ok := coerce(def, v); ok {
			values[key] = coerced
		} else {
			s.lg.Warn("ignoring mistyped setting", "key", key, "value", v)
		}
	}
	return values, nil
}

func coerce(def, v any) (any, bool) {
	switch def.(type) {
	case bool:
		b, ok := v.(bool)
		return b, ok
	case string:
		str, ok := v.(string)
		return str, ok
	case int64:
		switch n := v.(type) {
		case int64:
			return n, n >= 0
		case float64:
			return int64(n), n >= 0
		}
	}
	return nil, false
}

func (s *Store) get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		s.lg.Warn("read of unknown key", "key", key)
	}
	return v
}

func (s *Store) Bool(key string) bool {
	b, _ := s.get(key).(bool)
	return b
}

func (s *Store) Uint(key string) uint {
	n, _ := s.get(key).(int64)
	return uint(max(n, 0))
}

func (s *Store) String(key string) string {
	str, _ := s.get(key).(string)
	return str
}

func (s *Store) SetBool(key string, v bool) error { return s.set(key, v) }

func (s *Store) SetUint(key string, v uint) error { return s.set(key, int64(v)) }

func (s *Store) SetString(key string, v string) error { return s.set(key, v) }

// set stores v and writes the file. Writing the current value does nothing.
func (s *Store) set(key string, v any) error {
	s.mu.Lock()
	def, ok := defaults[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if _, ok := coerce(def, v); !ok {
		s.mu.Unlock()
		return fmt.Errorf("setting %s: wrong type %T", key, v)
	}
	if s.values[key] == v {
		s.mu.Unlock()
		return nil
	}
	s.values[key] = v
	err := s.saveLocked()
	fns := s.callbacksLocked(key)
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := toml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) callbacksLocked(key string) []func() {
	list := s.callbacks[key]
	fns := make([]func(), len(list))
	for i, cb := range list {
		fns[i] = cb.fn
	}
	return fns
}

// Connect calls fn after key changes, from our own writes or from an
// external edit picked up by Watch.
func (s *Store) Connect(key string, fn func()) (disconnect func()) {
	cb := &callback{fn: fn}
	s.mu.Lock()
	s.callbacks[key] = append(s.callbacks[key], cb)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			list := s.callbacks[key]
			for i, existing := range list {
				if existing == cb {
					s.callbacks[key] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		})
	}
}

// Watch reloads the file whenever it changes on disk until ctx is done.
// The directory is watched so editors that replace the file are seen.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.lg.Debug("watching", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.lg.Warn("watch error", "error", err)
		}
	}
}

// reload applies the file contents and fires callbacks for changed keys.
// A file that cannot be parsed is ignored; the next write fixes it.
func (s *Store) reload() {
	loaded, err := s.read()
	if err != nil {
		s.lg.Debug("reload skipped", "error", err)
		return
	}

	s.mu.Lock()
	var fns []func()
	for key, v := range loaded {
		if s.values[key] != v {
			s.values[key] = v
			fns = append(fns, s.callbacksLocked(key)...)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
