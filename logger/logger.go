package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// sink is shared between a handler and its clones.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

type CustomHandler struct {
	out    *sink
	level  *slog.LevelVar
	attrs  []slog.Attr
	groups []string
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGrey   = "\033[90m"
)

func (h *CustomHandler) Handle(ctx context.Context, r slog.Record) error {
	var levelColor string
	switch r.Level {
	case slog.LevelDebug:
		levelColor = colorBlue
	case slog.LevelInfo:
		levelColor = colorGreen
	case slog.LevelWarn:
		levelColor = colorYellow
	case slog.LevelError:
		levelColor = colorRed
	default:
		levelColor = colorReset
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s%s%s", r.Time.Format("15:04:05.000"), levelColor, r.Level.String(), colorReset)

	// the component attr is printed in front of the message, everything else after it
	rest := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		if a.Key == ComponentKey {
			fmt.Fprintf(&b, " %s[%s]%s", colorGrey, a.Value.String(), colorReset)
			continue
		}
		rest = append(rest, a)
	}
	b.WriteString(" ")
	b.WriteString(r.Message)

	r.Attrs(func(a slog.Attr) bool {
		rest = append(rest, a)
		return true
	})

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range rest {
		if a.Equal(slog.Attr{}) {
			continue
		}
		key := a.Key
		if key == "" {
			key = "value"
		}
		fmt.Fprintf(&b, " %s%s=%v", prefix, key, a.Value.Resolve().Any())
	}

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := fmt.Fprintln(h.out.w, b.String())
	return err
}

func (h *CustomHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	h2.attrs = append(h2.attrs, attrs...)
	return h2
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

// clone shares the sink and level with the parent so SetLogLevel and
// SetOutput reach every derived logger.
func (h *CustomHandler) clone() *CustomHandler {
	return &CustomHandler{
		out:    h.out,
		level:  h.level,
		attrs:  append([]slog.Attr{}, h.attrs...),
		groups: append([]string{}, h.groups...),
	}
}

func NewCustomHandler(w io.Writer, opts *slog.HandlerOptions) *CustomHandler {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	if opts != nil && opts.Level != nil {
		level.Set(opts.Level.Level())
	}
	return &CustomHandler{out: &sink{w: w}, level: level}
}

const ComponentKey = "component"

var Slog *slog.Logger

func init() {
	Slog = slog.New(NewCustomHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(Slog)
}

// For returns a child logger tagged with the component name.
func For(component string) *slog.Logger {
	return Slog.With(ComponentKey, component)
}

func SetLogLevel(val string) {
	var level slog.Level
	err := level.UnmarshalText([]byte(val))
	if err != nil {
		Slog.Info("could not parse loglevel, keeping as is", "value", val)
		return
	}

	handler, ok := Slog.Handler().(*CustomHandler)
	if !ok {
		Slog.Info("Handler is not a CustomHandler, cannot change log level")
		return
	}

	handler.level.Set(level)
	Slog.Debug("Log level changed", "level", level)
}

// SetOutput redirects every logger derived from Slog. The terminal panel
// uses it to keep log lines off the alternate screen.
func SetOutput(w io.Writer) {
	handler, ok := Slog.Handler().(*CustomHandler)
	if !ok {
		return
	}
	handler.out.mu.Lock()
	defer handler.out.mu.Unlock()
	handler.out.w = w
}
