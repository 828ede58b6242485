package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomHandler_RendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(NewCustomHandler(&buf, nil)).With(ComponentKey, "mirror", "name", "MiniLed")

	lg.Info("cache updated", "value", true)

	out := buf.String()
	assert.Contains(t, out, "[mirror]")
	assert.Contains(t, out, "cache updated")
	assert.Contains(t, out, "name=MiniLed")
	assert.Contains(t, out, "value=true")
}

func TestCustomHandler_LevelSharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	h := NewCustomHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	child := slog.New(h).With(ComponentKey, "channel")

	child.Debug("hidden")
	assert.Empty(t, buf.String())

	h.level.Set(slog.LevelDebug)
	child.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestCustomHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(NewCustomHandler(&buf, nil)).WithGroup("aura")

	lg.Warn("decode", "mode", "Comet")

	assert.Contains(t, buf.String(), "aura.mode=Comet")
}
