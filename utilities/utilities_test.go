package utilities

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNonBlockingSender_KeepsLatest(t *testing.T) {
	ch := make(chan int, 1)
	send := CreateNonBlockingSender(ch)

	send(1)
	send(2)
	send(3)

	require.Len(t, ch, 1)
	assert.Equal(t, 3, <-ch)
}

func TestConfigDir_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/rogquick", ConfigDir("rogquick"))
}

func TestConfigDir_FallsBackToHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/user")
	assert.Equal(t, "/home/user/.config/rogquick", ConfigDir("rogquick"))
}

func TestOnBattery(t *testing.T) {
	dir := t.TempDir()
	old := powerSupplyPath
	powerSupplyPath = dir + "/"
	t.Cleanup(func() { powerSupplyPath = old })

	assert.False(t, OnBattery(), "no adapter means mains")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "AC0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AC0", "online"), []byte("0\n"), 0o644))
	assert.True(t, OnBattery())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "AC0", "online"), []byte("1\n"), 0o644))
	assert.False(t, OnBattery())
}

func TestSafeState_Swap(t *testing.T) {
	s := NewSafeState("a")
	assert.Equal(t, "a", s.Swap("b"))
	assert.Equal(t, "b", s.Get())
}
