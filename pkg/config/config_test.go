package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	// Zero port means no pin: probe the well-known default, launch on a
	// free port.
	assert.Equal(t, 0, cfg.DebugPort)
	assert.Equal(t, "auto", cfg.Clipboard)
	assert.Equal(t, 2*time.Minute, cfg.LoginTimeout)
	assert.Equal(t, 30*time.Second, cfg.NewTabTimeout)
	assert.Equal(t, 10*time.Second, cfg.SaveConfirmWait)
	assert.False(t, cfg.Headless)
	assert.Empty(t, cfg.BrowserPath)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("INKPRESS_DEBUG_PORT", "9333")
	t.Setenv("INKPRESS_BROWSER_PATH", "/opt/chrome/chrome")
	t.Setenv("INKPRESS_CLIPBOARD", "synthetic")
	t.Setenv("INKPRESS_LOGIN_TIMEOUT", "45s")
	t.Setenv("INKPRESS_HEADLESS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9333, cfg.DebugPort)
	assert.Equal(t, "/opt/chrome/chrome", cfg.BrowserPath)
	assert.Equal(t, "synthetic", cfg.Clipboard)
	assert.Equal(t, 45*time.Second, cfg.LoginTimeout)
	assert.True(t, cfg.Headless)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "INKPRESS_DEBUG_PORT", "99999"},
		{"negative port", "INKPRESS_DEBUG_PORT", "-1"},
		{"unknown clipboard strategy", "INKPRESS_CLIPBOARD", "telekinesis"},
		{"zero login timeout", "INKPRESS_LOGIN_TIMEOUT", "0s"},
		{"negative tab timeout", "INKPRESS_NEW_TAB_TIMEOUT", "-5s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
