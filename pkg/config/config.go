// Package config loads run configuration from the process environment.
//
// Every setting has a flag-level counterpart in the CLI; environment values
// act as per-machine defaults and flags override them per invocation.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven configuration for a publishing run.
type Config struct {
	// DebugPort pins the CDP debugging port: only this port is probed for
	// a running browser, and a launch uses it too. Zero means no pin;
	// the well-known default port is probed and a launch picks a free one.
	DebugPort int `env:"INKPRESS_DEBUG_PORT"`

	// BrowserPath overrides browser binary discovery.
	BrowserPath string `env:"INKPRESS_BROWSER_PATH"`

	// BrowserProfileDir is the user-data directory for a launched browser.
	// Pointing it at a persistent directory keeps logins across runs.
	BrowserProfileDir string `env:"INKPRESS_BROWSER_PROFILE_DIR"`

	// EditorProfile is the path of the editor profile YAML. Empty selects
	// the built-in default profile.
	EditorProfile string `env:"INKPRESS_EDITOR_PROFILE"`

	// Clipboard selects the bridge strategy: auto, system, or synthetic.
	Clipboard string `env:"INKPRESS_CLIPBOARD" envDefault:"auto"`

	// Headless launches the browser without a window. Interactive logins
	// cannot complete headless, so this suits pre-authenticated browser
	// profiles only.
	Headless bool `env:"INKPRESS_HEADLESS"`

	// LoginTimeout bounds the wait for a human to finish logging in.
	LoginTimeout time.Duration `env:"INKPRESS_LOGIN_TIMEOUT" envDefault:"2m"`

	// NewTabTimeout bounds the wait for the composer tab to open.
	NewTabTimeout time.Duration `env:"INKPRESS_NEW_TAB_TIMEOUT" envDefault:"30s"`

	// SaveConfirmWait bounds the wait for the save confirmation indicator.
	SaveConfirmWait time.Duration `env:"INKPRESS_SAVE_CONFIRM_WAIT" envDefault:"10s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no run could work with.
func (c Config) Validate() error {
	if c.DebugPort < 0 || c.DebugPort > 65535 {
		return fmt.Errorf("config: debug port %d out of range", c.DebugPort)
	}
	switch c.Clipboard {
	case "auto", "system", "synthetic":
	default:
		return fmt.Errorf("config: unknown clipboard strategy %q", c.Clipboard)
	}
	for name, d := range map[string]time.Duration{
		"login timeout":     c.LoginTimeout,
		"new tab timeout":   c.NewTabTimeout,
		"save confirm wait": c.SaveConfirmWait,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	return nil
}
