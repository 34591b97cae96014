package clipboard

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	atotto "github.com/atotto/clipboard"

	"github.com/inkpress/inkpress/pkg/browser"
)

// systemBridge drives the OS clipboard and issues an OS-level paste
// keystroke into whatever window holds focus.
type systemBridge struct {
	goos string
}

func newSystemBridge() (*systemBridge, error) {
	if !systemToolsAvailable() {
		return nil, fmt.Errorf("%w: system clipboard tooling unavailable on %s", ErrPlatformUnsupported, runtime.GOOS)
	}
	return &systemBridge{goos: runtime.GOOS}, nil
}

func (b *systemBridge) Name() string { return StrategySystem }

func (b *systemBridge) CopyText(text string) error {
	if err := atotto.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: copy text: %w", err)
	}
	return nil
}

func (b *systemBridge) CopyHTML(html string) error {
	switch b.goos {
	case "darwin":
		// The clipboard wants the payload as raw HTML flavor, which
		// AppleScript expresses as hex-encoded class data.
		script := fmt.Sprintf("set the clipboard to «data HTML%s»", hex.EncodeToString([]byte(html)))
		return runOsascript(script)
	case "linux":
		cmd := exec.Command("xclip", "-selection", "clipboard", "-t", "text/html")
		cmd.Stdin = strings.NewReader(html)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("clipboard: xclip html copy: %w (%s)", err, strings.TrimSpace(string(out)))
		}
		return nil
	default:
		return fmt.Errorf("%w: html copy on %s", ErrPlatformUnsupported, b.goos)
	}
}

func (b *systemBridge) CopyImageFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("clipboard: resolve image path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("clipboard: image file: %w", err)
	}

	switch b.goos {
	case "darwin":
		script := fmt.Sprintf("set the clipboard to (read (POSIX file %q) as %s)", abs, appleImageClass(abs))
		return runOsascript(script)
	case "linux":
		cmd := exec.Command("xclip", "-selection", "clipboard", "-t", imageMIME(abs), "-i", abs)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("clipboard: xclip image copy: %w (%s)", err, strings.TrimSpace(string(out)))
		}
		return nil
	default:
		return fmt.Errorf("%w: image copy on %s", ErrPlatformUnsupported, b.goos)
	}
}

// Paste sends the platform paste chord at the OS level. The session is
// unused: the keystroke lands in the focused window, which the caller has
// already arranged to be the composer.
func (b *systemBridge) Paste(_ *browser.Session) error {
	switch b.goos {
	case "darwin":
		return runOsascript(`tell application "System Events" to keystroke "v" using command down`)
	case "linux":
		if out, err := exec.Command("xdotool", "key", "--clearmodifiers", "ctrl+v").CombinedOutput(); err != nil {
			return fmt.Errorf("clipboard: xdotool paste: %w (%s)", err, strings.TrimSpace(string(out)))
		}
		return nil
	default:
		return fmt.Errorf("%w: paste keystroke on %s", ErrPlatformUnsupported, b.goos)
	}
}

func runOsascript(script string) error {
	if out, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("clipboard: osascript: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// appleImageClass maps a file extension to the AppleScript clipboard class.
func appleImageClass(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "JPEG picture"
	case ".gif":
		return "GIF picture"
	default:
		return "«class PNGf»"
	}
}

// imageMIME maps a file extension to the clipboard target MIME type.
func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
