package clipboard

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/inkpress/inkpress/pkg/browser"
)

// ErrPlatformUnsupported means no clipboard strategy can run on this host.
// Fatal at startup: publishing cannot proceed without a paste path.
var ErrPlatformUnsupported = errors.New("clipboard: no supported bridge for this platform")

// Bridge is the paste path the publishing flow drives. Copy loads a payload;
// Paste delivers it into the focused editable region of the session.
type Bridge interface {
	// Name identifies the strategy for logs.
	Name() string

	// CopyText loads plain text.
	CopyText(text string) error

	// CopyHTML loads rich markup as an HTML-flavored payload, so editors
	// paste structure rather than angle brackets.
	CopyHTML(html string) error

	// CopyImageFile loads the image file's bytes.
	CopyImageFile(path string) error

	// Paste delivers the loaded payload into the session's focused element.
	Paste(session *browser.Session) error
}

// Strategy names accepted by Detect.
const (
	StrategyAuto      = "auto"
	StrategySystem    = "system"
	StrategySynthetic = "synthetic"
)

// Detect selects the bridge for this run. Strategy is one of "auto",
// "system", or "synthetic"; auto prefers the system path where the host's
// clipboard tooling is dependable and falls back to the synthetic path
// elsewhere.
func Detect(strategy string) (Bridge, error) {
	switch strategy {
	case StrategySystem:
		return newSystemBridge()
	case StrategySynthetic:
		return newSyntheticBridge(), nil
	case StrategyAuto, "":
		if b, err := newSystemBridge(); err == nil {
			return b, nil
		}
		return newSyntheticBridge(), nil
	default:
		return nil, fmt.Errorf("clipboard: unknown strategy %q", strategy)
	}
}

// systemToolsAvailable reports whether the host has the external tools the
// system strategy shells out to.
func systemToolsAvailable() bool {
	switch runtime.GOOS {
	case "darwin":
		_, err := exec.LookPath("osascript")
		return err == nil
	case "linux":
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return false
		}
		for _, tool := range []string{"xclip", "xdotool"} {
			if _, err := exec.LookPath(tool); err != nil {
				return false
			}
		}
		return true
	default:
		return false
	}
}
