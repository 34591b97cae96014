package browser

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/inkpress/inkpress/pkg/cdp"
)

// Default values for attach-or-launch.
const (
	DefaultDebugPort      = 9222
	DefaultEndpointWait   = 20 * time.Second
	defaultDialTimeout    = 5 * time.Second
	defaultProfileDirName = "browser-profile"
)

// LaunchOptions configures a freshly started browser process.
type LaunchOptions struct {
	// BinaryPath is the browser executable. Empty means probe the
	// well-known install locations for the host platform.
	BinaryPath string

	// ProfileDir is the user-data directory. Empty means a dedicated
	// directory under the user's home, so automation never touches the
	// default profile.
	ProfileDir string

	// Port is the remote-debugging port. Zero means allocate a free one.
	Port int

	// Headless starts the browser without a window. Publishing runs keep
	// this off so a human can watch and repair.
	Headless bool

	// ExtraArgs are appended verbatim to the command line.
	ExtraArgs []string
}

// AttachOptions configures AttachOrLaunch.
type AttachOptions struct {
	// PortOverride, when non-zero, is the only port probed for a running
	// browser and the port used for a launch.
	PortOverride int

	// CandidatePorts are probed in order for an already-running browser.
	// Empty means the well-known default debug port.
	CandidatePorts []int

	// Launch configures the fallback launch when no candidate responds.
	Launch LaunchOptions

	// EndpointWait bounds how long a launched browser may take to open its
	// debug endpoint. Zero means DefaultEndpointWait.
	EndpointWait time.Duration
}

// AttachOrLaunch connects to an already-running browser's debug endpoint
// when one is found, and otherwise launches a new browser and waits for its
// endpoint. The second return reports whether a launch happened; a launched
// process is owned by the caller's run and intentionally never terminated.
func AttachOrLaunch(opts AttachOptions) (*cdp.Conn, bool, error) {
	ports := opts.CandidatePorts
	if opts.PortOverride != 0 {
		ports = []int{opts.PortOverride}
	}
	if len(ports) == 0 {
		ports = []int{DefaultDebugPort}
	}

	for _, port := range ports {
		url, err := DiscoverEndpoint(port)
		if err != nil {
			continue
		}
		conn, err := cdp.Dial(url, defaultDialTimeout)
		if err != nil {
			return nil, false, fmt.Errorf("browser: attach to running browser on port %d: %w", port, err)
		}
		return conn, false, nil
	}

	launch := opts.Launch
	if launch.Port == 0 {
		if opts.PortOverride != 0 {
			launch.Port = opts.PortOverride
		} else {
			port, err := FreePort()
			if err != nil {
				return nil, false, err
			}
			launch.Port = port
		}
	}

	if err := Launch(launch); err != nil {
		return nil, false, err
	}

	wait := opts.EndpointWait
	if wait == 0 {
		wait = DefaultEndpointWait
	}
	url, err := WaitForEndpoint(launch.Port, wait)
	if err != nil {
		return nil, true, err
	}
	conn, err := cdp.Dial(url, defaultDialTimeout)
	if err != nil {
		return nil, true, fmt.Errorf("browser: connect to launched browser: %w", err)
	}
	return conn, true, nil
}

// Launch starts a browser process with remote debugging enabled and returns
// without waiting for the debug endpoint. The process is detached: it
// survives this program's exit.
func Launch(opts LaunchOptions) error {
	binary := opts.BinaryPath
	if binary == "" {
		found, err := findBinary()
		if err != nil {
			return err
		}
		binary = found
	}

	profileDir := opts.ProfileDir
	if profileDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("browser: resolve home directory: %w", err)
		}
		profileDir = filepath.Join(home, ".inkpress", defaultProfileDirName)
	}
	if err := os.MkdirAll(profileDir, 0o750); err != nil {
		return fmt.Errorf("browser: create profile dir: %w", err)
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", opts.Port),
		"--user-data-dir=" + profileDir,
		"--no-first-run",
		"--no-default-browser-check",
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	args = append(args, opts.ExtraArgs...)

	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: launch %s: %w", binary, err)
	}
	// Reap the child if it ever exits, without tying its lifetime to ours.
	go func() { _ = cmd.Wait() }()
	return nil
}

// FreePort asks the kernel for an unused TCP port.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("browser: allocate free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// findBinary probes the usual install locations for a Chromium-family
// browser on the host platform.
func findBinary() (string, error) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	case "windows":
		candidates = []string{
			filepath.Join(os.Getenv("ProgramFiles"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("LocalAppData"), "Google", "Chrome", "Application", "chrome.exe"),
		}
	default:
		for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
			if path, err := exec.LookPath(name); err == nil {
				return path, nil
			}
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("browser: no browser binary found; set one explicitly")
}
