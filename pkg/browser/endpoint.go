package browser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// endpointPollInterval is the delay between discovery attempts in
// WaitForEndpoint.
const endpointPollInterval = 250 * time.Millisecond

// versionInfo mirrors the fields we need from the /json/version endpoint.
type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// DiscoverEndpoint asks the debug port for its websocket URL, failing fast
// when nothing is listening. Use WaitForEndpoint for a freshly launched
// browser that may not be up yet.
func DiscoverEndpoint(port int) (string, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)

	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("browser: debug endpoint probe on port %d: %w", port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("browser: debug endpoint on port %d returned %s", port, resp.Status)
	}

	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("browser: decode version info from port %d: %w", port, err)
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("browser: port %d reported no websocket debugger URL", port)
	}
	return info.WebSocketDebuggerURL, nil
}

// WaitForEndpoint polls the debug port until it yields a websocket URL or
// the deadline elapses.
func WaitForEndpoint(port int, deadline time.Duration) (string, error) {
	var lastErr error
	end := time.Now().Add(deadline)
	for {
		url, err := DiscoverEndpoint(port)
		if err == nil {
			return url, nil
		}
		lastErr = err
		if time.Now().After(end) {
			return "", fmt.Errorf("browser: debug endpoint on port %d not ready after %s: %w", port, deadline, lastErr)
		}
		time.Sleep(endpointPollInterval)
	}
}
