package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkpress/inkpress/pkg/cdp"
)

// ErrTabTimeout reports that no matching tab appeared before the deadline.
// Distinct from ElementNotFoundError: the page was fine, the tab never came.
var ErrTabTimeout = errors.New("browser: timed out waiting for tab")

// tabPollInterval is the delay between target-list polls.
const tabPollInterval = 500 * time.Millisecond

// Session is an attached handle to one target. It references the shared
// connection without owning it; after the connection closes every session
// call fails with the transport's closed error.
type Session struct {
	conn     *cdp.Conn
	ID       string // CDP session id
	TargetID string
}

// Conn returns the connection this session is multiplexed over.
func (s *Session) Conn() *cdp.Conn { return s.conn }

// Call issues a protocol call scoped to this session's target.
func (s *Session) Call(method string, params any, opts cdp.CallOpts) (json.RawMessage, error) {
	opts.SessionID = s.ID
	return s.conn.Call(method, params, opts)
}

// TargetInfo describes one controllable browser surface.
type TargetInfo struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Attached bool   `json:"attached"`
}

// Targets lists the browser's current targets.
func Targets(conn *cdp.Conn) ([]TargetInfo, error) {
	raw, err := conn.Call("Target.getTargets", nil, cdp.CallOpts{})
	if err != nil {
		return nil, err
	}
	var body struct {
		TargetInfos []TargetInfo `json:"targetInfos"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("browser: decode target list: %w", err)
	}
	return body.TargetInfos, nil
}

// CreateTarget opens a new tab at url and attaches to it.
func CreateTarget(conn *cdp.Conn, url string) (*Session, error) {
	raw, err := conn.Call("Target.createTarget", map[string]any{"url": url}, cdp.CallOpts{})
	if err != nil {
		return nil, fmt.Errorf("browser: create target: %w", err)
	}
	var body struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("browser: decode createTarget reply: %w", err)
	}
	return AttachToTarget(conn, body.TargetID)
}

// AttachToTarget attaches with flat session semantics: the session id goes
// on each call envelope instead of tunnelling nested messages.
func AttachToTarget(conn *cdp.Conn, targetID string) (*Session, error) {
	raw, err := conn.Call("Target.attachToTarget", map[string]any{
		"targetId": targetID,
		"flatten":  true,
	}, cdp.CallOpts{})
	if err != nil {
		return nil, fmt.Errorf("browser: attach to target %s: %w", targetID, err)
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("browser: decode attachToTarget reply: %w", err)
	}
	return &Session{conn: conn, ID: body.SessionID, TargetID: targetID}, nil
}

// EnableDomains switches on the capability domains page automation needs.
func (s *Session) EnableDomains() error {
	for _, method := range []string{"Page.enable", "Runtime.enable", "DOM.enable"} {
		if _, err := s.Call(method, nil, cdp.CallOpts{}); err != nil {
			return fmt.Errorf("browser: %s: %w", method, err)
		}
	}
	return nil
}

// CloseTarget closes this session's tab. The session is unusable afterwards.
func (s *Session) CloseTarget() error {
	_, err := s.conn.Call("Target.closeTarget", map[string]any{"targetId": s.TargetID}, cdp.CallOpts{})
	if err != nil {
		return fmt.Errorf("browser: close target %s: %w", s.TargetID, err)
	}
	return nil
}

// WaitForNewTab polls the target list until a page target appears whose id
// is not in known and whose URL contains urlSubstring. Fails with
// ErrTabTimeout once the deadline elapses.
func WaitForNewTab(conn *cdp.Conn, known map[string]bool, urlSubstring string, timeout time.Duration) (*Session, error) {
	end := time.Now().Add(timeout)
	for {
		targets, err := Targets(conn)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			if t.Type != "page" || known[t.TargetID] {
				continue
			}
			if strings.Contains(t.URL, urlSubstring) {
				return AttachToTarget(conn, t.TargetID)
			}
		}
		if time.Now().After(end) {
			return nil, fmt.Errorf("%w: no new tab matching %q within %s", ErrTabTimeout, urlSubstring, timeout)
		}
		time.Sleep(tabPollInterval)
	}
}

// KnownTargetIDs snapshots the current page-target ids, for use as the
// exclusion set of a later WaitForNewTab.
func KnownTargetIDs(conn *cdp.Conn) (map[string]bool, error) {
	targets, err := Targets(conn)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(targets))
	for _, t := range targets {
		known[t.TargetID] = true
	}
	return known, nil
}

// PageSession attaches to an existing page target whose URL contains
// urlSubstring and enables the capability domains on it. Returns nil, nil
// when no target matches, leaving the fallback decision to the caller.
func PageSession(conn *cdp.Conn, urlSubstring string) (*Session, error) {
	targets, err := Targets(conn)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if t.Type != "page" || !strings.Contains(t.URL, urlSubstring) {
			continue
		}
		session, err := AttachToTarget(conn, t.TargetID)
		if err != nil {
			return nil, err
		}
		if err := session.EnableDomains(); err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, nil
}
