package browser

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkpress/inkpress/pkg/cdp"
)

// ElementNotFoundError reports that no element matched a locator. Whether
// this aborts a run is the caller's call: a missing composer entry is fatal,
// a missing image placeholder is skip-and-continue.
type ElementNotFoundError struct {
	Locator string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("browser: no element found for %q", e.Locator)
}

// waitPollInterval is the delay between predicate probes in the wait
// helpers. Throttling only; polling stays the source of truth.
const waitPollInterval = 500 * time.Millisecond

// Evaluate runs an expression in the page and unmarshals its by-value
// result into out. Pass nil to run for effect only. Every higher-level
// state probe (current URL, element presence, field contents) goes through
// here.
func (s *Session) Evaluate(expression string, out any) error {
	raw, err := s.Call("Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	}, cdp.CallOpts{})
	if err != nil {
		return err
	}

	var body struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("browser: decode evaluate reply: %w", err)
	}
	if ex := body.ExceptionDetails; ex != nil {
		detail := ex.Text
		if ex.Exception != nil && ex.Exception.Description != "" {
			detail = ex.Exception.Description
		}
		return fmt.Errorf("browser: page exception: %s", detail)
	}
	if out == nil || body.Result.Value == nil {
		return nil
	}
	if err := json.Unmarshal(body.Result.Value, out); err != nil {
		return fmt.Errorf("browser: decode evaluate value: %w", err)
	}
	return nil
}

// CurrentURL reports the page's location.
func (s *Session) CurrentURL() (string, error) {
	var url string
	if err := s.Evaluate("window.location.href", &url); err != nil {
		return "", err
	}
	return url, nil
}

// elementBox is the center-point payload the locator scripts return.
type elementBox struct {
	Found bool    `json:"found"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// ClickLabel clicks the interactive element whose visible text equals
// label. Matching by label rather than structural selector survives the
// unstable class names reactive frameworks generate. When several elements
// carry the text (a container and its child), the innermost wins.
func (s *Session) ClickLabel(label string) error {
	script := fmt.Sprintf(`(() => {
		const label = %q;
		const nodes = document.querySelectorAll('a,button,[role="button"],input[type="submit"],span,div,li');
		let match = null;
		for (const el of nodes) {
			const text = (el.innerText || el.textContent || '').trim();
			if (text !== label) continue;
			const r = el.getBoundingClientRect();
			if (r.width <= 0 || r.height <= 0) continue;
			match = r; // document order: later matches are descendants
		}
		if (!match) return {found: false};
		return {found: true, x: match.x + match.width / 2, y: match.y + match.height / 2};
	})()`, label)
	return s.clickBox(script, label)
}

// ClickSelector clicks the first element matching a CSS selector.
func (s *Session) ClickSelector(selector string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return {found: false};
		const r = el.getBoundingClientRect();
		return {found: true, x: r.x + r.width / 2, y: r.y + r.height / 2};
	})()`, selector)
	return s.clickBox(script, selector)
}

// clickBox resolves a bounding box through the locator script and clicks
// its center. CDP has no "click this element" primitive, so coordinates are
// computed in-page and replayed as device input.
func (s *Session) clickBox(script, locator string) error {
	var box elementBox
	if err := s.Evaluate(script, &box); err != nil {
		return err
	}
	if !box.Found {
		return &ElementNotFoundError{Locator: locator}
	}
	return s.ClickAt(box.X, box.Y)
}

// ClickAt synthesizes a left mouse press/release pair at page coordinates.
func (s *Session) ClickAt(x, y float64) error {
	for _, eventType := range []string{"mousePressed", "mouseReleased"} {
		_, err := s.Call("Input.dispatchMouseEvent", map[string]any{
			"type":       eventType,
			"x":          x,
			"y":          y,
			"button":     "left",
			"clickCount": 1,
		}, cdp.CallOpts{})
		if err != nil {
			return fmt.Errorf("browser: dispatch %s: %w", eventType, err)
		}
	}
	return nil
}

// TypeText synthesizes one key-press pair per character. Used on the
// plain-content path only; rich HTML travels through the clipboard.
func (s *Session) TypeText(text string) error {
	for _, r := range text {
		ch := string(r)
		down := map[string]any{"type": "keyDown", "text": ch}
		up := map[string]any{"type": "keyUp", "text": ch}
		if _, err := s.Call("Input.dispatchKeyEvent", down, cdp.CallOpts{}); err != nil {
			return fmt.Errorf("browser: key down %q: %w", ch, err)
		}
		if _, err := s.Call("Input.dispatchKeyEvent", up, cdp.CallOpts{}); err != nil {
			return fmt.Errorf("browser: key up %q: %w", ch, err)
		}
	}
	return nil
}

// PressKey synthesizes a press/release pair for a named key, e.g.
// "Backspace" with Windows virtual key code 8.
func (s *Session) PressKey(key string, keyCode int) error {
	down := map[string]any{
		"type":                  "rawKeyDown",
		"key":                   key,
		"windowsVirtualKeyCode": keyCode,
		"nativeVirtualKeyCode":  keyCode,
	}
	up := map[string]any{
		"type":                  "keyUp",
		"key":                   key,
		"windowsVirtualKeyCode": keyCode,
		"nativeVirtualKeyCode":  keyCode,
	}
	if _, err := s.Call("Input.dispatchKeyEvent", down, cdp.CallOpts{}); err != nil {
		return fmt.Errorf("browser: press %s: %w", key, err)
	}
	if _, err := s.Call("Input.dispatchKeyEvent", up, cdp.CallOpts{}); err != nil {
		return fmt.Errorf("browser: release %s: %w", key, err)
	}
	return nil
}

// WaitFor polls a boolean page expression until it holds or the timeout
// elapses. The outcome is a plain bool so the caller decides fatality;
// evaluation errors count as "not yet".
func (s *Session) WaitFor(expression string, timeout time.Duration) bool {
	end := time.Now().Add(timeout)
	for {
		var ok bool
		if err := s.Evaluate(expression, &ok); err == nil && ok {
			return true
		}
		if time.Now().After(end) {
			return false
		}
		time.Sleep(waitPollInterval)
	}
}

// WaitForURL polls the page URL until match accepts it or the timeout
// elapses.
func (s *Session) WaitForURL(match func(string) bool, timeout time.Duration) bool {
	end := time.Now().Add(timeout)
	for {
		if url, err := s.CurrentURL(); err == nil && match(url) {
			return true
		}
		if time.Now().After(end) {
			return false
		}
		time.Sleep(waitPollInterval)
	}
}

// WaitForSelector polls for an element's presence.
func (s *Session) WaitForSelector(selector string, timeout time.Duration) bool {
	expr := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	return s.WaitFor(expr, timeout)
}

// ContainsText reports whether the page body mentions text verbatim.
func (s *Session) ContainsText(text string) (bool, error) {
	expr := fmt.Sprintf("document.body ? document.body.innerText.includes(%q) : false", text)
	var ok bool
	err := s.Evaluate(expr, &ok)
	return ok, err
}
