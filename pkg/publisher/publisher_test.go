package publisher

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/pkg/browser"
	"github.com/inkpress/inkpress/pkg/cdp/cdptest"
	"github.com/inkpress/inkpress/pkg/clipboard"
)

// recordBridge is a clipboard.Bridge that only records what the flow asked
// it to move.
type recordBridge struct {
	mu          sync.Mutex
	htmlCopies  []string
	textCopies  []string
	imageCopies []string
	pastes      int
}

func (b *recordBridge) Name() string { return "record" }

func (b *recordBridge) CopyText(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textCopies = append(b.textCopies, text)
	return nil
}

func (b *recordBridge) CopyHTML(html string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.htmlCopies = append(b.htmlCopies, html)
	return nil
}

func (b *recordBridge) CopyImageFile(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.imageCopies = append(b.imageCopies, path)
	return nil
}

func (b *recordBridge) Paste(_ *browser.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pastes++
	return nil
}

var _ clipboard.Bridge = (*recordBridge)(nil)

// fakeEditor scripts a minimal article editor behind a cdptest server: a
// home tab, a composer tab that opens on the labelled click, and an
// auxiliary tab for markup extraction.
type fakeEditor struct {
	srv     *cdptest.Server
	profile EditorProfile

	mu              sync.Mutex
	targets         []browser.TargetInfo
	placeholderHits int

	homeURL       string // current URL of the home tab
	composerURL   string
	markup        string // what the auxiliary tab serializes to
	composerOpens bool   // whether the labelled click spawns the composer tab
}

var setValueRe = regexp.MustCompile(`el\.value = "([^"]*)";`)

func newFakeEditor(t *testing.T, profile EditorProfile) *fakeEditor {
	t.Helper()
	f := &fakeEditor{
		srv:           cdptest.New(),
		profile:       profile,
		composerURL:   "https://editor.example/compose?id=9",
		composerOpens: true,
	}
	t.Cleanup(f.srv.Close)

	f.srv.Handle("Target.attachToTarget", func(call cdptest.Call) (any, error) {
		var params struct {
			TargetID string `json:"targetId"`
		}
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return nil, err
		}
		return map[string]string{"sessionId": "S-" + params.TargetID}, nil
	})

	f.srv.Handle("Target.getTargets", func(cdptest.Call) (any, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]browser.TargetInfo, len(f.targets))
		copy(out, f.targets)
		return map[string]any{"targetInfos": out}, nil
	})

	f.srv.Handle("Target.createTarget", func(call cdptest.Call) (any, error) {
		var params struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return nil, err
		}
		id := "T-HOME"
		url := f.homeURL
		if strings.HasPrefix(params.URL, "file://") {
			id, url = "T-AUX", params.URL
		}
		f.addTarget(id, url)
		return map[string]string{"targetId": id}, nil
	})

	f.srv.Handle("Runtime.evaluate", f.evaluate)
	return f
}

func (f *fakeEditor) addTarget(id, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, browser.TargetInfo{TargetID: id, Type: "page", URL: url})
}

// withAuthenticatedHome seeds a home tab already inside the authenticated
// area.
func (f *fakeEditor) withAuthenticatedHome(url string) *fakeEditor {
	f.homeURL = url
	f.addTarget("T-HOME", url)
	return f
}

func (f *fakeEditor) evaluate(call cdptest.Call) (any, error) {
	var params struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, err
	}
	expr := params.Expression

	value := func(v any) map[string]any {
		return map[string]any{"result": map[string]any{"value": v}}
	}

	switch {
	case strings.Contains(expr, "window.location.href"):
		f.mu.Lock()
		url := f.homeURL
		f.mu.Unlock()
		if call.SessionID == "S-T-COMP" {
			url = f.composerURL
		}
		return value(url), nil

	case strings.Contains(expr, "createTreeWalker"):
		f.mu.Lock()
		f.placeholderHits++
		f.mu.Unlock()
		return value(true), nil

	case strings.Contains(expr, "previousElementSibling"):
		return value(0), nil

	case strings.Contains(expr, "innerText.length"):
		return value(42), nil

	case strings.Contains(expr, "document.body.innerHTML"):
		return value(f.markup), nil

	case strings.Contains(expr, "document.readyState"):
		return value(true), nil

	case strings.Contains(expr, ".includes("):
		return value(true), nil // save confirmation probe

	case strings.Contains(expr, "querySelectorAll('a,button"):
		if strings.Contains(expr, f.profile.ComposerLabel) && f.composerOpens {
			f.mu.Lock()
			seen := false
			for _, tg := range f.targets {
				seen = seen || tg.TargetID == "T-COMP"
			}
			if !seen {
				f.targets = append(f.targets, browser.TargetInfo{TargetID: "T-COMP", Type: "page", URL: f.composerURL})
			}
			f.mu.Unlock()
		}
		return value(map[string]any{"found": true, "x": 40.0, "y": 12.0}), nil

	case strings.Contains(expr, "dispatchEvent(new Event('input'"):
		written := ""
		if m := setValueRe.FindStringSubmatch(expr); m != nil {
			written = m[1]
		}
		return value(map[string]any{"found": true, "value": written}), nil

	case strings.Contains(expr, "getBoundingClientRect"):
		return value(map[string]any{"found": true, "x": 100.0, "y": 200.0}), nil

	default:
		return value(nil), nil
	}
}

func testOptions(f *fakeEditor, bridge clipboard.Bridge) Options {
	return Options{
		Profile:         f.profile,
		Bridge:          bridge,
		Attach:          browser.AttachOptions{PortOverride: f.srv.Port()},
		LoginTimeout:    2 * time.Second,
		NewTabTimeout:   3 * time.Second,
		SaveConfirmWait: time.Second,
	}
}

func evaluateExprs(f *fakeEditor) []string {
	var out []string
	for _, call := range f.srv.CallsTo("Runtime.evaluate") {
		var params struct {
			Expression string `json:"expression"`
		}
		_ = json.Unmarshal(call.Params, &params)
		out = append(out, params.Expression)
	}
	return out
}

func TestRunRichDocumentEndToEnd(t *testing.T) {
	profile := DefaultProfile()
	f := newFakeEditor(t, profile).withAuthenticatedHome("https://editor.example/cgi-bin/home")
	f.markup = "<p>First paragraph</p><p>Second paragraph</p>PH_1"

	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(imgPath, []byte{0x89, 'P', 'N', 'G'}, 0o600))
	htmlPath := filepath.Join(dir, "article.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte(
		"<p>First paragraph</p>\n<p>Second paragraph</p>\n<img src=\"PH_1\">"), 0o600))

	bridge := &recordBridge{}
	pub, err := New(testOptions(f, bridge))
	require.NoError(t, err)

	res, err := pub.Run(PublishRequest{
		Title:    "My Title",
		Author:   "Jo",
		HTMLPath: htmlPath,
		Images:   []ImageInfo{{Placeholder: "PH_1", LocalPath: imgPath}},
		Submit:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.Confirmed, "save confirmation was scripted to appear")
	assert.Equal(t, 1, res.ImagesInserted)
	assert.Empty(t, res.SkippedPlaceholders)

	// Title made it into the composer.
	var sawTitle bool
	for _, expr := range evaluateExprs(f) {
		if strings.Contains(expr, profile.TitleSelector) && strings.Contains(expr, "My Title") {
			sawTitle = true
		}
	}
	assert.True(t, sawTitle, "title fill script never ran")

	// The placeholder was located exactly once.
	assert.Equal(t, 1, f.placeholderHits)

	// Markup travelled through the bridge, then the image.
	require.Len(t, bridge.htmlCopies, 1)
	assert.Equal(t, f.markup, bridge.htmlCopies[0])
	assert.Equal(t, []string{imgPath}, bridge.imageCopies)
	assert.GreaterOrEqual(t, bridge.pastes, 2)

	// The placeholder was deleted with a backspace before the paste.
	var sawBackspace bool
	for _, call := range f.srv.CallsTo("Input.dispatchKeyEvent") {
		if strings.Contains(string(call.Params), "Backspace") {
			sawBackspace = true
		}
	}
	assert.True(t, sawBackspace)

	// The auxiliary tab was closed after extraction.
	closes := f.srv.CallsTo("Target.closeTarget")
	require.Len(t, closes, 1)
	assert.Contains(t, string(closes[0].Params), "T-AUX")
}

func TestRunLoginTimeoutIsFatal(t *testing.T) {
	profile := DefaultProfile()
	f := newFakeEditor(t, profile)
	f.homeURL = "https://editor.example/login"

	bridge := &recordBridge{}
	opts := testOptions(f, bridge)
	opts.LoginTimeout = 400 * time.Millisecond

	pub, err := New(opts)
	require.NoError(t, err)

	res, err := pub.Run(PublishRequest{Title: "T", PlainContent: "body", Submit: true})
	require.Error(t, err)

	var lt *LoginTimeoutError
	require.ErrorAs(t, err, &lt)
	assert.Equal(t, StateFailed, res.State)

	// No save was attempted.
	for _, expr := range evaluateExprs(f) {
		assert.NotContains(t, expr, profile.SubmitLabel)
	}
}

func TestRunComposerTabNeverAppears(t *testing.T) {
	profile := DefaultProfile()
	f := newFakeEditor(t, profile).withAuthenticatedHome("https://editor.example/cgi-bin/home")
	f.composerOpens = false

	bridge := &recordBridge{}
	opts := testOptions(f, bridge)
	opts.NewTabTimeout = 400 * time.Millisecond

	pub, err := New(opts)
	require.NoError(t, err)

	res, err := pub.Run(PublishRequest{Title: "T", PlainContent: "body", Submit: true})
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)

	// The failure is a tab timeout, distinguishable from a missing element.
	assert.ErrorIs(t, err, browser.ErrTabTimeout)
	var enf *browser.ElementNotFoundError
	assert.False(t, errors.As(err, &enf))
}

func TestRunPlainContentPath(t *testing.T) {
	profile := DefaultProfile()
	f := newFakeEditor(t, profile).withAuthenticatedHome("https://editor.example/cgi-bin/home")

	bridge := &recordBridge{}
	pub, err := New(testOptions(f, bridge))
	require.NoError(t, err)

	res, err := pub.Run(PublishRequest{Title: "T", PlainContent: "Hi!", Submit: false})
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.False(t, res.Confirmed, "submit was disabled")
	assert.Empty(t, bridge.htmlCopies)

	// One key-press pair per character.
	keyEvents := f.srv.CallsTo("Input.dispatchKeyEvent")
	assert.Len(t, keyEvents, 6)

	// Submit disabled: the save control was never clicked.
	for _, expr := range evaluateExprs(f) {
		assert.NotContains(t, expr, profile.SubmitLabel)
	}
}

func TestRunSkipsUnlocatablePlaceholder(t *testing.T) {
	profile := DefaultProfile()
	f := newFakeEditor(t, profile).withAuthenticatedHome("https://editor.example/cgi-bin/home")
	f.markup = "<p>Body without the token</p>"

	// The locate script reports the token missing.
	missingLocate := func(call cdptest.Call) (any, error) {
		var params struct {
			Expression string `json:"expression"`
		}
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return nil, err
		}
		if strings.Contains(params.Expression, "createTreeWalker") {
			return map[string]any{"result": map[string]any{"value": false}}, nil
		}
		return f.evaluate(call)
	}
	f.srv.Handle("Runtime.evaluate", missingLocate)

	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(imgPath, []byte{1}, 0o600))
	htmlPath := filepath.Join(dir, "article.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte(`<p>Body</p><img src="PH_1">`), 0o600))

	bridge := &recordBridge{}
	pub, err := New(testOptions(f, bridge))
	require.NoError(t, err)

	res, err := pub.Run(PublishRequest{
		Title:    "T",
		HTMLPath: htmlPath,
		Images:   []ImageInfo{{Placeholder: "PH_1", LocalPath: imgPath}},
		Submit:   true,
	})
	require.NoError(t, err, "a missing placeholder degrades, never aborts")

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 0, res.ImagesInserted)
	assert.Equal(t, []string{"PH_1"}, res.SkippedPlaceholders)
	assert.Empty(t, bridge.imageCopies)
}

func TestNewRequiresBridgeAndValidProfile(t *testing.T) {
	_, err := New(Options{Profile: DefaultProfile()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge")

	p := DefaultProfile()
	p.ComposerLabel = ""
	_, err = New(Options{Profile: p, Bridge: &recordBridge{}})
	require.Error(t, err)
}

func TestRunRejectsAmbiguousContent(t *testing.T) {
	pub, err := New(Options{Profile: DefaultProfile(), Bridge: &recordBridge{}})
	require.NoError(t, err)

	res, err := pub.Run(PublishRequest{HTMLPath: "a.html", PlainContent: "text"})
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)

	res, err = pub.Run(PublishRequest{})
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
}
