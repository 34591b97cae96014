package clipboard

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inkpress/inkpress/pkg/browser"
)

// payloadKind tags what the synthetic bridge is holding.
type payloadKind int

const (
	payloadNone payloadKind = iota
	payloadText
	payloadHTML
	payloadImage
)

// syntheticBridge never touches the OS clipboard. Copy stores the payload;
// Paste builds a ClipboardEvent carrying it and dispatches that directly on
// the focused editable region.
type syntheticBridge struct {
	kind payloadKind
	text string
	html string

	imageB64  string
	imageMIME string
	imageName string
}

func newSyntheticBridge() *syntheticBridge {
	return &syntheticBridge{}
}

func (b *syntheticBridge) Name() string { return StrategySynthetic }

func (b *syntheticBridge) CopyText(text string) error {
	b.kind = payloadText
	b.text = text
	return nil
}

func (b *syntheticBridge) CopyHTML(html string) error {
	b.kind = payloadHTML
	b.html = html
	return nil
}

func (b *syntheticBridge) CopyImageFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("clipboard: read image file: %w", err)
	}
	b.kind = payloadImage
	b.imageB64 = base64.StdEncoding.EncodeToString(data)
	b.imageMIME = imageMIME(path)
	b.imageName = filepath.Base(path)
	return nil
}

func (b *syntheticBridge) Paste(session *browser.Session) error {
	if session == nil {
		return fmt.Errorf("clipboard: synthetic paste needs a page session")
	}
	script, err := b.pasteScript()
	if err != nil {
		return err
	}
	if err := session.Evaluate(script, nil); err != nil {
		return fmt.Errorf("clipboard: dispatch synthetic paste: %w", err)
	}
	return nil
}

// pasteScript builds the in-page dispatch for the held payload.
func (b *syntheticBridge) pasteScript() (string, error) {
	switch b.kind {
	case payloadText:
		return fmt.Sprintf(`(() => {
			const dt = new DataTransfer();
			dt.setData('text/plain', %q);
			const ev = new ClipboardEvent('paste', {clipboardData: dt, bubbles: true, cancelable: true});
			(document.activeElement || document.body).dispatchEvent(ev);
		})()`, b.text), nil
	case payloadHTML:
		return fmt.Sprintf(`(() => {
			const dt = new DataTransfer();
			dt.setData('text/html', %q);
			dt.setData('text/plain', %q);
			const ev = new ClipboardEvent('paste', {clipboardData: dt, bubbles: true, cancelable: true});
			(document.activeElement || document.body).dispatchEvent(ev);
		})()`, b.html, b.html), nil
	case payloadImage:
		return fmt.Sprintf(`(() => {
			const bytes = Uint8Array.from(atob(%q), c => c.charCodeAt(0));
			const file = new File([bytes], %q, {type: %q});
			const dt = new DataTransfer();
			dt.items.add(file);
			const ev = new ClipboardEvent('paste', {clipboardData: dt, bubbles: true, cancelable: true});
			(document.activeElement || document.body).dispatchEvent(ev);
		})()`, b.imageB64, b.imageName, b.imageMIME), nil
	default:
		return "", fmt.Errorf("clipboard: paste before any copy")
	}
}
