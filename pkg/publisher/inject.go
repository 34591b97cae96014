package publisher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/inkpress/inkpress/pkg/browser"
)

// auxReadyTimeout bounds how long the auxiliary tab may take to render the
// document before markup extraction.
const auxReadyTimeout = 10 * time.Second

// injectBody transfers the request's content into the composer and returns
// the ordered placeholder descriptors InsertImages still has to resolve.
// The extracted markup flows through return values only; nothing is shared
// between the auxiliary tab and the composer tab except the clipboard.
func (p *Publisher) injectBody(req PublishRequest) ([]ImageInfo, error) {
	p.transition(StateInjectBody)

	if req.HTMLPath != "" {
		return p.injectRichHTML(req)
	}
	return nil, p.injectPlainContent(req)
}

// injectRichHTML renders the document in a throwaway tab, extracts its
// browser-normalized markup with images already collapsed to placeholder
// text, and pastes that markup into the composer. Text travels before
// images so every placeholder is present when InsertImages runs.
func (p *Publisher) injectRichHTML(req PublishRequest) ([]ImageInfo, error) {
	data, err := os.ReadFile(req.HTMLPath)
	if err != nil {
		return nil, fmt.Errorf("publisher: read document: %w", err)
	}

	prepared, images, err := InjectPlaceholders(string(data), req.Images)
	if err != nil {
		return nil, err
	}
	p.log.Infof("document carries %d image placeholder(s)", len(images))

	markup, err := p.extractMarkup(prepared)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		if findToken(markup, img.Placeholder) < 0 {
			p.log.Warnf("placeholder %s absent from extracted markup; insertion will likely skip it", img.Placeholder)
		}
	}

	if err := p.focusEditor(); err != nil {
		return nil, err
	}
	if err := p.bridge.CopyHTML(markup); err != nil {
		return nil, err
	}
	if err := p.bridge.Paste(p.composer); err != nil {
		return nil, err
	}
	time.Sleep(stepThrottle)

	p.checkEditorNotEmpty()
	return images, nil
}

// extractMarkup opens the prepared document in an auxiliary tab and returns
// the body's serialized markup. The tab is closed before returning; the
// markup is the only thing that leaves it.
func (p *Publisher) extractMarkup(prepared string) (string, error) {
	tmp := filepath.Join(os.TempDir(), "inkpress-aux-"+uuid.NewString()+".html")
	if err := os.WriteFile(tmp, []byte(prepared), 0o600); err != nil {
		return "", fmt.Errorf("publisher: stage document: %w", err)
	}
	defer os.Remove(tmp)

	aux, err := browser.CreateTarget(p.conn, "file://"+tmp)
	if err != nil {
		return "", fmt.Errorf("publisher: open auxiliary tab: %w", err)
	}
	defer func() {
		if err := aux.CloseTarget(); err != nil {
			p.log.Warnf("close auxiliary tab: %v", err)
		}
	}()

	if err := aux.EnableDomains(); err != nil {
		return "", err
	}
	if !aux.WaitFor("document.readyState === 'complete'", auxReadyTimeout) {
		p.log.Warnf("auxiliary tab never reported complete; extracting anyway")
	}

	var markup string
	if err := aux.Evaluate("document.body.innerHTML", &markup); err != nil {
		return "", fmt.Errorf("publisher: extract markup: %w", err)
	}
	return markup, nil
}

// injectPlainContent pastes inline images in source order, then types the
// text one synthesized keystroke at a time.
func (p *Publisher) injectPlainContent(req PublishRequest) error {
	if err := p.focusEditor(); err != nil {
		return err
	}

	for _, img := range req.Images {
		if err := p.bridge.CopyImageFile(img.LocalPath); err != nil {
			p.log.Warnf("copy inline image %s: %v; skipping", img.LocalPath, err)
			p.result.SkippedPlaceholders = append(p.result.SkippedPlaceholders, img.Placeholder)
			continue
		}
		if err := p.bridge.Paste(p.composer); err != nil {
			return err
		}
		p.result.ImagesInserted++
		time.Sleep(stepThrottle)
	}

	if err := p.composer.TypeText(req.PlainContent); err != nil {
		return err
	}
	p.checkEditorNotEmpty()
	return nil
}

// focusEditor clicks into the editing region so paste and keystrokes land
// in it.
func (p *Publisher) focusEditor() error {
	if err := p.composer.ClickSelector(p.profile.EditorSelector); err != nil {
		return fmt.Errorf("publisher: focus editor: %w", err)
	}
	return nil
}

// checkEditorNotEmpty reads the composer's rendered text length after a
// transfer. Zero length is a warning, not failure: the save step exposes
// the real outcome.
func (p *Publisher) checkEditorNotEmpty() {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.innerText.length : 0;
	})()`, p.profile.EditorSelector)

	var length int
	if err := p.composer.Evaluate(expr, &length); err != nil {
		p.log.Warnf("post-transfer length check: %v", err)
		return
	}
	if length == 0 {
		p.log.Warnf("composer text length is zero after transfer; save will reveal the outcome")
	} else {
		p.log.Infof("composer holds %d characters after transfer", length)
	}
}
