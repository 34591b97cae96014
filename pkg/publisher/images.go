package publisher

import (
	"fmt"
	"time"
)

// insertImages replaces each placeholder with a real image paste, in
// document order: select the token's exact range, delete it with a
// backspace, paste the image, then sweep up any stray empty paragraph the
// editor left beside it. A placeholder that cannot be located is logged and
// skipped; the run continues with a gap rather than aborting.
func (p *Publisher) insertImages(images []ImageInfo) error {
	p.transition(StateInsertImages)

	for _, img := range images {
		found, err := p.selectPlaceholder(img.Placeholder)
		if err != nil {
			return err
		}
		if !found {
			p.log.Warnf("placeholder %s not found in composer; leaving a gap", img.Placeholder)
			p.result.SkippedPlaceholders = append(p.result.SkippedPlaceholders, img.Placeholder)
			continue
		}

		if err := p.bridge.CopyImageFile(img.LocalPath); err != nil {
			p.log.Warnf("copy image %s: %v; leaving placeholder in place", img.LocalPath, err)
			p.result.SkippedPlaceholders = append(p.result.SkippedPlaceholders, img.Placeholder)
			continue
		}

		// The selected token goes first, then the image lands where it was.
		if err := p.composer.PressKey("Backspace", 8); err != nil {
			return err
		}
		if err := p.bridge.Paste(p.composer); err != nil {
			return err
		}
		p.result.ImagesInserted++
		time.Sleep(stepThrottle)

		p.cleanupAfterInsert()
	}
	return nil
}

// selectPlaceholder finds the token as an exact text match inside the
// editing region and selects that range. The boundary check mirrors
// findToken: a match immediately followed by a digit is rejected, so a
// shorter token never matches as a prefix of a longer one.
func (p *Publisher) selectPlaceholder(token string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const token = %q;
		const root = document.querySelector(%q) || document.body;
		const walker = document.createTreeWalker(root, NodeFilter.SHOW_TEXT);
		while (walker.nextNode()) {
			const node = walker.currentNode;
			const text = node.textContent;
			let from = 0;
			for (;;) {
				const idx = text.indexOf(token, from);
				if (idx === -1) break;
				const after = text.charAt(idx + token.length);
				if (after >= '0' && after <= '9') { from = idx + 1; continue; }
				const range = document.createRange();
				range.setStart(node, idx);
				range.setEnd(node, idx + token.length);
				const sel = window.getSelection();
				sel.removeAllRanges();
				sel.addRange(range);
				return true;
			}
		}
		return false;
	})()`, token, p.profile.EditorSelector)

	var found bool
	if err := p.composer.Evaluate(script, &found); err != nil {
		return false, fmt.Errorf("publisher: locate placeholder %s: %w", token, err)
	}
	return found, nil
}

// cleanupAfterInsert removes an empty paragraph directly adjacent to the
// most recently inserted image. Editors tend to leave one behind when a
// paste splits a text block.
func (p *Publisher) cleanupAfterInsert() {
	script := fmt.Sprintf(`(() => {
		const root = document.querySelector(%q) || document.body;
		const imgs = root.querySelectorAll('img');
		if (!imgs.length) return 0;
		const holder = imgs[imgs.length - 1].closest('p') || imgs[imgs.length - 1].parentElement;
		if (!holder) return 0;
		let removed = 0;
		for (const sib of [holder.previousElementSibling, holder.nextElementSibling]) {
			if (sib && sib.tagName === 'P' && sib.innerText.trim() === '' && !sib.querySelector('img')) {
				sib.remove();
				removed++;
			}
		}
		return removed;
	})()`, p.profile.EditorSelector)

	var removed int
	if err := p.composer.Evaluate(script, &removed); err != nil {
		p.log.Warnf("paragraph cleanup: %v", err)
		return
	}
	if removed > 0 {
		p.log.Debugf("removed %d stray empty paragraph(s)", removed)
	}
}
