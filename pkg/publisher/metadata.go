package publisher

import "fmt"

// fieldResult is the payload of the set-and-verify script.
type fieldResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// fillMetadata writes title, author, and summary into the composer. Nothing
// here is fatal: a readback mismatch or a missing field is logged and the
// run continues, because only the save step shows whether data truly stuck.
func (p *Publisher) fillMetadata(req PublishRequest) {
	p.transition(StateFillMetadata)

	fields := []struct {
		name     string
		selector string
		value    string
	}{
		{"title", p.profile.TitleSelector, req.Title},
		{"author", p.profile.AuthorSelector, req.Author},
		{"summary", p.profile.SummarySelector, req.Summary},
	}

	for _, f := range fields {
		if f.selector == "" || f.value == "" {
			continue
		}
		p.setField(f.name, f.selector, f.value)
	}
}

// setField assigns the value and dispatches a synthetic input event, since
// reactive frameworks track the event rather than the raw property, then
// reads the value back to verify.
func (p *Publisher) setField(name, selector, value string) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return {found: false};
		if ('value' in el) {
			el.value = %q;
		} else {
			el.innerText = %q;
		}
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return {found: true, value: 'value' in el ? el.value : el.innerText};
	})()`, selector, value, value)

	var res fieldResult
	if err := p.composer.Evaluate(script, &res); err != nil {
		p.log.Warnf("set %s: %v", name, err)
		return
	}
	if !res.Found {
		p.log.Warnf("set %s: no element matches %q", name, selector)
		return
	}
	if res.Value != value {
		p.log.Warnf("verify %s: wrote %q, read back %q", name, value, res.Value)
	}
}
