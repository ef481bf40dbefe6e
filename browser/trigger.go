package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/chsave/saver"
)

// CreateTrigger creates a detached anchor element in the page-side trigger
// registry. The element stays out of the document tree until Activate
// momentarily appends it for the click.
func (h *Host) CreateTrigger(ctx context.Context) (saver.Trigger, error) {
	page := h.page.Context(ctx)
	res, err := page.Eval(`() => {
		window.__chsaveTriggers = window.__chsaveTriggers || {};
		const id = "t-" + Math.random().toString(36).slice(2);
		window.__chsaveTriggers[id] = document.createElement("a");
		return id;
	}`)
	if err != nil {
		return nil, fmt.Errorf("browser: create trigger: %w", err)
	}
	return &trigger{page: page, id: res.Value.Str()}, nil
}

// trigger is a transient <a download> anchor, addressed through the page-side
// registry. The context bound at creation governs every operation.
type trigger struct {
	page *rod.Page
	id   string
}

func (t *trigger) SetDownloadName(name string) error {
	_, err := t.page.Eval(
		`(id, name) => { window.__chsaveTriggers[id].download = name; }`, t.id, name)
	if err != nil {
		return fmt.Errorf("browser: set download name: %w", err)
	}
	return nil
}

func (t *trigger) SetReference(ref string) error {
	_, err := t.page.Eval(
		`(id, ref) => { window.__chsaveTriggers[id].href = ref; }`, t.id, ref)
	if err != nil {
		return fmt.Errorf("browser: set reference: %w", err)
	}
	return nil
}

func (t *trigger) SetNewContext(enabled bool) error {
	_, err := t.page.Eval(`(id, on) => {
		const a = window.__chsaveTriggers[id];
		if (on) {
			a.target = "_blank";
			a.rel = "noopener";
		} else {
			a.removeAttribute("target");
			a.removeAttribute("rel");
		}
	}`, t.id, enabled)
	if err != nil {
		return fmt.Errorf("browser: set new context: %w", err)
	}
	return nil
}

// Activate appends the anchor to the body and clicks it. The element is
// observable in the tree only between here and Remove.
func (t *trigger) Activate() error {
	_, err := t.page.Eval(`(id) => {
		const a = window.__chsaveTriggers[id];
		document.body.appendChild(a);
		a.click();
	}`, t.id)
	if err != nil {
		return fmt.Errorf("browser: activate trigger: %w", err)
	}
	return nil
}

// Remove detaches the anchor and drops it from the registry. Safe to call
// whether or not Activate ran.
func (t *trigger) Remove() error {
	_, err := t.page.Eval(`(id) => {
		const a = window.__chsaveTriggers[id];
		if (a && a.parentNode) a.parentNode.removeChild(a);
		delete window.__chsaveTriggers[id];
	}`, t.id)
	if err != nil {
		return fmt.Errorf("browser: remove trigger: %w", err)
	}
	return nil
}
