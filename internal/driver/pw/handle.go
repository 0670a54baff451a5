// internal/driver/pw/handle.go
package pw

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

const (
	jsDisplayed = `(el) => {
		if (!el.isConnected) return false;
		const s = window.getComputedStyle(el);
		if (s.visibility === 'hidden' || s.display === 'none') return false;
		return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	}`
	jsAlive    = `(el) => el.isConnected`
	jsEnabled  = `(el) => !el.disabled && !el.closest('fieldset[disabled]')`
	jsSelected = `(el) => !!(el.checked || el.selected)`
	jsText     = `(el) => el.innerText === undefined ? el.textContent : el.innerText`
	jsAttr     = `(el, name) => {
		if (name === 'value' && 'value' in el) return {value: String(el.value), present: true};
		if (['checked', 'selected', 'disabled', 'readonly', 'hidden', 'multiple'].includes(name)) {
			return el.hasAttribute(name) ? {value: 'true', present: true} : {value: '', present: false};
		}
		const v = el.getAttribute(name);
		return v === null ? {value: '', present: false} : {value: v, present: true};
	}`
	jsCSS  = `(el, p) => window.getComputedStyle(el).getPropertyValue(p)`
	jsRect = `(el) => {
		const r = el.getBoundingClientRect();
		return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
	}`
	jsClickable = `(el) => {
		if (!el.isConnected) return 'detached';
		if (el.disabled || el.closest('fieldset[disabled]')) return 'disabled';
		const r = el.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) return 'hidden';
		const x = r.left + r.width / 2, y = r.top + r.height / 2;
		if (x < 0 || y < 0 || x > window.innerWidth || y > window.innerHeight) return 'offscreen';
		const top = document.elementFromPoint(x, y);
		if (top && top !== el && !el.contains(top)) return 'obscured';
		return '';
	}`
	jsClear = `(el) => {
		if ('value' in el) { el.value = ''; } else { el.textContent = ''; }
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
	}`
	jsSetValue = `(el, v) => {
		if ('value' in el) { el.value = v; } else { el.textContent = v; }
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
	}`
	jsHasOption = `(el, t) => el.tagName === 'SELECT' &&
		Array.from(el.options).some(o => o.text.replace(/\s+/g, ' ').trim() === t)`
)

// Handle wraps a Playwright element handle.
type Handle struct {
	d  *Driver
	el playwright.ElementHandle
}

var _ driver.Handle = (*Handle)(nil)

func (h *Handle) eval(ctx context.Context, fn string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := h.el.Evaluate(fn, args...)
	return v, classify(err)
}

func (h *Handle) evalBool(ctx context.Context, fn string) (bool, error) {
	v, err := h.eval(ctx, fn)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (h *Handle) evalString(ctx context.Context, fn string, args ...any) (string, error) {
	v, err := h.eval(ctx, fn, args...)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// alive fails with ErrStale once the element has left the document.
// Playwright keeps handles to detached elements usable for reads.
func (h *Handle) alive(ctx context.Context) error {
	ok, err := h.evalBool(ctx, jsAlive)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element detached: %w", driver.ErrStale)
	}
	return nil
}

func (h *Handle) clickable(ctx context.Context, op string) error {
	reason, err := h.evalString(ctx, jsClickable)
	if err != nil {
		return err
	}
	switch reason {
	case "":
		return nil
	case "detached":
		return fmt.Errorf("%s: element detached: %w", op, driver.ErrStale)
	}
	return fmt.Errorf("%s: %s: %w", op, reason, driver.ErrNotInteractable)
}

func (h *Handle) Click(ctx context.Context) error {
	if err := h.clickable(ctx, "click"); err != nil {
		return err
	}
	return classify(h.el.Click(playwright.ElementHandleClickOptions{Timeout: timeout(ctx, h.d.action)}))
}

func (h *Handle) ClickAt(ctx context.Context, dx, dy float64) error {
	if err := h.ScrollIntoView(ctx); err != nil {
		return err
	}
	if err := h.clickable(ctx, "click"); err != nil {
		return err
	}
	x, y, err := h.center(ctx)
	if err != nil {
		return err
	}
	return classify(h.d.page().Mouse().Click(x+dx, y+dy))
}

func (h *Handle) SendKeys(ctx context.Context, text string) error {
	if err := h.alive(ctx); err != nil {
		return err
	}
	on, err := h.evalBool(ctx, jsEnabled)
	if err != nil {
		return err
	}
	if !on {
		return fmt.Errorf("send_keys: %w", driver.ErrNotInteractable)
	}
	if err := h.el.Focus(); err != nil {
		return classify(err)
	}
	return classify(h.el.Type(text, playwright.ElementHandleTypeOptions{Timeout: timeout(ctx, h.d.action)}))
}

func (h *Handle) Clear(ctx context.Context) error {
	if err := h.alive(ctx); err != nil {
		return err
	}
	_, err := h.eval(ctx, jsClear)
	return err
}

func (h *Handle) IsDisplayed(ctx context.Context) (bool, error) {
	if err := h.alive(ctx); err != nil {
		return false, err
	}
	return h.evalBool(ctx, jsDisplayed)
}

func (h *Handle) IsEnabled(ctx context.Context) (bool, error) {
	if err := h.alive(ctx); err != nil {
		return false, err
	}
	return h.evalBool(ctx, jsEnabled)
}

func (h *Handle) IsSelected(ctx context.Context) (bool, error) {
	if err := h.alive(ctx); err != nil {
		return false, err
	}
	return h.evalBool(ctx, jsSelected)
}

func (h *Handle) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := h.alive(ctx); err != nil {
		return "", false, err
	}
	v, err := h.eval(ctx, jsAttr, name)
	if err != nil {
		return "", false, err
	}
	m, _ := v.(map[string]any)
	s, _ := m["value"].(string)
	present, _ := m["present"].(bool)
	return s, present, nil
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	if err := h.alive(ctx); err != nil {
		return "", err
	}
	return h.evalString(ctx, jsText)
}

func (h *Handle) CSSValue(ctx context.Context, property string) (string, error) {
	if err := h.alive(ctx); err != nil {
		return "", err
	}
	return h.evalString(ctx, jsCSS, property)
}

func (h *Handle) Rect(ctx context.Context) (driver.Rect, error) {
	if err := h.alive(ctx); err != nil {
		return driver.Rect{}, err
	}
	v, err := h.eval(ctx, jsRect)
	if err != nil {
		return driver.Rect{}, err
	}
	m, _ := v.(map[string]any)
	return driver.Rect{
		X:      toFloat(m["x"]),
		Y:      toFloat(m["y"]),
		Width:  toFloat(m["width"]),
		Height: toFloat(m["height"]),
	}, nil
}

func (h *Handle) ScrollIntoView(ctx context.Context) error {
	if err := h.alive(ctx); err != nil {
		return err
	}
	return classify(h.el.ScrollIntoViewIfNeeded(playwright.ElementHandleScrollIntoViewIfNeededOptions{
		Timeout: timeout(ctx, h.d.action),
	}))
}

// Hover moves the pointer to the element centre plus (dx, dy).
func (h *Handle) Hover(ctx context.Context, dx, dy float64) error {
	if err := h.ScrollIntoView(ctx); err != nil {
		return err
	}
	x, y, err := h.center(ctx)
	if err != nil {
		return err
	}
	return classify(h.d.page().Mouse().Move(x+dx, y+dy))
}

func (h *Handle) SetFiles(ctx context.Context, paths ...string) error {
	if err := h.alive(ctx); err != nil {
		return err
	}
	return classify(h.el.SetInputFiles(paths, playwright.ElementHandleSetInputFilesOptions{
		Timeout: timeout(ctx, h.d.action),
	}))
}

func (h *Handle) SelectByText(ctx context.Context, text string) error {
	if err := h.clickable(ctx, "select"); err != nil {
		return err
	}
	v, err := h.eval(ctx, jsHasOption, text)
	if err != nil {
		return err
	}
	if ok, _ := v.(bool); !ok {
		return fmt.Errorf("option '%s': %w", text, driver.ErrNoOption)
	}
	_, err = h.el.SelectOption(playwright.SelectOptionValues{Labels: playwright.StringSlice(text)},
		playwright.ElementHandleSelectOptionOptions{Timeout: timeout(ctx, h.d.action)})
	return classify(err)
}

func (h *Handle) SetValue(ctx context.Context, v string) error {
	if err := h.alive(ctx); err != nil {
		return err
	}
	_, err := h.eval(ctx, jsSetValue, v)
	return err
}

func (h *Handle) Find(ctx context.Context, by driver.By, selector string) ([]driver.Handle, error) {
	if err := h.alive(ctx); err != nil {
		return nil, err
	}
	sel, err := engineSelector(by, selector)
	if err != nil {
		return nil, err
	}
	els, err := h.el.QuerySelectorAll(sel)
	if err != nil {
		return nil, classify(err)
	}
	return h.d.wrap(els), nil
}

// center returns the centre of the element's bounding box in viewport
// coordinates.
func (h *Handle) center(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	box, err := h.el.BoundingBox()
	if err != nil {
		return 0, 0, classify(err)
	}
	if box == nil {
		return 0, 0, fmt.Errorf("element has no bounding box: %w", driver.ErrNotInteractable)
	}
	return box.X + box.Width/2, box.Y + box.Height/2, nil
}
