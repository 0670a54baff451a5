// internal/driver/cdp/handle.go
package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// JavaScript run against a node. `this` is the element.
const (
	jsDisplayed = `function() {
		if (!this.isConnected) return false;
		const s = window.getComputedStyle(this);
		if (s.visibility === 'hidden' || s.display === 'none') return false;
		return !!(this.offsetWidth || this.offsetHeight || this.getClientRects().length);
	}`
	jsEnabled  = `function() { return !this.disabled && !this.closest('fieldset[disabled]'); }`
	jsSelected = `function() { return !!(this.checked || this.selected); }`
	jsText     = `function() { return this.innerText === undefined ? this.textContent : this.innerText; }`
	jsAttr     = `function(name) {
		if (name === 'value' && 'value' in this) return {value: String(this.value), present: true};
		if (['checked', 'selected', 'disabled', 'readonly', 'hidden', 'multiple'].includes(name)) {
			return this.hasAttribute(name) ? {value: 'true', present: true} : {value: '', present: false};
		}
		const v = this.getAttribute(name);
		return v === null ? {value: '', present: false} : {value: v, present: true};
	}`
	jsCSS  = `function(p) { return window.getComputedStyle(this).getPropertyValue(p); }`
	jsRect = `function() {
		const r = this.getBoundingClientRect();
		return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
	}`
	jsClickable = `function() {
		if (this.disabled || this.closest('fieldset[disabled]')) return 'disabled';
		const r = this.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) return 'hidden';
		const x = r.left + r.width / 2, y = r.top + r.height / 2;
		if (x < 0 || y < 0 || x > window.innerWidth || y > window.innerHeight) return 'offscreen';
		const top = document.elementFromPoint(x, y);
		if (top && top !== this && !this.contains(top)) return 'obscured';
		return '';
	}`
	jsClear = `function() {
		if ('value' in this) { this.value = ''; } else { this.textContent = ''; }
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`
	jsSetValue = `function(v) {
		if ('value' in this) { this.value = v; } else { this.textContent = v; }
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`
	jsSelectText = `function(t) {
		if (this.tagName !== 'SELECT') return 'not a select';
		for (const o of this.options) {
			if (o.text.replace(/\s+/g, ' ').trim() === t) {
				o.selected = true;
				this.dispatchEvent(new Event('input', {bubbles: true}));
				this.dispatchEvent(new Event('change', {bubbles: true}));
				return '';
			}
		}
		return 'no option';
	}`
)

// Handle is a DOM node of the current target.
type Handle struct {
	d    *Driver
	node *cdp.Node
}

var _ driver.Handle = (*Handle)(nil)

// call runs fn against the node and decodes its result into res.
func (h *Handle) call(ctx context.Context, fn string, res any, args ...any) error {
	return h.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(h.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		err = chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
		// Release fails once the page has navigated away.
		_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		return err
	}))
}

// clickable fails with ErrNotInteractable when the node cannot take pointer
// input at its centre.
func (h *Handle) clickable(ctx context.Context, op string) error {
	var reason string
	if err := h.call(ctx, jsClickable, &reason); err != nil {
		return err
	}
	if reason != "" {
		return fmt.Errorf("%s on <%s>: %s: %w", op, h.node.LocalName, reason, driver.ErrNotInteractable)
	}
	return nil
}

func (h *Handle) Click(ctx context.Context) error {
	if err := h.clickable(ctx, "click"); err != nil {
		return err
	}
	return h.d.run(ctx, chromedp.MouseClickNode(h.node))
}

func (h *Handle) ClickAt(ctx context.Context, dx, dy float64) error {
	if err := h.clickable(ctx, "click"); err != nil {
		return err
	}
	return h.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(h.node.NodeID).Do(ctx); err != nil {
			return err
		}
		x, y, err := center(ctx, h.node)
		if err != nil {
			return err
		}
		return chromedp.MouseClickXY(x+dx, y+dy).Do(ctx)
	}))
}

func (h *Handle) SendKeys(ctx context.Context, text string) error {
	var on bool
	if err := h.call(ctx, jsEnabled, &on); err != nil {
		return err
	}
	if !on {
		return fmt.Errorf("send_keys on <%s>: %w", h.node.LocalName, driver.ErrNotInteractable)
	}
	return h.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.Focus().WithNodeID(h.node.NodeID).Do(ctx); err != nil {
			return err
		}
		return chromedp.KeyEventNode(h.node, text).Do(ctx)
	}))
}

func (h *Handle) Clear(ctx context.Context) error {
	return h.call(ctx, jsClear, nil)
}

func (h *Handle) IsDisplayed(ctx context.Context) (bool, error) {
	var ok bool
	err := h.call(ctx, jsDisplayed, &ok)
	return ok, err
}

func (h *Handle) IsEnabled(ctx context.Context) (bool, error) {
	var ok bool
	err := h.call(ctx, jsEnabled, &ok)
	return ok, err
}

func (h *Handle) IsSelected(ctx context.Context) (bool, error) {
	var ok bool
	err := h.call(ctx, jsSelected, &ok)
	return ok, err
}

func (h *Handle) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		Value   string `json:"value"`
		Present bool   `json:"present"`
	}
	if err := h.call(ctx, jsAttr, &res, name); err != nil {
		return "", false, err
	}
	return res.Value, res.Present, nil
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	var s string
	err := h.call(ctx, jsText, &s)
	return s, err
}

func (h *Handle) CSSValue(ctx context.Context, property string) (string, error) {
	var s string
	err := h.call(ctx, jsCSS, &s, property)
	return s, err
}

func (h *Handle) Rect(ctx context.Context) (driver.Rect, error) {
	var r struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := h.call(ctx, jsRect, &r); err != nil {
		return driver.Rect{}, err
	}
	return driver.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
}

func (h *Handle) ScrollIntoView(ctx context.Context) error {
	return h.d.run(ctx, dom.ScrollIntoViewIfNeeded().WithNodeID(h.node.NodeID))
}

// Hover moves the pointer to the node centre plus (dx, dy).
func (h *Handle) Hover(ctx context.Context, dx, dy float64) error {
	return h.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(h.node.NodeID).Do(ctx); err != nil {
			return err
		}
		x, y, err := center(ctx, h.node)
		if err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseMoved, x+dx, y+dy).Do(ctx)
	}))
}

func (h *Handle) SetFiles(ctx context.Context, paths ...string) error {
	return h.d.run(ctx, dom.SetFileInputFiles(paths).WithNodeID(h.node.NodeID))
}

func (h *Handle) SelectByText(ctx context.Context, text string) error {
	if err := h.clickable(ctx, "select"); err != nil {
		return err
	}
	var reason string
	if err := h.call(ctx, jsSelectText, &reason, text); err != nil {
		return err
	}
	switch reason {
	case "":
		return nil
	case "no option":
		return fmt.Errorf("option '%s': %w", text, driver.ErrNoOption)
	}
	return fmt.Errorf("select on <%s>: %s: %w", h.node.LocalName, reason, driver.ErrNotInteractable)
}

func (h *Handle) SetValue(ctx context.Context, v string) error {
	return h.call(ctx, jsSetValue, nil, v)
}

// Find runs a CSS query below the node. XPath child queries are not
// supported by the protocol's node-scoped search.
func (h *Handle) Find(ctx context.Context, by driver.By, selector string) ([]driver.Handle, error) {
	if by != driver.ByCSS {
		return nil, fmt.Errorf("child %s query: %w", by, driver.ErrUnsupported)
	}
	var nodes []*cdp.Node
	err := h.d.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(h.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	return h.d.wrap(nodes), nil
}

// center returns the centre of the node's content box in viewport
// coordinates.
func center(ctx context.Context, n *cdp.Node) (float64, float64, error) {
	box, err := dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx)
	if err != nil {
		return 0, 0, classify(err)
	}
	q := box.Content
	if len(q) < 8 {
		return 0, 0, fmt.Errorf("box model of <%s>: %w", n.LocalName, driver.ErrNotInteractable)
	}
	return (q[0] + q[2] + q[4] + q[6]) / 4, (q[1] + q[3] + q[5] + q[7]) / 4, nil
}
