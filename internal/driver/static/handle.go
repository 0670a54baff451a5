// internal/driver/static/handle.go
package static

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Node is a handle on a node of a static document.
type Node struct {
	d *Driver
	n *html.Node
}

var _ driver.Handle = (*Node)(nil)

// HTML exposes the underlying node.
func (h *Node) HTML() *html.Node { return h.n }

// liveLocked fails with ErrStale when the node left the document. Caller
// holds d.mu.
func (h *Node) liveLocked(op string) error {
	if !h.d.attached(h.n) {
		return fmt.Errorf("%s on <%s>: %w", op, h.n.Data, driver.ErrStale)
	}
	return nil
}

// pointerLocked checks the node can receive pointer input.
func (h *Node) pointerLocked(op string) error {
	if err := h.liveLocked(op); err != nil {
		return err
	}
	if !displayed(h.n) || hasAttr(h.n, "data-offscreen") || !enabled(h.n) {
		return fmt.Errorf("%s on <%s>: %w", op, h.n.Data, driver.ErrNotInteractable)
	}
	return nil
}

func (h *Node) editableLocked(op string) error {
	if err := h.liveLocked(op); err != nil {
		return err
	}
	if !displayed(h.n) || !enabled(h.n) || hasAttr(h.n, "readonly") {
		return fmt.Errorf("%s on <%s>: %w", op, h.n.Data, driver.ErrNotInteractable)
	}
	switch tag(h.n) {
	case "input", "textarea":
		return nil
	}
	if v, ok := attr(h.n, "contenteditable"); ok && v != "false" {
		return nil
	}
	return fmt.Errorf("%s on <%s>: %w", op, h.n.Data, driver.ErrNotInteractable)
}

// Click dispatches a click and applies its default action: following links,
// submitting forms, toggling checkboxes and radios, and picking options.
func (h *Node) Click(ctx context.Context) error {
	return h.click(ctx, Action{Name: "click", Node: h.n})
}

// ClickAt clicks at an offset from the node centre. The offset is recorded
// on the action; the default action is the same as Click's.
func (h *Node) ClickAt(ctx context.Context, dx, dy float64) error {
	return h.click(ctx, Action{Name: "click", Node: h.n, Arg: fmt.Sprintf("%g,%g", dx, dy)})
}

func (h *Node) click(ctx context.Context, a Action) error {
	if err := h.d.fire(ctx, a); err != nil {
		return err
	}

	href, form, err := h.clickLocked(ctx)
	switch {
	case err != nil:
		return err
	case href != "":
		return h.d.Navigate(ctx, href)
	case form != nil:
		return h.d.executeRequest(ctx, form)
	}
	return nil
}

// clickLocked applies the in-document part of a click and returns the link
// or form request to follow, if any.
func (h *Node) clickLocked(ctx context.Context) (href string, form *http.Request, err error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.pointerLocked("click"); err != nil {
		return "", nil, err
	}

	switch t := tag(h.n); {
	case t == "a":
		if v, ok := attr(h.n, "href"); ok && v != "" && !strings.HasPrefix(strings.ToLower(v), "javascript:") && !strings.HasPrefix(v, "#") {
			href = v
		}
	case t == "input" && inputType(h.n) == "checkbox":
		if hasAttr(h.n, "checked") {
			removeAttr(h.n, "checked")
		} else {
			setAttr(h.n, "checked", "checked")
		}
	case t == "input" && inputType(h.n) == "radio":
		checkRadio(h.n)
	case t == "option":
		selectOption(h.n)
	case (t == "button" && (inputType(h.n) == "submit" || inputType(h.n) == "")) || (t == "input" && inputType(h.n) == "submit"):
		if f := findParentForm(h.n); f != nil {
			form, err = h.d.formRequest(ctx, f, h.n)
		}
	}
	return href, form, err
}

// SendKeys appends text to the field value.
func (h *Node) SendKeys(ctx context.Context, text string) error {
	if err := h.d.fire(ctx, Action{Name: "send_keys", Node: h.n, Arg: text}); err != nil {
		return err
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.editableLocked("send_keys"); err != nil {
		return err
	}
	switch {
	case tag(h.n) == "textarea" || tag(h.n) != "input":
		setText(h.n, htmlquery.InnerText(h.n)+text)
	case inputType(h.n) == "file":
		setAttr(h.n, "value", text)
	default:
		v, _ := attr(h.n, "value")
		setAttr(h.n, "value", v+text)
	}
	return nil
}

// Clear empties the field value.
func (h *Node) Clear(ctx context.Context) error {
	if err := h.d.fire(ctx, Action{Name: "clear", Node: h.n}); err != nil {
		return err
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.editableLocked("clear"); err != nil {
		return err
	}
	if tag(h.n) == "input" {
		setAttr(h.n, "value", "")
	} else {
		setText(h.n, "")
	}
	return nil
}

func (h *Node) IsDisplayed(context.Context) (bool, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("is_displayed"); err != nil {
		return false, err
	}
	return displayed(h.n), nil
}

func (h *Node) IsEnabled(context.Context) (bool, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("is_enabled"); err != nil {
		return false, err
	}
	return enabled(h.n), nil
}

func (h *Node) IsSelected(context.Context) (bool, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("is_selected"); err != nil {
		return false, err
	}
	return selected(h.n), nil
}

// Attribute follows property semantics for value and for boolean attributes,
// which report "true" when present.
func (h *Node) Attribute(_ context.Context, name string) (string, bool, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("get_attribute"); err != nil {
		return "", false, err
	}
	name = strings.ToLower(name)
	switch name {
	case "value":
		switch tag(h.n) {
		case "input", "textarea", "select", "option", "button":
			return value(h.n), true, nil
		}
	case "checked", "selected", "disabled", "readonly", "hidden", "multiple":
		if hasAttr(h.n, name) {
			return "true", true, nil
		}
		return "", false, nil
	}
	v, ok := attr(h.n, name)
	return v, ok, nil
}

func (h *Node) Text(context.Context) (string, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("text"); err != nil {
		return "", err
	}
	return text(h.n), nil
}

// CSSValue reads the inline style declaration for property.
func (h *Node) CSSValue(_ context.Context, property string) (string, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("css_value"); err != nil {
		return "", err
	}
	return styleValue(h.n, property), nil
}

func (h *Node) Rect(context.Context) (driver.Rect, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("rect"); err != nil {
		return driver.Rect{}, err
	}
	return rect(h.n), nil
}

// ScrollIntoView brings the node on screen and scrolls the window to its
// top edge.
func (h *Node) ScrollIntoView(ctx context.Context) error {
	if err := h.d.fire(ctx, Action{Name: "scroll_into_view", Node: h.n}); err != nil {
		return err
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("scroll_into_view"); err != nil {
		return err
	}
	removeAttr(h.n, "data-offscreen")
	h.d.scrollY = rect(h.n).Y
	return nil
}

func (h *Node) Hover(ctx context.Context, dx, dy float64) error {
	if err := h.d.fire(ctx, Action{Name: "hover", Node: h.n, Arg: fmt.Sprintf("%g,%g", dx, dy)}); err != nil {
		return err
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("hover"); err != nil {
		return err
	}
	if !displayed(h.n) || hasAttr(h.n, "data-offscreen") {
		return fmt.Errorf("hover on <%s>: %w", h.n.Data, driver.ErrNotInteractable)
	}
	return nil
}

// SetFiles records the chosen files on a file input the way browsers expose
// them to scripts.
func (h *Node) SetFiles(ctx context.Context, paths ...string) error {
	if err := h.d.fire(ctx, Action{Name: "set_files", Node: h.n, Arg: strings.Join(paths, "\n")}); err != nil {
		return err
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("set_files"); err != nil {
		return err
	}
	if tag(h.n) != "input" || inputType(h.n) != "file" {
		return fmt.Errorf("set_files on <%s>: %w", h.n.Data, driver.ErrNotInteractable)
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = `C:\fakepath\` + filepath.Base(p)
	}
	setAttr(h.n, "value", strings.Join(names, ", "))
	return nil
}

// SelectByText selects the option of a <select> whose text equals want.
func (h *Node) SelectByText(ctx context.Context, want string) error {
	if err := h.d.fire(ctx, Action{Name: "select", Node: h.n, Arg: want}); err != nil {
		return err
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.pointerLocked("select"); err != nil {
		return err
	}
	if tag(h.n) != "select" {
		return fmt.Errorf("select on <%s>: %w", h.n.Data, driver.ErrNotInteractable)
	}
	for _, opt := range htmlquery.Find(h.n, ".//option") {
		if strings.Join(strings.Fields(htmlquery.InnerText(opt)), " ") == want {
			selectOption(opt)
			return nil
		}
	}
	return fmt.Errorf("option '%s': %w", want, driver.ErrNoOption)
}

// SetValue assigns the value without key events.
func (h *Node) SetValue(ctx context.Context, v string) error {
	if err := h.d.fire(ctx, Action{Name: "set_value", Node: h.n, Arg: v}); err != nil {
		return err
	}
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("set_value"); err != nil {
		return err
	}
	if tag(h.n) == "textarea" {
		setText(h.n, v)
	} else {
		setAttr(h.n, "value", v)
	}
	return nil
}

// Find queries below this node.
func (h *Node) Find(_ context.Context, by driver.By, selector string) ([]driver.Handle, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if err := h.liveLocked("find"); err != nil {
		return nil, err
	}
	nodes, err := query(h.n, by, selector)
	if err != nil {
		return nil, err
	}
	return h.d.wrap(nodes), nil
}

// selectOption marks opt selected and clears its siblings unless the select
// allows multiple values.
func selectOption(opt *html.Node) {
	sel := opt.Parent
	for sel != nil && !(sel.Type == html.ElementNode && tag(sel) == "select") {
		sel = sel.Parent
	}
	if sel != nil && !hasAttr(sel, "multiple") {
		for _, o := range htmlquery.Find(sel, ".//option") {
			removeAttr(o, "selected")
		}
	}
	setAttr(opt, "selected", "selected")
}
