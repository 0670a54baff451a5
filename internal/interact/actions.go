// internal/interact/actions.go
package interact

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
)

// Click clicks the element.
func (i *Interactor) Click(ctx context.Context, ref element.Referable, opts ...ActionOption) error {
	return i.act(ctx, ref, "click", i.actionOptions(opts), func(ctx context.Context, h driver.Handle) error {
		return h.Click(ctx)
	})
}

// ClickAt clicks at an offset of dx, dy from the element's centre.
func (i *Interactor) ClickAt(ctx context.Context, ref element.Referable, dx, dy float64, opts ...ActionOption) error {
	return i.act(ctx, ref, "click_at", i.actionOptions(opts), func(ctx context.Context, h driver.Handle) error {
		return h.ClickAt(ctx, dx, dy)
	})
}

// SendKeys types text into the element, emptying it first with the ClearFirst
// option.
func (i *Interactor) SendKeys(ctx context.Context, ref element.Referable, text string, opts ...ActionOption) error {
	o := i.actionOptions(opts)
	return i.act(ctx, ref, "send_keys", o, func(ctx context.Context, h driver.Handle) error {
		if o.clear {
			if err := h.Clear(ctx); err != nil {
				return err
			}
		}
		return h.SendKeys(ctx, text)
	})
}

// Clear empties an input.
func (i *Interactor) Clear(ctx context.Context, ref element.Referable, opts ...ActionOption) error {
	return i.act(ctx, ref, "clear", i.actionOptions(opts), func(ctx context.Context, h driver.Handle) error {
		return h.Clear(ctx)
	})
}

// SetFilePath chooses files on a file input.
func (i *Interactor) SetFilePath(ctx context.Context, ref element.Referable, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("no file paths given")
	}
	return i.act(ctx, ref, "set_files", actionOptions{}, func(ctx context.Context, h driver.Handle) error {
		return h.SetFiles(ctx, paths...)
	})
}

// JSSetValue assigns the element's value directly, bypassing key events.
func (i *Interactor) JSSetValue(ctx context.Context, ref element.Referable, value string) error {
	return i.act(ctx, ref, "set_value", actionOptions{}, func(ctx context.Context, h driver.Handle) error {
		return h.SetValue(ctx, value)
	})
}

// Hover moves the pointer over the element, offset by dx and dy from its
// centre.
func (i *Interactor) Hover(ctx context.Context, ref element.Referable, dx, dy float64, opts ...ActionOption) error {
	o := i.actionOptions(opts)
	o.waitEnabled = false
	return i.act(ctx, ref, "hover", o, func(ctx context.Context, h driver.Handle) error {
		return h.Hover(ctx, dx, dy)
	})
}

// DragAndDrop drags src onto dst.
func (i *Interactor) DragAndDrop(ctx context.Context, src, dst element.Referable, opts ...ActionOption) error {
	target, _, err := i.res.Resolve(ctx, dst, i.implicit)
	if err != nil {
		return err
	}
	return i.act(ctx, src, "drag_and_drop", i.actionOptions(opts), func(ctx context.Context, h driver.Handle) error {
		return i.Driver().DragAndDrop(ctx, h, target)
	})
}

// SelectOption picks the option of a native select whose visible text is
// text.
func (i *Interactor) SelectOption(ctx context.Context, ref element.Referable, text string, opts ...ActionOption) error {
	desc := describe(ref)
	err := i.act(ctx, ref, "select", i.actionOptions(opts), func(ctx context.Context, h driver.Handle) error {
		return h.SelectByText(ctx, text)
	})
	if errors.Is(err, driver.ErrNoOption) {
		i.logger.Debug("Option missing.", zap.String("element", desc), zap.String("text", text))
		return &element.Error{Kind: element.KindOptionNotFound, Element: desc, Detail: fmt.Sprintf("no option with text '%s'", text), Err: err}
	}
	return err
}
