// internal/interact/dropdown.go
package interact

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

// TokenNavNode is the child of a token panel item that drills into it.
var TokenNavNode = element.CSS(`[id="osItemNavNode"]`)

const (
	tokenLoaderAppear    = 4 * time.Second
	tokenLoaderDisappear = 30 * time.Second
)

// DropdownOption adjusts SelectFromDropdownByText.
type DropdownOption func(*dropdownOptions)

type dropdownOptions struct {
	exact   bool
	trigger element.Referable
	timeout time.Duration
}

// Exact requires the option text to equal the wanted text instead of
// containing it.
func Exact() DropdownOption { return func(o *dropdownOptions) { o.exact = true } }

// ExpandWith clicks trigger before looking for options.
func ExpandWith(trigger element.Referable) DropdownOption {
	return func(o *dropdownOptions) { o.trigger = trigger }
}

// OptionsTimeout bounds the wait for the option list to populate.
func OptionsTimeout(d time.Duration) DropdownOption {
	return func(o *dropdownOptions) { o.timeout = d }
}

// SelectFromDropdownByText clicks the first visible option whose text
// matches text, ignoring case. Options are scanned in document order.
func (i *Interactor) SelectFromDropdownByText(ctx context.Context, options element.Referable, text string, opts ...DropdownOption) error {
	var o dropdownOptions
	for _, opt := range opts {
		opt(&o)
	}
	desc := describe(options)
	i.logger.Debug("Selecting from dropdown.",
		zap.String("element", desc), zap.String("text", text), zap.Bool("exact", o.exact))

	if o.trigger != nil {
		if err := i.Click(ctx, o.trigger); err != nil {
			return err
		}
	}

	wopts := []waits.Option{waits.Raise(false)}
	if o.timeout > 0 {
		wopts = append(wopts, waits.WithTimeout(o.timeout))
	}
	if _, err := i.waits.Count(ctx, options, 1, false, wopts...); err != nil {
		return err
	}
	hs, _, err := i.res.ResolveAll(ctx, options, 0)
	if err != nil {
		return err
	}
	h := matchText(ctx, hs, text, o.exact, true)
	if h == nil {
		return optionNotFound(text, desc)
	}
	return i.Click(ctx, element.Handle(h, desc), WaitEnabled(false))
}

// SelectTokenPath walks a token panel. It opens the panel with trigger, then
// for each name picks the first item of list containing it. Intermediate
// items are drilled into through their nav node, and the panel loader is
// waited out after each step. The last item is clicked directly.
func (i *Interactor) SelectTokenPath(ctx context.Context, trigger, list, loader element.Referable, names ...string) error {
	if err := i.Click(ctx, trigger); err != nil {
		return err
	}
	desc := describe(list)
	for n, name := range names {
		hs, _, err := i.res.ResolveAll(ctx, list, i.implicit)
		if err != nil {
			return err
		}
		item := matchText(ctx, hs, name, false, false)
		if item == nil {
			return optionNotFound(name, desc)
		}
		ref := element.Handle(item, desc)
		if n == len(names)-1 {
			return i.Click(ctx, ref, WaitEnabled(false))
		}

		i.logger.Debug("Drilling into token.", zap.String("name", name), zap.Int("depth", n))
		target := ref
		if navs, err := item.Find(ctx, TokenNavNode.By, TokenNavNode.Selector); err == nil && len(navs) > 0 {
			target = element.Handle(navs[0], TokenNavNode.String())
		}
		if err := i.Click(ctx, target, WaitEnabled(false)); err != nil {
			return err
		}
		if loader != nil {
			if err := i.HandleLoader(ctx, loader, tokenLoaderAppear, tokenLoaderDisappear); err != nil {
				return err
			}
		}
	}
	return nil
}
