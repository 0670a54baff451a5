// internal/interact/checkbox.go
package interact

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
)

// IsSelected reports whether a checkbox, radio or option is selected.
func (i *Interactor) IsSelected(ctx context.Context, ref element.Referable) (bool, error) {
	return read(ctx, i, ref, func(ctx context.Context, h driver.Handle) (bool, error) {
		return h.IsSelected(ctx)
	})
}

// SetCheckbox brings a checkbox to the wanted state. Nothing is clicked when
// it is already there.
func (i *Interactor) SetCheckbox(ctx context.Context, ref element.Referable, selected bool, opts ...ActionOption) error {
	desc := describe(ref)
	i.logger.Debug("Setting checkbox.", zap.String("element", desc), zap.Bool("selected", selected))

	o := i.actionOptions(opts)
	return i.act(ctx, ref, "set_checkbox", o, func(ctx context.Context, h driver.Handle) error {
		// The state is read on every attempt so a retry never toggles twice.
		on, err := h.IsSelected(ctx)
		if err != nil {
			return err
		}
		if on == selected {
			return nil
		}
		return h.Click(ctx)
	})
}

// TableCheckboxXPath builds the locator of the checkbox or radio input in the
// rows of the table at tablePath holding an element whose own text is text.
// With exact unset the element text only has to contain text.
func TableCheckboxXPath(tablePath, text string, radio, exact bool) element.Locator {
	kind := "checkbox"
	if radio {
		kind = "radio"
	}
	match := fmt.Sprintf("normalize-space(text())=%s", xpathLiteral(text))
	if !exact {
		match = fmt.Sprintf("contains(text(), %s)", xpathLiteral(text))
	}
	return element.XPath(fmt.Sprintf("%s//tr[.//*[%s]]//input[@type='%s']", tablePath, match, kind))
}

// SetCheckboxInTableByText sets the checkbox (or radio input when radio is
// set) in the table row containing text. Rows with an exact text match are
// preferred over rows that only contain it.
func (i *Interactor) SetCheckboxInTableByText(ctx context.Context, text, tablePath string, radio, selected bool, opts ...ActionOption) error {
	var desc string
	for _, exact := range []bool{true, false} {
		l := TableCheckboxXPath(tablePath, text, radio, exact)
		var hs []driver.Handle
		var err error
		hs, desc, err = i.res.ResolveAll(ctx, l, i.implicit)
		if err != nil {
			return err
		}
		if len(hs) > 0 {
			return i.SetCheckbox(ctx, l, selected, opts...)
		}
	}
	return &element.Error{
		Kind:    element.KindRowNotFound,
		Element: desc,
		Detail:  fmt.Sprintf("no table row contains '%s'", text),
	}
}

// xpathLiteral quotes s for use in an XPath 1.0 expression.
func xpathLiteral(s string) string {
	switch {
	case !strings.ContainsRune(s, '\''):
		return "'" + s + "'"
	case !strings.ContainsRune(s, '"'):
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for n, p := range parts {
		if n > 0 {
			b.WriteString(`, "'"`)
			if p == "" {
				continue
			}
			b.WriteString(", ")
		}
		if p != "" {
			b.WriteString("'" + p + "'")
		} else if n == 0 {
			b.WriteString("''")
		}
	}
	b.WriteString(")")
	return b.String()
}
