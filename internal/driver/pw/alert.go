// internal/driver/pw/alert.go
package pw

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Alert is the dialog held open on a page by the driver's listener.
type Alert struct {
	d      *Driver
	page   playwright.Page
	dialog playwright.Dialog
	prompt *string
}

var _ driver.Alert = (*Alert)(nil)

func (a *Alert) Text(context.Context) (string, error) { return a.dialog.Message(), nil }

func (a *Alert) Accept(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if a.prompt != nil {
		err = a.dialog.Accept(*a.prompt)
	} else {
		err = a.dialog.Accept()
	}
	return a.done(err)
}

func (a *Alert) Dismiss(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.done(a.dialog.Dismiss())
}

// SendKeys sets the prompt text submitted on Accept.
func (a *Alert) SendKeys(_ context.Context, text string) error {
	a.prompt = &text
	return nil
}

func (a *Alert) done(err error) error {
	if err != nil {
		return classify(err)
	}
	a.d.mu.Lock()
	if a.d.dialogs[a.page] == a.dialog {
		delete(a.d.dialogs, a.page)
	}
	a.d.mu.Unlock()
	return nil
}
