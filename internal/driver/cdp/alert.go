// internal/driver/cdp/alert.go
package cdp

import (
	"context"

	"github.com/chromedp/cdproto/page"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Alert is the JavaScript dialog open on the current target.
type Alert struct {
	d       *Driver
	message string
	prompt  *string
}

var _ driver.Alert = (*Alert)(nil)

func (a *Alert) Text(context.Context) (string, error) { return a.message, nil }

func (a *Alert) Accept(ctx context.Context) error {
	p := page.HandleJavaScriptDialog(true)
	if a.prompt != nil {
		p = p.WithPromptText(*a.prompt)
	}
	return a.handle(ctx, p)
}

func (a *Alert) Dismiss(ctx context.Context) error {
	return a.handle(ctx, page.HandleJavaScriptDialog(false))
}

// SendKeys sets the prompt text submitted on Accept.
func (a *Alert) SendKeys(_ context.Context, text string) error {
	a.prompt = &text
	return nil
}

func (a *Alert) handle(ctx context.Context, p *page.HandleJavaScriptDialogParams) error {
	if err := a.d.run(ctx, p); err != nil {
		return err
	}
	a.d.mu.Lock()
	a.d.dialog = nil
	a.d.mu.Unlock()
	return nil
}
