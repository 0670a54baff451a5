// internal/driver/static/alert.go
package static

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Dialog is a native dialog opened with OpenDialog.
type Dialog struct {
	d        *Driver
	message  string
	input    string
	accepted bool
	closed   bool
}

var _ driver.Alert = (*Dialog)(nil)

func (a *Dialog) Text(context.Context) (string, error) {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	if a.closed {
		return "", driver.ErrNoAlert
	}
	return a.message, nil
}

func (a *Dialog) Accept(context.Context) error { return a.close(true) }

func (a *Dialog) Dismiss(context.Context) error { return a.close(false) }

// SendKeys fills the prompt input of the dialog.
func (a *Dialog) SendKeys(_ context.Context, text string) error {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	if a.closed {
		return fmt.Errorf("send keys to dialog: %w", driver.ErrNoAlert)
	}
	a.input = text
	return nil
}

func (a *Dialog) close(accept bool) error {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	if a.closed {
		return driver.ErrNoAlert
	}
	a.closed, a.accepted = true, accept
	if a.d.alert == a {
		a.d.alert = nil
	}
	return nil
}

// Result reports whether the dialog was closed, whether it was accepted and
// the prompt text that was entered.
func (a *Dialog) Result() (closed, accepted bool, input string) {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	return a.closed, a.accepted, a.input
}
