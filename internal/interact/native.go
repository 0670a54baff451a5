// internal/interact/native.go
package interact

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

// SwitchToWindow focuses the window at index in opening order. A negative
// index counts from the newest window.
func (i *Interactor) SwitchToWindow(ctx context.Context, index int) error {
	ids, err := i.Driver().Windows(ctx)
	if err != nil {
		return fmt.Errorf("listing windows failed: %w", err)
	}
	n := index
	if n < 0 {
		n += len(ids)
	}
	if n < 0 || n >= len(ids) {
		return element.Errorf(element.KindFlowFailed, "<window>",
			"no window at index %d, %d open", index, len(ids))
	}
	i.logger.Debug("Switching window.", zap.Int("index", index), zap.String("window", ids[n]))
	if err := i.Driver().SwitchWindow(ctx, ids[n]); err != nil {
		return &element.Error{Kind: element.KindFlowFailed, Element: "<window>", Detail: fmt.Sprintf("switch to %s", ids[n]), Err: err}
	}
	return nil
}

// Refresh reloads the current page.
func (i *Interactor) Refresh(ctx context.Context) error {
	i.logger.Info("Refreshing page.")
	if err := i.Driver().Refresh(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return nil
}

// AcceptAlert waits for a native dialog and accepts it.
func (i *Interactor) AcceptAlert(ctx context.Context) error {
	return i.withAlert(ctx, "accept", func(a driver.Alert) error { return a.Accept(ctx) })
}

// DismissAlert waits for a native dialog and dismisses it.
func (i *Interactor) DismissAlert(ctx context.Context) error {
	return i.withAlert(ctx, "dismiss", func(a driver.Alert) error { return a.Dismiss(ctx) })
}

// AlertSendKeysAndAccept types into a prompt dialog and accepts it.
func (i *Interactor) AlertSendKeysAndAccept(ctx context.Context, keys string) error {
	return i.withAlert(ctx, "send_keys_and_accept", func(a driver.Alert) error {
		if err := a.SendKeys(ctx, keys); err != nil {
			return err
		}
		return a.Accept(ctx)
	})
}

func (i *Interactor) withAlert(ctx context.Context, op string, fn func(driver.Alert) error) error {
	if _, err := i.waits.AlertPresent(ctx, waits.Raise(true)); err != nil {
		return err
	}
	a, err := i.Driver().Alert(ctx)
	if err != nil {
		return fmt.Errorf("alert %s failed: %w", op, err)
	}
	if txt, terr := a.Text(ctx); terr == nil {
		i.logger.Info("Handling alert.", zap.String("op", op), zap.String("text", txt))
	}
	if err := fn(a); err != nil {
		return fmt.Errorf("alert %s failed: %w", op, err)
	}
	return nil
}
