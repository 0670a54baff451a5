// internal/interact/events.go
package interact

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

// DefaultToaster is the success notification shown after a save.
var DefaultToaster = element.CSS(".xwt-success-message")

// HandleModal clicks button when modal shows up within timeout. It reports
// whether the modal was handled.
func (i *Interactor) HandleModal(ctx context.Context, modal, button element.Referable, timeout time.Duration) (bool, error) {
	present, err := i.IsElementsPresent(ctx, modal, timeout)
	if err != nil || !present {
		return false, err
	}
	shown, err := i.waits.Visible(ctx, modal, waits.WithTimeout(timeout), waits.Raise(false))
	if err != nil || !shown {
		return false, err
	}
	i.logger.Info("Closing modal.", zap.String("element", describe(modal)))
	if err := i.Click(ctx, button); err != nil {
		return false, err
	}
	return true, nil
}

// HandleEventsAfterSave waits for the success toaster after a save. When it
// never shows, it fails with FlowFailed, quoting the error modal when one is
// open. A nil toaster means DefaultToaster.
func (i *Interactor) HandleEventsAfterSave(ctx context.Context, errorModal, toaster element.Referable) error {
	if toaster == nil {
		toaster = DefaultToaster
	}
	_, err := i.waits.Visible(ctx, toaster)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	present, perr := i.IsElementsPresent(ctx, errorModal, 0)
	if perr != nil {
		return perr
	}
	if present {
		msg, merr := i.modalText(ctx, errorModal)
		if merr != nil {
			return merr
		}
		return element.Errorf(element.KindFlowFailed, describe(errorModal),
			"save failed, error modal says '%s'", msg)
	}
	return &element.Error{
		Kind:    element.KindFlowFailed,
		Element: describe(toaster),
		Detail:  "success toaster was not found or is invisible",
		Err:     err,
	}
}

// HandleErrorModalAfterAction checks for an error modal after action. With
// raise set, a modal fails with FlowFailed carrying its text; otherwise its
// presence is reported as true.
func (i *Interactor) HandleErrorModalAfterAction(ctx context.Context, errorModal element.Referable, action string, timeout time.Duration, raise bool) (bool, error) {
	present, err := i.IsElementsPresent(ctx, errorModal, timeout)
	if err != nil {
		return false, err
	}
	if !present {
		i.logger.Debug("No error modal after action.", zap.String("action", action))
		return false, nil
	}
	msg, err := i.modalText(ctx, errorModal)
	if err != nil {
		return true, err
	}
	if raise {
		return true, element.Errorf(element.KindFlowFailed, describe(errorModal),
			"error modal appeared after '%s': '%s'", action, msg)
	}
	i.logger.Info("Error modal appeared after action.", zap.String("action", action), zap.String("text", msg))
	return true, nil
}

// modalText reads the text of an error modal. A modal that closed or
// re-rendered meanwhile reads as empty.
func (i *Interactor) modalText(ctx context.Context, modal element.Referable) (string, error) {
	msg, err := i.Text(ctx, modal)
	if err != nil && element.KindOf(err) == "" {
		return "", err
	}
	return msg, nil
}

// HandleLoader waits for loader to appear within appear and, when it does,
// for it to disappear within disappear. A loader that never shows is fine; one
// that never leaves fails with ConditionTimeout.
func (i *Interactor) HandleLoader(ctx context.Context, loader element.Referable, appear, disappear time.Duration) error {
	present, err := i.IsElementsPresent(ctx, loader, appear)
	if err != nil || !present {
		return err
	}
	i.logger.Debug("Waiting out loader.", zap.String("element", describe(loader)))
	_, err = i.waits.NotVisible(ctx, loader, waits.WithTimeout(disappear), waits.Raise(true))
	return err
}
