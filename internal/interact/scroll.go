// internal/interact/scroll.go
package interact

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
)

// bottom is a scroll offset past the end of any document.
const bottom = math.MaxInt32

// ScrollIntoView scrolls until the element is on screen.
func (i *Interactor) ScrollIntoView(ctx context.Context, ref element.Referable) error {
	o := actionOptions{}
	return i.act(ctx, ref, "scroll_into_view", o, func(ctx context.Context, h driver.Handle) error {
		return h.ScrollIntoView(ctx)
	})
}

// ScrollToTop scrolls the window to the top of the document.
func (i *Interactor) ScrollToTop(ctx context.Context) error {
	return i.scrollTo(ctx, 0)
}

// ScrollToBottom scrolls the window to the end of the document.
func (i *Interactor) ScrollToBottom(ctx context.Context) error {
	return i.scrollTo(ctx, bottom)
}

// ScrollToElement scrolls so the element sits in the middle of the viewport.
func (i *Interactor) ScrollToElement(ctx context.Context, ref element.Referable) error {
	r, err := i.Location(ctx, ref)
	if err != nil {
		return err
	}
	vh, err := i.Driver().ViewportHeight(ctx)
	if err != nil {
		return fmt.Errorf("reading viewport height failed: %w", err)
	}
	y := max(r.Y+r.Height/2-vh/2, 0)
	i.logger.Debug("Scrolling to element.", zap.String("element", describe(ref)), zap.Float64("y", y))
	return i.scrollTo(ctx, y)
}

func (i *Interactor) scrollTo(ctx context.Context, y float64) error {
	if err := i.pace(ctx); err != nil {
		return err
	}
	if err := i.Driver().ScrollTo(ctx, 0, y); err != nil {
		return fmt.Errorf("scroll to %g failed: %w", y, err)
	}
	return nil
}
