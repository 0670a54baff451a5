// internal/driver/cdp/driver.go
// Package cdp implements driver.Driver on the Chrome DevTools Protocol via
// chromedp. Element handles wrap DOM node ids, which the browser invalidates
// when the node leaves the document; those failures surface as
// driver.ErrStale.
package cdp

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Options configures the browser process.
type Options struct {
	Headless          bool
	IgnoreTLSErrors   bool
	Args              []string
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	// ExecPath overrides the Chrome binary. Empty means the chromedp lookup.
	ExecPath string
}

// Driver is one Chrome session.
type Driver struct {
	logger  *zap.Logger
	navWait time.Duration
	poll    time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	ctx     context.Context // current target
	targets map[target.ID]attached
	dialog  *page.EventJavascriptDialogOpening

	closeOnce sync.Once
}

type attached struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ driver.Driver = (*Driver)(nil)

// New launches Chrome and opens the first tab. The browser outlives ctx; it
// stops on Close.
func New(ctx context.Context, logger *zap.Logger, opts Options) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{
		logger:  logger.Named("cdp"),
		navWait: opts.NavigationTimeout,
		poll:    100 * time.Millisecond,
		targets: make(map[target.ID]attached),
	}
	if d.navWait <= 0 {
		d.navWait = 60 * time.Second
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(driver.Detach(ctx), allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	d.allocCancel, d.browserCtx, d.browserCancel = allocCancel, browserCtx, browserCancel
	d.ctx = browserCtx

	// The first Run starts the browser and must use the browser context
	// itself, or the process dies with the caller's context.
	if err := chromedp.Run(browserCtx); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("browser failed to start: %w", err)
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		err := chromedp.Run(browserCtx, emulation.SetDeviceMetricsOverride(int64(opts.ViewportWidth), int64(opts.ViewportHeight), 1, false))
		if err != nil {
			d.shutdown()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	d.listen(browserCtx)
	d.logger.Info("Browser launched.", zap.Bool("headless", opts.Headless))
	return d, nil
}

func allocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	// Later flags override earlier ones, so the defaults come first.
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("ignore-certificate-errors", o.IgnoreTLSErrors),
		chromedp.Flag("disable-gpu", o.Headless),
		chromedp.Flag("disable-extensions", true),
	)
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	if o.ViewportWidth > 0 && o.ViewportHeight > 0 {
		opts = append(opts, chromedp.WindowSize(o.ViewportWidth, o.ViewportHeight))
	}
	for _, arg := range o.Args {
		name, val, hasVal := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if hasVal {
			opts = append(opts, chromedp.Flag(name, val))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// listen tracks JavaScript dialogs on a target.
func (d *Driver) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			d.mu.Lock()
			d.dialog = e
			d.mu.Unlock()
		case *page.EventJavascriptDialogClosed:
			d.mu.Lock()
			d.dialog = nil
			d.mu.Unlock()
		}
	})
}

func (d *Driver) current() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

// run executes actions on the current target, bounded by op.
func (d *Driver) run(op context.Context, actions ...chromedp.Action) error {
	ctx, cancel := driver.CombineContext(d.current(), op)
	defer cancel()
	if err := chromedp.Run(ctx, actions...); err != nil {
		if op.Err() != nil {
			return op.Err()
		}
		return classify(err)
	}
	return nil
}

// -- Navigation --

func (d *Driver) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, d.navWait)
	defer cancel()
	d.logger.Info("Navigating.", zap.String("url", url))
	if err := d.run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, d.navWait, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := d.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

// -- Find --

// Find queries the current document, repeating the query while budget
// lasts and nothing matches.
func (d *Driver) Find(ctx context.Context, by driver.By, selector string, budget time.Duration) ([]driver.Handle, error) {
	q := chromedp.ByQueryAll
	if by == driver.ByXPath {
		q = chromedp.BySearch
	}
	deadline := time.Now().Add(budget)
	for {
		var nodes []*cdp.Node
		if err := d.run(ctx, chromedp.Nodes(selector, &nodes, q, chromedp.AtLeast(0))); err != nil {
			return nil, err
		}
		nodes = elementsOnly(nodes)
		if len(nodes) > 0 {
			return d.wrap(nodes), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		timer := time.NewTimer(min(d.poll, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// elementsOnly drops the text and attribute nodes an XPath search can match.
func elementsOnly(nodes []*cdp.Node) []*cdp.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil && n.NodeType == cdp.NodeTypeElement {
			out = append(out, n)
		}
	}
	return out
}

func (d *Driver) wrap(nodes []*cdp.Node) []driver.Handle {
	out := make([]driver.Handle, len(nodes))
	for i, n := range nodes {
		out[i] = &Handle{d: d, node: n}
	}
	return out
}

// -- Scrolling --

func (d *Driver) ScrollTo(ctx context.Context, x, y float64) error {
	return d.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollTo(%f, %f)", x, y), nil))
}

func (d *Driver) ViewportHeight(ctx context.Context) (float64, error) {
	var h float64
	if err := d.run(ctx, chromedp.Evaluate("window.innerHeight", &h)); err != nil {
		return 0, err
	}
	return h, nil
}

// -- Windows --

// Windows lists page targets in the order the browser reports them.
func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	c, cancel := driver.CombineContext(d.browserCtx, ctx)
	defer cancel()
	infos, err := chromedp.Targets(c)
	if err != nil {
		return nil, fmt.Errorf("listing targets failed: %w", err)
	}
	var ids []string
	for _, info := range infos {
		if info.Type == "page" {
			ids = append(ids, string(info.TargetID))
		}
	}
	return ids, nil
}

// SwitchWindow attaches to the target with the given id and makes it
// current.
func (d *Driver) SwitchWindow(ctx context.Context, id string) error {
	ids, err := d.Windows(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, w := range ids {
		found = found || w == id
	}
	if !found {
		return fmt.Errorf("window '%s': %w", id, driver.ErrNoWindow)
	}

	tid := target.ID(id)
	if chromedp.FromContext(d.browserCtx).Target.TargetID == tid {
		d.mu.Lock()
		d.ctx = d.browserCtx
		d.mu.Unlock()
		return nil
	}

	d.mu.Lock()
	a, ok := d.targets[tid]
	d.mu.Unlock()
	if !ok {
		tctx, cancel := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(tid))
		if err := chromedp.Run(tctx); err != nil {
			cancel()
			return fmt.Errorf("attaching to window '%s' failed: %w", id, err)
		}
		d.listen(tctx)
		a = attached{ctx: tctx, cancel: cancel}
		d.mu.Lock()
		d.targets[tid] = a
		d.mu.Unlock()
	}
	d.mu.Lock()
	d.ctx = a.ctx
	d.mu.Unlock()
	d.logger.Debug("Switched window.", zap.String("window", id))
	return nil
}

// -- Alerts --

func (d *Driver) Alert(context.Context) (driver.Alert, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialog == nil {
		return nil, driver.ErrNoAlert
	}
	return &Alert{d: d, message: d.dialog.Message}, nil
}

// -- Pointer --

// DragAndDrop presses the mouse on src, moves to dst and releases there.
func (d *Driver) DragAndDrop(ctx context.Context, src, dst driver.Handle) error {
	s, ok1 := src.(*Handle)
	t, ok2 := dst.(*Handle)
	if !ok1 || !ok2 {
		return fmt.Errorf("drag and drop requires cdp handles: %w", driver.ErrUnsupported)
	}
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		sx, sy, err := center(ctx, s.node)
		if err != nil {
			return err
		}
		tx, ty, err := center(ctx, t.node)
		if err != nil {
			return err
		}
		steps := []*input.DispatchMouseEventParams{
			input.DispatchMouseEvent(input.MouseMoved, sx, sy),
			input.DispatchMouseEvent(input.MousePressed, sx, sy).WithButton(input.Left).WithClickCount(1),
			input.DispatchMouseEvent(input.MouseMoved, (sx+tx)/2, (sy+ty)/2).WithButton(input.Left),
			input.DispatchMouseEvent(input.MouseMoved, tx, ty).WithButton(input.Left),
			input.DispatchMouseEvent(input.MouseReleased, tx, ty).WithButton(input.Left).WithClickCount(1),
		}
		for _, p := range steps {
			if err := p.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

// Close stops the browser. It is safe to call more than once.
func (d *Driver) Close(context.Context) error {
	d.closeOnce.Do(d.shutdown)
	return nil
}

func (d *Driver) shutdown() {
	d.mu.Lock()
	targets := d.targets
	d.targets = map[target.ID]attached{}
	d.mu.Unlock()
	for _, a := range targets {
		a.cancel()
	}
	if err := chromedp.Cancel(d.browserCtx); err != nil {
		d.logger.Debug("Browser cancel reported an error.", zap.Error(err))
	}
	d.browserCancel()
	d.allocCancel()
	d.logger.Info("Browser closed.")
}
