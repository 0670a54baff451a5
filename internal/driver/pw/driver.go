// internal/driver/pw/driver.go
// Package pw implements driver.Driver on Playwright. The Playwright API does
// not take a context, so every call checks ctx first and derives its
// Playwright timeout from the context deadline.
package pw

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

const (
	installTimeout = 5 * time.Minute
	launchTimeout  = 60 * time.Second
	defaultAction  = 10 * time.Second
)

// defaultArgs are passed to chromium ahead of user arguments. They keep the
// browser stable inside containers.
var defaultArgs = []string{
	"--disable-gpu",
	"--no-sandbox",
	"--disable-dev-shm-usage",
}

// Options configures the launched browser.
type Options struct {
	// Browser is chromium, firefox or webkit. Empty means chromium.
	Browser           string
	Headless          bool
	IgnoreTLSErrors   bool
	Args              []string
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	// ActionTimeout caps a single Playwright action when ctx has no
	// earlier deadline.
	ActionTimeout time.Duration
	// Install downloads the browser binaries before launch.
	Install bool
}

type tab struct {
	id   string
	page playwright.Page
}

// Driver is one Playwright browser context.
type Driver struct {
	logger  *zap.Logger
	navWait time.Duration
	action  time.Duration
	poll    time.Duration

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext

	mu      sync.Mutex
	tabs    []tab
	current playwright.Page
	dialogs map[playwright.Page]playwright.Dialog

	closeOnce sync.Once
	closeErr  error
}

var _ driver.Driver = (*Driver)(nil)

// New starts the Playwright driver, launches the browser and opens the first
// page.
func New(ctx context.Context, logger *zap.Logger, opts Options) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{
		logger:  logger.Named("playwright"),
		navWait: opts.NavigationTimeout,
		action:  opts.ActionTimeout,
		poll:    100 * time.Millisecond,
		dialogs: make(map[playwright.Page]playwright.Dialog),
	}
	if d.navWait <= 0 {
		d.navWait = 60 * time.Second
	}
	if d.action <= 0 {
		d.action = defaultAction
	}
	name := browserName(opts.Browser)

	if opts.Install {
		if err := install(ctx, d.logger, name); err != nil {
			return nil, err
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	d.pw = pw

	bt, err := browserType(pw, name)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}
	browser, err := bt.Launch(launchOptions(name, opts))
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch %s: %w", name, err)
	}
	d.browser = browser

	bctx, err := browser.NewContext(contextOptions(opts))
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	d.bctx = bctx
	bctx.OnPage(d.track)

	page, err := bctx.NewPage()
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	d.mu.Lock()
	d.current = page
	d.mu.Unlock()
	d.track(page)

	d.logger.Info("Browser launched.", zap.String("browser", name), zap.String("version", browser.Version()))
	return d, nil
}

// install runs the blocking Playwright installer and gives up when ctx or the
// install timeout expires first.
func install(ctx context.Context, logger *zap.Logger, name string) error {
	logger.Info("Verifying Playwright browser installation...", zap.String("browser", name))
	ictx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- playwright.Install(&playwright.RunOptions{Browsers: []string{name}})
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to install playwright browsers: %w", err)
		}
		return nil
	case <-ictx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", ictx.Err())
	}
}

func browserName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "chromium"
	}
	return s
}

func browserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "chromium", "chrome":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	}
	return nil, fmt.Errorf("unknown browser %q", name)
}

func launchOptions(name string, opts Options) playwright.BrowserTypeLaunchOptions {
	args := opts.Args
	if name == "chromium" || name == "chrome" {
		args = append(append([]string{}, defaultArgs...), opts.Args...)
	}
	return playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
		Timeout:  playwright.Float(float64(launchTimeout.Milliseconds())),
	}
}

func contextOptions(opts Options) playwright.BrowserNewContextOptions {
	o := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(opts.IgnoreTLSErrors),
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		o.Viewport = &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}
	}
	return o
}

// track registers a page under a generated window id and listens for its
// dialogs. Playwright dismisses dialogs only when nothing listens, so an
// opened dialog stays up until Accept or Dismiss.
func (d *Driver) track(p playwright.Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tabs {
		if t.page == p {
			return
		}
	}
	d.tabs = append(d.tabs, tab{id: uuid.NewString(), page: p})
	p.OnDialog(func(dlg playwright.Dialog) {
		d.logger.Debug("Dialog opened.", zap.String("type", dlg.Type()), zap.String("message", dlg.Message()))
		d.mu.Lock()
		d.dialogs[p] = dlg
		d.mu.Unlock()
	})
	p.OnClose(func(playwright.Page) {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.dialogs, p)
		for i, t := range d.tabs {
			if t.page == p {
				d.tabs = append(d.tabs[:i], d.tabs[i+1:]...)
				break
			}
		}
	})
}

func (d *Driver) page() playwright.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// timeout returns the Playwright timeout in milliseconds for one call: the
// default capped by the time left on ctx.
func timeout(ctx context.Context, def time.Duration) *float64 {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < def {
			def = left
		}
	}
	if def < time.Millisecond {
		def = time.Millisecond
	}
	return playwright.Float(float64(def.Milliseconds()))
}

func (d *Driver) Find(ctx context.Context, by driver.By, selector string, budget time.Duration) ([]driver.Handle, error) {
	sel, err := engineSelector(by, selector)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(budget)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		els, err := d.page().QuerySelectorAll(sel)
		if err != nil {
			return nil, classify(err)
		}
		if len(els) > 0 || !time.Now().Before(deadline) {
			return d.wrap(els), nil
		}
		wait := d.poll
		if left := time.Until(deadline); left < wait {
			wait = left
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// engineSelector prefixes selector with the Playwright selector engine for by.
func engineSelector(by driver.By, selector string) (string, error) {
	switch by {
	case driver.ByCSS:
		return "css=" + selector, nil
	case driver.ByXPath:
		return "xpath=" + selector, nil
	}
	return "", fmt.Errorf("locator strategy %s: %w", by, driver.ErrUnsupported)
}

func (d *Driver) wrap(els []playwright.ElementHandle) []driver.Handle {
	out := make([]driver.Handle, 0, len(els))
	for _, el := range els {
		out = append(out, &Handle{d: d, el: el})
	}
	return out
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page().Goto(url, playwright.PageGotoOptions{
		Timeout:   timeout(ctx, d.navWait),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, classify(err))
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page().URL(), nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page().Reload(playwright.PageReloadOptions{Timeout: timeout(ctx, d.navWait)})
	return classify(err)
}

func (d *Driver) ScrollTo(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page().Evaluate(`([x, y]) => window.scrollTo(x, y)`, []float64{x, y})
	return classify(err)
}

func (d *Driver) ViewportHeight(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := d.page().Evaluate(`() => window.innerHeight`)
	if err != nil {
		return 0, classify(err)
	}
	return toFloat(v), nil
}

func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.tabs))
	for _, t := range d.tabs {
		ids = append(ids, t.id)
	}
	return ids, nil
}

func (d *Driver) SwitchWindow(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	var p playwright.Page
	for _, t := range d.tabs {
		if t.id == id {
			p = t.page
			break
		}
	}
	if p == nil {
		d.mu.Unlock()
		return fmt.Errorf("window %s: %w", id, driver.ErrNoWindow)
	}
	d.current = p
	d.mu.Unlock()
	return classify(p.BringToFront())
}

func (d *Driver) Alert(ctx context.Context) (driver.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := d.page()
	d.mu.Lock()
	dlg, ok := d.dialogs[p]
	d.mu.Unlock()
	if !ok {
		return nil, driver.ErrNoAlert
	}
	return &Alert{d: d, page: p, dialog: dlg}, nil
}

func (d *Driver) DragAndDrop(ctx context.Context, src, dst driver.Handle) error {
	s, ok1 := src.(*Handle)
	t, ok2 := dst.(*Handle)
	if !ok1 || !ok2 {
		return fmt.Errorf("drag and drop of foreign handles: %w", driver.ErrUnsupported)
	}
	sx, sy, err := s.center(ctx)
	if err != nil {
		return err
	}
	tx, ty, err := t.center(ctx)
	if err != nil {
		return err
	}
	m := d.page().Mouse()
	steps := []func() error{
		func() error { return m.Move(sx, sy) },
		func() error { return m.Down() },
		func() error { return m.Move(tx, ty, playwright.MouseMoveOptions{Steps: playwright.Int(5)}) },
		func() error { return m.Up() },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(); err != nil {
			return classify(err)
		}
	}
	return nil
}

// Close closes the browser and stops the Playwright driver. Later calls
// return the first result.
func (d *Driver) Close(context.Context) error {
	d.closeOnce.Do(func() {
		d.closeErr = d.shutdown()
		d.logger.Info("Browser closed.")
	})
	return d.closeErr
}

func (d *Driver) shutdown() error {
	var errs []string
	if d.bctx != nil {
		if err := d.bctx.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("playwright shutdown: %s", strings.Join(errs, "; "))
	}
	return nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
