// internal/driver/static/driver.go
// Package static implements driver.Driver over an in-memory HTML document.
// Pages are fetched over plain HTTP (or loaded from a string) and parsed with
// golang.org/x/net/html; CSS queries go through cascadia and XPath queries
// through htmlquery.
//
// There is no JavaScript engine and no layout engine. Visibility is derived
// from the hidden attribute and inline display/visibility styles, layout boxes
// come from a data-rect="x,y,w,h" attribute, and an element carrying
// data-offscreen rejects pointer input until it is scrolled into view.
// Scripted page behaviour is emulated with OnAction hooks and Mutate.
package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

const defaultFindPoll = 10 * time.Millisecond

// Action describes a native operation about to be dispatched to a node.
type Action struct {
	Name string
	Node *html.Node
	// Arg carries the text for send_keys and similar operations.
	Arg string
}

// Hook runs before an action touches the document. Returning an error aborts
// the action with that error.
type Hook func(ctx context.Context, d *Driver, a Action) error

type window struct {
	id     string
	url    *url.URL
	source string
	doc    *html.Node
}

// Driver is a single static browsing session.
type Driver struct {
	id       string
	logger   *zap.Logger
	client   *http.Client
	poll     time.Duration
	viewport float64

	mu      sync.Mutex
	windows []*window
	current int
	alert   *Dialog
	scrollX float64
	scrollY float64
	hooks   []Hook
	actions []Action

	closeOnce sync.Once
	closed    bool
}

var _ driver.Driver = (*Driver)(nil)

// Option configures a Driver.
type Option func(*Driver)

// WithHTTPClient sets the client used for navigation and form submission.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) { d.client = c }
}

// WithViewportHeight sets the height reported by ViewportHeight.
func WithViewportHeight(h float64) Option {
	return func(d *Driver) { d.viewport = h }
}

// WithFindPoll sets how often Find re-queries while its budget lasts.
func WithFindPoll(p time.Duration) Option {
	return func(d *Driver) { d.poll = p }
}

// New creates a static session with an empty document.
func New(logger *zap.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	d := &Driver{
		id:       id,
		logger:   logger.Named("static").With(zap.String("session_id", id)),
		poll:     defaultFindPoll,
		viewport: 800,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		jar, _ := cookiejar.New(nil)
		d.client = &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			// Redirects are followed by executeRequest so the final URL is tracked.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
	}
	blank, _ := html.Parse(strings.NewReader("<html><head></head><body></body></html>"))
	d.windows = []*window{{id: uuid.New().String(), url: &url.URL{Scheme: "about", Opaque: "blank"}, doc: blank}}
	return d
}

// ID returns the session identifier.
func (d *Driver) ID() string { return d.id }

// OnAction registers a hook run before every native action.
func (d *Driver) OnAction(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Mutate runs fn against the current document under the session lock.
// Nodes removed or replaced by fn become stale for any handle holding them.
func (d *Driver) Mutate(fn func(doc *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.win().doc)
}

// Actions returns a copy of the actions dispatched so far.
func (d *Driver) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Action(nil), d.actions...)
}

// CountActions returns how many actions with the given name were dispatched.
func (d *Driver) CountActions(name string) int {
	n := 0
	for _, a := range d.Actions() {
		if a.Name == name {
			n++
		}
	}
	return n
}

func (d *Driver) win() *window { return d.windows[d.current] }

// attached reports whether n still belongs to the current document. Caller
// holds d.mu.
func (d *Driver) attached(n *html.Node) bool {
	return n != nil && root(n) == d.win().doc
}

// fire runs hooks and records the action. It must not be called with d.mu
// held since hooks may call Mutate.
func (d *Driver) fire(ctx context.Context, a Action) error {
	var hooks []Hook
	d.locked(func() { hooks = append([]Hook(nil), d.hooks...) })
	for _, h := range hooks {
		if err := h(ctx, d, a); err != nil {
			return err
		}
	}
	d.locked(func() { d.actions = append(d.actions, a) })
	return nil
}

// locked runs fn with d.mu held.
func (d *Driver) locked(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// -- Documents --

// LoadHTML replaces the current document with src as if it had been served
// from rawURL.
func (d *Driver) LoadHTML(rawURL, src string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL '%s': %w", rawURL, err)
	}
	doc, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("failed to parse HTML for '%s': %w", rawURL, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.win()
	w.url, w.source, w.doc = u, src, doc
	d.scrollX, d.scrollY = 0, 0
	return nil
}

// Navigate fetches targetURL (resolved against the current URL) and makes
// the response the current document.
func (d *Driver) Navigate(ctx context.Context, targetURL string) error {
	resolved, err := d.resolveURL(targetURL)
	if err != nil {
		return fmt.Errorf("failed to resolve URL '%s': %w", targetURL, err)
	}
	d.logger.Info("Navigating.", zap.String("url", resolved.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request for '%s': %w", resolved, err)
	}
	if err := d.executeRequest(ctx, req); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("navigation to %s failed: %w", resolved, err)
	}
	return nil
}

// CurrentURL returns the URL of the current document.
func (d *Driver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.win().url.String(), nil
}

// Refresh reloads the current document. Documents loaded from a string are
// re-parsed from their original source.
func (d *Driver) Refresh(ctx context.Context) error {
	var u *url.URL
	var src string
	d.locked(func() {
		w := d.win()
		u, src = w.url, w.source
	})

	if src != "" || (u.Scheme != "http" && u.Scheme != "https") {
		return d.LoadHTML(u.String(), src)
	}
	return d.Navigate(ctx, u.String())
}

// -- Find --

// Find queries the current document, re-querying every poll interval until a
// match appears, the budget is spent or ctx is done.
func (d *Driver) Find(ctx context.Context, by driver.By, selector string, budget time.Duration) ([]driver.Handle, error) {
	deadline := time.Now().Add(budget)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var nodes []*html.Node
		var err error
		d.locked(func() { nodes, err = query(d.win().doc, by, selector) })
		if err != nil {
			return nil, err
		}
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

func (d *Driver) wrap(nodes []*html.Node) []driver.Handle {
	out := make([]driver.Handle, len(nodes))
	for i, n := range nodes {
		out[i] = &Node{d: d, n: n}
	}
	return out
}

// Lookup returns a handle on the first node matching a CSS selector, without
// waiting. Intended for tests and hooks.
func (d *Driver) Lookup(css string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := query(d.win().doc, driver.ByCSS, css)
	if err != nil || len(nodes) == 0 {
		return nil
	}
	return &Node{d: d, n: nodes[0]}
}

// -- Scrolling --

// ScrollTo records the window scroll position.
func (d *Driver) ScrollTo(_ context.Context, x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrollX, d.scrollY = max(x, 0), max(y, 0)
	return nil
}

// ScrollPosition returns the recorded window scroll position.
func (d *Driver) ScrollPosition() (float64, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scrollX, d.scrollY
}

// ViewportHeight returns the configured viewport height.
func (d *Driver) ViewportHeight(context.Context) (float64, error) { return d.viewport, nil }

// -- Windows --

// OpenWindow adds a window holding src and returns its id. The current
// window does not change, matching a target=_blank link.
func (d *Driver) OpenWindow(rawURL, src string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	doc, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}
	w := &window{id: uuid.New().String(), url: u, source: src, doc: doc}
	d.locked(func() { d.windows = append(d.windows, w) })
	return w.id, nil
}

// Windows lists window ids in opening order.
func (d *Driver) Windows(context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.windows))
	for i, w := range d.windows {
		ids[i] = w.id
	}
	return ids, nil
}

// SwitchWindow makes the window with the given id current.
func (d *Driver) SwitchWindow(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.windows {
		if w.id == id {
			d.current = i
			return nil
		}
	}
	return fmt.Errorf("window '%s': %w", id, driver.ErrNoWindow)
}

// -- Alerts --

// Alert returns the open dialog.
func (d *Driver) Alert(context.Context) (driver.Alert, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.alert == nil || d.alert.closed {
		return nil, driver.ErrNoAlert
	}
	return d.alert, nil
}

// OpenDialog opens a native dialog with the given message, replacing any
// dialog already open.
func (d *Driver) OpenDialog(message string) *Dialog {
	dlg := &Dialog{d: d, message: message}
	d.locked(func() { d.alert = dlg })
	return dlg
}

// -- Pointer --

// DragAndDrop moves the source node into the target node.
func (d *Driver) DragAndDrop(ctx context.Context, src, dst driver.Handle) error {
	s, ok1 := src.(*Node)
	t, ok2 := dst.(*Node)
	if !ok1 || !ok2 {
		return fmt.Errorf("drag and drop requires static handles: %w", driver.ErrUnsupported)
	}
	if err := d.fire(ctx, Action{Name: "drag", Node: s.n}); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached(s.n) || !d.attached(t.n) {
		return fmt.Errorf("drag and drop: %w", driver.ErrStale)
	}
	if !displayed(s.n) || !displayed(t.n) {
		return fmt.Errorf("drag and drop: %w", driver.ErrNotInteractable)
	}
	s.n.Parent.RemoveChild(s.n)
	t.n.AppendChild(s.n)
	return nil
}

// Close ends the session.
func (d *Driver) Close(context.Context) error {
	d.closeOnce.Do(func() {
		d.logger.Info("Closing session.")
		d.client.CloseIdleConnections()
		d.locked(func() { d.closed = true })
	})
	return nil
}

func (d *Driver) resolveURL(target string) (*url.URL, error) {
	var base *url.URL
	d.locked(func() { base = d.win().url })
	ref, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if base == nil || base.Scheme == "about" {
		if !ref.IsAbs() {
			return nil, fmt.Errorf("relative URL '%s' with no base document", target)
		}
		return ref, nil
	}
	return base.ResolveReference(ref), nil
}
