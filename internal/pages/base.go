// internal/pages/base.go
// Package pages holds the page objects of the booking site. Each page
// exposes semantic operations built on the session's interactor and keeps
// its locators next to the methods that use them.
package pages

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/interact"
	"github.com/xkilldash9x/pagekit/internal/session"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

// DefaultLoadTimeout bounds how long a page may take to show its
// validation elements.
const DefaultLoadTimeout = 60 * time.Second

// Page is the contract every page object satisfies.
type Page interface {
	URL() string
	Open(ctx context.Context) error
	Validate(ctx context.Context) error
}

// Disaster is an overlay that may cover a page once it opens, such as a
// cookie banner or a promotion. When Element shows up within Timeout it is
// dismissed by clicking Dismiss, or Element itself when Dismiss is nil.
type Disaster struct {
	Element element.Referable
	Dismiss element.Referable
	Timeout time.Duration
}

// Option configures a page.
type Option func(*options)

type options struct {
	loadTimeout time.Duration
	disasters   []Disaster
	skipLogin   bool
}

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) { o.loadTimeout = d }
}

// WithDisasters registers overlays to dismiss after the page opens.
func WithDisasters(ds ...Disaster) Option {
	return func(o *options) { o.disasters = append(o.disasters, ds...) }
}

// SkipLogin opens pages behind the login as if the session were already
// signed in.
func SkipLogin() Option {
	return func(o *options) { o.skipLogin = true }
}

// Base carries what all pages share: the session, its interaction layers and
// the locators that prove the page has loaded.
type Base struct {
	session *session.Session
	act     *interact.Interactor
	waits   *waits.Engine
	logger  *zap.Logger

	name        string
	path        string
	validations []element.Referable
	opts        options
}

// NewBase builds the shared part of a page named name, served at path
// relative to the target base URL.
func NewBase(s *session.Session, name, path string, validations []element.Referable, opts ...Option) Base {
	o := options{loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loadTimeout <= 0 {
		o.loadTimeout = DefaultLoadTimeout
	}
	return Base{
		session:     s,
		act:         s.Action(),
		waits:       s.Waits(),
		logger:      s.Logger().Named("pages").With(zap.String("page", name)),
		name:        name,
		path:        path,
		validations: validations,
		opts:        o,
	}
}

func (b *Base) Name() string                     { return b.name }
func (b *Base) Session() *session.Session        { return b.session }
func (b *Base) Interactor() *interact.Interactor { return b.act }

// URL resolves the page path against the target base URL.
func (b *Base) URL() string {
	base, err := url.Parse(b.session.BaseURL())
	if err != nil || b.path == "" {
		return b.session.BaseURL()
	}
	ref, err := url.Parse(b.path)
	if err != nil {
		return b.session.BaseURL()
	}
	return base.ResolveReference(ref).String()
}

// Open navigates to the page, dismisses registered overlays and validates it.
func (b *Base) Open(ctx context.Context) error {
	target := b.URL()
	b.logger.Info("Navigating to page.", zap.String("url", target))
	if err := b.act.Driver().Navigate(ctx, target); err != nil {
		return err
	}
	if err := b.AvoidDisasters(ctx); err != nil {
		return err
	}
	return b.Validate(ctx)
}

// NavigateToInitialPage loads the target base URL.
func (b *Base) NavigateToInitialPage(ctx context.Context) error {
	b.logger.Info("Navigating to initial page.", zap.String("url", b.session.BaseURL()))
	return b.act.Driver().Navigate(ctx, b.session.BaseURL())
}

// Validate checks every validation locator within the load timeout.
func (b *Base) Validate(ctx context.Context) error {
	for _, ref := range b.validations {
		if err := b.CheckLocator(ctx, ref, b.opts.loadTimeout); err != nil {
			return err
		}
	}
	return nil
}

// CheckLocator fails with PageNotLoaded when ref is not present within
// timeout.
func (b *Base) CheckLocator(ctx context.Context, ref element.Referable, timeout time.Duration) error {
	present, err := b.act.IsElementsPresent(ctx, ref, timeout)
	if err != nil {
		return err
	}
	if !present {
		return &element.Error{
			Kind:    element.KindPageNotLoaded,
			Element: ref.Ref().Describe(),
			Detail:  fmt.Sprintf("%s page was not loaded. Waited for %s", b.name, timeout),
		}
	}
	return nil
}

// AvoidDisasters dismisses each registered overlay that shows up.
func (b *Base) AvoidDisasters(ctx context.Context) error {
	for _, d := range b.opts.disasters {
		dismiss := d.Dismiss
		if dismiss == nil {
			dismiss = d.Element
		}
		handled, err := b.act.HandleModal(ctx, d.Element, dismiss, d.Timeout)
		if err != nil {
			return err
		}
		if handled {
			b.logger.Info("Worked around optional disaster.", zap.String("element", d.Element.Ref().Describe()))
		}
	}
	return nil
}

// flowFailed wraps err as a FlowFailed error describing the step that broke.
func flowFailed(step string, err error) error {
	return &element.Error{Kind: element.KindFlowFailed, Detail: step, Err: err}
}
