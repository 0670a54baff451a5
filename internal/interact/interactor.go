// internal/interact/interactor.go
// Package interact implements the user-level actions a page object performs:
// clicks, typing, scrolling, dropdown and checkbox handling, modal and loader
// choreography, and browser-native windows and dialogs.
//
// Every mutating action follows the same contract. The element is resolved,
// optionally waited on until enabled, and the native action is attempted. A
// stale reference is retried exactly once after a fixed delay, and an element
// that refuses pointer input is scrolled into view and retried once, unless
// it reports itself disabled, in which case the action fails immediately.
package interact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

const (
	// DefaultStaleRetryDelay is the pause before retrying a stale element.
	DefaultStaleRetryDelay = 5 * time.Second
	// DefaultPresenceTimeout bounds IsElementsPresent when no timeout is given.
	DefaultPresenceTimeout = 5 * time.Second

	// One first try plus at most one recovery of each class.
	maxAttempts = 3
)

// Config tunes an Interactor.
type Config struct {
	// Implicit is the budget handed to the driver on every resolution.
	Implicit        time.Duration
	StaleRetryDelay time.Duration
	PresenceTimeout time.Duration
	// ActionsPerSecond paces native actions. Zero means unlimited.
	ActionsPerSecond float64
	// WaitEnabled is the default for the enabled-wait step of mutating
	// actions.
	WaitEnabled bool
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		StaleRetryDelay: DefaultStaleRetryDelay,
		PresenceTimeout: DefaultPresenceTimeout,
		WaitEnabled:     true,
	}
}

// Interactor performs actions for one session. It is not safe for
// concurrent use, matching the single thread of control a session has.
type Interactor struct {
	res    *element.Resolver
	waits  *waits.Engine
	logger *zap.Logger

	implicit    time.Duration
	staleDelay  time.Duration
	presence    time.Duration
	waitEnabled bool
	limiter     *rate.Limiter
}

// New builds an Interactor on top of a wait engine and its resolver.
func New(w *waits.Engine, logger *zap.Logger, cfg Config) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Interactor{
		res:         w.Resolver(),
		waits:       w,
		logger:      logger.Named("interact"),
		implicit:    cfg.Implicit,
		staleDelay:  cfg.StaleRetryDelay,
		presence:    cfg.PresenceTimeout,
		waitEnabled: cfg.WaitEnabled,
	}
	if i.staleDelay < 0 {
		i.staleDelay = 0
	}
	if i.presence <= 0 {
		i.presence = DefaultPresenceTimeout
	}
	if cfg.ActionsPerSecond > 0 {
		i.limiter = rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), 1)
	}
	return i
}

// Waits exposes the engine the interactor waits through.
func (i *Interactor) Waits() *waits.Engine { return i.waits }

// Resolver exposes the resolver the interactor resolves through.
func (i *Interactor) Resolver() *element.Resolver { return i.res }

// Driver returns the underlying browser session.
func (i *Interactor) Driver() driver.Driver { return i.res.Driver() }

// ActionOption adjusts a single action.
type ActionOption func(*actionOptions)

type actionOptions struct {
	waitEnabled bool
	timeout     time.Duration
	clear       bool
}

// WaitEnabled turns the enabled-wait step on or off for one action.
func WaitEnabled(on bool) ActionOption {
	return func(o *actionOptions) { o.waitEnabled = on }
}

// WithTimeout bounds the enabled-wait step, and the visibility waits of
// compound operations.
func WithTimeout(d time.Duration) ActionOption {
	return func(o *actionOptions) { o.timeout = d }
}

// ClearFirst empties a field before typing into it.
func ClearFirst() ActionOption {
	return func(o *actionOptions) { o.clear = true }
}

func (i *Interactor) actionOptions(opts []ActionOption) actionOptions {
	o := actionOptions{waitEnabled: i.waitEnabled}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o actionOptions) waitOpts(extra ...waits.Option) []waits.Option {
	if o.timeout > 0 {
		extra = append(extra, waits.WithTimeout(o.timeout))
	}
	return extra
}

// pace blocks until the action limiter admits one more native action.
func (i *Interactor) pace(ctx context.Context) error {
	if i.limiter == nil {
		return nil
	}
	return i.limiter.Wait(ctx)
}

// act runs fn against the resolved element under the retry contract.
func (i *Interactor) act(ctx context.Context, ref element.Referable, name string, o actionOptions, fn func(ctx context.Context, h driver.Handle) error) error {
	desc := describe(ref)
	log := i.logger.With(zap.String("action", name), zap.String("element", desc))

	if o.waitEnabled {
		if _, err := i.waits.Enabled(ctx, ref, o.waitOpts(waits.Raise(true))...); err != nil {
			return err
		}
	}

	var h driver.Handle
	attempt := 0
	var staleRetried, scrollRetried bool
	err := retry.Do(
		func() error {
			attempt++
			var err error
			// Locator refs are re-resolved on every attempt so a retry after
			// a re-render reaches the fresh node.
			if h, _, err = i.res.Resolve(ctx, ref, i.implicit); err != nil {
				return retry.Unrecoverable(err)
			}
			if err := i.pace(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			err = fn(ctx, h)
			if err == nil || !driver.IsNotInteractable(err) {
				return err
			}
			if on, eerr := h.IsEnabled(ctx); eerr == nil && !on {
				return retry.Unrecoverable(&element.Error{Kind: element.KindElementDisabled, Element: desc, Detail: name, Err: err})
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if !retry.IsRecoverable(err) {
				return false
			}
			switch {
			case driver.IsStale(err):
				return !staleRetried
			case driver.IsNotInteractable(err):
				return !scrollRetried
			}
			return false
		}),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			if driver.IsStale(err) {
				return i.staleDelay
			}
			return 0
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("Retrying action.", zap.Int("attempt", int(n)+1), zap.Error(err))
			switch {
			case driver.IsStale(err):
				staleRetried = true
			case driver.IsNotInteractable(err):
				scrollRetried = true
				if h == nil {
					return
				}
				if serr := h.ScrollIntoView(ctx); serr != nil {
					log.Debug("Scroll recovery failed.", zap.Error(serr))
				}
			}
		}),
	)
	if err == nil {
		log.Debug("Action done.", zap.Int("attempt", attempt))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var ee *element.Error
	switch {
	case errors.As(err, &ee):
		return ee
	case driver.IsStale(err):
		log.Warn("Element went stale twice.", zap.Error(err))
		return &element.Error{Kind: element.KindStaleElement, Element: desc, Detail: name, Err: err}
	case driver.IsNotInteractable(err):
		log.Warn("Element not interactable after scrolling.", zap.Error(err))
		return &element.Error{Kind: element.KindElementNotAvailable, Element: desc, Detail: name, Err: err}
	}
	return fmt.Errorf("%s on %s failed: %w", name, desc, err)
}

// read resolves ref once and runs a non-mutating fn. A stale handle gets a
// single fresh resolution.
func read[T any](ctx context.Context, i *Interactor, ref element.Referable, fn func(ctx context.Context, h driver.Handle) (T, error)) (T, error) {
	var zero T
	desc := describe(ref)
	for n := 0; ; n++ {
		h, _, err := i.res.Resolve(ctx, ref, i.implicit)
		if err != nil {
			return zero, err
		}
		v, err := fn(ctx, h)
		if err == nil {
			return v, nil
		}
		if !driver.IsStale(err) {
			return zero, fmt.Errorf("reading %s failed: %w", desc, err)
		}
		if n > 0 || !ref.Ref().Resolvable() {
			return zero, &element.Error{Kind: element.KindStaleElement, Element: desc, Err: err}
		}
	}
}

func describe(ref element.Referable) string {
	if ref == nil {
		return "<nil>"
	}
	return ref.Ref().Describe()
}
