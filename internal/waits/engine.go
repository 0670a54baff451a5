// internal/waits/engine.go
// Package waits polls conditions over element state until they hold or a
// timeout elapses. Every poll cycle re-resolves the element so a wait
// survives the element being re-rendered between cycles.
package waits

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Config holds the engine defaults.
type Config struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// Options control a single wait call.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Raise        bool
}

// Option adjusts a single wait call.
type Option func(*Options)

// WithTimeout bounds the wait.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithPollInterval overrides the poll interval for one call.
func WithPollInterval(d time.Duration) Option { return func(o *Options) { o.PollInterval = d } }

// Raise chooses between an error (true) and a plain false (false) on timeout.
func Raise(raise bool) Option { return func(o *Options) { o.Raise = raise } }

// Engine runs waits for one session.
type Engine struct {
	res     *element.Resolver
	logger  *zap.Logger
	timeout time.Duration
	poll    time.Duration
}

// New creates an engine. Zero config values fall back to the defaults.
func New(res *element.Resolver, logger *zap.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		res:     res,
		logger:  logger.Named("waits"),
		timeout: cfg.Timeout,
		poll:    cfg.PollInterval,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.poll <= 0 {
		e.poll = DefaultPollInterval
	}
	return e
}

// Resolver returns the resolver the engine polls through.
func (e *Engine) Resolver() *element.Resolver { return e.res }

// Timeout returns the default wait timeout.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// PollInterval returns the default poll interval.
func (e *Engine) PollInterval() time.Duration { return e.poll }

func (e *Engine) options(raise bool, opts []Option) Options {
	o := Options{Timeout: e.timeout, PollInterval: e.poll, Raise: raise}
	for _, opt := range opts {
		opt(&o)
	}
	if o.PollInterval <= 0 {
		o.PollInterval = e.poll
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	return o
}

// observation is what one poll cycle saw.
type observation struct {
	ok    bool
	found bool
	value string
}

type probe func(ctx context.Context) (observation, error)

// failure builds the timeout error from the last observation.
type failure func(ctx context.Context, last observation, o Options) error

// until evaluates fn until it is satisfied or o.Timeout has elapsed. The call
// returns no earlier than the timeout and no later than one poll interval
// after it, plus the cost of the final evaluation.
func (e *Engine) until(ctx context.Context, cond, desc string, o Options, fn probe, fail failure) (bool, error) {
	log := e.logger.With(zap.String("condition", cond), zap.String("element", desc))
	log.Debug("Waiting.", zap.Duration("timeout", o.Timeout), zap.Duration("poll", o.PollInterval))

	start := time.Now()
	deadline := start.Add(o.Timeout)
	var last observation
	for cycle := 1; ; cycle++ {
		obs, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, err
		}
		if obs.found {
			last.found = true
		}
		last.ok, last.value = obs.ok, obs.value
		if obs.ok {
			log.Debug("Condition satisfied.", zap.Int("cycle", cycle), zap.Duration("elapsed", time.Since(start)))
			return true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		timer := time.NewTimer(min(o.PollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	log.Debug("Condition timed out.", zap.Duration("elapsed", time.Since(start)), zap.String("last", last.value))
	if !o.Raise {
		return false, nil
	}
	return false, fail(ctx, last, o)
}

// lookup re-resolves ref for one poll cycle without spending any implicit
// wait budget.
func (e *Engine) lookup(ctx context.Context, ref element.Referable) ([]driver.Handle, error) {
	hs, _, err := e.res.ResolveAll(ctx, ref, 0)
	return hs, err
}

func describe(ref element.Referable) string {
	if ref == nil {
		return "<nil>"
	}
	return ref.Ref().Describe()
}

// first runs check against the first handle. A stale handle is an unmet
// cycle rather than an error.
func (e *Engine) first(ctx context.Context, ref element.Referable, check func(driver.Handle) (bool, string, error)) (observation, error) {
	hs, err := e.lookup(ctx, ref)
	if err != nil || len(hs) == 0 {
		return observation{}, err
	}
	ok, val, err := check(hs[0])
	if err != nil {
		if driver.IsStale(err) {
			return observation{value: "stale"}, nil
		}
		return observation{}, fmt.Errorf("evaluating condition: %w", err)
	}
	return observation{ok: ok, found: true, value: val}, nil
}

// notFound reports a never-resolved element the same way the resolver does.
func (e *Engine) notFound(ctx context.Context, desc string, o Options) error {
	if !e.res.HostAlive(ctx, nil) {
		return &element.Error{Kind: element.KindHostUnavailable, Element: desc, Timeout: o.Timeout}
	}
	return &element.Error{Kind: element.KindElementNotFound, Element: desc, Timeout: o.Timeout}
}

func timeoutErr(cond string) failure {
	return func(_ context.Context, last observation, o Options) error {
		e := &element.Error{Kind: element.KindConditionTimeout, Condition: cond, Timeout: o.Timeout}
		if last.value != "" {
			e.Detail = fmt.Sprintf("last observed %q", last.value)
		}
		return e
	}
}
