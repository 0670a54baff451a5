// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/driver/cdp"
	"github.com/xkilldash9x/pagekit/internal/driver/pw"
	"github.com/xkilldash9x/pagekit/internal/driver/static"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/interact"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

const shutdownGracePeriod = 15 * time.Second

// chromeArgs are the launch flags every chromium session starts with.
var chromeArgs = []string{
	"--disable-extensions",
	"--allow-running-insecure-content",
	"--no-default-browser-check",
	"--start-maximized",
}

// DriverFactory opens the browser for a new session.
type DriverFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (driver.Driver, error)

// Manager creates sessions and closes whatever is still open at shutdown.
type Manager struct {
	logger  *zap.Logger
	factory DriverFactory

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithDriverFactory replaces the config-driven driver selection.
func WithDriverFactory(f DriverFactory) Option {
	return func(m *Manager) { m.factory = f }
}

// NewManager creates a session manager.
func NewManager(logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:   logger.Named("session_manager"),
		factory:  OpenDriver,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a browser per cfg and wires a session around it.
func (m *Manager) Start(ctx context.Context, cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id))

	drv, err := m.factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s session: %w", cfg.Browser.Driver, err)
	}

	s := build(id, cfg, drv, logger)
	m.wg.Add(1)
	s.onClose = func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		m.wg.Done()
		m.logger.Debug("Session removed from manager.", zap.String("session_id", id))
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.Info("Browser session started.", zap.String("driver", cfg.Browser.Driver))
	return s, nil
}

func build(id string, cfg *config.Config, drv driver.Driver, logger *zap.Logger) *Session {
	var marker element.Locator
	if cfg.Waits.AliveMarker != "" {
		marker = element.CSS(cfg.Waits.AliveMarker)
	}
	res := element.NewResolver(drv, logger, element.WithAliveMarker(marker, cfg.Waits.AliveBudget))
	engine := waits.New(res, logger, waits.Config{
		Timeout:      cfg.Waits.Timeout,
		PollInterval: cfg.Waits.PollInterval,
	})
	act := interact.New(engine, logger, interact.Config{
		Implicit:         cfg.Waits.Implicit,
		StaleRetryDelay:  cfg.Waits.StaleRetryDelay,
		PresenceTimeout:  cfg.Waits.PresenceTimeout,
		ActionsPerSecond: cfg.Interact.ActionsPerSecond,
		WaitEnabled:      cfg.Interact.WaitEnabled,
	})
	return &Session{
		id:       id,
		cfg:      cfg,
		logger:   logger,
		driver:   drv,
		resolver: res,
		waits:    engine,
		action:   act,
	}
}

// Active returns the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every open session and waits for them to finish, at most
// until ctx or a grace period expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID(), err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	grace := time.NewTimer(shutdownGracePeriod)
	defer grace.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for sessions to close: %w", ctx.Err()))
	case <-grace.C:
		errs = append(errs, errors.New("timed out waiting for sessions to close"))
	}
	m.logger.Info("Session manager shut down.", zap.Int("sessions", len(open)))
	return errors.Join(errs...)
}

// OpenDriver is the default DriverFactory: it launches the backend named by
// browser.driver.
func OpenDriver(ctx context.Context, cfg *config.Config, logger *zap.Logger) (driver.Driver, error) {
	b := cfg.Browser
	switch strings.ToLower(b.Driver) {
	case config.DriverStatic:
		return static.New(logger), nil
	case config.DriverChromedp:
		d, err := cdp.New(ctx, logger, cdp.Options{
			Headless:          b.Headless,
			IgnoreTLSErrors:   b.IgnoreTLSErrors,
			Args:              LaunchArgs(b),
			ViewportWidth:     b.Viewport.Width,
			ViewportHeight:    b.Viewport.Height,
			NavigationTimeout: b.NavigationTimeout,
			ExecPath:          b.ExecPath,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverPlaywright:
		d, err := pw.New(ctx, logger, pw.Options{
			Browser:           b.Browser,
			Headless:          b.Headless,
			IgnoreTLSErrors:   b.IgnoreTLSErrors,
			Args:              LaunchArgs(b),
			ViewportWidth:     b.Viewport.Width,
			ViewportHeight:    b.Viewport.Height,
			NavigationTimeout: b.NavigationTimeout,
			ActionTimeout:     b.ActionTimeout,
			Install:           b.Install,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown driver %q", b.Driver)
}

// LaunchArgs merges the standard chromium flags with the configured ones.
// Firefox and WebKit get only the configured arguments; certificate
// handling for them goes through ignore_tls_errors.
func LaunchArgs(b config.BrowserConfig) []string {
	name := strings.ToLower(b.Browser)
	if strings.EqualFold(b.Driver, config.DriverPlaywright) && name != "" && name != "chromium" && name != "chrome" {
		return append([]string{}, b.Args...)
	}
	return append(append([]string{}, chromeArgs...), b.Args...)
}
