// internal/session/session.go
// Package session wires one browser driver to the resolver, wait engine and
// interactor that pages and scenarios run against.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/interact"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

// Session is one live browser plus the layers built on it. It is driven by
// a single goroutine.
type Session struct {
	id     string
	cfg    *config.Config
	logger *zap.Logger

	driver   driver.Driver
	resolver *element.Resolver
	waits    *waits.Engine
	action   *interact.Interactor

	credsOnce sync.Once
	creds     config.Credentials
	credsErr  error

	closeOnce sync.Once
	closeErr  error
	onClose   func()
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Config() *config.Config       { return s.cfg }
func (s *Session) Logger() *zap.Logger          { return s.logger }
func (s *Session) Driver() driver.Driver        { return s.driver }
func (s *Session) Resolver() *element.Resolver  { return s.resolver }
func (s *Session) Waits() *waits.Engine         { return s.waits }
func (s *Session) Action() *interact.Interactor { return s.action }
func (s *Session) BaseURL() string              { return s.cfg.Target.BaseURL }

// Credentials loads the login pair on first use.
func (s *Session) Credentials() (config.Credentials, error) {
	s.credsOnce.Do(func() {
		s.creds, s.credsErr = config.LoadCredentials(s.cfg.Credentials)
	})
	return s.creds, s.credsErr
}

// Close quits the browser. It is safe to call more than once; later calls
// return the first result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Info("Stopping browser session.")
		s.closeErr = s.driver.Close(ctx)
		if s.closeErr != nil {
			s.logger.Warn("Browser session closed with error.", zap.Error(s.closeErr))
		}
		if s.onClose != nil {
			s.onClose()
		}
	})
	return s.closeErr
}
