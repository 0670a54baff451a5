// internal/testing/fixture/session.go
package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/session"
)

// Config returns settings for the static driver against site, with waits
// short enough that failure paths finish quickly.
func Config(site *Site) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Logger.LogFile = ""
	cfg.Browser.Driver = config.DriverStatic
	cfg.Waits.Timeout = 400 * time.Millisecond
	cfg.Waits.PollInterval = 20 * time.Millisecond
	cfg.Waits.PresenceTimeout = 200 * time.Millisecond
	cfg.Waits.StaleRetryDelay = 10 * time.Millisecond
	cfg.Waits.AliveBudget = 100 * time.Millisecond
	cfg.Credentials.File = ""
	cfg.Credentials.Username = DefaultUsername
	cfg.Credentials.Password = DefaultPassword
	if site != nil {
		cfg.Target.BaseURL = site.URL()
	}
	return cfg
}

// Session opens a session for cfg and closes it when the test ends.
func Session(t *testing.T, cfg *config.Config) *session.Session {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
	mgr := session.NewManager(logger)

	s, err := mgr.Start(context.Background(), cfg)
	require.NoError(t, err, "failed to start test session")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mgr.Shutdown(ctx); err != nil {
			t.Logf("Error during session manager shutdown: %v", err)
		}
	})
	return s
}

// Open is NewSite plus a session pointed at it.
func Open(t *testing.T) (*Site, *session.Session) {
	t.Helper()
	site := NewSite(t)
	return site, Session(t, Config(site))
}
