// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Driver backends selectable through browser.driver.
const (
	DriverStatic     = "static"
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Waits       WaitsConfig       `mapstructure:"waits" yaml:"waits"`
	Interact    InteractConfig    `mapstructure:"interact" yaml:"interact"`
	Target      TargetConfig      `mapstructure:"target" yaml:"target"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Runner      RunnerConfig      `mapstructure:"runner" yaml:"runner"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console colour of each level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and configures the driver backend.
type BrowserConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Browser is the playwright browser type: chromium, firefox or webkit.
	Browser           string         `mapstructure:"browser" yaml:"browser"`
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Viewport          ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration  `mapstructure:"action_timeout" yaml:"action_timeout"`
	// Install downloads playwright browsers before launch.
	Install  bool   `mapstructure:"install" yaml:"install"`
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
}

// ViewportConfig is the window size in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// WaitsConfig holds the wait engine and resolver timings.
type WaitsConfig struct {
	Implicit        time.Duration `mapstructure:"implicit" yaml:"implicit"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PresenceTimeout time.Duration `mapstructure:"presence_timeout" yaml:"presence_timeout"`
	StaleRetryDelay time.Duration `mapstructure:"stale_retry_delay" yaml:"stale_retry_delay"`
	AliveMarker     string        `mapstructure:"alive_marker" yaml:"alive_marker"`
	AliveBudget     time.Duration `mapstructure:"alive_budget" yaml:"alive_budget"`
}

// InteractConfig tunes the interaction layer.
type InteractConfig struct {
	// ActionsPerSecond paces mutating actions. Zero is unlimited.
	ActionsPerSecond float64 `mapstructure:"actions_per_second" yaml:"actions_per_second"`
	WaitEnabled      bool    `mapstructure:"wait_enabled" yaml:"wait_enabled"`
}

// TargetConfig is the application under test.
type TargetConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// CredentialsConfig locates the login credentials. Username and Password
// win over the file when set.
type CredentialsConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
	File     string `mapstructure:"file" yaml:"file"`
	Section  string `mapstructure:"section" yaml:"section"`
}

// RunnerConfig controls scenario execution and reporting.
type RunnerConfig struct {
	Parallel    int    `mapstructure:"parallel" yaml:"parallel"`
	ReportJSON  string `mapstructure:"report_json" yaml:"report_json"`
	ReportJUnit string `mapstructure:"report_junit" yaml:"report_junit"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagekit")
	v.SetDefault("logger.log_file", "pagekit.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.browser", "chromium")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 1080)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.install", false)

	// -- Waits --
	v.SetDefault("waits.implicit", "0s")
	v.SetDefault("waits.timeout", "30s")
	v.SetDefault("waits.poll_interval", "500ms")
	v.SetDefault("waits.presence_timeout", "5s")
	v.SetDefault("waits.stale_retry_delay", "5s")
	v.SetDefault("waits.alive_marker", ".main-container")
	v.SetDefault("waits.alive_budget", "5s")

	// -- Interact --
	v.SetDefault("interact.actions_per_second", 0.0)
	v.SetDefault("interact.wait_enabled", true)

	// -- Credentials --
	v.SetDefault("credentials.file", "~/.pagekit/credentials.ini")
	v.SetDefault("credentials.section", "ISE")

	// -- Runner --
	v.SetDefault("runner.parallel", 1)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials are taken from the environment without the key replacer
	// spelling, so PAGEKIT_USERNAME rather than PAGEKIT_CREDENTIALS_USERNAME.
	_ = v.BindEnv("credentials.username", "PAGEKIT_USERNAME")
	_ = v.BindEnv("credentials.password", "PAGEKIT_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Browser.Driver) {
	case DriverStatic, DriverChromedp, DriverPlaywright:
	default:
		return fmt.Errorf("browser.driver must be one of %s, %s or %s, got %q",
			DriverStatic, DriverChromedp, DriverPlaywright, c.Browser.Driver)
	}
	if strings.EqualFold(c.Browser.Driver, DriverPlaywright) {
		switch strings.ToLower(c.Browser.Browser) {
		case "", "chromium", "chrome", "firefox", "webkit":
		default:
			return fmt.Errorf("browser.browser must be chromium, firefox or webkit, got %q", c.Browser.Browser)
		}
	}
	if err := c.Waits.Validate(); err != nil {
		return fmt.Errorf("waits configuration invalid: %w", err)
	}
	if c.Interact.ActionsPerSecond < 0 {
		return fmt.Errorf("interact.actions_per_second must not be negative")
	}
	if c.Runner.Parallel <= 0 {
		return fmt.Errorf("runner.parallel must be a positive integer")
	}
	return nil
}

// Validate checks the wait timings.
func (w *WaitsConfig) Validate() error {
	if w.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	if w.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if w.PollInterval > w.Timeout {
		return fmt.Errorf("poll_interval %s exceeds timeout %s", w.PollInterval, w.Timeout)
	}
	if w.Implicit < 0 || w.PresenceTimeout < 0 || w.StaleRetryDelay < 0 || w.AliveBudget < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
