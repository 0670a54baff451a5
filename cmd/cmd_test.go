// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/observability"
	"github.com/xkilldash9x/pagekit/internal/testing/fixture"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// execute runs a fresh command tree with a silent global logger.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	observability.Initialize(config.LoggerConfig{Level: "fatal", Format: "console"}, zapcore.AddSync(io.Discard))
	t.Cleanup(observability.ResetForTest)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a config file pointing the static driver at site with
// short waits.
func writeConfig(t *testing.T, site *fixture.Site) string {
	t.Helper()
	baseURL := ""
	if site != nil {
		baseURL = site.URL()
	}
	content := fmt.Sprintf(`logger:
  log_file: ""
browser:
  driver: static
target:
  base_url: %q
waits:
  timeout: 400ms
  poll_interval: 20ms
  presence_timeout: 200ms
  stale_retry_delay: 10ms
  alive_budget: 100ms
credentials:
  file: ""
  username: %q
  password: %q
`, baseURL, fixture.DefaultUsername, fixture.DefaultPassword)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pagekit version "+Version+"\n", out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "pagekit drives page-object browser scenarios")
	assert.Contains(t, out, "probe")
}

func TestList(t *testing.T) {
	out, err := execute(t, "list", "--config", writeConfig(t, nil))
	require.NoError(t, err)
	for _, name := range []string{"login", "personal-account", "settings"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "pick a check-in date")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser: [unclosed"), 0o600))

	_, err := execute(t, "list", "--config", path)
	assert.ErrorContains(t, err, "failed to initialize configuration")
}

func TestRun(t *testing.T) {
	site := fixture.NewSite(t)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	junitPath := filepath.Join(dir, "junit.xml")

	out, err := execute(t, "run", "--config", writeConfig(t, site),
		"--parallel", "2", "--report-json", jsonPath, "--report-junit", junitPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS   login")
	assert.Contains(t, out, "3 passed, 0 failed, 0 errors")
	assert.Equal(t, 3, site.Logins())

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var rep struct {
		Results []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &rep))
	require.Len(t, rep.Results, 3)
	assert.Equal(t, "login", rep.Results[0].Name)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(junitPath))
	assert.Len(t, doc.FindElements("//testcase"), 3)
	assert.Empty(t, doc.FindElements("//failure"))
}

func TestRunReportsFailures(t *testing.T) {
	site := fixture.NewSite(t)
	site.FailNextSaves("Nickname is already taken")

	out, err := execute(t, "run", "settings", "--config", writeConfig(t, site))
	require.Error(t, err)
	assert.EqualError(t, err, "1 of 1 scenarios did not pass")
	assert.Contains(t, out, "FAIL   settings")
	assert.Contains(t, out, "Nickname is already taken")
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	_, err := execute(t, "run", "login", "--config", cfgPath, "--parallel", "0")
	assert.ErrorContains(t, err, "runner.parallel must be a positive integer")

	_, err = execute(t, "run", "login", "--config", cfgPath, "--driver", "selenium")
	assert.ErrorContains(t, err, "browser.driver must be one of")

	site := fixture.NewSite(t)
	out, err := execute(t, "run", "login", "--config", cfgPath, "--base-url", site.URL())
	require.NoError(t, err, out)
	assert.Equal(t, 1, site.Logins())
}

func TestRunUnknownScenario(t *testing.T) {
	_, err := execute(t, "run", "nope", "--config", writeConfig(t, nil))
	assert.EqualError(t, err, `unknown scenario "nope"`)
}

func TestProbe(t *testing.T) {
	site := fixture.NewSite(t)
	cfgPath := writeConfig(t, site)

	out, err := execute(t, "probe", "--config", cfgPath, "--css", "#username")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 match(es)")
	assert.Contains(t, out, "[0] displayed=true")

	out, err = execute(t, "probe", "--config", cfgPath, "--url", site.URL(), "--xpath", "//*[@id='profile-menu']")
	var kindErr *element.Error
	require.True(t, errors.As(err, &kindErr), "signed out, there is no profile menu: %v", err)
	assert.Equal(t, element.KindElementNotFound, kindErr.Kind)
	assert.Contains(t, out, "0 match(es)")
}

func TestProbeArguments(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	_, err := execute(t, "probe", "--config", cfgPath, "--css", "a", "--xpath", "//a")
	assert.EqualError(t, err, "--css and --xpath are mutually exclusive")

	_, err = execute(t, "probe", "--config", cfgPath)
	assert.EqualError(t, err, "one of --css or --xpath is required")

	_, err = execute(t, "probe", "--config", cfgPath, "--css", "a")
	assert.ErrorContains(t, err, "no page to probe")
}
