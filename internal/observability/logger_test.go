// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pagekit/internal/config"
)

func TestBuild(t *testing.T) {
	t.Run("console with colours", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Build(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "pagekit",
			Colors:      config.ColorConfig{Info: "green"},
		}, zapcore.AddSync(&buf))

		logger.Named("interact").Info("Clicked element.", zap.String("element", "#save"))
		require.NoError(t, logger.Sync())

		out := buf.String()
		assert.Contains(t, out, palette["green"]+"INFO"+colorReset)
		assert.Contains(t, out, "pagekit.interact.")
		assert.Contains(t, out, "Clicked element.")
		assert.Contains(t, out, `"element": "#save"`)
	})

	t.Run("unknown colour prints plain level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Build(config.LoggerConfig{Level: "info", Format: "console", Colors: config.ColorConfig{Warn: "mauve"}}, zapcore.AddSync(&buf))
		logger.Warn("plain")
		require.NoError(t, logger.Sync())
		assert.Contains(t, buf.String(), "WARN")
		assert.NotContains(t, buf.String(), colorReset)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Build(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, zapcore.AddSync(&buf))
		logger.Warn("This is a JSON message.", zap.String("key", "value"))
		logger.Debug("filtered out")
		require.NoError(t, logger.Sync())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1, "debug is below the configured level")
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "This is a JSON message.", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("bad level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Build(config.LoggerConfig{Level: "chatty", Format: "json"}, zapcore.AddSync(&buf))
		logger.Debug("hidden")
		logger.Info("shown")
		require.NoError(t, logger.Sync())
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pagekit.log")
		var buf bytes.Buffer
		logger := Build(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&buf))
		logger.Error("This should go to the file.")
		require.NoError(t, logger.Sync())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"This should go to the file."`)
		assert.Contains(t, buf.String(), "This should go to the file.")
	})
}

func TestInitialize(t *testing.T) {
	t.Cleanup(ResetForTest)

	t.Run("only once", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"}, zapcore.AddSync(&buf))
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "Second"}, zapcore.AddSync(&buf))
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		Sync()
		assert.Contains(t, buf.String(), "First")
		assert.NotContains(t, buf.String(), "Second")
	})

	t.Run("fallback before initialization", func(t *testing.T) {
		ResetForTest()
		logger := GetLogger()
		require.NotNil(t, logger)
		assert.Nil(t, globalLogger.Load())
	})

	t.Run("global after initialization", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
		assert.Same(t, globalLogger.Load(), GetLogger())
		assert.Same(t, GetLogger(), zap.L())
	})
}
