package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
)

func TestMavenHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLoggerTo(&buf, config.LoggingConfig{Level: "info"})

	logger.With(SystemKey, "reconcile").Info("bill saved", "bill_id", 42, "shop", "星巴克 咖啡")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[INFO] [reconcile] ["), line)
	assert.Contains(t, line, "] bill saved bill_id=42 shop=\"星巴克 咖啡\"")
	assert.NotContains(t, line, "system=")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestMavenHandler_TraceAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLoggerTo(&buf, config.LoggingConfig{Level: "debug"})

	logger.With(TraceKey, "3f2a9c1e-0000-4000-8000-000000000000").
		WithGroup("bill").
		Debug("merged", "id", 7, slog.Group("parent", "id", 3))

	line := buf.String()
	assert.Contains(t, line, "[DEBUG]")
	assert.Contains(t, line, "[3f2a9c1e]")
	assert.Contains(t, line, "bill.id=7")
	assert.Contains(t, line, "bill.parent.id=3")
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, level := NewLoggerTo(&buf, config.LoggingConfig{Level: "warn"})

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLoggerTo(&buf, config.LoggingConfig{Level: "info", Format: "json"})

	logger.Info("hello", "n", 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, float64(1), entry["n"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
