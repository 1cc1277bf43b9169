package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptorank/pkg/config"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := &config.Config{Env: "test", LogLevel: level, LogFormat: "json"}
	return NewWithWriter(cfg, &buf), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	tests := []struct {
		name      string
		logFunc   func(l *Logger)
		wantMsg   string
		wantLevel string
	}{
		{"debug", func(l *Logger) { l.Debug("debug message") }, "debug message", "debug"},
		{"info", func(l *Logger) { l.Info("info message") }, "info message", "info"},
		{"warn", func(l *Logger) { l.Warn("warn message") }, "warn message", "warn"},
		{"error", func(l *Logger) { l.Error("error message") }, "error message", "error"},
		{"infof", func(l *Logger) { l.Infof("pool: %d", 42) }, "pool: 42", "info"},
		{"warnf", func(l *Logger) { l.Warnf("source %s failed", "a.csv") }, "source a.csv failed", "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger("debug")
			tt.logFunc(l)

			entry := decode(t, buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
			assert.Equal(t, "test", entry["env"])
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger("warn")
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithFields(t *testing.T) {
	l, buf := newBufferLogger("debug")

	l.WithFields(map[string]interface{}{
		"mode":      "priority",
		"pool_size": 120,
	}).Info("recomputed")

	entry := decode(t, buf)
	assert.Equal(t, "priority", entry["mode"])
	assert.Equal(t, float64(120), entry["pool_size"])
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger("debug")

	l.WithError(errors.New("source unreachable")).WithField("source", "a.csv").Error("load failed")

	entry := decode(t, buf)
	assert.Equal(t, "source unreachable", entry["error"])
	assert.Equal(t, "a.csv", entry["source"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&config.Config{Env: "test", LogLevel: "info", LogFormat: "console"}, &buf)
	l.Info("test message")

	assert.True(t, strings.Contains(buf.String(), "test message"))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithField("k", "v").Error("discarded")
	})
}
