package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.Debug("should be suppressed")
	assert.Empty(t, buf.String())

	log.Info("hello")
	entry := parseLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "hello", entry["message"])
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithField("ticker", "AAPL").Info("priced")

	entry := parseLine(t, &buf)
	assert.Equal(t, "AAPL", entry["ticker"])
	assert.Equal(t, "priced", entry["message"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithFields(map[string]interface{}{
		"date":  "2025-01-02",
		"count": 100,
	}).Info("computed")

	entry := parseLine(t, &buf)
	assert.Equal(t, "2025-01-02", entry["date"])
	assert.Equal(t, float64(100), entry["count"])
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithError(errors.New("boom")).Error("failed")

	entry := parseLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"unknown", "info"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input).String(), "input=%s", tt.input)
	}
}
