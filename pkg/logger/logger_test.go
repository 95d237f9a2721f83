package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With(String("component", "cache"))

	l.Warn("fetch failed",
		String("symbol", "Gold"),
		Int("attempt", 2),
		Duration("latency_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "warn", out["level"])
	assert.Equal(t, "fetch failed", out["message"])
	assert.Equal(t, "cache", out["component"])
	assert.Equal(t, "Gold", out["symbol"])
	assert.Equal(t, float64(2), out["attempt"])
	assert.Equal(t, float64(1500), out["latency_ms"])
	assert.Equal(t, "boom", out["error"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel)
	l.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "chatty"})
	assert.Error(t, err)
}
