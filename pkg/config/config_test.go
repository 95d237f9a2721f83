package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCarriesCatalog(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, time.Hour, c.Cache.TTL)
	assert.Equal(t, 12*time.Second, c.Pipeline.FetchTimeout)
	assert.Equal(t, "^TNX", c.Sources.Yahoo.Tickers["US_10Y_Yield"])
	assert.Equal(t, "DFF", c.Sources.FRED.Series["Fed_Funds"])
	assert.Equal(t, Flow{Market: "KSQ", Investor: "foreign"}, c.Sources.KRX.Flows["KOSDAQ_Foreign_Net"])
	assert.ElementsMatch(t, []string{"KOSPI", "KOSDAQ"}, c.Sources.Yahoo.Volumes)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), c.HistoryStart())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
server:
  port: 9090
cache:
  backend: layered
  ttl: 30m
sources:
  yahoo:
    tickers:
      Gold: GC=F
  krx:
    flows:
      KOSPI_Institution_Net:
        market: STK
        investor: institution
`))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "layered", c.Cache.Backend)
	assert.Equal(t, 30*time.Minute, c.Cache.TTL)
	assert.Len(t, c.Sources.Yahoo.Tickers, 1)
	assert.Empty(t, c.Sources.Yahoo.Volumes)
	assert.Len(t, c.Sources.KRX.Flows, 1)
	assert.Equal(t, "institution", c.Sources.KRX.Flows["KOSPI_Institution_Net"].Investor)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"backend":        "cache:\n  backend: disk\n",
		"kafka brokers":  "kafka:\n  enabled: true\n",
		"flow market":    "sources:\n  krx:\n    flows:\n      X:\n        market: NYSE\n",
		"volume ticker":  "sources:\n  yahoo:\n    tickers:\n      Gold: GC=F\n    volumes: [KOSPI]\n",
		"history start":  "pipeline:\n  history_start: 2010/01/01\n",
		"log level":      "log:\n  level: loud\n",
		"negative ttl":   "cache:\n  negative_ttl: -1s\n",
		"malformed yaml": "server: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0o600))

	t.Setenv("FRED_API_KEY", "secret")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", c.Sources.FRED.APIKey)
	assert.Equal(t, "cache.internal", c.Cache.Redis.Host)
	assert.Equal(t, 6380, c.Cache.Redis.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 9999, c.Server.Port)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadWithEnvMissingFileUsesDefaults(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
