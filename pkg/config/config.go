package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"10"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Pipeline struct {
		HistoryStart   string        `yaml:"history_start" default:"2010-01-01" validate:"datetime=2006-01-02"`
		FetchTimeout   time.Duration `yaml:"fetch_timeout" default:"12s"`
		RenderDeadline time.Duration `yaml:"render_deadline" default:"25s"`
		Concurrency    int           `yaml:"concurrency" default:"8" validate:"gte=1,lte=64"`
	} `yaml:"pipeline"`
	Retry struct {
		MaxAttempts     uint          `yaml:"max_attempts" default:"3" validate:"gte=1,lte=5"`
		InitialInterval time.Duration `yaml:"initial_interval" default:"500ms"`
		MaxInterval     time.Duration `yaml:"max_interval" default:"4s"`
	} `yaml:"retry"`
	Sources struct {
		Yahoo struct {
			BaseURL   string            `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
			UserAgent string            `yaml:"user_agent" default:"Mozilla/5.0 (compatible; MacroPull/1.0)"`
			Tickers   map[string]string `yaml:"tickers"`
			Volumes   []string          `yaml:"volumes"`
		} `yaml:"yahoo"`
		FRED struct {
			BaseURL string            `yaml:"base_url" default:"https://api.stlouisfed.org" validate:"url"`
			APIKey  string            `yaml:"api_key"`
			Series  map[string]string `yaml:"series"`
		} `yaml:"fred"`
		KRX struct {
			BaseURL string          `yaml:"base_url" default:"http://data.krx.co.kr" validate:"url"`
			Flows   map[string]Flow `yaml:"flows"`
		} `yaml:"krx"`
		Labels map[string]string `yaml:"labels"`
	} `yaml:"sources"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		TTL           time.Duration `yaml:"ttl" default:"1h"`
		NegativeTTL   time.Duration `yaml:"negative_ttl" default:"1m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"512" validate:"gte=1"`
		Redis         struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"macropull"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"macropull.dashboard.snapshots"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
}

// Flow binds a flow indicator to a market and investor group.
type Flow struct {
	Market   string `yaml:"market" validate:"oneof=STK KSQ"`
	Investor string `yaml:"investor" default:"foreign" validate:"oneof=foreign institution individual other_corp"`
}

var validate = validator.New()

// Default returns a configuration populated only from defaults and the
// built-in indicator catalog.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.applyCatalogDefaults()
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyCatalogDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML, a sibling .env file if present, and
// overrides with environment variables. A missing config file falls back to
// defaults.
func LoadWithEnv(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		c = Default()
	} else {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Sources.FRED.APIKey = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR port: %w", err)
			}
			c.Cache.Redis.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for name, f := range c.Sources.KRX.Flows {
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("sources.krx.flows.%s: %w", name, err)
		}
	}
	for _, v := range c.Sources.Yahoo.Volumes {
		if _, ok := c.Sources.Yahoo.Tickers[v]; !ok {
			return fmt.Errorf("sources.yahoo.volumes: %q has no ticker", v)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Pipeline.FetchTimeout <= 0 || c.Pipeline.RenderDeadline <= 0 {
		return fmt.Errorf("pipeline timeouts must be positive")
	}
	if c.Cache.TTL <= 0 || c.Cache.NegativeTTL <= 0 {
		return fmt.Errorf("cache ttl values must be positive")
	}
	return nil
}

// HistoryStart returns the parsed lower bound for upstream fetches.
func (c *Config) HistoryStart() time.Time {
	t, err := time.Parse("2006-01-02", c.Pipeline.HistoryStart)
	if err != nil {
		return time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

func (c *Config) applyCatalogDefaults() {
	if len(c.Sources.Yahoo.Tickers) == 0 {
		c.Sources.Yahoo.Tickers = map[string]string{
			"US_10Y_Yield":      "^TNX",
			"US_3M_Yield":       "^IRX",
			"High_Yield_Bond":   "HYG",
			"Inv_Grade_Bond":    "LQD",
			"Crude_Oil":         "CL=F",
			"Gold":              "GC=F",
			"Copper":            "HG=F",
			"TIPS_ETF":          "TIP",
			"KOSPI":             "^KS11",
			"KOSDAQ":            "^KQ11",
			"Semiconductor_ETF": "SMH",
			"Cloud_ETF":         "SKYY",
		}
		if c.Sources.Yahoo.Volumes == nil {
			c.Sources.Yahoo.Volumes = []string{"KOSPI", "KOSDAQ"}
		}
	}
	if len(c.Sources.FRED.Series) == 0 {
		c.Sources.FRED.Series = map[string]string{
			"Fed_Funds":     "DFF",
			"10Y_Breakeven": "T10YIE",
		}
	}
	if len(c.Sources.KRX.Flows) == 0 {
		c.Sources.KRX.Flows = map[string]Flow{
			"KOSPI_Foreign_Net":  {Market: "STK", Investor: "foreign"},
			"KOSDAQ_Foreign_Net": {Market: "KSQ", Investor: "foreign"},
		}
	}
	for name, f := range c.Sources.KRX.Flows {
		if f.Investor == "" {
			f.Investor = "foreign"
			c.Sources.KRX.Flows[name] = f
		}
	}
	if c.Sources.Labels == nil {
		c.Sources.Labels = map[string]string{
			"US_10Y_Yield":       "US 10Y Treasury yield (%)",
			"US_3M_Yield":        "US 3M Treasury yield (%)",
			"Fed_Funds":          "Effective Fed funds rate (DFF)",
			"10Y_Breakeven":      "10Y breakeven inflation (%)",
			"High_Yield_Bond":    "HYG high yield",
			"Inv_Grade_Bond":     "LQD investment grade",
			"Crude_Oil":          "WTI crude oil ($)",
			"Gold":               "Gold ($)",
			"Copper":             "Copper ($)",
			"TIPS_ETF":           "TIPS ETF ($)",
			"KOSPI":              "KOSPI index",
			"KOSDAQ":             "KOSDAQ index",
			"KOSPI_Volume":       "KOSPI volume",
			"KOSDAQ_Volume":      "KOSDAQ volume",
			"KOSPI_Foreign_Net":  "KOSPI foreign net buy (KRW bn)",
			"KOSDAQ_Foreign_Net": "KOSDAQ foreign net buy (KRW bn)",
			"Semiconductor_ETF":  "SMH semiconductors ($)",
			"Cloud_ETF":          "SKYY cloud ($)",
		}
	}
}
