// Package config loads application configuration from YAML files with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use "200ms" notation.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all application configuration.
type Config struct {
	Binance   BinanceConfig   `yaml:"binance"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
	Storage   StorageConfig   `yaml:"storage"`
	Output    OutputConfig    `yaml:"output"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// BinanceConfig configures the market data client.
type BinanceConfig struct {
	BaseURL   string   `yaml:"base_url"`
	Timeout   Duration `yaml:"timeout"`
	PageDelay Duration `yaml:"page_delay"`
	PageLimit int      `yaml:"page_limit"`
}

// PortfolioConfig configures valuation defaults.
type PortfolioConfig struct {
	Benchmark string  `yaml:"benchmark"`
	Interval  string  `yaml:"interval"`
	Capital   float64 `yaml:"capital"`
}

// StorageConfig configures persistence backends. Empty DSNs select the
// in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
	CacheDir      string `yaml:"cache_dir"`
}

// OutputConfig configures report rendering.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Binance: BinanceConfig{
			BaseURL:   "https://api.binance.com",
			Timeout:   Duration(30 * time.Second),
			PageDelay: Duration(200 * time.Millisecond),
			PageLimit: 500,
		},
		Portfolio: PortfolioConfig{
			Benchmark: "BTCUSDT",
			Interval:  "1d",
			Capital:   1000,
		},
		Storage: StorageConfig{
			CacheDir: "cache",
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load reads configuration from path, falling back to defaults for any
// field the file omits, then applies environment overrides. A missing
// file is not an error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	// Side effect only; a missing .env file is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		c.Binance.BaseURL = v
	}
	if v := os.Getenv("BINANCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Binance.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.Storage.CacheDir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("BENCHMARK_SYMBOL"); v != "" {
		c.Portfolio.Benchmark = v
	}
	if v := os.Getenv("DEFAULT_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Portfolio.Capital = f
		}
	}
}

func (c *Config) validate() error {
	if c.Binance.BaseURL == "" {
		return fmt.Errorf("binance.base_url must not be empty")
	}
	if c.Binance.Timeout <= 0 {
		return fmt.Errorf("binance.timeout must be positive")
	}
	if c.Binance.PageDelay < 0 {
		return fmt.Errorf("binance.page_delay must not be negative")
	}
	if c.Binance.PageLimit <= 0 || c.Binance.PageLimit > 1000 {
		return fmt.Errorf("binance.page_limit must be in (0, 1000]")
	}
	if c.Portfolio.Capital <= 0 {
		return fmt.Errorf("portfolio.capital must be positive")
	}
	return nil
}
