package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Data providers.
const (
	ProviderYahoo    = "yahoo"
	ProviderVsTrader = "vstrader"
	ProviderCSV      = "csv"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider    string `yaml:"provider"`
		BaseURL     string `yaml:"base_url"`
		APIKey      string `yaml:"api_key"`
		CSVDir      string `yaml:"csv_dir"`
		TickersFile string `yaml:"tickers_file"`
	} `yaml:"data_source"`
	Tickers   []string `yaml:"tickers"`
	Discovery struct {
		Significance float64 `yaml:"significance"`
		MinOverlap   int     `yaml:"min_overlap"`
		Workers      int     `yaml:"workers"`
		MaxLag       *int    `yaml:"max_lag"`
		AutoLag      string  `yaml:"autolag"`
	} `yaml:"discovery"`
	Simulation struct {
		PairID     string  `yaml:"pair_id"`
		UpperBound float64 `yaml:"upper_bound"`
		LowerBound float64 `yaml:"lower_bound"`
		SpreadMode string  `yaml:"spread_mode"`
	} `yaml:"simulation"`
	Schedule struct {
		DiscoveryCron string `yaml:"discovery_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	MetricsAddr string `yaml:"metrics_addr"`
	Tracing     struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"tracing"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyEnv() error {
	envString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	envString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	envString("VSTRADER_BASE_URL", &c.DataSource.BaseURL)
	envString("VSTRADER_API_KEY", &c.DataSource.APIKey)
	envString("DATA_PROVIDER", &c.DataSource.Provider)
	envString("HTTPS_PROXY", &c.Proxy)
	envString("SQLITE_PATH", &c.Database.SQLitePath)
	envString("CRON_DISCOVERY", &c.Schedule.DiscoveryCron)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("PAIR_ID", &c.Simulation.PairID)

	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = nil
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				c.Tickers = append(c.Tickers, t)
			}
		}
	}
	for key, dst := range map[string]*float64{
		"SIGNIFICANCE": &c.Discovery.Significance,
		"UPPER_BOUND":  &c.Simulation.UpperBound,
		"LOWER_BOUND":  &c.Simulation.LowerBound,
	} {
		if err := envFloat(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderYahoo
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = ProviderVsTrader
		}
	}
	if c.Discovery.Significance == 0 {
		c.Discovery.Significance = 0.01
	}
	if c.Discovery.MinOverlap == 0 {
		c.Discovery.MinOverlap = 30
	}
	if c.Discovery.MaxLag == nil {
		auto := -1
		c.Discovery.MaxLag = &auto
	}
	if c.Discovery.AutoLag == "" {
		c.Discovery.AutoLag = "aic"
	}
	if c.Simulation.SpreadMode == "" {
		c.Simulation.SpreadMode = "dollar"
	}
	if c.Simulation.UpperBound == 0 && c.Simulation.LowerBound == 0 {
		c.Simulation.UpperBound, c.Simulation.LowerBound = 1, -1
	}
	if c.Schedule.DiscoveryCron == "" {
		c.Schedule.DiscoveryCron = "0 30 18 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.DataSource.Provider {
	case ProviderYahoo:
	case ProviderVsTrader:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for provider %s", ProviderVsTrader)
		}
	case ProviderCSV:
		if c.DataSource.CSVDir == "" {
			return fmt.Errorf("data_source.csv_dir is required for provider %s", ProviderCSV)
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, vstrader, csv", c.DataSource.Provider)
	}
	if c.Discovery.Significance <= 0 || c.Discovery.Significance >= 1 {
		return fmt.Errorf("discovery.significance must be in (0, 1), got %v", c.Discovery.Significance)
	}
	if c.Discovery.MinOverlap < 10 {
		return fmt.Errorf("discovery.min_overlap must be at least 10, got %d", c.Discovery.MinOverlap)
	}
	if c.Discovery.Workers < 0 {
		return fmt.Errorf("discovery.workers must not be negative")
	}
	switch c.Discovery.AutoLag {
	case "aic", "bic", "none":
	default:
		return fmt.Errorf("discovery.autolag %q is not one of aic, bic, none", c.Discovery.AutoLag)
	}
	switch c.Simulation.SpreadMode {
	case "dollar", "log":
	default:
		return fmt.Errorf("simulation.spread_mode %q is not one of dollar, log", c.Simulation.SpreadMode)
	}
	return nil
}
