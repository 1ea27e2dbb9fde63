package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL        string  `yaml:"base_url"`
		Symbol         string  `yaml:"symbol"`
		Granularity    string  `yaml:"granularity"`
		UserAgent      string  `yaml:"user_agent"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		Mock           bool    `yaml:"mock"`
		MockValue      float64 `yaml:"mock_value"`
	} `yaml:"data_source"`
	Poll struct {
		IntervalSeconds int   `yaml:"interval_seconds"`
		FetchOnStart    *bool `yaml:"fetch_on_start"`
	} `yaml:"poll"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	LoginItem struct {
		Label   string `yaml:"label"`
		Program string `yaml:"program"`
	} `yaml:"login_item"`
	Log struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
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

	// Environment variable overrides
	if v := os.Getenv("VIX_SYMBOL"); v != "" {
		cfg.DataSource.Symbol = v
	}
	if v := os.Getenv("VIX_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VIX_POLL_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("VIX_POLL_INTERVAL: %w", err)
		}
		cfg.Poll.IntervalSeconds = n
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("VIX_DEBUG"); v != "" {
		cfg.Log.Debug = v == "true" || v == "1"
	}

	// Defaults
	if cfg.DataSource.BaseURL == "" {
		cfg.DataSource.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.DataSource.Symbol == "" {
		cfg.DataSource.Symbol = "^VIX"
	}
	if cfg.DataSource.Granularity == "" {
		cfg.DataSource.Granularity = "1m"
	}
	if cfg.DataSource.TimeoutSeconds == 0 {
		cfg.DataSource.TimeoutSeconds = 30
	}
	if cfg.DataSource.Mock && cfg.DataSource.MockValue == 0 {
		cfg.DataSource.MockValue = 20
	}
	if cfg.Poll.IntervalSeconds == 0 {
		cfg.Poll.IntervalSeconds = 60
	}
	if cfg.Poll.FetchOnStart == nil {
		on := true
		cfg.Poll.FetchOnStart = &on
	}
	if cfg.LoginItem.Label == "" {
		cfg.LoginItem.Label = "com.vixbar.agent"
	}

	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.DataSource.Symbol == "" {
		return fmt.Errorf("data_source.symbol is required")
	}
	if c.DataSource.TimeoutSeconds < 0 {
		return fmt.Errorf("data_source.timeout_seconds must not be negative")
	}
	if math.IsNaN(c.DataSource.MockValue) || math.IsInf(c.DataSource.MockValue, 0) {
		return fmt.Errorf("data_source.mock_value must be finite")
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be positive")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if c.LoginItem.Label == "" {
		return fmt.Errorf("login_item.label is required")
	}
	return nil
}

// PollInterval returns the configured polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// FetchTimeout returns the HTTP client timeout for data source requests.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}
