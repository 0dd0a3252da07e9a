package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Polygon struct {
		APIKey     string  `yaml:"api_key"`
		BaseURL    string  `yaml:"base_url"`
		RatePerSec float64 `yaml:"rate_per_sec"`
	} `yaml:"polygon"`
	Yahoo struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"yahoo"`
	Scanner struct {
		Interval     time.Duration `yaml:"interval"`
		UniverseCron string        `yaml:"universe_cron"`
		UniverseSize int           `yaml:"universe_size"`
		MoversSize   int           `yaml:"movers_size"`
		Workers      int           `yaml:"workers"`
	} `yaml:"scanner"`
	Signal struct {
		ShortWindow int `yaml:"short_window"`
		LongWindow  int `yaml:"long_window"`
	} `yaml:"signal"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken        string  `yaml:"bot_token"`
		ChatID          string  `yaml:"chat_id"`
		DigestMinChange float64 `yaml:"digest_min_change"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env (if present) and the YAML file at path, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Yahoo.Enabled = true

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

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"POLYGON_API_KEY":    &c.Polygon.APIKey,
		"POLYGON_BASE_URL":   &c.Polygon.BaseURL,
		"UNIVERSE_CRON":      &c.Scanner.UniverseCron,
		"SERVER_ADDR":        &c.Server.Addr,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"REDIS_ADDR":         &c.Redis.Addr,
		"REDIS_PASSWORD":     &c.Redis.Password,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"LOG_LEVEL":          &c.Log.Level,
		"HTTPS_PROXY":        &c.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SCAN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCAN_INTERVAL: %w", err)
		}
		c.Scanner.Interval = d
	}
	if v := os.Getenv("DIGEST_MIN_CHANGE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DIGEST_MIN_CHANGE: %w", err)
		}
		c.Telegram.DigestMinChange = f
	}
	if v := os.Getenv("YAHOO_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("YAHOO_ENABLED: %w", err)
		}
		c.Yahoo.Enabled = b
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Polygon.BaseURL == "" {
		c.Polygon.BaseURL = "https://api.polygon.io"
	}
	if c.Polygon.RatePerSec == 0 {
		c.Polygon.RatePerSec = 50
	}
	if c.Scanner.Interval == 0 {
		c.Scanner.Interval = 60 * time.Second
	}
	if c.Scanner.UniverseCron == "" {
		c.Scanner.UniverseCron = "0 15 9 * * 1-5"
	}
	if c.Scanner.UniverseSize == 0 {
		c.Scanner.UniverseSize = 500
	}
	if c.Scanner.MoversSize == 0 {
		c.Scanner.MoversSize = 25
	}
	if c.Scanner.Workers == 0 {
		c.Scanner.Workers = 8
	}
	if c.Signal.ShortWindow == 0 {
		c.Signal.ShortWindow = 9
	}
	if c.Signal.LongWindow == 0 {
		c.Signal.LongWindow = 21
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// PolygonConfigured reports whether an upstream credential is present. Its
// absence is not fatal: requests fail closed and the scanner stays idle.
func (c *Config) PolygonConfigured() bool {
	return c.Polygon.APIKey != ""
}

// TelegramEnabled reports whether the chat surface should run.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.Scanner.Interval < time.Second {
		return fmt.Errorf("scanner.interval must be at least 1s, got %s", c.Scanner.Interval)
	}
	if c.Scanner.UniverseSize < 1 || c.Scanner.UniverseSize > 500 {
		return fmt.Errorf("scanner.universe_size must be within 1..500")
	}
	if c.Scanner.MoversSize < 1 || c.Scanner.MoversSize > 25 {
		return fmt.Errorf("scanner.movers_size must be within 1..25")
	}
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner.workers must be positive")
	}
	if c.Signal.ShortWindow < 1 || c.Signal.LongWindow < c.Signal.ShortWindow {
		return fmt.Errorf("signal windows must satisfy 1 <= short_window <= long_window")
	}
	if c.Polygon.RatePerSec < 0 {
		return fmt.Errorf("polygon.rate_per_sec must not be negative")
	}
	if c.Scanner.UniverseCron != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Scanner.UniverseCron); err != nil {
			return fmt.Errorf("scanner.universe_cron: %w", err)
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
