// Package config loads the bot's settings from a yaml file, with secrets
// pulled from the environment (optionally seeded by a .env file).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"condorbot/indicators"
	"condorbot/risk"
	"condorbot/strategy"
)

// Config is the complete bot configuration.
type Config struct {
	Bot        BotConfig         `yaml:"bot"`
	Exchange   ExchangeConfig    `yaml:"exchange"`
	Risk       risk.Policy       `yaml:"risk"`
	Strategy   strategy.Config   `yaml:"strategy"`
	Indicators indicators.Config `yaml:"indicators"`
	Journal    JournalConfig     `yaml:"journal"`
	Telegram   TelegramConfig    `yaml:"telegram"`
	Web        WebConfig         `yaml:"web"`
}

type BotConfig struct {
	Symbol         string        `yaml:"symbol"`
	Mode           string        `yaml:"mode"` // "paper" or "live"
	Strategy       string        `yaml:"strategy"`
	InitialBalance float64       `yaml:"initial_balance"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	CandleInterval time.Duration `yaml:"candle_interval"`
	WindowSize     int           `yaml:"window_size"`
	LogLevel       string        `yaml:"log_level"`
}

type ExchangeConfig struct {
	// APIKey and APISecret come from the environment, never from the file.
	APIKey    string  `yaml:"-"`
	APISecret string  `yaml:"-"`
	FeeRate   float64 `yaml:"fee_rate"`
}

type JournalConfig struct {
	Type   string `yaml:"type"` // "sqlite", "postgres" or "memory"
	DBPath string `yaml:"db_path,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"-"`
	ChatID   string `yaml:"-"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a paper-mode configuration that runs without secrets.
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			Symbol:         "BTC-CLP",
			Mode:           "paper",
			Strategy:       "smart-dca",
			InitialBalance: 1_000_000,
			TickInterval:   time.Minute,
			CandleInterval: time.Hour,
			WindowSize:     100,
			LogLevel:       "info",
		},
		Exchange: ExchangeConfig{FeeRate: 0.008},
		Journal:  JournalConfig{Type: "sqlite", DBPath: "condorbot.db"},
		Web:      WebConfig{Addr: ":8080"},
	}
}

// LoadFromFile reads a yaml config, layers it over the defaults, then
// applies environment overrides and validates.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile seeds the process environment from a .env file if one exists.
// Existing variables win over file entries.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// applyEnv pulls the secrets the yaml file deliberately cannot carry.
func (c *Config) applyEnv() {
	if v := os.Getenv("BUDA_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BUDA_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("CONDORBOT_DB_DSN"); v != "" {
		c.Journal.DSN = v
	}
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	if c.Bot.Symbol == "" {
		return fmt.Errorf("bot.symbol is required")
	}
	if c.Bot.Mode != "paper" && c.Bot.Mode != "live" {
		return fmt.Errorf("bot.mode must be 'paper' or 'live'")
	}
	if c.Bot.InitialBalance <= 0 && c.Bot.Mode == "paper" {
		return fmt.Errorf("bot.initial_balance must be positive in paper mode")
	}
	if c.Bot.TickInterval < time.Second {
		return fmt.Errorf("bot.tick_interval must be at least 1s")
	}

	known := false
	for _, name := range strategy.Names() {
		if c.Bot.Strategy == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown strategy %q", c.Bot.Strategy)
	}

	if c.Exchange.FeeRate < 0 || c.Exchange.FeeRate >= 1 {
		return fmt.Errorf("exchange.fee_rate must be in [0,1)")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite")
		}
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn required for postgres (or set CONDORBOT_DB_DSN)")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'postgres' or 'memory'")
	}

	if c.Bot.Mode == "live" && (c.Exchange.APIKey == "" || c.Exchange.APISecret == "") {
		return fmt.Errorf("live mode needs BUDA_API_KEY and BUDA_API_SECRET in the environment")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram enabled but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID missing")
	}
	return nil
}
