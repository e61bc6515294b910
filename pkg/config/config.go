package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Source struct {
		PrimaryURL   string        `yaml:"primary_url"`
		SecondaryURL string        `yaml:"secondary_url"`
		QuoteAsset   string        `yaml:"quote_asset"`
		StableAssets []string      `yaml:"stable_assets"`
		TopK         int           `yaml:"top_k"`
		TickerTTL    time.Duration `yaml:"ticker_ttl"`
		CandleLimit  int           `yaml:"candle_limit"`
		RequestBurst float64       `yaml:"request_burst"`
		RequestRate  float64       `yaml:"request_rate"` // requests per second
	} `yaml:"source"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
	Scanner struct {
		TickerInterval time.Duration `yaml:"ticker_interval"`
		EvalInterval   time.Duration `yaml:"eval_interval"`
		ChunkSize      int           `yaml:"chunk_size"`
		ChunkDelay     time.Duration `yaml:"chunk_delay"`
		MaxCandidates  int           `yaml:"max_candidates"`
		MinQuoteVolume float64       `yaml:"min_quote_volume"`
		LevelTTL       time.Duration `yaml:"level_ttl"`
	} `yaml:"scanner"`
	Ledger struct {
		TakeProfitPct  float64       `yaml:"take_profit_pct"`
		Retention      time.Duration `yaml:"retention"`
		SampleInterval time.Duration `yaml:"sample_interval"`
		MaxSamples     int           `yaml:"max_samples"`
	} `yaml:"ledger"`
	Alerts struct {
		BotToken string `yaml:"bot_token"`
		ChatIDs  string `yaml:"chat_ids"` // comma-separated
		Enabled  bool   `yaml:"enabled"`
	} `yaml:"alerts"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Events struct {
		Backend string `yaml:"backend"` // none, kafka, clickhouse
		Topic   string `yaml:"topic"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			RequiredAcks int           `yaml:"required_acks"`
			Compression  string        `yaml:"compression"`
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"clickhouse"`
	} `yaml:"events"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. Validation runs after the overrides, so a secret supplied
// only through the environment still satisfies it.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Alerts.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_IDS"); v != "" {
		c.Alerts.ChatIDs = v
	}
	if v := os.Getenv("SOURCE_PRIMARY_URL"); v != "" {
		c.Source.PrimaryURL = v
	}
	if v := os.Getenv("SOURCE_SECONDARY_URL"); v != "" {
		c.Source.SecondaryURL = v
	}
	if v := os.Getenv("EVENTS_BACKEND"); v != "" {
		c.Events.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Source.PrimaryURL == "" {
		c.Source.PrimaryURL = "https://api.binance.com"
	}
	if c.Source.SecondaryURL == "" {
		c.Source.SecondaryURL = "https://api1.binance.com"
	}
	if c.Source.QuoteAsset == "" {
		c.Source.QuoteAsset = "USDT"
	}
	if c.Source.TopK <= 0 {
		c.Source.TopK = 250
	}
	if c.Source.TickerTTL <= 0 {
		c.Source.TickerTTL = 30 * time.Second
	}
	if c.Source.CandleLimit <= 0 {
		c.Source.CandleLimit = 30
	}
	if c.Source.RequestBurst <= 0 {
		c.Source.RequestBurst = 10
	}
	if c.Source.RequestRate <= 0 {
		c.Source.RequestRate = 5
	}
	if c.Scanner.TickerInterval <= 0 {
		c.Scanner.TickerInterval = 60 * time.Second
	}
	if c.Scanner.EvalInterval <= 0 {
		c.Scanner.EvalInterval = 120 * time.Second
	}
	if c.Scanner.ChunkSize <= 0 {
		c.Scanner.ChunkSize = 10
	}
	if c.Scanner.ChunkDelay <= 0 {
		c.Scanner.ChunkDelay = 500 * time.Millisecond
	}
	if c.Scanner.MaxCandidates <= 0 {
		c.Scanner.MaxCandidates = 100
	}
	if c.Scanner.LevelTTL <= 0 {
		c.Scanner.LevelTTL = time.Minute
	}
	if c.Ledger.TakeProfitPct <= 0 {
		c.Ledger.TakeProfitPct = 4.0
	}
	if c.Ledger.Retention <= 0 {
		c.Ledger.Retention = 24 * time.Hour
	}
	if c.Ledger.SampleInterval <= 0 {
		c.Ledger.SampleInterval = 10 * time.Minute
	}
	if c.Ledger.MaxSamples <= 0 {
		c.Ledger.MaxSamples = 144
	}
	if c.Events.Backend == "" {
		c.Events.Backend = "none"
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "goldenscan.signals"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "goldenscan"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Events.Backend {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("events.backend must be 'none', 'kafka', or 'clickhouse', got '%s'", c.Events.Backend)
	}
	if c.Events.Backend == "kafka" && len(c.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka.brokers cannot be empty with kafka backend")
	}
	if c.Events.Backend == "clickhouse" && c.Events.ClickHouse.Host == "" {
		return fmt.Errorf("events.clickhouse.host is required with clickhouse backend")
	}
	if c.Alerts.Enabled && c.Alerts.BotToken == "" {
		return fmt.Errorf("alerts.bot_token is required when alerts are enabled")
	}
	if c.Scanner.ChunkSize > c.Scanner.MaxCandidates {
		return fmt.Errorf("scanner.chunk_size cannot exceed scanner.max_candidates")
	}
	return nil
}
