package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"EnergyPulse/internal/domain/models"

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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Provider struct {
		Name         string        `yaml:"name"` // "yahoo" or "alphavantage"
		APIKey       string        `yaml:"api_key"`
		BaseURL      string        `yaml:"base_url"` // optional override, used in tests
		Interval     string        `yaml:"interval"` // candle resolution, default "1d"
		Timeout      time.Duration `yaml:"timeout"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
		RateLimitRPS float64       `yaml:"rate_limit_rps"`
	} `yaml:"provider"`
	Instruments []string          `yaml:"instruments"`
	Symbols     map[string]string `yaml:"symbols"` // optional instrument -> provider ticker overrides
	Defaults    struct {
		LookbackDays    int     `yaml:"lookback_days"`
		Horizon         int     `yaml:"horizon"`
		Model           string  `yaml:"model"`
		IndicatorWindow int     `yaml:"indicator_window"`
		BollingerK      float64 `yaml:"bollinger_k"`
	} `yaml:"defaults"`
	Alerts struct {
		Cooldown time.Duration `yaml:"cooldown"` // default per-rule cooldown
		Rules    []AlertRule   `yaml:"rules"`
	} `yaml:"alerts"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Cache           struct {
		Backend string        `yaml:"backend"` // "memory", "redis", "layered"
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	History struct {
		Backend string `yaml:"backend"` // "", "kafka", "redis", "clickhouse"
	} `yaml:"history"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// AlertRule is the YAML shape of one configured rule.
type AlertRule struct {
	ID         string        `yaml:"id"`
	Instrument string        `yaml:"instrument"`
	Metric     string        `yaml:"metric"`
	Comparator string        `yaml:"comparator"`
	Threshold  float64       `yaml:"threshold"`
	Cooldown   time.Duration `yaml:"cooldown"`
	Severity   string        `yaml:"severity"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Provider.Name == "" {
		c.Provider.Name = "yahoo"
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Provider.RetryBackoff <= 0 {
		c.Provider.RetryBackoff = 500 * time.Millisecond
	}
	if c.Defaults.LookbackDays <= 0 {
		c.Defaults.LookbackDays = 365
	}
	if c.Defaults.Horizon <= 0 {
		c.Defaults.Horizon = 30
	}
	if c.Defaults.Model == "" {
		c.Defaults.Model = string(models.ModelForest)
	}
	if c.Defaults.IndicatorWindow <= 0 {
		c.Defaults.IndicatorWindow = 14
	}
	if c.Defaults.BollingerK <= 0 {
		c.Defaults.BollingerK = 2.0
	}
	if c.Alerts.Cooldown <= 0 {
		c.Alerts.Cooldown = time.Hour
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 30 * time.Second
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 30 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required: %w", models.ErrConfigInvalid)
	}
	switch c.Provider.Name {
	case "yahoo":
	case "alphavantage":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required for alphavantage: %w", models.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("provider.name must be 'yahoo' or 'alphavantage', got '%s': %w",
			c.Provider.Name, models.ErrConfigInvalid)
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments cannot be empty: %w", models.ErrConfigInvalid)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s': %w",
			c.Cache.Backend, models.ErrConfigInvalid)
	}
	switch c.History.Backend {
	case "", "kafka", "redis", "clickhouse":
	default:
		return fmt.Errorf("history.backend must be '', 'kafka', 'redis' or 'clickhouse', got '%s': %w",
			c.History.Backend, models.ErrConfigInvalid)
	}
	if c.History.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka history backend: %w", models.ErrConfigInvalid)
	}
	if _, err := models.ParseModelKind(c.Defaults.Model); err != nil {
		return err
	}
	for i, r := range c.Alerts.Rules {
		if r.Instrument == "" || r.Metric == "" {
			return fmt.Errorf("alerts.rules[%d]: instrument and metric are required: %w", i, models.ErrConfigInvalid)
		}
		if _, err := models.ParseComparator(r.Comparator); err != nil {
			return fmt.Errorf("alerts.rules[%d]: %w", i, err)
		}
	}
	return nil
}

// AlertRules converts configured rules to domain rules, filling defaults.
func (c *Config) AlertRules() []models.AlertRule {
	out := make([]models.AlertRule, 0, len(c.Alerts.Rules))
	for i, r := range c.Alerts.Rules {
		cmp, err := models.ParseComparator(r.Comparator)
		if err != nil {
			continue // rejected by Validate already
		}
		rule := models.AlertRule{
			ID:         r.ID,
			Instrument: r.Instrument,
			Metric:     r.Metric,
			Comparator: cmp,
			Threshold:  r.Threshold,
			Cooldown:   r.Cooldown,
			Severity:   models.Severity(r.Severity),
		}
		if rule.ID == "" {
			rule.ID = fmt.Sprintf("rule-%d", i)
		}
		if rule.Cooldown <= 0 {
			rule.Cooldown = c.Alerts.Cooldown
		}
		if rule.Severity == "" {
			rule.Severity = models.SeverityMedium
		}
		out = append(out, rule)
	}
	return out
}
