package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete session configuration.
type Config struct {
	Session  SessionConfig `json:"session" yaml:"session"`
	Gateway  GatewayConfig `json:"gateway" yaml:"gateway"`
	Notify   NotifyConfig  `json:"notify" yaml:"notify"`
	Journal  JournalConfig `json:"journal" yaml:"journal"`
	Metrics  MetricsConfig `json:"metrics" yaml:"metrics"`
	LogLevel string        `json:"log_level" yaml:"log_level"`
}

// SessionConfig defines the instrument universe and the trading-day windows.
type SessionConfig struct {
	Instruments      []string `json:"instruments" yaml:"instruments"`
	TargetEntryCount int      `json:"target_entry_count" yaml:"target_entry_count"`
	BudgetFraction   float64  `json:"budget_fraction" yaml:"budget_fraction"`

	Open            string `json:"open" yaml:"open"`       // "09:00" exchange local time
	Close           string `json:"close" yaml:"close"`     // "15:20" hard exit
	Settle          string `json:"settle" yaml:"settle"`   // settlement window length, e.g. "5m"
	Liquidate       string `json:"liquidate" yaml:"liquidate"` // liquidation window before close
	Tick            string `json:"tick" yaml:"tick"`       // poll interval, e.g. "3s"
	ReconcileMinute int    `json:"reconcile_minute" yaml:"reconcile_minute"`
}

// GatewayConfig points at the broker bridge. The token is normally supplied
// via the CREON_TOKEN environment variable rather than the file.
type GatewayConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
}

// NotifyConfig configures the operator notification sink. SLACK_WEBHOOK_URL
// in the environment overrides the file value.
type NotifyConfig struct {
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrdersFile string `json:"orders_file,omitempty" yaml:"orders_file,omitempty"`
	EventsFile string `json:"events_file,omitempty" yaml:"events_file,omitempty"`
}

// MetricsConfig enables the Prometheus listener when Listen is non-empty.
type MetricsConfig struct {
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// ParseClock parses a "HH:MM" time-of-day into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (s SessionConfig) OpenMinutes() (int, error)  { return ParseClock(s.Open) }
func (s SessionConfig) CloseMinutes() (int, error) { return ParseClock(s.Close) }

func (s SessionConfig) SettleDuration() (time.Duration, error) {
	return time.ParseDuration(s.Settle)
}

func (s SessionConfig) LiquidateDuration() (time.Duration, error) {
	return time.ParseDuration(s.Liquidate)
}

func (s SessionConfig) TickDuration() (time.Duration, error) {
	return time.ParseDuration(s.Tick)
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content; YAML is tried first).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Session.Instruments) == 0 {
		return fmt.Errorf("session.instruments is required")
	}
	for _, code := range c.Session.Instruments {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("session.instruments contains an empty code")
		}
	}
	if c.Session.TargetEntryCount < 1 {
		return fmt.Errorf("session.target_entry_count must be at least 1")
	}
	if c.Session.BudgetFraction <= 0 || c.Session.BudgetFraction > 1 {
		return fmt.Errorf("session.budget_fraction must be in (0,1]")
	}

	open, err := c.Session.OpenMinutes()
	if err != nil {
		return fmt.Errorf("session.open: %w", err)
	}
	close, err := c.Session.CloseMinutes()
	if err != nil {
		return fmt.Errorf("session.close: %w", err)
	}
	if close <= open {
		return fmt.Errorf("session.close must be after session.open")
	}

	settle, err := c.Session.SettleDuration()
	if err != nil {
		return fmt.Errorf("session.settle: %w", err)
	}
	liquidate, err := c.Session.LiquidateDuration()
	if err != nil {
		return fmt.Errorf("session.liquidate: %w", err)
	}
	if settle <= 0 || liquidate <= 0 {
		return fmt.Errorf("session.settle and session.liquidate must be positive")
	}
	sessionLen := time.Duration(close-open) * time.Minute
	if settle+liquidate >= sessionLen {
		return fmt.Errorf("settlement and liquidation windows do not fit the session")
	}

	tick, err := c.Session.TickDuration()
	if err != nil {
		return fmt.Errorf("session.tick: %w", err)
	}
	if tick <= 0 {
		return fmt.Errorf("session.tick must be positive")
	}

	if c.Session.ReconcileMinute < 0 || c.Session.ReconcileMinute > 59 {
		return fmt.Errorf("session.reconcile_minute must be in [0,59]")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.OrdersFile == "" || c.Journal.EventsFile == "" {
			return fmt.Errorf("journal.orders_file and journal.events_file required for csv type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	return nil
}

// Default returns a configuration with sensible defaults for the KRX
// session: open 09:00, settlement until 09:05, entries until 15:15, forced
// liquidation until the 15:20 exit.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Instruments:      []string{"A069500", "A091180", "A102780"},
			TargetEntryCount: 5,
			BudgetFraction:   0.19,
			Open:             "09:00",
			Close:            "15:20",
			Settle:           "5m",
			Liquidate:        "5m",
			Tick:             "3s",
			ReconcileMinute:  30,
		},
		Gateway: GatewayConfig{
			BaseURL: "http://127.0.0.1:8899",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./session.db",
		},
		LogLevel: "info",
	}
}
