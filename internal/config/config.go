// Package config defines service configuration and how it is loaded.
//
// Values are layered defaults -> YAML file -> environment, see Load.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver is postgres or sqlite.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver specific connection string.
	DBDSN string `koanf:"db_dsn"`

	// DBAccessToken, when set, is used as the postgres password of every new connection.
	DBAccessToken string `koanf:"db_access_token"`

	// DBMaxOpenConns caps the pool. Zero leaves the driver default.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// DBMigrate creates the schema on start.
	DBMigrate bool `koanf:"db_migrate"`

	// StoreTimeoutMS bounds every Save and ListRecent call.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// ListLimit caps GET /claim-calc.
	ListLimit int `koanf:"list_limit"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// InnerLimits maps category names to their flat per item limit, written as
	// decimal strings so no float ever touches a money value.
	InnerLimits map[string]string `koanf:"inner_limits"`

	// MetricsEnabled turns metric collection on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLatencyBuckets (milliseconds) and MetricsPayoutBuckets override the
	// histogram buckets. Empty keeps the built-in buckets. File only.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`
	MetricsPayoutBuckets  []float64 `koanf:"metrics_payout_buckets"`

	// MetricsLabels are constant labels added to every metric. File only.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		DBDriver:       "sqlite",
		DBDSN:          "file:claimsorted.db?_pragma=busy_timeout(5000)",
		DBMaxOpenConns: 10,
		DBMigrate:      true,
		StoreTimeoutMS: 5000,
		ListLimit:      100,
		MaxBodyBytes:   1 << 20,
		InnerLimits: map[string]string{
			"Medical":     "750",
			"Electronics": "500",
			"Baggage":     "400",
		},
		MetricsEnabled:   true,
		MetricsNamespace: "claimsorted",
		MetricsSubsystem: "payout",
	}
}

// InnerLimitTable parses InnerLimits. Every limit must be a non-negative decimal.
func (c *Config) InnerLimitTable() (map[string]decimal.Decimal, error) {
	categories := make([]string, 0, len(c.InnerLimits))
	for category := range c.InnerLimits {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	out := make(map[string]decimal.Decimal, len(categories))
	for _, category := range categories {
		limit, err := decimal.NewFromString(strings.TrimSpace(c.InnerLimits[category]))
		if err != nil {
			return nil, fmt.Errorf("%w: inner limit for %q is not a decimal: %q", ErrInvalidConfig, category, c.InnerLimits[category])
		}
		if limit.IsNegative() {
			return nil, fmt.Errorf("%w: inner limit for %q must not be negative", ErrInvalidConfig, category)
		}
		out[category] = limit
	}
	return out, nil
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// Validate checks the loaded values. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DBDriver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: db_driver %q is not supported", ErrInvalidConfig, c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	}
	if c.DBMaxOpenConns < 0 {
		return fmt.Errorf("%w: db_max_open_conns must not be negative", ErrInvalidConfig)
	}
	if c.StoreTimeoutMS <= 0 {
		return fmt.Errorf("%w: store_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.ListLimit <= 0 {
		return fmt.Errorf("%w: list_limit must be positive", ErrInvalidConfig)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	if _, err := c.InnerLimitTable(); err != nil {
		return err
	}
	if c.MetricsEnabled && strings.TrimSpace(c.MetricsNamespace) == "" {
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	if err := increasing("metrics_latency_buckets", c.MetricsLatencyBuckets); err != nil {
		return err
	}
	if err := increasing("metrics_payout_buckets", c.MetricsPayoutBuckets); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q is not supported", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// increasing rejects histogram buckets that are not strictly ascending.
func increasing(key string, buckets []float64) error {
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return fmt.Errorf("%w: %s must be strictly increasing", ErrInvalidConfig, key)
		}
	}
	return nil
}
