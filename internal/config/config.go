// Package config loads runtime configuration from YAML or JSON files,
// applying defaults for anything unset. The cache TTL table can be
// hot-reloaded through Watch.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"caprun/internal/cache"
	"caprun/internal/resilience"
)

// Duration decodes from YAML/JSON strings like "30s" or "5m", or from bare
// nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.decode(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.decode(raw)
}

func (d *Duration) decode(raw any) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(int64(v))
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config is the full runtime configuration.
type Config struct {
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Invoke     InvokeConfig     `yaml:"invoke" json:"invoke"`
	Resilience ResilienceConfig `yaml:"resilience" json:"resilience"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// CacheConfig selects the cache backend and tier table.
type CacheConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`

	// Path is the database file for the sqlite backend.
	Path string `yaml:"path" json:"path"`

	// TTL maps cache categories to their lifetime.
	TTL map[string]Duration `yaml:"ttl" json:"ttl"`

	DefaultTTL        Duration `yaml:"default_ttl" json:"default_ttl"`
	MaxEntriesPerTier int      `yaml:"max_entries_per_tier" json:"max_entries_per_tier"`
	SweepInterval     Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// InvokeConfig bounds batched execution.
type InvokeConfig struct {
	// MaxConcurrency caps concurrent requests in a batch; <=0 is unbounded.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
}

// ResilienceConfig controls retry behavior.
type ResilienceConfig struct {
	MaxAttempts int      `yaml:"max_attempts" json:"max_attempts"`
	BackoffBase Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffMax  Duration `yaml:"backoff_max" json:"backoff_max"`
	JitterFrac  float64  `yaml:"jitter_frac" json:"jitter_frac"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Debug bool `yaml:"debug" json:"debug"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cacheDefaults := cache.DefaultConfig()
	ttl := make(map[string]Duration, len(cacheDefaults.Tiers))
	for category, d := range cacheDefaults.Tiers {
		ttl[category] = Duration(d)
	}
	retry := resilience.DefaultConfig()

	return Config{
		Cache: CacheConfig{
			Backend:           "memory",
			TTL:               ttl,
			DefaultTTL:        Duration(cacheDefaults.DefaultTTL),
			MaxEntriesPerTier: cacheDefaults.MaxEntriesPerTier,
			SweepInterval:     Duration(time.Minute),
		},
		Invoke: InvokeConfig{MaxConcurrency: 8},
		Resilience: ResilienceConfig{
			MaxAttempts: retry.MaxAttempts,
			BackoffBase: Duration(retry.BackoffBase),
			BackoffMax:  Duration(retry.BackoffMax),
			JitterFrac:  retry.JitterFrac,
		},
	}
}

// Load reads a config file, filling unset fields from the defaults. JSON is
// selected by a .json extension; everything else parses as YAML.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(raw, &cfg)
	} else {
		err = yaml.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Cache.Backend == "" {
		c.Cache.Backend = def.Cache.Backend
	}
	if len(c.Cache.TTL) == 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = def.Cache.DefaultTTL
	}
	if c.Cache.MaxEntriesPerTier <= 0 {
		c.Cache.MaxEntriesPerTier = def.Cache.MaxEntriesPerTier
	}
	if c.Resilience.MaxAttempts <= 0 {
		c.Resilience.MaxAttempts = def.Resilience.MaxAttempts
	}
	if c.Resilience.BackoffBase <= 0 {
		c.Resilience.BackoffBase = def.Resilience.BackoffBase
	}
	if c.Resilience.BackoffMax <= 0 {
		c.Resilience.BackoffMax = def.Resilience.BackoffMax
	}
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "sqlite" && c.Cache.Path == "" {
		return fmt.Errorf("sqlite cache backend requires cache.path")
	}
	if c.Resilience.JitterFrac < 0 || c.Resilience.JitterFrac > 1 {
		return fmt.Errorf("resilience.jitter_frac must be in [0, 1], got %v", c.Resilience.JitterFrac)
	}
	return nil
}

// CacheSettings converts the cache section into the cache package's config.
func (c Config) CacheSettings() cache.Config {
	tiers := make(map[string]time.Duration, len(c.Cache.TTL))
	for category, d := range c.Cache.TTL {
		tiers[category] = time.Duration(d)
	}
	return cache.Config{
		Tiers:             tiers,
		DefaultTTL:        time.Duration(c.Cache.DefaultTTL),
		MaxEntriesPerTier: c.Cache.MaxEntriesPerTier,
	}
}

// RetrySettings converts the resilience section into the executor's config.
func (c Config) RetrySettings() resilience.Config {
	return resilience.Config{
		MaxAttempts: c.Resilience.MaxAttempts,
		BackoffBase: time.Duration(c.Resilience.BackoffBase),
		BackoffMax:  time.Duration(c.Resilience.BackoffMax),
		JitterFrac:  c.Resilience.JitterFrac,
	}
}

// BuildStore opens the configured cache backend.
func (c Config) BuildStore() (cache.Store, error) {
	switch c.Cache.Backend {
	case "sqlite":
		return cache.NewDisk(c.Cache.Path, c.CacheSettings())
	default:
		return cache.NewMemory(c.CacheSettings()), nil
	}
}
