// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Indexer, Source, Watch, Metrics, ChangeFeed, Logging).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Batch failure policies for IndexerConfig.BatchFailurePolicy.
const (
	PolicyClear    = "clear"
	PolicyRollback = "rollback"
)

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Source     SourceConfig     `yaml:"source"`
	Watch      WatchConfig      `yaml:"watch"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	ChangeFeed ChangeFeedConfig `yaml:"changeFeed"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IndexerConfig controls how multi-file batches are read and what happens
// to the existing index when a batch fails.
type IndexerConfig struct {
	// BatchFailurePolicy is "clear" (wipe the whole index) or "rollback"
	// (discard only the failed batch).
	BatchFailurePolicy string `yaml:"batchFailurePolicy"`
	ReadWorkers        int    `yaml:"readWorkers"`
}

// SourceConfig controls file classification and enumeration.
type SourceConfig struct {
	MaxFileSize   int64    `yaml:"maxFileSize"`
	MimeCacheSize int      `yaml:"mimeCacheSize"`
	Include       []string `yaml:"include"`
	Exclude       []string `yaml:"exclude"`
}

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ChangeFeedConfig controls publication of index mutation events.
type ChangeFeedConfig struct {
	Enabled    bool           `yaml:"enabled"`
	BufferSize int            `yaml:"bufferSize"`
	Kafka      KafkaConfig    `yaml:"kafka"`
	Redis      RedisConfig    `yaml:"redis"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig holds Redis connection and pub/sub parameters.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
	Channel  string `yaml:"channel"`
}

// PostgresConfig holds PostgreSQL connection parameters for the audit sink.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config suitable for interactive local use: clear-on-failure
// batches, no metrics server and no change feed.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Indexer: IndexerConfig{
			BatchFailurePolicy: PolicyClear,
			ReadWorkers:        4,
		},
		Source: SourceConfig{
			MaxFileSize:   32 << 20,
			MimeCacheSize: 1024,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 200 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		ChangeFeed: ChangeFeedConfig{
			Enabled:    false,
			BufferSize: 1024,
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "textindex.changes",
			},
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 4,
				Channel:  "textindex:changes",
			},
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "textindex",
				User:            "textindex",
				Password:        "localdev",
				SSLMode:         "disable",
				Table:           "index_events",
				MaxOpenConns:    4,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
	}
}

// Validate rejects settings the indexer cannot run with.
func (c *Config) Validate() error {
	switch c.Indexer.BatchFailurePolicy {
	case PolicyClear, PolicyRollback:
	default:
		return fmt.Errorf("invalid indexer.batchFailurePolicy %q: want %q or %q",
			c.Indexer.BatchFailurePolicy, PolicyClear, PolicyRollback)
	}
	if c.Indexer.ReadWorkers <= 0 {
		return fmt.Errorf("invalid indexer.readWorkers %d: must be positive", c.Indexer.ReadWorkers)
	}
	if c.Source.MaxFileSize <= 0 {
		return fmt.Errorf("invalid source.maxFileSize %d: must be positive", c.Source.MaxFileSize)
	}
	if c.ChangeFeed.Enabled && c.ChangeFeed.BufferSize <= 0 {
		return fmt.Errorf("invalid changeFeed.bufferSize %d: must be positive", c.ChangeFeed.BufferSize)
	}
	return nil
}

// applyEnvOverrides reads TI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TI_INDEXER_BATCH_FAILURE_POLICY"); v != "" {
		cfg.Indexer.BatchFailurePolicy = v
	}
	if v := os.Getenv("TI_INDEXER_READ_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.ReadWorkers = n
		}
	}
	if v := os.Getenv("TI_WATCH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Watch.Enabled = b
		}
	}
	if v := os.Getenv("TI_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("TI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("TI_CHANGEFEED_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ChangeFeed.Enabled = b
		}
	}
	if v := os.Getenv("TI_KAFKA_BROKERS"); v != "" {
		cfg.ChangeFeed.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TI_REDIS_ADDR"); v != "" {
		cfg.ChangeFeed.Redis.Addr = v
	}
	if v := os.Getenv("TI_REDIS_PASSWORD"); v != "" {
		cfg.ChangeFeed.Redis.Password = v
	}
	if v := os.Getenv("TI_POSTGRES_HOST"); v != "" {
		cfg.ChangeFeed.Postgres.Host = v
	}
	if v := os.Getenv("TI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ChangeFeed.Postgres.Port = port
		}
	}
	if v := os.Getenv("TI_POSTGRES_PASSWORD"); v != "" {
		cfg.ChangeFeed.Postgres.Password = v
	}
}
