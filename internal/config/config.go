// Package config loads warrantyflow settings from an optional YAML file and
// WARRANTY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goatkit/warrantyflow/internal/auth"
	"github.com/goatkit/warrantyflow/internal/database"
)

// EnvPrefix prefixes every environment override, e.g. WARRANTY_SERVER_ADDR.
const EnvPrefix = "WARRANTY"

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Lock      LockConfig      `mapstructure:"lock" yaml:"lock"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Commerce  CommerceConfig  `mapstructure:"commerce" yaml:"commerce"`
	Bridge    BridgeConfig    `mapstructure:"bridge" yaml:"bridge"`
	Shop      ShopConfig      `mapstructure:"shop" yaml:"shop"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// StorageConfig selects where policies, exclusions, tickets and stock live.
type StorageConfig struct {
	Backend      string        `mapstructure:"backend" yaml:"backend"`
	Dir          string        `mapstructure:"dir" yaml:"dir"`
	SQLDriver    string        `mapstructure:"sql_driver" yaml:"sql_driver"`
	SQLDSN       string        `mapstructure:"sql_dsn" yaml:"sql_dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	RedisPrefix  string        `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// LockConfig selects the per-order lock implementation.
type LockConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type CommerceConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
}

// BridgeConfig points at the messaging bridge. An empty BaseURL selects the
// in-memory transport.
type BridgeConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Token   string        `mapstructure:"token" yaml:"token"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ShopConfig struct {
	OwnerMention     string `mapstructure:"owner_mention" yaml:"owner_mention"`
	Domain           string `mapstructure:"domain" yaml:"domain"`
	VouchChannelID   string `mapstructure:"vouch_channel_id" yaml:"vouch_channel_id"`
	CategoryID       string `mapstructure:"ticket_category_id" yaml:"ticket_category_id"`
	OperatorID       string `mapstructure:"operator_id" yaml:"operator_id"`
	ArchiveChannelID string `mapstructure:"archive_channel_id" yaml:"archive_channel_id"`
	ChannelPrefix    string `mapstructure:"channel_prefix" yaml:"channel_prefix"`
	TranscriptLimit  int    `mapstructure:"transcript_limit" yaml:"transcript_limit"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	Clients   []auth.Client `mapstructure:"clients" yaml:"clients"`
}

type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Timezone        string `mapstructure:"timezone" yaml:"timezone"`
	CatalogSync     string `mapstructure:"catalog_sync" yaml:"catalog_sync"`
	OrphanReconcile string `mapstructure:"orphan_reconcile" yaml:"orphan_reconcile"`
}

// Storage and lock backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit_rps", 5.0)
	v.SetDefault("server.rate_limit_burst", 20)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.sql_driver", string(database.DriverSQLite))
	v.SetDefault("storage.sql_dsn", "file:warrantyflow.db?_busy_timeout=5000")
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("storage.redis_prefix", "warrantyflow:doc:")

	v.SetDefault("lock.backend", BackendMemory)
	v.SetDefault("lock.ttl", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("commerce.base_url", "https://dev.sellix.io/v1")
	v.SetDefault("commerce.api_key", "")
	v.SetDefault("commerce.timeout", 10*time.Second)
	v.SetDefault("commerce.requests_per_second", 2.0)
	v.SetDefault("commerce.burst", 4)

	v.SetDefault("bridge.base_url", "")
	v.SetDefault("bridge.token", "")
	v.SetDefault("bridge.timeout", 10*time.Second)

	v.SetDefault("shop.owner_mention", "")
	v.SetDefault("shop.domain", "")
	v.SetDefault("shop.vouch_channel_id", "")
	v.SetDefault("shop.ticket_category_id", "")
	v.SetDefault("shop.operator_id", "")
	v.SetDefault("shop.archive_channel_id", "")
	v.SetDefault("shop.channel_prefix", "pending-")
	v.SetDefault("shop.transcript_limit", 1000)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "warrantyflow")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.clients", []auth.Client{})

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.catalog_sync", "@hourly")
	v.SetDefault("scheduler.orphan_reconcile", "*/15 * * * *")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads defaults, then path (when non-empty), then the environment, and
// validates the result.
func Load(path string) (Config, error) {
	cfg, err := load(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadForTool loads configuration for CLI commands that do not serve HTTP and
// therefore do not need the JWT secret.
func LoadForTool(path string) (Config, error) {
	cfg, err := load(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validateBackends(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Lock.Backend = strings.ToLower(strings.TrimSpace(cfg.Lock.Backend))
	return cfg, nil
}

// Default returns the defaults with environment overrides applied.
func Default() Config {
	cfg, _ := load("")
	return cfg
}

// Validate checks the settings required to serve the API.
func (c Config) Validate() error {
	var errs []error
	if err := c.validateBackends(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 16 characters"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr is required"))
	}
	return errors.Join(errs...)
}

func (c Config) validateBackends() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.Dir == "" {
			errs = append(errs, fmt.Errorf("storage.dir is required for the file backend"))
		}
	case BackendSQL:
		if _, err := database.ParseDriver(c.Storage.SQLDriver); err != nil {
			errs = append(errs, fmt.Errorf("storage.sql_driver: %w", err))
		}
		if c.Storage.SQLDSN == "" {
			errs = append(errs, fmt.Errorf("storage.sql_dsn is required for the sql backend"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	switch c.Lock.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("redis.addr is required for the redis lock"))
		}
		if c.Lock.TTL <= 0 {
			errs = append(errs, fmt.Errorf("lock.ttl must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock.backend %q", c.Lock.Backend))
	}

	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a Redis client.
func (c Config) UsesRedis() bool {
	return c.Storage.Backend == BackendRedis || c.Lock.Backend == BackendRedis
}

// WriteExample writes the defaults as a YAML config file.
func WriteExample(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return fmt.Errorf("encode example config: %w", err)
	}
	return enc.Close()
}
