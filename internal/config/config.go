package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Service      ServiceConfig      `mapstructure:"service"`
	Log          LogConfig          `mapstructure:"log"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	MySQL        DatabaseConfig     `mapstructure:"mysql"`
	ClickHouse   DatabaseConfig     `mapstructure:"clickhouse"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Relay        RelayConfig        `mapstructure:"relay"`
	Idempotency  IdempotencyConfig  `mapstructure:"idempotency"`
	Sweep        SweepConfig        `mapstructure:"sweep"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Invalidation InvalidationConfig `mapstructure:"invalidation"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
}

// ---- Leaf structs ----

type ServiceConfig struct {
	Name string `mapstructure:"name"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr   string `mapstructure:"addr"`
	APIKey string `mapstructure:"api_key"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	TopicPrefix    string   `mapstructure:"topic_prefix"`
	GroupID        string   `mapstructure:"group_id"`
	Topics         []string `mapstructure:"topics"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type RelayConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type IdempotencyConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

type SweepConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	OutboxRetention time.Duration `mapstructure:"outbox_retention"`
}

type CacheConfig struct {
	KeyVersion      string        `mapstructure:"key_version"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	LocalTTL        time.Duration `mapstructure:"local_ttl"`
	LocalMaxEntries int           `mapstructure:"local_max_entries"`
}

type InvalidationConfig struct {
	Channel string `mapstructure:"channel"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (NOVA_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (NOVA_*)
	v.SetEnvPrefix("NOVA")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
