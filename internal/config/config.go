package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log          LogConfig           `mapstructure:"log"`
	HTTP         HTTPConfig          `mapstructure:"http"`
	MySQL        DatabaseConfig      `mapstructure:"mysql"`
	ClickHouse   DatabaseConfig      `mapstructure:"clickhouse"`
	Redis        RedisConfig         `mapstructure:"redis"`
	Kafka        KafkaConfig         `mapstructure:"kafka"`
	RateLimit    RateLimitConfig     `mapstructure:"rate_limit"`
	Archiver     ArchiverConfig      `mapstructure:"archiver"`
	Compensator  CompensatorConfig   `mapstructure:"compensator"`
	Participants []ParticipantConfig `mapstructure:"participants"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr     string `mapstructure:"addr"`
	AdminKey string `mapstructure:"admin_key"`
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
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	GroupID        string        `mapstructure:"group_id"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	CommitInterval int           `mapstructure:"commit_interval_ms"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// RateLimitConfig limits requests per omega instance; RPS 0 disables it.
type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type ArchiverConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

type CompensatorConfig struct {
	WorkerCount  int           `mapstructure:"worker_count"`
	MaxAttempts  int           `mapstructure:"max_attempts"`  // deliveries per command
	Rounds       int           `mapstructure:"rounds"`        // passes per saga
	RetryBackoff time.Duration `mapstructure:"retry_backoff"` // between passes
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

// ParticipantConfig is one omega instance able to run compensations.
type ParticipantConfig struct {
	ServiceName    string        `mapstructure:"service_name"`
	InstanceID     string        `mapstructure:"instance_id"`
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	CompensatePath string        `mapstructure:"compensate_path"`
	TimeoutMs      int           `mapstructure:"timeout_ms"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (ALPHA_*).
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

	// env override (ALPHA_MYSQL_DSN, ALPHA_KAFKA_TOPIC, ...)
	v.SetEnvPrefix("ALPHA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
