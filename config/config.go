package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "OCK"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

type RedisConfig struct {
	Addrs     []string `mapstructure:"addrs"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	DB        int      `mapstructure:"db"`
	KeyPrefix string   `mapstructure:"key_prefix"`
}

// KafkaConfig configures batched notification delivery. Disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	Group          string   `mapstructure:"group"`
	MaxPollRecords int      `mapstructure:"max_poll_records"`
	CreateTopic    bool     `mapstructure:"create_topic"`
	Partitions     int32    `mapstructure:"partitions"`
	Replication    int16    `mapstructure:"replication"`
}

// AMQPConfig configures single-event delivery. Disabled when URL is empty.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Queue    string `mapstructure:"queue"`
	Prefetch int    `mapstructure:"prefetch"`
}

// BinlogConfig purges customers whose rows are deleted from Tables ("schema:table").
type BinlogConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	DataDir string   `mapstructure:"data_dir"`
	Tables  []string `mapstructure:"tables"`
}

type SingleEventConfig struct {
	CaseID      string `mapstructure:"case_id"` // empty reports under the customer id
	RequestType string `mapstructure:"request_type"`
}

type ComplianceConfig struct {
	BaseURL     string            `mapstructure:"base_url"`
	ServiceName string            `mapstructure:"service_name"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	SingleEvent SingleEventConfig `mapstructure:"single_event"`
}

type ProcessorConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type CronConfig struct {
	GapAlertInterval time.Duration `mapstructure:"gap_alert_interval"`
}

type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	AMQP       AMQPConfig       `mapstructure:"amqp"`
	Binlog     BinlogConfig     `mapstructure:"binlog"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
	Cron       CronConfig       `mapstructure:"cron"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "ownership")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "compliance-notifications")
	v.SetDefault("kafka.group", "ownership-cache-killer")
	v.SetDefault("kafka.max_poll_records", 100)
	v.SetDefault("kafka.create_topic", false)
	v.SetDefault("kafka.partitions", 1)
	v.SetDefault("kafka.replication", 1)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "ownership-cache-deletions")
	v.SetDefault("amqp.prefetch", 10)
	v.SetDefault("binlog.enabled", false)
	v.SetDefault("binlog.data_dir", "/var/lib/mysql")
	v.SetDefault("binlog.tables", []string{})
	v.SetDefault("compliance.base_url", "")
	v.SetDefault("compliance.service_name", "OwnershipCacheKiller")
	v.SetDefault("compliance.timeout", "10s")
	v.SetDefault("compliance.single_event.case_id", "")
	v.SetDefault("compliance.single_event.request_type", "DELETE")
	v.SetDefault("processor.concurrency", 1)
	v.SetDefault("cron.gap_alert_interval", "1m")
	v.SetDefault("admin.addr", ":9090")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the YAML file at path, overlaid with OCK_* environment variables.
// A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return decode(v)
}

// Watch calls onChange with every valid configuration written to path.
func Watch(path string, logger *slog.Logger, onChange func(*Config)) error {
	if path == "" {
		return nil
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			logger.Error("Ignoring invalid configuration change", "file", e.Name, "error", err)
			return
		}
		logger.Info("Configuration reloaded", "file", e.Name, "op", e.Op.String())
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Compliance.BaseURL == "" {
		errs = append(errs, errors.New("compliance.base_url is required"))
	}
	if c.Compliance.ServiceName == "" {
		errs = append(errs, errors.New("compliance.service_name is required"))
	}
	if len(c.Redis.Addrs) == 0 {
		errs = append(errs, errors.New("redis.addrs is required"))
	}
	if c.Processor.Concurrency < 1 {
		errs = append(errs, errors.New("processor.concurrency must be at least 1"))
	}
	if c.Cron.GapAlertInterval <= 0 {
		errs = append(errs, errors.New("cron.gap_alert_interval must be positive"))
	}
	if len(c.Kafka.Brokers) == 0 && c.AMQP.URL == "" && !c.Binlog.Enabled {
		errs = append(errs, errors.New("no delivery configured: set kafka.brokers, amqp.url or binlog.enabled"))
	}
	if c.Binlog.Enabled && len(c.Binlog.Tables) == 0 {
		errs = append(errs, errors.New("binlog.tables is required when binlog is enabled"))
	}
	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
