package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env                 string `mapstructure:"env"`
	Port                int    `mapstructure:"port"`
	MetricsPort         int    `mapstructure:"metrics_port"`
	ShutdownTimeoutSecs int    `mapstructure:"shutdown_timeout_seconds"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	TopicEvents    string   `mapstructure:"topic_events"`
	GroupID        string   `mapstructure:"group_id"`
	DLQTopic       string   `mapstructure:"dlq_topic"`
	MaxRetries     int      `mapstructure:"max_retries"`
	RetryBackoffMs int      `mapstructure:"retry_backoff_ms"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	ReadDeadlineSeconds  int   `mapstructure:"read_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	InboundRatePerSec    int   `mapstructure:"inbound_rate_per_sec"`
}

type RetentionConfig struct {
	Days              int `mapstructure:"days"`
	SweepIntervalMins int `mapstructure:"sweep_interval_minutes"`
}

type RateLimitConfig struct {
	CreateLimit   int `mapstructure:"create_limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	WS        WSConfig        `mapstructure:"ws"`
	Retention RetentionConfig `mapstructure:"retention"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	PingInterval    time.Duration
	WriteDeadline   time.Duration
	ReadDeadline    time.Duration
	RetentionAge    time.Duration
	SweepInterval   time.Duration
	RateWindow      time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.MetricsPort == 0 {
		cfg.App.MetricsPort = 9091
	}
	if cfg.App.ShutdownTimeoutSecs == 0 {
		cfg.App.ShutdownTimeoutSecs = 15
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "campusperks"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "rt"
	}
	if cfg.Kafka.TopicEvents == "" {
		cfg.Kafka.TopicEvents = "marketplace.events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "realtime-service"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 5
	}
	if cfg.Kafka.RetryBackoffMs == 0 {
		cfg.Kafka.RetryBackoffMs = 500
	}
	if cfg.WS.PingIntervalSeconds == 0 {
		cfg.WS.PingIntervalSeconds = 25
	}
	if cfg.WS.WriteDeadlineSeconds == 0 {
		cfg.WS.WriteDeadlineSeconds = 10
	}
	if cfg.WS.ReadDeadlineSeconds == 0 {
		cfg.WS.ReadDeadlineSeconds = 60
	}
	if cfg.WS.MaxMessageSizeBytes == 0 {
		cfg.WS.MaxMessageSizeBytes = 64 * 1024
	}
	if cfg.WS.InboundRatePerSec == 0 {
		cfg.WS.InboundRatePerSec = 10
	}
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = 30
	}
	if cfg.Retention.SweepIntervalMins == 0 {
		cfg.Retention.SweepIntervalMins = 360
	}
	if cfg.RateLimit.CreateLimit == 0 {
		cfg.RateLimit.CreateLimit = 30
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}

	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownTimeoutSecs) * time.Second
	cfg.PingInterval = time.Duration(cfg.WS.PingIntervalSeconds) * time.Second
	cfg.WriteDeadline = time.Duration(cfg.WS.WriteDeadlineSeconds) * time.Second
	cfg.ReadDeadline = time.Duration(cfg.WS.ReadDeadlineSeconds) * time.Second
	cfg.RetentionAge = time.Duration(cfg.Retention.Days) * 24 * time.Hour
	cfg.SweepInterval = time.Duration(cfg.Retention.SweepIntervalMins) * time.Minute
	cfg.RateWindow = time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
}
