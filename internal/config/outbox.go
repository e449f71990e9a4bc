package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type OutboxConfig struct {
	Enabled      bool          `env:"OUTBOX_ENABLED" envDefault:"true"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	KafkaBrokers []string      `env:"KAFKA_BROKERS" envSeparator:","`
	TopicPrefix  string        `env:"KAFKA_TOPIC_PREFIX" envDefault:"arena.match"`
}

func LoadOutbox() (OutboxConfig, error) {
	var cfg OutboxConfig
	err := env.Parse(&cfg)
	return cfg, err
}

type PushConfig struct {
	Enabled          bool          `env:"PUSH_ENABLED" envDefault:"false"`
	ConfigPath       string        `env:"PUSH_CONFIG_PATH"`
	ConfigReload     time.Duration `env:"PUSH_CONFIG_RELOAD" envDefault:"5s"`
	Workers          int           `env:"PUSH_WORKERS" envDefault:"4"`
	RetryMax         int           `env:"PUSH_RETRY_MAX" envDefault:"3"`
	RetryBase        time.Duration `env:"PUSH_RETRY_BASE" envDefault:"500ms"`
	RequestTimeout   time.Duration `env:"PUSH_REQUEST_TIMEOUT" envDefault:"5s"`
	FailureThreshold int           `env:"PUSH_FAILURE_THRESHOLD" envDefault:"3"`
	CircuitOpenFor   time.Duration `env:"PUSH_CIRCUIT_OPEN_FOR" envDefault:"30s"`
}

func LoadPush() (PushConfig, error) {
	var cfg PushConfig
	err := env.Parse(&cfg)
	return cfg, err
}
