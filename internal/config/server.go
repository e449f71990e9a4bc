package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`

	InteractionRatePerSec float64 `env:"INTERACTION_RATE_PER_SEC" envDefault:"2"`
	InteractionBurst      int     `env:"INTERACTION_BURST" envDefault:"5"`
	StartingBalanceCC     int64   `env:"STARTING_BALANCE_CC" envDefault:"100"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
