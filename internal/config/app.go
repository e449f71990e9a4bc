package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Server ServerConfig
	Arena  ArenaConfig
	Auth   AuthConfig
	Outbox OutboxConfig
	Push   PushConfig
	Log    LogConfig
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	arenaCfg, err := LoadArena()
	if err != nil {
		return AppConfig{}, err
	}
	authCfg, err := LoadAuth()
	if err != nil {
		return AppConfig{}, err
	}
	outboxCfg, err := LoadOutbox()
	if err != nil {
		return AppConfig{}, err
	}
	pushCfg, err := LoadPush()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Arena:  arenaCfg,
		Auth:   authCfg,
		Outbox: outboxCfg,
		Push:   pushCfg,
		Log:    logCfg,
	}, nil
}
