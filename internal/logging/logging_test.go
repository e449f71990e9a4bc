package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"limbopet-arena/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.log")
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		setWriter(os.Stdout)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	if err := Init(config.LogConfig{Level: "debug", File: path, MaxMB: 1}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %v, want debug", zerolog.GlobalLevel())
	}
	log.Info().Str("match_id", "m1").Msg("resolved")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"match_id":"m1"`) {
		t.Fatalf("log file missing entry: %s", b)
	}
	if Writer() == os.Stdout {
		t.Fatal("Writer() should mirror to the log file")
	}
}

func TestInitIgnoresBadLevel(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	if err := Init(config.LogConfig{Level: "loud"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %v, want info", zerolog.GlobalLevel())
	}
}
