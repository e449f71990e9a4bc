package push

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"limbopet-arena/internal/config"
)

const targetsYAML = `
targets:
  - platform: Discord
    endpoint: https://discord.com/api/webhooks/1/t
    scope_type: mode
    scope_value: COURT_TRIAL
    event_allowlist: [" Match_Resolved "]
    enabled: true
  - platform: feishu
    endpoint: ""
    enabled: true
  - platform: discord
    endpoint: https://b
    scope_type: room
    enabled: true
  - platform: discord
    endpoint: https://c
    scope_type: agent
    enabled: true
  - platform: feishu
    endpoint: https://open.feishu.cn/open-apis/bot/v2/hook/x
    enabled: true
  - platform: feishu
    endpoint: https://off
    enabled: false
`

func TestParseTargetsFilters(t *testing.T) {
	targets, err := parseTargets([]byte(targetsYAML))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d: %#v", len(targets), targets)
	}
	if targets[0].Platform != "discord" || targets[0].ScopeType != ScopeMode {
		t.Fatalf("unexpected first target: %#v", targets[0])
	}
	if targets[0].EventAllowlist[0] != "match_resolved" {
		t.Fatalf("allowlist not normalized: %#v", targets[0].EventAllowlist)
	}
	if targets[1].ScopeType != ScopeAll {
		t.Fatalf("missing scope should default to all, got %q", targets[1].ScopeType)
	}
}

func TestParseTargetsRejectsBadYAML(t *testing.T) {
	if _, err := parseTargets([]byte("targets: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigFromReadsTargetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "push.yaml")
	if err := os.WriteFile(path, []byte(targetsYAML), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	cfg, err := ConfigFrom(config.PushConfig{
		Enabled:    true,
		ConfigPath: path,
		Workers:    2,
		RetryBase:  time.Second,
	})
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if len(cfg.Targets) != 2 || cfg.Workers != 2 || cfg.RetryBase != time.Second {
		t.Fatalf("unexpected config: %#v", cfg)
	}

	if _, err := ConfigFrom(config.PushConfig{Enabled: true, ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	if cfg.Workers != 4 || cfg.RetryBase != 500*time.Millisecond || cfg.FailureThreshold != 3 || cfg.CircuitOpenFor != 30*time.Second {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}
