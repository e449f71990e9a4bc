package push

import (
	"fmt"
	"os"
	"strings"
	"time"

	"limbopet-arena/internal/config"

	"gopkg.in/yaml.v3"
)

// ConfigFrom builds the manager config and reads the targets file.
func ConfigFrom(cfg config.PushConfig) (Config, error) {
	out := Config{
		Enabled:          cfg.Enabled,
		ConfigPath:       strings.TrimSpace(cfg.ConfigPath),
		ConfigReload:     cfg.ConfigReload,
		Workers:          cfg.Workers,
		RetryMax:         cfg.RetryMax,
		RetryBase:        cfg.RetryBase,
		FailureThreshold: cfg.FailureThreshold,
		CircuitOpenFor:   cfg.CircuitOpenFor,
		RequestTimeout:   cfg.RequestTimeout,
		DispatchBuffer:   1024,
	}
	if !out.Enabled || out.ConfigPath == "" {
		return out, nil
	}
	raw, err := os.ReadFile(out.ConfigPath)
	if err != nil {
		return Config{}, fmt.Errorf("read push targets %q: %w", out.ConfigPath, err)
	}
	targets, err := parseTargets(raw)
	if err != nil {
		return Config{}, err
	}
	out.Targets = targets
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.DispatchBuffer <= 0 {
		c.DispatchBuffer = 1024
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.CircuitOpenFor <= 0 {
		c.CircuitOpenFor = 30 * time.Second
	}
	if c.ConfigReload <= 0 {
		c.ConfigReload = 5 * time.Second
	}
}

// parseTargets decodes a YAML list of targets, dropping disabled and
// malformed entries. A missing scope means every match.
func parseTargets(raw []byte) ([]Target, error) {
	var doc struct {
		Targets []Target `yaml:"targets"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse push targets: %w", err)
	}
	out := make([]Target, 0, len(doc.Targets))
	for _, t := range doc.Targets {
		t.Platform = strings.ToLower(strings.TrimSpace(t.Platform))
		t.ScopeType = strings.ToLower(strings.TrimSpace(t.ScopeType))
		t.ScopeValue = strings.TrimSpace(t.ScopeValue)
		t.Endpoint = strings.TrimSpace(t.Endpoint)
		if t.ScopeType == "" {
			t.ScopeType = ScopeAll
		}
		if !t.Enabled || t.Endpoint == "" {
			continue
		}
		switch t.ScopeType {
		case ScopeAll:
		case ScopeMode, ScopeAgent:
			if t.ScopeValue == "" {
				continue
			}
		default:
			continue
		}
		for i := range t.EventAllowlist {
			t.EventAllowlist[i] = strings.ToLower(strings.TrimSpace(t.EventAllowlist[i]))
		}
		out = append(out, t)
	}
	return out, nil
}
