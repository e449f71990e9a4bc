// Package push forwards arena match events to chat webhooks.
package push

import (
	"time"

	"limbopet-arena/internal/push/platforms"
)

const (
	ScopeAll   = "all"
	ScopeMode  = "mode"
	ScopeAgent = "agent"
)

// Target is one webhook destination from the targets YAML file.
type Target struct {
	Platform       string   `yaml:"platform"`
	Endpoint       string   `yaml:"endpoint"`
	Secret         string   `yaml:"secret"`
	ScopeType      string   `yaml:"scope_type"`
	ScopeValue     string   `yaml:"scope_value"`
	EventAllowlist []string `yaml:"event_allowlist"`
	Enabled        bool     `yaml:"enabled"`
}

func (t Target) key() string {
	return t.Platform + "|" + t.Endpoint + "|" + t.ScopeType + "|" + t.ScopeValue
}

type Config struct {
	Enabled          bool
	ConfigPath       string
	ConfigReload     time.Duration
	Targets          []Target
	Workers          int
	RetryMax         int
	RetryBase        time.Duration
	FailureThreshold int
	CircuitOpenFor   time.Duration
	RequestTimeout   time.Duration
	DispatchBuffer   int
}

// Notice is a match event decoded from the outbox.
type Notice struct {
	EventID    string
	EventType  string
	OccurredAt time.Time
	MatchID    string
	Day        string
	Slot       int
	Mode       string
	ModeLabel  string
	Origin     string
	Headline   string
	AID        string
	BID        string
	AName      string
	BName      string
	WinnerID   string
	AScore     float64
	BScore     float64
	DeltaA     int
	DeltaB     int
	StakeCoins int64
	Tags       []string
}

func (n Notice) involves(agentID string) bool {
	return agentID != "" && (n.AID == agentID || n.BID == agentID)
}

type job struct {
	Target   Target
	Notice   Notice
	Card     platforms.Card
	Attempt  int
	Terminal bool
}
