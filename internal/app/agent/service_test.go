package agent

import (
	"context"
	"testing"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/config"
	"limbopet-arena/internal/store"
)

func TestClampStats(t *testing.T) {
	got := clampStats(sim.Stats{Energy: -5, Mood: 150, Stress: 40, Curiosity: 100})
	want := sim.Stats{Energy: 0, Mood: 100, Stress: 40, Curiosity: 100}
	if got != want {
		t.Fatalf("clampStats = %+v, want %+v", got, want)
	}
}

func TestTokenRequiresIssuer(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, config.ServerConfig{}, nil)
	_, err := svc.Token(ctx, &store.Agent{ID: "a1", Status: store.AgentStatusActive})
	if err != ErrTokensDisabled {
		t.Fatalf("err = %v, want %v", err, ErrTokensDisabled)
	}
	_, err = svc.Token(ctx, &store.Agent{ID: "a1", Status: store.AgentStatusInactive})
	if err != ErrInactiveAgent {
		t.Fatalf("err = %v, want %v", err, ErrInactiveAgent)
	}
	if _, err := svc.Token(ctx, nil); err != ErrInvalidRequest {
		t.Fatalf("err = %v, want %v", err, ErrInvalidRequest)
	}
}
