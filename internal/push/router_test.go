package push

import "testing"

func TestRouterMatchesScopes(t *testing.T) {
	targets := []Target{
		{Platform: "discord", Endpoint: "a", ScopeType: ScopeAll, Enabled: true},
		{Platform: "discord", Endpoint: "b", ScopeType: ScopeMode, ScopeValue: "court_trial", Enabled: true},
		{Platform: "discord", Endpoint: "c", ScopeType: ScopeAgent, ScopeValue: "agent-9", Enabled: true},
		{Platform: "discord", Endpoint: "d", ScopeType: ScopeAll, Enabled: true, EventAllowlist: []string{"match_resolved"}},
		{Platform: "discord", Endpoint: "e", ScopeType: ScopeAll, Enabled: false},
	}
	n := Notice{EventType: "match_created", Mode: "COURT_TRIAL", AID: "agent-1", BID: "agent-9"}
	got := Router{}.MatchTargets(targets, n)
	if len(got) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].Endpoint != want {
			t.Fatalf("target %d: want %s got %s", i, want, got[i].Endpoint)
		}
	}

	n.EventType = "match_resolved"
	n.Mode = "MATH_RACE"
	n.BID = "agent-2"
	got = Router{}.MatchTargets(targets, n)
	if len(got) != 2 || got[0].Endpoint != "a" || got[1].Endpoint != "d" {
		t.Fatalf("unexpected targets: %#v", got)
	}
}
