package push

import "strings"

type Router struct{}

func (Router) MatchTargets(targets []Target, n Notice) []Target {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if !t.Enabled || !scopeMatches(t, n) || !eventAllowed(t.EventAllowlist, n.EventType) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func scopeMatches(t Target, n Notice) bool {
	switch t.ScopeType {
	case ScopeAll:
		return true
	case ScopeMode:
		return strings.EqualFold(t.ScopeValue, n.Mode)
	case ScopeAgent:
		return n.involves(t.ScopeValue)
	default:
		return false
	}
}

func eventAllowed(allowlist []string, evType string) bool {
	if len(allowlist) == 0 {
		return true
	}
	evType = strings.ToLower(strings.TrimSpace(evType))
	for _, v := range allowlist {
		if v != "" && v == evType {
			return true
		}
	}
	return false
}
