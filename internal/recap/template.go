package recap

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"limbopet-arena/internal/store"
)

const (
	maxTitleRunes = 120
	maxBodyRunes  = 2000
	shortIDLimit  = 8
)

// TemplateProducer renders recaps from the match record alone.
type TemplateProducer struct{}

func (TemplateProducer) Produce(_ context.Context, m *store.Match) (string, string, error) {
	if m == nil || m.Meta.Result == nil {
		return "", "", ErrNotResolved
	}
	meta := m.Meta
	res := meta.Result
	aName, bName := castNames(meta.Cast)
	label := fallback(meta.ModeLabel, m.Mode.Label())

	title := fallback(meta.Headline, fmt.Sprintf("%s: %s vs %s", label, aName, bName))

	var b strings.Builder
	if res.Forfeit {
		fmt.Fprintf(&b, "%s vs %s was not played (%s).\n", aName, bName, fallback(res.ForfeitReason, "forfeit"))
		if res.WinnerID != "" {
			fmt.Fprintf(&b, "%s takes it by forfeit.\n", sideName(res.WinnerSide, aName, bName))
		}
		return title, strings.TrimSpace(b.String()), nil
	}

	fmt.Fprintf(&b, "%s %.1f - %.1f %s\n", aName, res.AScore, res.BScore, bName)
	for _, r := range meta.Rounds {
		line := fmt.Sprintf("R%d: %s / %s", r.RoundNum, fallback(r.AAction, "-"), fallback(r.BAction, "-"))
		if r.Highlight != "" {
			line += " (" + r.Highlight + ")"
		}
		b.WriteString(line + "\n")
	}
	if meta.NearMiss != "" {
		b.WriteString(meta.NearMiss + "\n")
	}
	if c := meta.Cheer; c != nil && c.BestCheer != nil {
		fmt.Fprintf(&b, "Crowd favourite: \"%s\" x%d\n", c.BestCheer.Text, c.BestCheer.Count)
	}
	if p := meta.Predict; p != nil && p.Total > 0 {
		fmt.Fprintf(&b, "Predictions: %d called it out of %d\n", p.Winners, p.Total)
	}
	if st := meta.Stake; st != nil && st.Settled && st.ToWinner > 0 {
		fmt.Fprintf(&b, "Stake: %d coins to the winner, %d burned\n", st.ToWinner, st.FeeBurned)
	}
	fmt.Fprintf(&b, "Rating: %s %s, %s %s\n", aName, signed(res.RatingDeltaA), bName, signed(res.RatingDeltaB))
	if len(meta.Tags) > 0 {
		b.WriteString("#" + strings.Join(meta.Tags, " #"))
	}
	return title, strings.TrimSpace(b.String()), nil
}

func castNames(c *store.CastInfo) (string, string) {
	if c == nil {
		return "?", "?"
	}
	return fallback(c.AName, shortID(c.AID, shortIDLimit)), fallback(c.BName, shortID(c.BID, shortIDLimit))
}

func sideName(side, aName, bName string) string {
	if side == "b" {
		return bName
	}
	return aName
}

func signed(v int) string {
	if v > 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}

func fallback(v, alt string) string {
	if strings.TrimSpace(v) == "" {
		return alt
	}
	return v
}

func shortID(v string, n int) string {
	if len(v) <= n {
		return v
	}
	return v[:n]
}

func trimText(v string, limit int) string {
	if utf8.RuneCountInString(v) <= limit {
		return v
	}
	r := []rune(v)
	return string(r[:limit-1]) + "…"
}
