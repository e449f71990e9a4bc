package push

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/push/platforms"
)

const (
	colorLive     = 0x5865F2
	colorResolved = 0x57F287
	colorUpset    = 0xFEE75C
	colorForfeit  = 0xED4245

	headlineLimit = 200
	defaultFooter = "limbopet arena"
)

// FormatCard renders a notice. Every event of a match shares one card key so
// chat targets that support edits show a single message per match.
func FormatCard(n Notice) (platforms.Card, bool) {
	label := fallback(n.ModeLabel, n.Mode)
	aName := fallback(n.AName, shortID(n.AID, 8))
	bName := fallback(n.BName, shortID(n.BID, 8))
	card := platforms.Card{
		Key:       "match:" + n.MatchID,
		Timestamp: eventTimestamp(n.OccurredAt),
		Footer:    defaultFooter,
	}
	fields := []platforms.Field{
		{Name: "Mode", Value: fallback(label, "-"), Inline: true},
		{Name: "Day", Value: fmt.Sprintf("%s #%d", fallback(n.Day, "-"), n.Slot), Inline: true},
	}

	switch n.EventType {
	case arena.EventMatchCreated:
		card.Title = fmt.Sprintf("%s: %s vs %s", label, aName, bName)
		card.Content = "match is live"
		card.Summary = trimText(fallback(n.Headline, card.Title), headlineLimit)
		card.Color = colorLive
		fields = append(fields, platforms.Field{Name: "Origin", Value: fallback(n.Origin, "-"), Inline: true})
		if n.StakeCoins > 0 {
			fields = append(fields, platforms.Field{Name: "Stake", Value: strconv.FormatInt(n.StakeCoins, 10) + " coins", Inline: true})
		}
	case arena.EventMatchResolved:
		card.Title = fmt.Sprintf("%s: %s %.1f - %.1f %s", label, aName, n.AScore, n.BScore, bName)
		card.Content = "match resolved"
		card.Summary = trimText(fallback(n.Headline, card.Title), headlineLimit)
		card.Color = colorResolved
		if hasTag(n.Tags, "upset") {
			card.Color = colorUpset
		}
		fields = append(fields,
			platforms.Field{Name: "Winner", Value: winnerName(n, aName, bName), Inline: true},
			platforms.Field{Name: "Rating", Value: fmt.Sprintf("%s %s / %s %s", aName, signed(n.DeltaA), bName, signed(n.DeltaB)), Inline: false},
		)
	case arena.EventMatchForfeited:
		card.Title = fmt.Sprintf("%s: %s vs %s", label, aName, bName)
		card.Content = "match forfeited"
		card.Summary = trimText(fallback(n.Headline, "called off"), headlineLimit)
		card.Color = colorForfeit
		fields = append(fields, platforms.Field{Name: "Winner", Value: winnerName(n, aName, bName), Inline: true})
	default:
		return platforms.Card{}, false
	}
	if len(n.Tags) > 0 {
		fields = append(fields, platforms.Field{Name: "Tags", Value: strings.Join(n.Tags, ", "), Inline: false})
	}
	card.Fields = fields
	return card, true
}

// terminal reports whether no further events follow for the match.
func terminal(evType string) bool {
	return evType == arena.EventMatchResolved || evType == arena.EventMatchForfeited
}

func winnerName(n Notice, aName, bName string) string {
	switch n.WinnerID {
	case "":
		return "-"
	case n.AID:
		return aName
	case n.BID:
		return bName
	}
	return shortID(n.WinnerID, 8)
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func signed(v int) string {
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

func trimText(v string, max int) string {
	if max <= 0 || len(v) <= max {
		return v
	}
	if max <= 3 {
		return v[:max]
	}
	return v[:max-3] + "..."
}

func shortID(v string, max int) string {
	if max <= 0 || len(v) <= max {
		return v
	}
	return v[:max]
}

func eventTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fallback(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
