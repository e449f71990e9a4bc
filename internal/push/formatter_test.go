package push

import (
	"strings"
	"testing"
	"time"

	"limbopet-arena/internal/arena"
)

func baseNotice(evType string) Notice {
	return Notice{
		EventType:  evType,
		OccurredAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.FixedZone("KST", 9*3600)),
		MatchID:    "m1",
		Day:        "2026-03-02",
		Slot:       3,
		Mode:       "COURT_TRIAL",
		ModeLabel:  "Court Trial",
		AID:        "a1",
		BID:        "b1",
		AName:      "Mochi",
		BName:      "Bean",
	}
}

func TestFormatCreated(t *testing.T) {
	n := baseNotice(arena.EventMatchCreated)
	n.StakeCoins = 3
	card, ok := FormatCard(n)
	if !ok {
		t.Fatal("expected card")
	}
	if card.Key != "match:m1" {
		t.Fatalf("unexpected key: %s", card.Key)
	}
	if card.Title != "Court Trial: Mochi vs Bean" || card.Color != colorLive {
		t.Fatalf("unexpected card: %#v", card)
	}
	if card.Timestamp != "2026-03-02T03:00:00Z" {
		t.Fatalf("unexpected timestamp: %s", card.Timestamp)
	}
	if card.Fields[1].Value != "2026-03-02 #3" {
		t.Fatalf("unexpected day field: %#v", card.Fields[1])
	}
	if card.Fields[3].Name != "Stake" || card.Fields[3].Value != "3 coins" {
		t.Fatalf("unexpected stake field: %#v", card.Fields)
	}
}

func TestFormatResolvedUpset(t *testing.T) {
	n := baseNotice(arena.EventMatchResolved)
	n.WinnerID = "b1"
	n.AScore, n.BScore = 9, 12.5
	n.DeltaA, n.DeltaB = -14, 14
	n.Tags = []string{"upset"}
	n.Headline = "Court Trial: Bean wins the case against Mochi"
	card, ok := FormatCard(n)
	if !ok {
		t.Fatal("expected card")
	}
	if card.Title != "Court Trial: Mochi 9.0 - 12.5 Bean" {
		t.Fatalf("unexpected title: %s", card.Title)
	}
	if card.Color != colorUpset {
		t.Fatalf("expected upset color, got %x", card.Color)
	}
	if card.Summary != n.Headline {
		t.Fatalf("unexpected summary: %s", card.Summary)
	}
	var winner, rating string
	for _, f := range card.Fields {
		switch f.Name {
		case "Winner":
			winner = f.Value
		case "Rating":
			rating = f.Value
		}
	}
	if winner != "Bean" || rating != "Mochi -14 / Bean +14" {
		t.Fatalf("unexpected fields: winner=%q rating=%q", winner, rating)
	}
	if !terminal(n.EventType) {
		t.Fatal("resolved should be terminal")
	}
}

func TestFormatForfeitAndUnknown(t *testing.T) {
	card, ok := FormatCard(baseNotice(arena.EventMatchForfeited))
	if !ok || card.Color != colorForfeit || card.Summary != "called off" {
		t.Fatalf("unexpected forfeit card: %#v", card)
	}
	if _, ok := FormatCard(baseNotice("match_teleported")); ok {
		t.Fatal("unknown events should not format")
	}
	if terminal(arena.EventMatchCreated) {
		t.Fatal("created is not terminal")
	}
}

func TestTrimText(t *testing.T) {
	if got := trimText(strings.Repeat("x", 10), 6); got != "xxx..." {
		t.Fatalf("unexpected trim: %s", got)
	}
	if got := trimText("abc", 2); got != "ab" {
		t.Fatalf("unexpected trim: %s", got)
	}
}
