package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

type DiscordAdapter struct {
	client *HTTPClient
	cards  *cardIndex
}

func NewDiscordAdapter(client *HTTPClient) *DiscordAdapter {
	return &DiscordAdapter{client: client, cards: newCardIndex()}
}

func (a *DiscordAdapter) Name() string { return "discord" }

func (a *DiscordAdapter) Send(ctx context.Context, endpoint, _ string, card Card) error {
	payload := discordPayload(card)
	if strings.TrimSpace(card.Key) == "" {
		_, err := a.client.Do(ctx, http.MethodPost, endpoint, nil, payload)
		return err
	}
	return a.cards.upsert(ctx, endpoint, card.Key,
		func(ctx context.Context) (string, error) {
			return a.create(ctx, endpoint, payload)
		},
		func(ctx context.Context, id string) error {
			editURL, ok := discordEditURL(endpoint, id)
			if !ok {
				_, err := a.client.Do(ctx, http.MethodPost, endpoint, nil, payload)
				return err
			}
			_, err := a.client.Do(ctx, http.MethodPatch, editURL, nil, payload)
			return err
		})
}

func (a *DiscordAdapter) Forget(endpoint, key string) {
	a.cards.forget(endpoint, key)
}

func (a *DiscordAdapter) create(ctx context.Context, endpoint string, payload map[string]any) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()
	body, err := a.client.Do(ctx, http.MethodPost, u.String(), nil, payload)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(body, &created) != nil || strings.TrimSpace(created.ID) == "" {
		return "", errors.New("discord webhook response missing message id")
	}
	return created.ID, nil
}

func discordPayload(card Card) map[string]any {
	type embedField struct {
		Name   string `json:"name"`
		Value  string `json:"value"`
		Inline bool   `json:"inline"`
	}
	fields := make([]embedField, 0, len(card.Fields))
	for _, f := range card.Fields {
		fields = append(fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	embed := map[string]any{
		"title":       card.Title,
		"description": card.Summary,
		"fields":      fields,
		"color":       card.Color,
	}
	if card.Timestamp != "" {
		embed["timestamp"] = card.Timestamp
	}
	if card.Footer != "" {
		embed["footer"] = map[string]string{"text": card.Footer}
	}
	return map[string]any{
		"content": card.Content,
		"embeds":  []map[string]any{embed},
	}
}

// discordEditURL maps /api/webhooks/{id}/{token} to its message edit route.
func discordEditURL(endpoint, msgID string) (string, bool) {
	if strings.TrimSpace(msgID) == "" {
		return "", false
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "webhooks" {
		return "", false
	}
	u.Path = "/api/webhooks/" + parts[2] + "/" + parts[3] + "/messages/" + msgID
	u.RawQuery = ""
	return u.String(), true
}
