package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

type FeishuAdapter struct {
	client *HTTPClient
	cards  *cardIndex
}

func NewFeishuAdapter(client *HTTPClient) *FeishuAdapter {
	return &FeishuAdapter{client: client, cards: newCardIndex()}
}

func (a *FeishuAdapter) Name() string { return "feishu" }

// Send posts an interactive card. secret is either a bare signature or
// "sig:<signature>;bearer:<token>"; the bearer token is needed to edit.
func (a *FeishuAdapter) Send(ctx context.Context, endpoint, secret string, card Card) error {
	signature, bearer := parseFeishuSecret(secret)
	payload := feishuPayload(card)
	headers := map[string]string{}
	if signature != "" {
		headers["X-Lark-Signature"] = signature
	}
	if strings.TrimSpace(card.Key) == "" {
		_, err := a.client.Do(ctx, http.MethodPost, endpoint, headers, payload)
		return err
	}
	return a.cards.upsert(ctx, endpoint, card.Key,
		func(ctx context.Context) (string, error) {
			body, err := a.client.Do(ctx, http.MethodPost, endpoint, headers, payload)
			if err != nil {
				return "", err
			}
			return feishuMessageID(body)
		},
		func(ctx context.Context, id string) error {
			editURL, ok := feishuEditURL(endpoint, id)
			if !ok {
				_, err := a.client.Do(ctx, http.MethodPost, endpoint, headers, payload)
				return err
			}
			edit := map[string]string{}
			if bearer != "" {
				edit["Authorization"] = "Bearer " + bearer
			}
			_, err := a.client.Do(ctx, http.MethodPatch, editURL, edit, payload)
			return err
		})
}

func (a *FeishuAdapter) Forget(endpoint, key string) {
	a.cards.forget(endpoint, key)
}

func feishuPayload(card Card) map[string]any {
	summary := card.Summary
	if summary == "" {
		summary = card.Content
	}
	elements := []map[string]string{{"tag": "markdown", "text": summary}}
	for _, f := range card.Fields {
		elements = append(elements, map[string]string{
			"tag":  "markdown",
			"text": "**" + f.Name + "**: " + f.Value,
		})
	}
	return map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"header": map[string]any{
				"title":    map[string]any{"tag": "plain_text", "content": card.Title},
				"template": feishuTemplate(card.Color),
			},
			"elements": elements,
		},
	}
}

// feishuTemplate picks the nearest header colour Feishu supports.
func feishuTemplate(color int) string {
	r, g, b := color>>16&0xff, color>>8&0xff, color&0xff
	switch {
	case color == 0:
		return "blue"
	case r > 0xc0 && g < 0x80:
		return "red"
	case r > 0xc0 && g > 0xc0 && b < 0x80:
		return "yellow"
	case g > r && g > b:
		return "green"
	default:
		return "blue"
	}
}

func parseFeishuSecret(secret string) (signature, bearer string) {
	parts := strings.Split(strings.TrimSpace(secret), ";")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case strings.HasPrefix(p, "sig:"):
			signature = strings.TrimSpace(strings.TrimPrefix(p, "sig:"))
		case strings.HasPrefix(p, "bearer:"):
			bearer = strings.TrimSpace(strings.TrimPrefix(p, "bearer:"))
		case len(parts) == 1:
			signature = p
		}
	}
	return signature, bearer
}

func feishuEditURL(endpoint, msgID string) (string, bool) {
	if strings.TrimSpace(msgID) == "" {
		return "", false
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Path = "/open-apis/im/v1/messages/" + msgID
	u.RawQuery = ""
	return u.String(), true
}

func feishuMessageID(body []byte) (string, error) {
	var resp struct {
		MessageID string `json:"message_id"`
		Data      struct {
			MessageID string `json:"message_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	for _, id := range []string{resp.Data.MessageID, resp.MessageID} {
		if strings.TrimSpace(id) != "" {
			return id, nil
		}
	}
	return "", errors.New("feishu response missing message id")
}
