package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded %d", e.Code)
}

type HTTPClient struct {
	inner *http.Client
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{inner: &http.Client{Timeout: timeout}}
}

// Do sends body as JSON and returns the response body for 2xx answers.
func (c *HTTPClient) Do(ctx context.Context, method, endpoint string, headers map[string]string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &StatusError{Code: resp.StatusCode, Body: string(out)}
	}
	return out, nil
}

func isNotFound(err error) bool {
	se, ok := err.(*StatusError)
	return ok && se.Code == http.StatusNotFound
}

// cardIndex remembers which remote message holds each card.
type cardIndex struct {
	mu  sync.Mutex
	ids map[string]string
}

func newCardIndex() *cardIndex {
	return &cardIndex{ids: map[string]string{}}
}

func cardSlot(endpoint, key string) string {
	return strings.TrimSpace(endpoint) + "|" + strings.TrimSpace(key)
}

func (c *cardIndex) get(endpoint, key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids[cardSlot(endpoint, key)]
}

func (c *cardIndex) set(endpoint, key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[cardSlot(endpoint, key)] = id
}

func (c *cardIndex) forget(endpoint, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, cardSlot(endpoint, key))
}

// upsert posts a keyed card once and edits it afterwards. A vanished remote
// message is posted again.
func (c *cardIndex) upsert(ctx context.Context, endpoint, key string,
	create func(ctx context.Context) (string, error),
	edit func(ctx context.Context, id string) error,
) error {
	if id := c.get(endpoint, key); id != "" {
		err := edit(ctx, id)
		if err == nil || !isNotFound(err) {
			return err
		}
	}
	id, err := create(ctx)
	if err != nil {
		return err
	}
	c.set(endpoint, key, id)
	return nil
}
