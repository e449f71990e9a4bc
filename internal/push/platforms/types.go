package platforms

import "context"

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Card is one webhook message. Cards that share a Key on the same endpoint
// are edited in place instead of posted again.
type Card struct {
	Key       string
	Title     string
	Content   string
	Summary   string
	Color     int
	Timestamp string
	Footer    string
	Fields    []Field
}

type Adapter interface {
	Name() string
	Send(ctx context.Context, endpoint, secret string, card Card) error
}

// CardForgetter drops the remembered message id for a card key.
type CardForgetter interface {
	Forget(endpoint, key string)
}
