// Package recap turns a resolved arena match into a short post stored next
// to the match.
package recap

import (
	"context"
	"errors"
	"fmt"

	"limbopet-arena/internal/store"

	"github.com/rs/zerolog/log"
)

var ErrNotResolved = errors.New("recap_match_not_resolved")

// TextProducer writes the title and body of a recap. Implementations may
// call out to slow collaborators; callers treat failures as non-fatal.
type TextProducer interface {
	Produce(ctx context.Context, m *store.Match) (title, body string, err error)
}

type Service struct {
	producer TextProducer
}

func NewService(p TextProducer) *Service {
	if p == nil {
		p = TemplateProducer{}
	}
	return &Service{producer: p}
}

// Publish stores the recap for m through q and returns the post id. A match
// that already has a post keeps it.
func (s *Service) Publish(ctx context.Context, q *store.Queries, m *store.Match) (string, error) {
	if m == nil || m.Meta.Result == nil {
		return "", ErrNotResolved
	}
	title, body, err := s.producer.Produce(ctx, m)
	if err != nil {
		metricRecapFailedTotal.Add(1)
		return "", fmt.Errorf("produce recap: %w", err)
	}
	id, err := q.InsertRecapPost(ctx, m.ID, trimText(title, maxTitleRunes), trimText(body, maxBodyRunes))
	if err != nil {
		metricRecapFailedTotal.Add(1)
		return "", fmt.Errorf("insert recap: %w", err)
	}
	metricRecapPublishedTotal.Add(1)
	log.Debug().Str("match_id", m.ID).Str("post_id", id).Msg("recap published")
	return id, nil
}
