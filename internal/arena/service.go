// Package arena schedules, runs and resolves daily pet matches. All state
// lives in Postgres; every mutation of a match happens under its row lock.
package arena

import (
	"context"
	"time"

	"limbopet-arena/internal/config"
	"limbopet-arena/internal/store"
)

// RecapPublisher writes the post-match recap inside the resolving transaction
// and returns the post id.
type RecapPublisher interface {
	Publish(ctx context.Context, q *store.Queries, m *store.Match) (string, error)
}

type Service struct {
	store *store.Store
	cfg   config.ArenaConfig
	recap RecapPublisher
	now   func() time.Time
}

type Option func(*Service)

func WithRecap(p RecapPublisher) Option {
	return func(s *Service) { s.recap = p }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st *store.Store, cfg config.ArenaConfig, opts ...Option) *Service {
	cfg.Normalize()
	if cfg.ModeWeights == nil {
		cfg.ModeWeights, _ = config.LoadModeWeights("")
	}
	s := &Service{store: st, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Config() config.ArenaConfig {
	return s.cfg
}

// Today is the current arena day in UTC.
func (s *Service) Today() string {
	return store.Today(s.now())
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}
