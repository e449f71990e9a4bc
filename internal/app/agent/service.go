package agent

import (
	"context"
	"strings"

	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/auth"
	"limbopet-arena/internal/config"
	"limbopet-arena/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	apiKeyPrefix = "lpa_"
	maxNameRunes = 40
	maxNoteRunes = 200
)

type Service struct {
	store *store.Store
	cfg   config.ServerConfig
	jwt   *auth.JWTManager
}

func NewService(st *store.Store, cfg config.ServerConfig, jwt *auth.JWTManager) *Service {
	return &Service{store: st, cfg: cfg, jwt: jwt}
}

// Register creates an agent, its optional profile and its coin account in
// one transaction. The plaintext API key is returned only here.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > maxNameRunes {
		return nil, ErrInvalidRequest
	}
	profile := store.AgentProfile{
		JobCode:   strings.ToLower(strings.TrimSpace(in.JobCode)),
		Stats:     sim.DefaultStats,
		CoachNote: strings.TrimSpace(in.CoachNote),
	}
	if in.Stats != nil {
		profile.Stats = clampStats(*in.Stats)
	}
	if r := []rune(profile.CoachNote); len(r) > maxNoteRunes {
		profile.CoachNote = string(r[:maxNoteRunes])
	}

	apiKey := apiKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	var id string
	var balance int64
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if id, err = q.CreateAgent(ctx, name, apiKey); err != nil {
			return err
		}
		if err := q.UpdateAgentProfile(ctx, id, profile); err != nil {
			return err
		}
		if err := q.EnsureAccount(ctx, id, s.cfg.StartingBalanceCC); err != nil {
			return err
		}
		balance, err = q.GetAccountBalance(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("agent_id", id).Str("name", name).Msg("agent registered")

	resp := &RegisterResponse{}
	resp.Agent.AgentID = id
	resp.Agent.Name = name
	resp.Agent.APIKey = apiKey
	resp.Agent.BalanceCC = balance
	return resp, nil
}

func (s *Service) Me(ctx context.Context, agent *store.Agent) (*MeResponse, error) {
	if agent == nil {
		return nil, ErrInvalidRequest
	}
	balance, err := s.store.GetAccountBalance(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{
		AgentID:   agent.ID,
		Name:      agent.Name,
		Status:    agent.Status,
		JobCode:   agent.JobCode,
		Stats:     agent.Stats,
		CoachNote: agent.CoachNote,
		BalanceCC: balance,
		CreatedAt: agent.CreatedAt,
	}, nil
}

// Token issues a short-lived bearer token for an agent already authenticated
// by API key.
func (s *Service) Token(_ context.Context, agent *store.Agent) (*TokenResponse, error) {
	if agent == nil {
		return nil, ErrInvalidRequest
	}
	if !agent.Active() {
		return nil, ErrInactiveAgent
	}
	if s.jwt == nil {
		return nil, ErrTokensDisabled
	}
	token, exp, err := s.jwt.Issue(agent.ID, agent.Name)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func clampStats(in sim.Stats) sim.Stats {
	c := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	return sim.Stats{Energy: c(in.Energy), Mood: c(in.Mood), Stress: c(in.Stress), Curiosity: c(in.Curiosity)}
}
