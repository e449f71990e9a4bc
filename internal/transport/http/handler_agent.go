package httptransport

import (
	"context"
	"net/http"

	appagent "limbopet-arena/internal/app/agent"
	"limbopet-arena/internal/arena/sim"
	"limbopet-arena/internal/store"
)

type AgentService interface {
	Register(ctx context.Context, in appagent.RegisterInput) (*appagent.RegisterResponse, error)
	Me(ctx context.Context, agent *store.Agent) (*appagent.MeResponse, error)
	Token(ctx context.Context, agent *store.Agent) (*appagent.TokenResponse, error)
}

type AgentHandlers struct {
	svc AgentService
}

func NewAgentHandlers(svc AgentService) *AgentHandlers {
	return &AgentHandlers{svc: svc}
}

func (h *AgentHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name      string     `json:"name"`
			JobCode   string     `json:"job_code"`
			Stats     *sim.Stats `json:"stats"`
			CoachNote string     `json:"coach_note"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := h.svc.Register(r.Context(), appagent.RegisterInput{
			Name:      body.Name,
			JobCode:   body.JobCode,
			Stats:     body.Stats,
			CoachNote: body.CoachNote,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusCreated, map[string]any{"agent": resp.Agent})
	}
}

func (h *AgentHandlers) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		resp, err := h.svc.Me(r.Context(), agent)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"agent": resp})
	}
}

func (h *AgentHandlers) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		resp, err := h.svc.Token(r.Context(), agent)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"token": resp.Token, "token_type": resp.TokenType, "expires_at": resp.ExpiresAt})
	}
}
