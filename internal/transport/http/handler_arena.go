package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apppublic "limbopet-arena/internal/app/public"
	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/store"

	"github.com/go-chi/chi/v5"
)

type ArenaService interface {
	Intervene(ctx context.Context, matchID, agentID, action string) (arena.InterveneResult, error)
	Predict(ctx context.Context, matchID, agentID, pick string) (arena.PredictResult, error)
	Cheer(ctx context.Context, matchID, agentID, side, message string) (arena.CheerResult, error)
	Vote(ctx context.Context, matchID, voterID, vote string) (arena.VoteResult, error)
	CreateChallengeMatch(ctx context.Context, agentID, mode, day string) (arena.ChallengeResult, error)
	RequestRematch(ctx context.Context, agentID, matchID string) (arena.RematchResult, error)
	TickDay(ctx context.Context, opts arena.TickOptions) (arena.TickResult, error)
}

type PublicService interface {
	Today(ctx context.Context, day string, limit int, agentID string) (*apppublic.TodayResponse, error)
	Leaderboard(ctx context.Context, day string, limit, offset int) (*apppublic.LeaderboardResponse, error)
	History(ctx context.Context, agentID string, limit int) (*apppublic.HistoryResponse, error)
	ModeStats(ctx context.Context, agentID string) (*apppublic.ModeStatsResponse, error)
	Stats(ctx context.Context, agentID string) (*apppublic.AgentStats, error)
	MatchDetail(ctx context.Context, matchID string) (*apppublic.MatchDetail, error)
}

type ArenaHandlers struct {
	arena  ArenaService
	public PublicService
}

func NewArenaHandlers(a ArenaService, p PublicService) *ArenaHandlers {
	return &ArenaHandlers{arena: a, public: p}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(dst); err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

func requireAgent(w http.ResponseWriter, r *http.Request) (*store.Agent, bool) {
	agent, ok := AgentFromContext(r.Context())
	if !ok {
		writeErrorBody(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return nil, false
	}
	return agent, true
}

func matchSummary(m *store.Match) map[string]any {
	if m == nil {
		return nil
	}
	return map[string]any{
		"id":     m.ID,
		"day":    m.Day,
		"slot":   m.Slot,
		"mode":   m.Mode,
		"status": m.Status,
		"meta":   m.Meta,
	}
}

func (h *ArenaHandlers) Today() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID := ""
		if agent, ok := AgentFromContext(r.Context()); ok {
			agentID = agent.ID
		}
		resp, err := h.public.Today(r.Context(), r.URL.Query().Get("day"), queryInt(r, "limit", 0), agentID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"day": resp.Day, "season": resp.Season, "my": resp.My, "matches": resp.Matches})
	}
}

func (h *ArenaHandlers) Match() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.public.MatchDetail(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"match": resp})
	}
}

func (h *ArenaHandlers) Intervene() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		var body struct {
			Action string `json:"action"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		metricInteractionTotal.Add("intervene", 1)
		res, err := h.arena.Intervene(r.Context(), chi.URLParam(r, "id"), agent.ID, body.Action)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"intervention": res})
	}
}

func (h *ArenaHandlers) Predict() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		var body struct {
			Pick string `json:"pick"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		metricInteractionTotal.Add("predict", 1)
		res, err := h.arena.Predict(r.Context(), chi.URLParam(r, "id"), agent.ID, body.Pick)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"prediction": res})
	}
}

func (h *ArenaHandlers) Cheer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		var body struct {
			Side    string `json:"side"`
			Message string `json:"message"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		metricInteractionTotal.Add("cheer", 1)
		res, err := h.arena.Cheer(r.Context(), chi.URLParam(r, "id"), agent.ID, body.Side, body.Message)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"cheer": res})
	}
}

func (h *ArenaHandlers) Vote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		var body struct {
			Vote string `json:"vote"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		res, err := h.arena.Vote(r.Context(), chi.URLParam(r, "id"), agent.ID, body.Vote)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"match_id": res.MatchID, "my_vote": res.MyVote, "result": res.Result})
	}
}

func (h *ArenaHandlers) Challenge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		var body struct {
			Mode string `json:"mode"`
			Day  string `json:"day"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		res, err := h.arena.CreateChallengeMatch(r.Context(), agent.ID, body.Mode, strings.TrimSpace(body.Day))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"already": res.Already, "match_id": res.MatchID, "match": matchSummary(res.Match)})
	}
}

func (h *ArenaHandlers) Rematch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		var body struct {
			MatchID string `json:"match_id"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if strings.TrimSpace(body.MatchID) == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		res, err := h.arena.RequestRematch(r.Context(), agent.ID, strings.TrimSpace(body.MatchID))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{
			"already":  res.Already,
			"match_id": res.MatchID,
			"fee_paid": res.FeePaid,
			"match":    matchSummary(res.Match),
		})
	}
}

func (h *ArenaHandlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.public.Leaderboard(r.Context(), r.URL.Query().Get("day"), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{
			"season":      resp.Season,
			"leaderboard": resp.Items,
			"total":       resp.Total,
			"limit":       resp.Limit,
			"offset":      resp.Offset,
		})
	}
}

func (h *ArenaHandlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		resp, err := h.public.History(r.Context(), agent.ID, queryInt(r, "limit", 0))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"history": resp.History})
	}
}

func (h *ArenaHandlers) ModeStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		resp, err := h.public.ModeStats(r.Context(), agent.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"stats": resp.Stats})
	}
}

func (h *ArenaHandlers) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := requireAgent(w, r)
		if !ok {
			return
		}
		resp, err := h.public.Stats(r.Context(), agent.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"stats": resp})
	}
}

// Tick runs one scheduler pass on demand.
func (h *ArenaHandlers) Tick() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Day                string `json:"day"`
			MatchesPerDay      *int   `json:"matches_per_day"`
			ResolveImmediately bool   `json:"resolve_immediately"`
			StaggerSeconds     int    `json:"stagger_seconds"`
		}{}
		if !decodeBody(w, r, &body) {
			return
		}
		opts := arena.TickOptions{
			Day:                strings.TrimSpace(body.Day),
			MatchesPerDay:      -1,
			ResolveImmediately: body.ResolveImmediately,
			StaggerSeconds:     body.StaggerSeconds,
		}
		if body.MatchesPerDay != nil {
			opts.MatchesPerDay = *body.MatchesPerDay
		}
		res, err := h.arena.TickDay(r.Context(), opts)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"tick": res})
	}
}
