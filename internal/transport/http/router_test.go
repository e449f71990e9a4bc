package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appagent "limbopet-arena/internal/app/agent"
	apppublic "limbopet-arena/internal/app/public"
	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/auth"
	"limbopet-arena/internal/config"
	"limbopet-arena/internal/store"
)

type fakeAgents struct {
	byKey map[string]*store.Agent
}

func (f *fakeAgents) GetAgentByAPIKey(_ context.Context, key string) (*store.Agent, error) {
	if a, ok := f.byKey[key]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeAgents) GetAgentByID(_ context.Context, id string) (*store.Agent, error) {
	for _, a := range f.byKey {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type fakeArena struct {
	interveneErr error
	lastTick     arena.TickOptions
	calls        []string
}

func (f *fakeArena) Intervene(_ context.Context, matchID, agentID, action string) (arena.InterveneResult, error) {
	f.calls = append(f.calls, "intervene:"+matchID+":"+agentID+":"+action)
	if f.interveneErr != nil {
		return arena.InterveneResult{}, f.interveneErr
	}
	return arena.InterveneResult{OK: true, Action: action}, nil
}

func (f *fakeArena) Predict(_ context.Context, matchID, agentID, pick string) (arena.PredictResult, error) {
	f.calls = append(f.calls, "predict:"+pick)
	return arena.PredictResult{OK: true, Pick: pick}, nil
}

func (f *fakeArena) Cheer(_ context.Context, matchID, agentID, side, message string) (arena.CheerResult, error) {
	return arena.CheerResult{OK: true, Side: side, Message: message}, nil
}

func (f *fakeArena) Vote(_ context.Context, matchID, voterID, vote string) (arena.VoteResult, error) {
	return arena.VoteResult{}, arena.ErrAlreadyVoted
}

func (f *fakeArena) CreateChallengeMatch(_ context.Context, agentID, mode, day string) (arena.ChallengeResult, error) {
	return arena.ChallengeResult{}, arena.ErrNoOpponent
}

func (f *fakeArena) RequestRematch(_ context.Context, agentID, matchID string) (arena.RematchResult, error) {
	return arena.RematchResult{}, fmt.Errorf("settle stake: %w", arena.ErrDependency)
}

func (f *fakeArena) TickDay(_ context.Context, opts arena.TickOptions) (arena.TickResult, error) {
	f.lastTick = opts
	return arena.TickResult{Day: "2026-03-02", Created: 2}, nil
}

type fakePublic struct {
	todayAgent string
}

func (f *fakePublic) Today(_ context.Context, day string, limit int, agentID string) (*apppublic.TodayResponse, error) {
	f.todayAgent = agentID
	return &apppublic.TodayResponse{Day: "2026-03-02", Matches: []apppublic.MatchView{}}, nil
}

func (f *fakePublic) Leaderboard(context.Context, string, int, int) (*apppublic.LeaderboardResponse, error) {
	return &apppublic.LeaderboardResponse{Items: []apppublic.LeaderboardItem{{Rank: 1, AgentID: "a1"}}, Total: 1, Limit: 50}, nil
}

func (f *fakePublic) History(context.Context, string, int) (*apppublic.HistoryResponse, error) {
	return &apppublic.HistoryResponse{History: []apppublic.HistoryItem{}}, nil
}

func (f *fakePublic) ModeStats(context.Context, string) (*apppublic.ModeStatsResponse, error) {
	return &apppublic.ModeStatsResponse{Stats: map[string]apppublic.ModeStatView{}}, nil
}

func (f *fakePublic) Stats(context.Context, string) (*apppublic.AgentStats, error) {
	return &apppublic.AgentStats{EloHistory: []int{}}, nil
}

func (f *fakePublic) MatchDetail(_ context.Context, id string) (*apppublic.MatchDetail, error) {
	if id == "missing" {
		return nil, arena.ErrMatchNotFound
	}
	return &apppublic.MatchDetail{MatchView: apppublic.MatchView{ID: id}}, nil
}

type fakeAgentSvc struct{}

func (fakeAgentSvc) Register(_ context.Context, in appagent.RegisterInput) (*appagent.RegisterResponse, error) {
	if in.Name == "" {
		return nil, appagent.ErrInvalidRequest
	}
	resp := &appagent.RegisterResponse{}
	resp.Agent.AgentID = "new"
	resp.Agent.Name = in.Name
	return resp, nil
}

func (fakeAgentSvc) Me(_ context.Context, a *store.Agent) (*appagent.MeResponse, error) {
	return &appagent.MeResponse{AgentID: a.ID, Name: a.Name}, nil
}

func (fakeAgentSvc) Token(context.Context, *store.Agent) (*appagent.TokenResponse, error) {
	return nil, appagent.ErrTokensDisabled
}

type harness struct {
	handler http.Handler
	arena   *fakeArena
	public  *fakePublic
	jwt     *auth.JWTManager
}

func newHarness(t *testing.T, cfg config.ServerConfig) *harness {
	t.Helper()
	jwtm := auth.NewJWTManager(config.AuthConfig{JWTSecret: "test-secret", JWTIssuer: "limbopet-arena", JWTTTL: time.Hour})
	h := &harness{arena: &fakeArena{}, public: &fakePublic{}, jwt: jwtm}
	agents := &fakeAgents{byKey: map[string]*store.Agent{
		"key-mochi": {ID: "a1", Name: "Mochi", Status: store.AgentStatusActive},
	}}
	h.handler = NewRouter(Deps{
		Agents:   agents,
		DB:       fakeDB{},
		Arena:    h.arena,
		Public:   h.public,
		AgentSvc: fakeAgentSvc{},
		JWT:      jwtm,
	}, cfg)
	return h
}

func (h *harness) do(method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func defaultServerConfig() config.ServerConfig {
	return config.ServerConfig{AdminAPIKey: "admin", InteractionRatePerSec: 100, InteractionBurst: 100}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	rec, body := h.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || body["db"] != "up" {
		t.Fatalf("health = %d %v", rec.Code, body)
	}
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	rec, body := h.do(http.MethodGet, "/api/pet/arena/history", "", "")
	if rec.Code != http.StatusUnauthorized || body["success"] != false {
		t.Fatalf("no token = %d %v", rec.Code, body)
	}
	rec, _ = h.do(http.MethodGet, "/api/pet/arena/history", "wrong", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad key = %d", rec.Code)
	}
	rec, body = h.do(http.MethodGet, "/api/pet/arena/history", "key-mochi", "")
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("api key = %d %v", rec.Code, body)
	}
}

func TestJWTAuth(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	token, _, err := h.jwt.Issue("a1", "Mochi")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec, body := h.do(http.MethodGet, "/api/agents/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("jwt me = %d %v", rec.Code, body)
	}
	agent, _ := body["agent"].(map[string]any)
	if agent["agent_id"] != "a1" {
		t.Fatalf("agent = %v", agent)
	}
	rec, _ = h.do(http.MethodGet, "/api/agents/me", token+"x", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tampered jwt = %d", rec.Code)
	}
}

func TestInterveneErrorsCarryCodes(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	rec, body := h.do(http.MethodPost, "/api/world/arena/matches/m1/intervene", "key-mochi", `{"action":"calm"}`)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("intervene = %d %v", rec.Code, body)
	}
	if len(h.arena.calls) != 1 || h.arena.calls[0] != "intervene:m1:a1:calm" {
		t.Fatalf("calls = %v", h.arena.calls)
	}

	h.arena.interveneErr = arena.ErrMatchNotLive
	rec, body = h.do(http.MethodPost, "/api/world/arena/matches/m1/intervene", "key-mochi", `{"action":"calm"}`)
	if rec.Code != http.StatusBadRequest || body["code"] != "MATCH_NOT_LIVE" || body["success"] != false {
		t.Fatalf("not live = %d %v", rec.Code, body)
	}
	if body["hint"] == nil {
		t.Fatal("expected a hint")
	}
}

func TestErrorStatusMapping(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	rec, body := h.do(http.MethodGet, "/api/world/arena/matches/missing", "", "")
	if rec.Code != http.StatusNotFound || body["code"] != "MATCH_NOT_FOUND" {
		t.Fatalf("missing = %d %v", rec.Code, body)
	}
	rec, body = h.do(http.MethodPost, "/api/world/arena/matches/m1/vote", "key-mochi", `{"vote":"fair"}`)
	if rec.Code != http.StatusBadRequest || body["code"] != "ARENA_MATCH_ALREADY_VOTED" {
		t.Fatalf("vote = %d %v", rec.Code, body)
	}
	rec, body = h.do(http.MethodPost, "/api/world/arena/challenge", "key-mochi", `{}`)
	if rec.Code != http.StatusBadRequest || body["code"] != "NO_OPPONENT" {
		t.Fatalf("challenge = %d %v", rec.Code, body)
	}
	rec, body = h.do(http.MethodPost, "/api/world/arena/rematch", "key-mochi", `{"match_id":"m1"}`)
	if rec.Code != http.StatusServiceUnavailable || body["code"] != "DEPENDENCY_FAILURE" {
		t.Fatalf("rematch = %d %v", rec.Code, body)
	}
	rec, body = h.do(http.MethodPost, "/api/world/arena/rematch", "key-mochi", `{}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "invalid_request" {
		t.Fatalf("rematch without id = %d %v", rec.Code, body)
	}
	rec, body = h.do(http.MethodPost, "/api/agents/token", "key-mochi", "")
	if rec.Code != http.StatusServiceUnavailable || body["error"] != "tokens_disabled" {
		t.Fatalf("token = %d %v", rec.Code, body)
	}
	rec, _ = h.do(http.MethodPost, "/api/world/arena/matches/m1/predict", "key-mochi", `{"pick":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", rec.Code)
	}
}

func TestErrorResponseDependency(t *testing.T) {
	wrapped := errors.Join(errors.New("outbox"), arena.ErrDependency)
	status, body := errorResponse(wrapped)
	if status != http.StatusServiceUnavailable || body.Code != "DEPENDENCY_FAILURE" {
		t.Fatalf("dependency = %d %+v", status, body)
	}
	status, _ = errorResponse(apppublic.ErrInvalidDay)
	if status != http.StatusBadRequest {
		t.Fatalf("invalid day = %d", status)
	}
}

func TestTodayAttachesOptionalAgent(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	rec, _ := h.do(http.MethodGet, "/api/world/arena/today", "", "")
	if rec.Code != http.StatusOK || h.public.todayAgent != "" {
		t.Fatalf("anonymous today = %d agent=%q", rec.Code, h.public.todayAgent)
	}
	rec, _ = h.do(http.MethodGet, "/api/world/arena/today", "key-mochi", "")
	if rec.Code != http.StatusOK || h.public.todayAgent != "a1" {
		t.Fatalf("authed today = %d agent=%q", rec.Code, h.public.todayAgent)
	}
	rec, _ = h.do(http.MethodGet, "/api/world/arena/today", "bogus", "")
	if rec.Code != http.StatusOK || h.public.todayAgent != "" {
		t.Fatalf("bad creds on today = %d agent=%q", rec.Code, h.public.todayAgent)
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	rec, body := h.do(http.MethodPost, "/api/agents/register", "", `{"name":"Mochi"}`)
	if rec.Code != http.StatusCreated || body["success"] != true {
		t.Fatalf("register = %d %v", rec.Code, body)
	}
	rec, _ = h.do(http.MethodPost, "/api/agents/register", "", `{"name":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("register without name = %d", rec.Code)
	}
}

func TestInteractionRateLimit(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.InteractionRatePerSec = 0.001
	cfg.InteractionBurst = 2
	h := newHarness(t, cfg)
	for i := 0; i < 2; i++ {
		rec, _ := h.do(http.MethodPost, "/api/world/arena/matches/m1/predict", "key-mochi", `{"pick":"a"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	rec, body := h.do(http.MethodPost, "/api/world/arena/matches/m1/cheer", "key-mochi", `{"side":"a"}`)
	if rec.Code != http.StatusTooManyRequests || body["error"] != "rate_limited" {
		t.Fatalf("limited = %d %v", rec.Code, body)
	}
	rec, _ = h.do(http.MethodGet, "/api/world/arena/leaderboard", "key-mochi", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reads are not throttled, got %d", rec.Code)
	}
}

func TestAdminTick(t *testing.T) {
	h := newHarness(t, defaultServerConfig())
	rec, _ := h.do(http.MethodPost, "/api/world/arena/tick", "", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tick without key = %d", rec.Code)
	}
	rec, _ = h.do(http.MethodPost, "/api/world/arena/tick", "key-mochi", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tick with agent key = %d", rec.Code)
	}
	rec, body := h.do(http.MethodPost, "/api/world/arena/tick", "admin", `{"resolve_immediately":true}`)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("tick = %d %v", rec.Code, body)
	}
	if h.arena.lastTick.MatchesPerDay != -1 || !h.arena.lastTick.ResolveImmediately {
		t.Fatalf("tick opts = %+v", h.arena.lastTick)
	}
	rec, _ = h.do(http.MethodPost, "/api/world/arena/tick", "admin", `{"matches_per_day":0}`)
	if rec.Code != http.StatusOK || h.arena.lastTick.MatchesPerDay != 0 {
		t.Fatalf("explicit zero = %d %+v", rec.Code, h.arena.lastTick)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.AdminAPIKey = ""
	h := newHarness(t, cfg)
	rec, _ := h.do(http.MethodGet, "/api/debug/vars", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("debug vars without admin key = %d", rec.Code)
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	if !l.Allow("a") || l.Allow("a") {
		t.Fatal("burst of one should allow exactly one")
	}
	if !l.Allow("b") {
		t.Fatal("buckets are per key")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("bucket should refill after a second")
	}
}
