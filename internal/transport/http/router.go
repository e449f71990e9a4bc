package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"limbopet-arena/internal/auth"
	"limbopet-arena/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Agents   AgentLookup
	DB       Pinger
	Arena    ArenaService
	Public   PublicService
	AgentSvc AgentService
	JWT      *auth.JWTManager
}

func NewRouter(d Deps, cfg config.ServerConfig) *chi.Mux {
	arenaHandlers := NewArenaHandlers(d.Arena, d.Public)
	agentHandlers := NewAgentHandlers(d.AgentSvc)
	adminHandlers := NewAdminHandlers(d.DB)
	limiter := NewRateLimiter(cfg.InteractionRatePerSec, cfg.InteractionBurst)
	requireAgent := AgentAuthMiddleware(d.Agents, d.JWT)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/agents/register", agentHandlers.Register())
		r.With(OptionalAgentMiddleware(d.Agents, d.JWT)).Get("/world/arena/today", arenaHandlers.Today())
		r.Get("/world/arena/leaderboard", arenaHandlers.Leaderboard())
		r.Get("/world/arena/matches/{id}", arenaHandlers.Match())

		r.Group(func(r chi.Router) {
			r.Use(requireAgent)
			r.Get("/agents/me", agentHandlers.Me())
			r.Post("/agents/token", agentHandlers.Token())
			r.Get("/pet/arena/history", arenaHandlers.History())
			r.Get("/pet/arena/mode-stats", arenaHandlers.ModeStats())
			r.Get("/pet/arena/stats", arenaHandlers.Stats())
			r.Post("/world/arena/matches/{id}/vote", arenaHandlers.Vote())
			r.Post("/world/arena/challenge", arenaHandlers.Challenge())
			r.Post("/world/arena/rematch", arenaHandlers.Rematch())

			r.Group(func(r chi.Router) {
				r.Use(RateLimitMiddleware(limiter))
				r.Post("/world/arena/matches/{id}/intervene", arenaHandlers.Intervene())
				r.Post("/world/arena/matches/{id}/predict", arenaHandlers.Predict())
				r.Post("/world/arena/matches/{id}/cheer", arenaHandlers.Cheer())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.With(BodyCaptureMiddleware(4096)).Post("/world/arena/tick", arenaHandlers.Tick())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
