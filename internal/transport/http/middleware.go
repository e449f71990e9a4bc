package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"limbopet-arena/internal/auth"
	"limbopet-arena/internal/logging"
	"limbopet-arena/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/time/rate"
)

type agentContextKey struct{}

// AgentLookup resolves bearer credentials to agents.
type AgentLookup interface {
	GetAgentByAPIKey(ctx context.Context, apiKey string) (*store.Agent, error)
	GetAgentByID(ctx context.Context, id string) (*store.Agent, error)
}

func AgentFromContext(ctx context.Context) (*store.Agent, bool) {
	agent, ok := ctx.Value(agentContextKey{}).(*store.Agent)
	return agent, ok && agent != nil
}

func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				attrs := []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("path", req.URL.Path),
				}
				if agent, ok := AgentFromContext(req.Context()); ok {
					attrs = append(attrs, slog.String("agent_id", agent.ID))
				}
				return attrs
			},
		},
	)
}

// BodyCaptureMiddleware attaches truncated request and response bodies to
// the request log.
func BodyCaptureMiddleware(maxCaptureBytes int) func(http.Handler) http.Handler {
	if maxCaptureBytes <= 0 {
		maxCaptureBytes = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqBody, err := io.ReadAll(io.LimitReader(r.Body, int64(maxCaptureBytes)*4))
			if err != nil {
				reqBody = nil
			}
			r.Body = io.NopCloser(bytes.NewReader(reqBody))

			cw := &captureWriter{ResponseWriter: w, maxBytes: maxCaptureBytes}
			next.ServeHTTP(cw, r)

			reqLog := reqBody
			if len(reqLog) > maxCaptureBytes {
				reqLog = reqLog[:maxCaptureBytes]
			}
			httplog.SetAttrs(r.Context(),
				slog.Any("request_body", parseMaybeJSON(reqLog)),
				slog.Any("response_body", parseMaybeJSON(cw.body.Bytes())),
				slog.Bool("request_body_truncated", len(reqBody) > maxCaptureBytes),
				slog.Bool("response_body_truncated", cw.truncated),
			)
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	body      bytes.Buffer
	maxBytes  int
	truncated bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.truncated {
		remain := c.maxBytes - c.body.Len()
		if remain > 0 {
			if len(p) <= remain {
				_, _ = c.body.Write(p)
			} else {
				_, _ = c.body.Write(p[:remain])
				c.truncated = true
			}
		} else {
			c.truncated = true
		}
	}
	return c.ResponseWriter.Write(p)
}

func parseMaybeJSON(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var out any
	if err := json.Unmarshal(b, &out); err == nil {
		return out
	}
	return string(b)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// authenticate accepts either an agent API key or a JWT issued by jwtm.
func authenticate(ctx context.Context, agents AgentLookup, jwtm *auth.JWTManager, token string) (*store.Agent, error) {
	if auth.LooksLikeJWT(token) {
		claims, err := jwtm.Validate(token)
		if err != nil {
			return nil, err
		}
		return agents.GetAgentByID(ctx, claims.Subject)
	}
	return agents.GetAgentByAPIKey(ctx, token)
}

func AgentAuthMiddleware(agents AgentLookup, jwtm *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				metricAuthFailures.Add(1)
				writeErrorBody(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Hint: "Send Authorization: Bearer <api key or token>."})
				return
			}
			agent, err := authenticate(r.Context(), agents, jwtm, token)
			if err != nil {
				metricAuthFailures.Add(1)
				writeErrorBody(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			ctx := context.WithValue(r.Context(), agentContextKey{}, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAgentMiddleware attaches the agent when valid credentials are
// present and otherwise lets the request through anonymously.
func OptionalAgentMiddleware(agents AgentLookup, jwtm *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if agent, err := authenticate(r.Context(), agents, jwtm, token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), agentContextKey{}, agent))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" || !CheckAdminAuth(r, adminKey) {
				metricAuthFailures.Add(1)
				writeErrorBody(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CheckAdminAuth(r *http.Request, adminKey string) bool {
	if v := r.Header.Get("X-Admin-Key"); v == adminKey {
		return true
	}
	return bearerToken(r) == adminKey
}

// RateLimiter hands out one token bucket per caller. Idle buckets are
// dropped by sweep.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSec),
		burst:   burst,
		ttl:     10 * time.Minute,
		buckets: map[string]*bucket{},
		now:     time.Now,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.buckets[key]
	if b == nil {
		if len(l.buckets) > 4096 {
			l.sweep(now)
		}
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *RateLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.ttl {
			delete(l.buckets, k)
		}
	}
}

// RateLimitMiddleware throttles live interactions per agent, falling back
// to the client address for anonymous calls.
func RateLimitMiddleware(l *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !l.Allow(key) {
				metricRateLimited.Add(1)
				w.Header().Set("Retry-After", "1")
				writeErrorBody(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited", Code: "RATE_LIMITED", Hint: "Slow down and retry."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if agent, ok := AgentFromContext(r.Context()); ok {
		return "agent:" + agent.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
