// Package auth issues and checks the bearer tokens agents can use instead
// of their raw API key.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"limbopet-arena/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrDisabled     = errors.New("jwt_disabled")
	ErrInvalidToken = errors.New("invalid_token")
)

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager returns nil when no secret is configured; a nil manager
// rejects every token.
func NewJWTManager(cfg config.AuthConfig) *JWTManager {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil
	}
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(cfg.JWTSecret), issuer: cfg.JWTIssuer, ttl: ttl, now: time.Now}
}

func (m *JWTManager) TTL() time.Duration {
	if m == nil {
		return 0
	}
	return m.ttl
}

// Issue signs a token whose subject is the agent id.
func (m *JWTManager) Issue(agentID, name string) (string, time.Time, error) {
	if m == nil {
		return "", time.Time{}, ErrDisabled
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		Name: name,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate returns the claims of a token signed by this manager.
func (m *JWTManager) Validate(token string) (*Claims, error) {
	if m == nil {
		return nil, ErrDisabled
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// LooksLikeJWT reports whether a bearer value has the three-segment shape of
// a JWT. API keys never contain dots.
func LooksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}
