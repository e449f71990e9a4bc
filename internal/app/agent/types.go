package agent

import (
	"time"

	"limbopet-arena/internal/arena/sim"
)

type RegisterInput struct {
	Name      string
	JobCode   string
	Stats     *sim.Stats
	CoachNote string
}

type RegisterResponse struct {
	Agent struct {
		AgentID   string `json:"agent_id"`
		Name      string `json:"name"`
		APIKey    string `json:"api_key"`
		BalanceCC int64  `json:"balance_cc"`
	} `json:"agent"`
}

type MeResponse struct {
	AgentID   string    `json:"agent_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	JobCode   string    `json:"job_code,omitempty"`
	Stats     sim.Stats `json:"stats"`
	CoachNote string    `json:"coach_note,omitempty"`
	BalanceCC int64     `json:"balance_cc"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
