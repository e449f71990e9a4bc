package agent

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrTokensDisabled = errors.New("tokens_disabled")
	ErrInactiveAgent  = errors.New("agent_inactive")
)
