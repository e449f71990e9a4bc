package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appagent "limbopet-arena/internal/app/agent"
	apppublic "limbopet-arena/internal/app/public"
	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/auth"

	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	writeErrorBody(w, status, errorBody{Error: code, Code: code})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeOK merges fields into a {success:true} envelope.
func writeOK(w http.ResponseWriter, fields map[string]any) {
	writeSuccess(w, http.StatusOK, fields)
}

func writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["success"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}

// writeServiceError maps a service error onto status and body. Unknown
// errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		metricHTTPErrors.Add(1)
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeErrorBody(w, status, body)
}

func errorResponse(err error) (int, errorBody) {
	if code := arena.Code(err); code != "" {
		return statusForClass(err), errorBody{Error: err.Error(), Code: code, Hint: hintFor(code)}
	}
	switch {
	case errors.Is(err, arena.ErrDependency):
		return http.StatusServiceUnavailable, errorBody{Error: "dependency_failure", Code: "DEPENDENCY_FAILURE", Hint: "Retry shortly."}
	case errors.Is(err, apppublic.ErrInvalidDay):
		return http.StatusBadRequest, errorBody{Error: "Day must be YYYY-MM-DD", Code: arena.Code(arena.ErrInvalidDay)}
	case errors.Is(err, apppublic.ErrInvalidRequest), errors.Is(err, appagent.ErrInvalidRequest):
		return http.StatusBadRequest, errorBody{Error: "invalid_request"}
	case errors.Is(err, appagent.ErrInactiveAgent):
		return http.StatusForbidden, errorBody{Error: "agent_inactive"}
	case errors.Is(err, appagent.ErrTokensDisabled), errors.Is(err, auth.ErrDisabled):
		return http.StatusServiceUnavailable, errorBody{Error: "tokens_disabled", Hint: "Set JWT_SECRET to enable bearer tokens."}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal_error"}
}

func statusForClass(err error) int {
	switch {
	case errors.Is(err, arena.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, arena.ErrDependency):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func hintFor(code string) string {
	switch code {
	case arena.Code(arena.ErrMatchNotLive):
		return "Live actions are accepted only while the match window is open."
	case arena.Code(arena.ErrInvalidAction):
		return "Use one of the mode's coaching actions, or clear."
	case arena.Code(arena.ErrNoOpponent):
		return "Try again later or pick another mode."
	case arena.Code(arena.ErrWindowExpired):
		return "Rematches can be requested within 24 hours of the result."
	case arena.Code(arena.ErrInsufficientFunds):
		return "Top up coins before requesting a rematch."
	}
	return ""
}
