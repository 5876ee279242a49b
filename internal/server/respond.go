package server

import (
	"encoding/json"
	"net/http"

	errx "github.com/taskchat/server/internal/core/error"
	logx "github.com/taskchat/server/pkg/logger"
)

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logx.Error().Err(err).Msg("failed to encode response body")
	}
}

// writeError maps an errx chain to a structured error response. Internal
// details never leave the process; clients get the safe message, the kind
// and a correlation id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().
			Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("request failed")
	}
	writeJSON(w, status, errorBody{
		Error:     errx.MessageOf(err),
		Kind:      string(errx.KindOf(err)),
		RequestID: requestIDFrom(r.Context()),
	})
}
