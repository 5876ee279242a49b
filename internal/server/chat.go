package server

import (
	"encoding/json"
	"net/http"

	errx "github.com/taskchat/server/internal/core/error"
)

type chatRequest struct {
	ConversationID *int64 `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

type chatToolCall struct {
	Tool    string         `json:"tool"`
	Params  map[string]any `json:"params"`
	Success bool           `json:"success"`
}

type chatResponse struct {
	ConversationID int64          `json:"conversation_id"`
	Response       string         `json:"response"`
	ToolCalls      []chatToolCall `json:"tool_calls"`
}

// handleChat is deliberately thin: decode, rate-gate, hand off to the runner,
// encode. All orchestration decisions live in the runner.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errx.Validation("invalid request body"))
		return
	}

	if err := s.limiter.Allow(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.runner.Run(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	calls := make([]chatToolCall, 0, len(result.ToolCalls))
	for _, ex := range result.ToolCalls {
		calls = append(calls, chatToolCall{Tool: ex.Tool, Params: ex.Params, Success: ex.Success})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: result.ConversationID,
		Response:       result.Response,
		ToolCalls:      calls,
	})
}
