package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	errx "github.com/taskchat/server/internal/core/error"
)

type conversationView struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type messageView struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, conversationView{
			ID:        c.ID,
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": views, "count": len(views)})
}

// handleListMessages returns the full stored transcript in chronological
// order. Unlike the model context, this endpoint never truncates.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(mux.Vars(r)["conversationId"], 10, 64)
	if err != nil {
		writeError(w, r, errx.Validation("invalid conversation id"))
		return
	}

	userID := userIDFrom(r.Context())
	if _, err := s.store.GetConversation(r.Context(), userID, conversationID); err != nil {
		if errx.KindOf(err) == errx.KindNotFound {
			err = errx.ContextNotFound("conversation not found")
		}
		writeError(w, r, err)
		return
	}

	msgs, err := s.store.ListMessages(r.Context(), userID, conversationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        views,
		"count":           len(views),
	})
}
