package store

import (
	"context"

	errx "github.com/taskchat/server/internal/core/error"
	logx "github.com/taskchat/server/pkg/logger"
)

// CreateConversation starts a new conversation owned by the user.
func (s *Store) CreateConversation(ctx context.Context, userID string) (*Conversation, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id) VALUES (?)`, userID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to create conversation")
		return nil, errx.WrapStore(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	return s.GetConversation(ctx, userID, id)
}

// GetConversation fetches a conversation scoped by owner. A conversation that
// exists but belongs to another user is indistinguishable from a missing one.
func (s *Store) GetConversation(ctx context.Context, userID string, id int64) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at
		 FROM conversations WHERE id = ? AND user_id = ?`, id, userID)
	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, errx.WrapStore(err)
	}
	return &c, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, updated_at
		 FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to list conversations")
		return nil, errx.WrapStore(err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, errx.WrapStore(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapStore(err)
	}
	return out, nil
}

// TouchConversation bumps updated_at, used when a new turn lands.
func (s *Store) TouchConversation(ctx context.Context, userID string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return errx.WrapStore(err)
	}
	return nil
}
