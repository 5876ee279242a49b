package store

import (
	"context"

	errx "github.com/taskchat/server/internal/core/error"
	logx "github.com/taskchat/server/pkg/logger"
)

// AppendMessage persists one turn. Messages are append-only; there is no
// update or delete path on purpose.
func (s *Store) AppendMessage(ctx context.Context, conversationID int64, userID string, role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, errx.Validation("invalid message role")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, user_id, role, content) VALUES (?, ?, ?, ?)`,
		conversationID, userID, role, content)
	if err != nil {
		logx.Error().Err(err).
			Str("user_id", userID).
			Int64("conversation_id", conversationID).
			Msg("failed to append message")
		return nil, errx.WrapStore(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errx.WrapStore(err)
	}

	if err := s.TouchConversation(ctx, userID, conversationID); err != nil {
		// The message itself committed; a stale updated_at only affects listing order.
		logx.Warn().Err(err).Int64("conversation_id", conversationID).Msg("failed to touch conversation")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, user_id, role, content, created_at
		 FROM messages WHERE id = ?`, id)
	var m Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
		return nil, errx.WrapStore(err)
	}
	return &m, nil
}

// ListMessages returns all messages of a conversation in (created_at, id)
// order, oldest first. This ordering is the contract the history converter
// relies on; ties on created_at are broken by id.
func (s *Store) ListMessages(ctx context.Context, userID string, conversationID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, user_id, role, content, created_at
		 FROM messages WHERE conversation_id = ? AND user_id = ?
		 ORDER BY created_at ASC, id ASC`, conversationID, userID)
	if err != nil {
		logx.Error().Err(err).
			Str("user_id", userID).
			Int64("conversation_id", conversationID).
			Msg("failed to list messages")
		return nil, errx.WrapStore(err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, errx.WrapStore(err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapStore(err)
	}
	return msgs, nil
}

// CountMessages returns the number of persisted messages in a conversation.
func (s *Store) CountMessages(ctx context.Context, userID string, conversationID int64) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, errx.WrapStore(err)
	}
	return n, nil
}
