package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/taskchat/server/internal/agent/history"
	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
	logx "github.com/taskchat/server/pkg/logger"
)

// Context is the reconstructed conversation state for one run.
type Context struct {
	ConversationID int64
	Turns          []*schema.Message
	MessageCount   int
}

// Builder reconstructs conversation context from the turn store. It is
// invoked fresh on every request and holds no per-conversation state, which
// is what keeps the server stateless between requests.
type Builder struct {
	store     *store.Store
	converter *history.Converter
}

func NewBuilder(st *store.Store, converter *history.Converter) *Builder {
	return &Builder{store: st, converter: converter}
}

// Build loads (or creates) the conversation and replays its history as model
// turns.
//
// A nil conversationID starts a fresh conversation for the user. A supplied
// id that does not exist, or that belongs to a different user, fails with a
// context-not-found error. Ownership violations are never reported
// differently from absence, and nothing is silently created in that case.
func (b *Builder) Build(ctx context.Context, userID string, conversationID *int64) (*Context, error) {
	if conversationID == nil {
		conv, err := b.store.CreateConversation(ctx, userID)
		if err != nil {
			return nil, err
		}
		logx.Info().
			Str("user_id", userID).
			Int64("conversation_id", conv.ID).
			Msg("new conversation created")
		return &Context{ConversationID: conv.ID, Turns: []*schema.Message{}}, nil
	}

	conv, err := b.store.GetConversation(ctx, userID, *conversationID)
	if err != nil {
		if errx.KindOf(err) == errx.KindNotFound {
			logx.Warn().
				Str("user_id", userID).
				Int64("conversation_id", *conversationID).
				Msg("conversation not found or not owned by user")
			return nil, errx.ContextNotFound("conversation not found")
		}
		return nil, err
	}

	msgs, err := b.store.ListMessages(ctx, userID, conv.ID)
	if err != nil {
		return nil, err
	}

	turns := b.converter.ToTurns(msgs, 0)
	logx.Debug().
		Str("user_id", userID).
		Int64("conversation_id", conv.ID).
		Int("total_messages", len(msgs)).
		Int("context_turns", len(turns)).
		Msg("conversation context built")

	return &Context{
		ConversationID: conv.ID,
		Turns:          turns,
		MessageCount:   len(msgs),
	}, nil
}
