package history

import (
	"github.com/cloudwego/eino/schema"

	"github.com/taskchat/server/internal/store"
	logx "github.com/taskchat/server/pkg/logger"
)

const (
	// DefaultSoftLimit is the persisted-message count above which the default
	// pagination applies when the caller gives no explicit limit.
	DefaultSoftLimit = 100
	// DefaultRecentWindow is how many most-recent messages survive pagination.
	DefaultRecentWindow = 30
)

// Converter maps persisted messages to the model-facing turn format and
// applies the pagination policy. Zero-valued limits fall back to the defaults.
type Converter struct {
	SoftLimit    int
	RecentWindow int
}

func NewConverter(softLimit, recentWindow int) *Converter {
	if softLimit <= 0 {
		softLimit = DefaultSoftLimit
	}
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	return &Converter{SoftLimit: softLimit, RecentWindow: recentWindow}
}

// ToTurns converts messages (already ordered oldest to newest) into model
// turns, preserving order.
//
// Pagination: with limit <= 0 the default policy applies: conversations with
// more than SoftLimit persisted messages keep only the RecentWindow most
// recent ones, everything else is passed through whole. An explicit positive
// limit keeps the last `limit` messages.
//
// Conversion is total: a malformed message (unknown role, empty content) is
// skipped with a warning rather than aborting the batch, so one bad row never
// breaks context reconstruction.
func (c *Converter) ToTurns(messages []store.Message, limit int) []*schema.Message {
	if len(messages) == 0 {
		return []*schema.Message{}
	}

	window := messages
	switch {
	case limit > 0:
		window = trimTail(messages, limit)
	case len(messages) > c.SoftLimit:
		window = trimTail(messages, c.RecentWindow)
		logx.Info().
			Int("total_messages", len(messages)).
			Int("kept_messages", len(window)).
			Msg("history paginated to recent window")
	}

	turns := make([]*schema.Message, 0, len(window))
	for _, m := range window {
		t := toTurn(m)
		if t == nil {
			logx.Warn().
				Int64("message_id", m.ID).
				Str("role", string(m.Role)).
				Msg("skipping malformed message during history conversion")
			continue
		}
		turns = append(turns, t)
	}
	return turns
}

func toTurn(m store.Message) *schema.Message {
	if m.Content == "" {
		return nil
	}
	switch m.Role {
	case store.RoleUser:
		return schema.UserMessage(m.Content)
	case store.RoleAssistant:
		return schema.AssistantMessage(m.Content, nil)
	default:
		return nil
	}
}

// trimTail keeps the last max elements, copying so callers cannot alias the input.
func trimTail(messages []store.Message, max int) []store.Message {
	if len(messages) <= max {
		result := make([]store.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-max:]
	result := make([]store.Message, len(source))
	copy(result, source)
	return result
}
