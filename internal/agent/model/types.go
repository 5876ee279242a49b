package model

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is the narrow surface of an eino chat model the runner depends on.
// The production implementation is the eino-ext Gemini model; tests substitute
// a local fake.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// ToolExecution records one executed (or rejected) tool call for the
// follow-up model turn and the final API response.
type ToolExecution struct {
	CallID  int64          `json:"call_id"`
	Tool    string         `json:"tool"`
	Params  map[string]any `json:"params"`
	Result  map[string]any `json:"result"`
	Success bool           `json:"success"`
}

// RunResult is the outcome of one completed orchestration run.
type RunResult struct {
	ConversationID int64
	Response       string
	ToolCalls      []ToolExecution
	TotalCostUSD   float64
}
