package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/taskchat/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var systemPromptTemplate string

// RenderSystem renders the system prompt with the tool schema block the
// registry advertises. The prompt carries the whole tool-call sub-protocol:
// the model is instructed to append its tool requests in a delimited
// <TOOL_CALLS> JSON block that the response parser understands.
func RenderSystem(toolSchemaJSON string) (string, error) {
	tpl, err := template.New("system_prompt").Parse(systemPromptTemplate)
	if err != nil {
		return "", fmt.Errorf("parse system prompt template: %w", err)
	}

	var sb strings.Builder
	if err := tpl.Execute(&sb, map[string]any{"ToolSchema": toolSchemaJSON}); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return sb.String(), nil
}

// ToolResultsMessage renders executed tool calls into the follow-up user turn,
// matching the shape the system prompt teaches the model to expect.
func ToolResultsMessage(executions []model.ToolExecution) (string, error) {
	type entry struct {
		Tool    string         `json:"tool"`
		Params  map[string]any `json:"params"`
		Result  map[string]any `json:"result"`
		Success bool           `json:"success"`
	}
	entries := make([]entry, 0, len(executions))
	for _, ex := range executions {
		entries = append(entries, entry{
			Tool:    ex.Tool,
			Params:  ex.Params,
			Result:  ex.Result,
			Success: ex.Success,
		})
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tool results: %w", err)
	}
	return "Tool execution results:\n" + string(b), nil
}
