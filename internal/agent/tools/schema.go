package tools

import (
	"encoding/json"
	"sort"

	errx "github.com/taskchat/server/internal/core/error"
)

// ParamType is the declared wire type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
)

// ParamSpec declares one parameter of a tool: its type, whether the model
// must supply it, and any value constraints. Validation runs against this
// spec before a tool body ever sees the params.
type ParamSpec struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	MaxLength   int       `json:"maxLength,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// Schema is the declarative surface of a tool: what the prompt advertises to
// the model and what tests assert against.
type Schema struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Params      map[string]ParamSpec `json:"params"`
}

// Result is a tool outcome as data. Domain failures (missing task, ambiguous
// title, bad params) are carried in ErrorKind/Message and folded into the
// follow-up model turn, never returned as Go errors.
type Result struct {
	OK        bool
	Payload   map[string]any
	ErrorKind errx.Kind
	Message   string
}

func Success(payload map[string]any) Result {
	return Result{OK: true, Payload: payload}
}

func Failure(kind errx.Kind, message string) Result {
	return Result{ErrorKind: kind, Message: message}
}

// AsMap renders the result the way the follow-up turn and the original wire
// contract expect: the payload itself on success, {error_kind, message} on
// failure.
func (r Result) AsMap() map[string]any {
	if r.OK {
		if r.Payload == nil {
			return map[string]any{}
		}
		return r.Payload
	}
	return map[string]any{
		"error_kind": string(r.ErrorKind),
		"message":    r.Message,
	}
}

// RenderSchemaJSON produces the tool schema block embedded into the system
// prompt, ordered by tool name so the prompt is stable across runs.
func RenderSchemaJSON(schemas []Schema) (string, error) {
	ordered := make([]Schema, len(schemas))
	copy(ordered, schemas)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	b, err := json.MarshalIndent(map[string]any{"tools": ordered}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
