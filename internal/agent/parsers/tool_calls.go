package parsers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	errx "github.com/taskchat/server/internal/core/error"
	logx "github.com/taskchat/server/pkg/logger"
)

const (
	startMarker = "<TOOL_CALLS>"
	endMarker   = "</TOOL_CALLS>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB of model output
	maxBlockLen   = 32 * 1024  // 32KB tool-call block
	maxCalls      = 16         // tool calls per block
	maxNameLen    = 128
	maxErrSnippet = 200
)

// ParsedCall is one tool request lifted out of the delimited block, before
// the per-run ID mapper assigns it a collision-free id.
type ParsedCall struct {
	ProviderID string
	Name       string
	Params     map[string]any
}

// Extraction is the parser outcome. Err is set when the block was present but
// unusable. It is an observability flag, not a failure: a broken block
// degrades to "no action taken", never to guessed parameters.
type Extraction struct {
	Text  string
	Calls []ParsedCall
	Err   error
}

// toolCallsPayload mirrors the JSON sub-protocol the model is prompted to emit:
//
//	<TOOL_CALLS>{"tools":[{"name":"add_task","params":{"title":"..."}}]}</TOOL_CALLS>
type toolCallsPayload struct {
	Tools []struct {
		ID     any            `json:"id,omitempty"`
		Name   string         `json:"name"`
		Params map[string]any `json:"params"`
	} `json:"tools"`
}

// ExtractToolCalls splits model output into user-facing text and the tool
// calls embedded in its delimited block. Output with no block at all is
// returned verbatim as text with an empty call list.
func ExtractToolCalls(content string) (ext *Extraction) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "tool_call_parser").Msgf("panic recovered: %v", r)
			ext = &Extraction{
				Text: "",
				Err:  errx.New(fmt.Errorf("tool call parser panic"), errx.KindParseError, http.StatusInternalServerError, "malformed tool call block"),
			}
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "tool_call_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}

	start, end := findBlock(content)
	if start < 0 {
		return &Extraction{Text: strings.TrimSpace(content)}
	}

	text := strings.TrimSpace(content[:start])

	if end < 0 {
		// Opening marker without a close: the output was likely truncated
		// mid-block. Degrade to the surrounding text.
		return &Extraction{
			Text: text,
			Err:  parseError("tool call block not terminated"),
		}
	}

	if tail := strings.TrimSpace(content[end+len(endMarker):]); tail != "" {
		if text != "" {
			text += "\n"
		}
		text += tail
	}

	block := strings.TrimSpace(content[start+len(startMarker) : end])
	if len(block) > maxBlockLen {
		return &Extraction{
			Text: text,
			Err:  parseError("tool call block too large"),
		}
	}
	if block == "" {
		return &Extraction{Text: text}
	}

	var payload toolCallsPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		logx.Warn().
			Str("component", "tool_call_parser").
			Str("snippet", safeSnippet(block)).
			Err(err).
			Msg("failed to parse tool call block")
		return &Extraction{
			Text: text,
			Err:  parseError("tool call block is not valid JSON"),
		}
	}

	calls := make([]ParsedCall, 0, len(payload.Tools))
	for i, t := range payload.Tools {
		if len(calls) >= maxCalls {
			logx.Warn().
				Str("component", "tool_call_parser").
				Int("max_calls", maxCalls).
				Msg("tool call count capped")
			break
		}
		name := strings.TrimSpace(t.Name)
		if name == "" || len(name) > maxNameLen {
			logx.Warn().
				Str("component", "tool_call_parser").
				Int("index", i).
				Msg("skipping tool call with missing or oversized name")
			continue
		}
		params := t.Params
		if params == nil {
			params = map[string]any{}
		}
		calls = append(calls, ParsedCall{
			ProviderID: providerID(t.ID, i),
			Name:       name,
			Params:     params,
		})
	}

	return &Extraction{Text: text, Calls: calls}
}

// findBlock locates the delimiters case-insensitively and returns byte
// offsets into the original string. The search runs over the original bytes:
// lowercasing a copy first would shift offsets whenever a rune changes byte
// length under case mapping (U+212A KELVIN SIGN is the classic case).
func findBlock(content string) (start, end int) {
	start = indexFold(content, startMarker)
	if start < 0 {
		return -1, -1
	}
	end = indexFold(content[start+len(startMarker):], endMarker)
	if end < 0 {
		return start, -1
	}
	return start, start + len(startMarker) + end
}

// indexFold reports the first occurrence of the ASCII marker in s, ignoring
// ASCII case. Offsets stay valid in s because nothing is transformed.
func indexFold(s, marker string) int {
	n := len(marker)
	for i := 0; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], marker) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// providerID normalizes whatever identifier the model attached to a call.
// Models frequently emit small reused integers here, which is exactly what
// the per-run ID mapper exists to disambiguate.
func providerID(raw any, index int) string {
	if raw == nil {
		return fmt.Sprintf("call-%d", index)
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}

func parseError(detail string) error {
	return errx.New(fmt.Errorf("%s", detail), errx.KindParseError, http.StatusOK, detail)
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
