package tools

import (
	"context"
	"fmt"
	"sort"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
	logx "github.com/taskchat/server/pkg/logger"
)

// maxTextLen bounds user-visible text fields, matching the persisted column
// expectations.
const maxTextLen = 1000

// Tool is one named task operation. Implementations read the authenticated
// user id from the Invoke argument only, never from params. That is the
// single enforcement point keeping a manipulated model response away from
// other users' data.
type Tool interface {
	Schema() Schema
	Invoke(ctx context.Context, userID string, params map[string]any) Result
}

// Registry holds the closed set of task tools. Adding a tool is a single
// registration in NewRegistry; there is no dynamic loading.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry registers every task tool over the given store.
func NewRegistry(st *store.Store) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	r.register(&addTaskTool{store: st})
	r.register(&listTasksTool{store: st})
	r.register(&completeTaskTool{store: st})
	r.register(&deleteTaskTool{store: st})
	r.register(&updateTaskTool{store: st})
	return r
}

func (r *Registry) register(t Tool) {
	name := t.Schema().Name
	if name == "" {
		panic("tool with empty name")
	}
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tool already registered: %s", name))
	}
	r.tools[name] = t
}

// Schemas returns all tool schemas sorted by name.
func (r *Registry) Schemas() []Schema {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Schema, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name].Schema())
	}
	return out
}

// Invoke validates params against the tool's schema and dispatches. Unknown
// tools and invalid params come back as failure Results, not errors: the
// runner folds them into the follow-up model turn as data.
func (r *Registry) Invoke(ctx context.Context, userID, name string, params map[string]any) Result {
	t, ok := r.tools[name]
	if !ok {
		logx.Warn().Str("tool", name).Msg("unknown tool requested")
		return Failure(errx.KindToolNotFound, fmt.Sprintf("tool %q not found", name))
	}
	if params == nil {
		params = map[string]any{}
	}
	if fail := validateParams(t.Schema(), params); fail != nil {
		logx.Warn().
			Str("tool", name).
			Str("user_id", userID).
			Str("reason", fail.Message).
			Msg("tool params rejected")
		return *fail
	}

	res := t.Invoke(ctx, userID, params)
	logx.Info().
		Str("tool", name).
		Str("user_id", userID).
		Bool("success", res.OK).
		Msg("tool executed")
	return res
}
