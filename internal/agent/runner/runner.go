package runner

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/taskchat/server/internal/agent/conversations"
	"github.com/taskchat/server/internal/agent/idmap"
	"github.com/taskchat/server/internal/agent/model"
	"github.com/taskchat/server/internal/agent/parsers"
	"github.com/taskchat/server/internal/agent/prompts"
	"github.com/taskchat/server/internal/agent/tools"
	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
	logx "github.com/taskchat/server/pkg/logger"
)

// state names the steps of one orchestration run. Transitions are strictly
// forward; failed is reachable from any step.
type state string

const (
	stateInit            state = "init"
	stateContextLoaded   state = "context_loaded"
	stateModelCalled     state = "model_called"
	stateParsedNoTools   state = "parsed_no_tools"
	stateParsedWithTools state = "parsed_with_tools"
	stateToolsExecuted   state = "tools_executed"
	stateFollowupCalled  state = "followup_called"
	stateDone            state = "done"
	stateFailed          state = "failed"
)

const (
	// maxMessageLen bounds the inbound user message, counted in runes.
	maxMessageLen = 4096
	// fallbackResponse is persisted when the model produced no usable text.
	fallbackResponse = "I couldn't generate a response. Please try again."

	defaultTimeout = 30 * time.Second
)

// Runner drives one request/response cycle: rebuild context, one model call,
// at most one batch of tool executions, one follow-up call, persist the turn.
// A Runner is safe for concurrent use; everything request-scoped (the ID
// mapper, the parsed context) lives on the stack of Run.
type Runner struct {
	cm           model.ChatModel
	registry     *tools.Registry
	builder      *conversations.Builder
	store        *store.Store
	modelName    string
	providerName string
	timeout      time.Duration
	systemPrompt string
}

// New wires a Runner. The system prompt, including the rendered tool schema,
// is computed once here: the tool set is closed, so it never changes per
// request.
func New(cm model.ChatModel, registry *tools.Registry, builder *conversations.Builder, st *store.Store, modelCfg model.ChatModelConfig, agentCfg model.AgentConfig) (*Runner, error) {
	schemaJSON, err := tools.RenderSchemaJSON(registry.Schemas())
	if err != nil {
		return nil, err
	}
	systemPrompt, err := prompts.RenderSystem(schemaJSON)
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if agentCfg.TimeoutSeconds > 0 {
		timeout = time.Duration(agentCfg.TimeoutSeconds) * time.Second
	}
	providerName := agentCfg.ProviderName
	if providerName == "" {
		providerName = "unknown"
	}

	return &Runner{
		cm:           cm,
		registry:     registry,
		builder:      builder,
		store:        st,
		modelName:    modelCfg.Model,
		providerName: providerName,
		timeout:      timeout,
		systemPrompt: systemPrompt,
	}, nil
}

// Run executes one full orchestration cycle for the authenticated user.
// conversationID nil starts a new conversation. The returned error, if any,
// carries an errx kind the endpoint can map to a status code; tool-level
// failures never surface here; they are folded into the follow-up model
// turn as data.
func (r *Runner) Run(ctx context.Context, userID string, conversationID *int64, message string) (*model.RunResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errx.Validation("message must not be empty")
	}
	if utf8.RuneCountInString(message) > maxMessageLen {
		return nil, errx.Validation("message exceeds 4096 characters")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Request-scoped: never shared across runs.
	mapper := idmap.New()

	st := stateInit
	started := time.Now()
	var totalCost float64

	fail := func(err error) (*model.RunResult, error) {
		logx.Error().
			Err(err).
			Str("user_id", userID).
			Str("state", string(st)).
			Dur("elapsed", time.Since(started)).
			Msg("orchestration run failed")
		return nil, err
	}

	// init -> context_loaded
	cctx, err := r.builder.Build(ctx, userID, conversationID)
	if err != nil {
		st = stateFailed
		return fail(err)
	}
	st = stateContextLoaded

	if _, err := r.store.AppendMessage(ctx, cctx.ConversationID, userID, store.RoleUser, message); err != nil {
		st = stateFailed
		return fail(err)
	}

	msgs := make([]*schema.Message, 0, len(cctx.Turns)+2)
	msgs = append(msgs, schema.SystemMessage(r.systemPrompt))
	msgs = append(msgs, cctx.Turns...)
	msgs = append(msgs, schema.UserMessage(message))

	// context_loaded -> model_called. One call, no retry: fail fast and let
	// the caller decide whether to resend.
	out, err := r.generate(ctx, msgs, "primary", &totalCost)
	if err != nil {
		st = stateFailed
		return fail(err)
	}
	st = stateModelCalled

	ext := parsers.ExtractToolCalls(out.Content)
	if ext.Err != nil {
		logx.Warn().
			Err(ext.Err).
			Str("user_id", userID).
			Int64("conversation_id", cctx.ConversationID).
			Msg("tool call block unusable, degrading to plain text")
	}

	var responseText string
	var executions []model.ToolExecution

	if len(ext.Calls) == 0 {
		st = stateParsedNoTools
		responseText = ext.Text
	} else {
		st = stateParsedWithTools

		executions = r.executeBatch(ctx, userID, mapper, ext.Calls)
		st = stateToolsExecuted

		followupText, err := r.followup(ctx, msgs, ext.Text, executions, &totalCost)
		if err != nil {
			// Tool effects are already committed and reported below; losing
			// the confirmation wording is the lesser evil, so degrade to the
			// first call's text instead of failing the whole run.
			logx.Warn().
				Err(err).
				Str("user_id", userID).
				Int64("conversation_id", cctx.ConversationID).
				Msg("follow-up model call failed, keeping primary response text")
			followupText = ext.Text
		}
		st = stateFollowupCalled
		responseText = followupText
	}

	if strings.TrimSpace(responseText) == "" {
		responseText = fallbackResponse
	}

	if _, err := r.store.AppendMessage(ctx, cctx.ConversationID, userID, store.RoleAssistant, responseText); err != nil {
		st = stateFailed
		return fail(err)
	}
	st = stateDone

	logx.Info().
		Str("user_id", userID).
		Int64("conversation_id", cctx.ConversationID).
		Int("tool_calls", len(executions)).
		Int("mapped_ids", mapper.Len()).
		Float64("total_cost_usd", totalCost).
		Dur("elapsed", time.Since(started)).
		Msg("orchestration run completed")

	return &model.RunResult{
		ConversationID: cctx.ConversationID,
		Response:       responseText,
		ToolCalls:      executions,
		TotalCostUSD:   totalCost,
	}, nil
}

// executeBatch runs tool calls strictly in the order the model listed them,
// injecting the authenticated user id. An ambiguous secondary-key lookup
// stops the rest of the batch: the disambiguation question goes back to the
// model instead of this code guessing. Cancellation between calls stops the
// batch too; a call already dispatched runs to completion.
func (r *Runner) executeBatch(ctx context.Context, userID string, mapper *idmap.Mapper, calls []parsers.ParsedCall) []model.ToolExecution {
	executions := make([]model.ToolExecution, 0, len(calls))
	for _, call := range calls {
		if ctx.Err() != nil {
			logx.Warn().
				Str("user_id", userID).
				Str("tool", call.Name).
				Msg("request cancelled, stopping tool batch")
			break
		}

		callID := mapper.Map(call.ProviderID, r.providerName)
		res := r.registry.Invoke(ctx, userID, call.Name, call.Params)
		executions = append(executions, model.ToolExecution{
			CallID:  callID,
			Tool:    call.Name,
			Params:  call.Params,
			Result:  res.AsMap(),
			Success: res.OK,
		})

		if res.ErrorKind == errx.KindAmbiguousTarget {
			logx.Info().
				Str("user_id", userID).
				Str("tool", call.Name).
				Msg("ambiguous target, halting tool batch for clarification")
			break
		}
	}
	return executions
}

// followup makes the second, final model call with the tool results folded
// in. Tool requests appearing in this response are logged and ignored: tool
// rounds are bounded to one per user turn.
func (r *Runner) followup(ctx context.Context, msgs []*schema.Message, firstText string, executions []model.ToolExecution, totalCost *float64) (string, error) {
	resultsMsg, err := prompts.ToolResultsMessage(executions)
	if err != nil {
		return "", errx.Internal(err)
	}

	followupMsgs := make([]*schema.Message, 0, len(msgs)+2)
	followupMsgs = append(followupMsgs, msgs...)
	followupMsgs = append(followupMsgs, schema.AssistantMessage(firstText, nil))
	followupMsgs = append(followupMsgs, schema.UserMessage(resultsMsg))

	out, err := r.generate(ctx, followupMsgs, "followup", totalCost)
	if err != nil {
		return "", err
	}

	ext := parsers.ExtractToolCalls(out.Content)
	if len(ext.Calls) > 0 {
		logx.Warn().
			Int("ignored_tool_calls", len(ext.Calls)).
			Msg("follow-up response requested tools; ignoring (one tool round per turn)")
	}
	return ext.Text, nil
}

// generate performs one model call and accounts its token cost.
func (r *Runner) generate(ctx context.Context, msgs []*schema.Message, phase string, totalCost *float64) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.WrapProvider(err)
	}

	out, err := r.cm.Generate(ctx, msgs)
	if err != nil {
		return nil, errx.WrapProvider(err)
	}
	if out == nil {
		return nil, errEmptyModelResponse
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		inC, outC, total := model.ComputeCost(usage, model.ResolvePricing(r.modelName))
		*totalCost += total
		logx.Debug().
			Str("phase", phase).
			Str("model", r.modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Msg("LLM usage")
	}

	return out, nil
}

var errEmptyModelResponse = errx.New(nil, errx.KindProviderError, http.StatusBadGateway, "empty model response")
