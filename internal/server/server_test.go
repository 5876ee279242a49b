package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/server/internal/agent/conversations"
	"github.com/taskchat/server/internal/agent/history"
	"github.com/taskchat/server/internal/agent/model"
	"github.com/taskchat/server/internal/agent/runner"
	"github.com/taskchat/server/internal/agent/tools"
	"github.com/taskchat/server/internal/store"
	pkgsqlite "github.com/taskchat/server/pkg/sqlite"
)

type fakeModel struct {
	responses []string
	calls     int
}

func (f *fakeModel) Generate(context.Context, []*schema.Message, ...einomodel.Option) (*schema.Message, error) {
	if f.calls >= len(f.responses) {
		return nil, errors.New("unexpected extra model call")
	}
	out := schema.AssistantMessage(f.responses[f.calls], nil)
	f.calls++
	return out, nil
}

func newTestServer(t *testing.T, fm *fakeModel) (*Server, *store.Store) {
	t.Helper()
	cfg := pkgsqlite.Config{Path: filepath.Join(t.TempDir(), "test.db"), BusyTimeout: 5000}
	db, err := cfg.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	require.NoError(t, st.InitSchema(context.Background()))

	registry := tools.NewRegistry(st)
	builder := conversations.NewBuilder(st, history.NewConverter(100, 30))
	rn, err := runner.New(fm, registry, builder, st,
		model.ChatModelConfig{Model: "gemini-2.5-flash"},
		model.AgentConfig{TimeoutSeconds: 10, ProviderName: "gemini"})
	require.NoError(t, err)

	srv, err := New(Config{Tokens: "alicetoken:alice,bobtoken:bob"}, rn, st, nil)
	require.NoError(t, err)
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodGet, "/api/alice/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec)["kind"])

	rec = doJSON(t, srv, http.MethodGet, "/api/alice/tasks", "wrongtoken", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec)["kind"])
}

func TestAuthUserMismatch(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodGet, "/api/alice/tasks", "bobtoken", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "user id mismatch", body["error"])
	assert.Equal(t, "unauthorized", body["kind"])
}

func TestChatValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/chat", "alicetoken",
		map[string]any{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation", body["kind"])
	assert.NotEmpty(t, body["request_id"])
}

func TestChatPlainResponse(t *testing.T) {
	srv, st := newTestServer(t, &fakeModel{responses: []string{"Hi! What can I do for you?"}})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/chat", "alicetoken",
		map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Hi! What can I do for you?", body["response"])
	assert.NotZero(t, body["conversation_id"])
	assert.Empty(t, body["tool_calls"])

	convID := int64(body["conversation_id"].(float64))
	msgs, err := st.ListMessages(context.Background(), "alice", convID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestChatWithToolRound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{responses: []string{
		`<TOOL_CALLS>{"tools":[{"name":"add_task","params":{"title":"buy milk"}}]}</TOOL_CALLS>`,
		"Added buy milk to your list.",
	}})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/chat", "alicetoken",
		map[string]any{"message": "add buy milk"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Added buy milk to your list.", body["response"])
	calls := body["tool_calls"].([]any)
	require.Len(t, calls, 1)
	call := calls[0].(map[string]any)
	assert.Equal(t, "add_task", call["tool"])
	assert.Equal(t, true, call["success"])

	// The created task is visible through the REST surface too.
	rec = doJSON(t, srv, http.MethodGet, "/api/alice/tasks", "alicetoken", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestChatContinuesConversation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{responses: []string{"first", "second"}})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/chat", "alicetoken",
		map[string]any{"message": "one"})
	require.Equal(t, http.StatusOK, rec.Code)
	convID := decode(t, rec)["conversation_id"].(float64)

	rec = doJSON(t, srv, http.MethodPost, "/api/alice/chat", "alicetoken",
		map[string]any{"message": "two", "conversation_id": convID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, convID, decode(t, rec)["conversation_id"])
}

func TestChatUnknownConversation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/chat", "alicetoken",
		map[string]any{"message": "hello", "conversation_id": 9999})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "context_not_found", decode(t, rec)["kind"])
}

func TestTaskRoutes(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/tasks", "alicetoken",
		map[string]any{"title": "buy milk", "description": "2l"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)
	taskID := int64(created["id"].(float64))
	assert.Equal(t, "buy milk", created["title"])
	assert.Equal(t, false, created["completed"])

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/alice/tasks/%d", taskID), "alicetoken", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/alice/tasks/%d", taskID), "alicetoken",
		map[string]any{"title": "buy oat milk", "completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)
	assert.Equal(t, "buy oat milk", updated["title"])
	assert.Equal(t, true, updated["completed"])

	rec = doJSON(t, srv, http.MethodGet, "/api/alice/tasks?status=completed", "alicetoken", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/alice/tasks/%d", taskID), "alicetoken", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/alice/tasks/%d", taskID), "alicetoken", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/tasks", "alicetoken",
		map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/alice/tasks?status=bogus", "alicetoken", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskIsolationAcrossUsers(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/tasks", "alicetoken",
		map[string]any{"title": "private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	taskID := int64(decode(t, rec)["id"].(float64))

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/bob/tasks/%d", taskID), "bobtoken", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversationRoutes(t *testing.T) {
	srv, _ := newTestServer(t, &fakeModel{responses: []string{"hello back"}})

	rec := doJSON(t, srv, http.MethodPost, "/api/alice/chat", "alicetoken",
		map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	convID := int64(decode(t, rec)["conversation_id"].(float64))

	rec = doJSON(t, srv, http.MethodGet, "/api/alice/conversations", "alicetoken", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/alice/conversations/%d/messages", convID), "alicetoken", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hello", first["content"])

	// A foreign conversation reads as missing, with the context kind.
	rec = doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/bob/conversations/%d/messages", convID), "bobtoken", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "context_not_found", decode(t, rec)["kind"])

	rec = doJSON(t, srv, http.MethodGet, "/api/alice/conversations/9999/messages", "alicetoken", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "context_not_found", decode(t, rec)["kind"])
}

func TestNewRejectsBadTokenSpec(t *testing.T) {
	_, err := newAuthenticator("")
	assert.Error(t, err)

	_, err = newAuthenticator("tokenwithoutuser")
	assert.Error(t, err)

	a, err := newAuthenticator("t1:alice, t2:bob")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t2")
	user, ok := a.resolve(req)
	assert.True(t, ok)
	assert.Equal(t, "bob", user)
}
