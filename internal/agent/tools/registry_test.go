package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
	pkgsqlite "github.com/taskchat/server/pkg/sqlite"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	cfg := pkgsqlite.Config{Path: filepath.Join(t.TempDir(), "test.db"), BusyTimeout: 5000}
	db, err := cfg.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	require.NoError(t, st.InitSchema(context.Background()))
	require.NoError(t, st.EnsureUser(context.Background(), "alice"))
	return NewRegistry(st), st
}

func TestRegistryAdvertisesAllTools(t *testing.T) {
	r, _ := newTestRegistry(t)

	schemas := r.Schemas()
	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"add_task", "complete_task", "delete_task", "list_tasks", "update_task"}, names)
}

func TestInvokeUnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Invoke(context.Background(), "alice", "launch_rocket", nil)
	assert.False(t, res.OK)
	assert.Equal(t, errx.KindToolNotFound, res.ErrorKind)
}

func TestInvokeValidationFailures(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		tool   string
		params map[string]any
	}{
		{name: "missing required title", tool: "add_task", params: map[string]any{}},
		{name: "title wrong type", tool: "add_task", params: map[string]any{"title": 42}},
		{name: "title too long", tool: "add_task", params: map[string]any{"title": strings.Repeat("a", 1001)}},
		{name: "bad status enum", tool: "list_tasks", params: map[string]any{"status": "done"}},
		{name: "non-integer task id", tool: "complete_task", params: map[string]any{"task_id": "abc"}},
		{name: "fractional task id", tool: "complete_task", params: map[string]any{"task_id": 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Invoke(ctx, "alice", tt.tool, tt.params)
			assert.False(t, res.OK)
			assert.Equal(t, errx.KindInvalidParams, res.ErrorKind)
		})
	}
}

func TestAddThenListThenComplete(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	res := r.Invoke(ctx, "alice", "add_task", map[string]any{"title": "buy milk", "description": "2l"})
	require.True(t, res.OK)
	assert.Equal(t, "created", res.Payload["status"])
	taskID := res.Payload["task_id"].(int64)

	res = r.Invoke(ctx, "alice", "list_tasks", map[string]any{"status": "pending"})
	require.True(t, res.OK)
	assert.Equal(t, 1, res.Payload["count"])

	// JSON-decoded params arrive as float64; the registry must accept them.
	res = r.Invoke(ctx, "alice", "complete_task", map[string]any{"task_id": float64(taskID)})
	require.True(t, res.OK)
	assert.Equal(t, "completed", res.Payload["status"])

	res = r.Invoke(ctx, "alice", "list_tasks", map[string]any{"status": "pending"})
	require.True(t, res.OK)
	assert.Equal(t, 0, res.Payload["count"])
}

func TestCompleteMissingTask(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Invoke(context.Background(), "alice", "complete_task", map[string]any{"task_id": 999})
	assert.False(t, res.OK)
	assert.Equal(t, errx.KindNotFound, res.ErrorKind)
}

func TestUpdateTask(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	res := r.Invoke(ctx, "alice", "add_task", map[string]any{"title": "old title"})
	require.True(t, res.OK)
	taskID := res.Payload["task_id"].(int64)

	res = r.Invoke(ctx, "alice", "update_task", map[string]any{"task_id": taskID, "title": "new title"})
	require.True(t, res.OK)
	assert.Equal(t, "new title", res.Payload["title"])
	assert.Equal(t, "updated", res.Payload["status"])

	res = r.Invoke(ctx, "alice", "update_task", map[string]any{"task_id": taskID})
	assert.False(t, res.OK)
	assert.Equal(t, errx.KindInvalidParams, res.ErrorKind)
}

func TestDeleteTaskByID(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	res := r.Invoke(ctx, "alice", "add_task", map[string]any{"title": "temp"})
	require.True(t, res.OK)
	taskID := res.Payload["task_id"].(int64)

	res = r.Invoke(ctx, "alice", "delete_task", map[string]any{"task_id": taskID})
	require.True(t, res.OK)
	assert.Equal(t, "deleted", res.Payload["status"])

	res = r.Invoke(ctx, "alice", "delete_task", map[string]any{"task_id": taskID})
	assert.False(t, res.OK)
	assert.Equal(t, errx.KindNotFound, res.ErrorKind)
}

func TestDeleteTaskByName(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	res := r.Invoke(ctx, "alice", "add_task", map[string]any{"title": "unique name"})
	require.True(t, res.OK)

	res = r.Invoke(ctx, "alice", "delete_task", map[string]any{"task_name": "unique name"})
	require.True(t, res.OK)
	assert.Equal(t, "unique name", res.Payload["title"])
}

func TestDeleteTaskAmbiguousName(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res := r.Invoke(ctx, "alice", "add_task", map[string]any{"title": "dupe"})
		require.True(t, res.OK)
	}

	res := r.Invoke(ctx, "alice", "delete_task", map[string]any{"task_name": "dupe"})
	assert.False(t, res.OK)
	assert.Equal(t, errx.KindAmbiguousTarget, res.ErrorKind)
	assert.Contains(t, res.Message, "ask the user")

	// Nothing was deleted.
	list := r.Invoke(ctx, "alice", "list_tasks", nil)
	require.True(t, list.OK)
	assert.Equal(t, 2, list.Payload["count"])
}

func TestDeleteTaskRequiresTarget(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Invoke(context.Background(), "alice", "delete_task", map[string]any{})
	assert.False(t, res.OK)
	assert.Equal(t, errx.KindInvalidParams, res.ErrorKind)
}

func TestResultAsMap(t *testing.T) {
	ok := Success(map[string]any{"task_id": int64(1)})
	assert.Equal(t, map[string]any{"task_id": int64(1)}, ok.AsMap())

	fail := Failure(errx.KindNotFound, "task 9 not found")
	assert.Equal(t, map[string]any{
		"error_kind": "not_found",
		"message":    "task 9 not found",
	}, fail.AsMap())
}

func TestRenderSchemaJSONStableOrder(t *testing.T) {
	r, _ := newTestRegistry(t)

	out, err := RenderSchemaJSON(r.Schemas())
	require.NoError(t, err)
	assert.True(t, strings.Index(out, "add_task") < strings.Index(out, "complete_task"))
	assert.True(t, strings.Index(out, "complete_task") < strings.Index(out, "update_task"))
	assert.Contains(t, out, `"tools"`)
}
