package tools

import (
	"context"
	"fmt"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
)

type completeTaskTool struct {
	store *store.Store
}

func (t *completeTaskTool) Schema() Schema {
	return Schema{
		Name:        "complete_task",
		Description: "Mark a task as completed",
		Params: map[string]ParamSpec{
			"task_id": {
				Type:        TypeInteger,
				Description: "The task ID to complete (required)",
				Required:    true,
			},
		},
	}
}

func (t *completeTaskTool) Invoke(ctx context.Context, userID string, params map[string]any) Result {
	id, _ := intParam(params, "task_id")
	if id <= 0 {
		return Failure(errx.KindInvalidParams, "task_id must be a positive integer")
	}

	task, err := t.store.CompleteTask(ctx, userID, id)
	if err != nil {
		if errx.KindOf(err) == errx.KindNotFound {
			return Failure(errx.KindNotFound, fmt.Sprintf("task %d not found", id))
		}
		return Failure(errx.KindStore, "failed to complete task")
	}

	return Success(map[string]any{
		"task_id": task.ID,
		"title":   task.Title,
		"status":  "completed",
	})
}
