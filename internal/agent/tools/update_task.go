package tools

import (
	"context"
	"fmt"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
)

type updateTaskTool struct {
	store *store.Store
}

func (t *updateTaskTool) Schema() Schema {
	return Schema{
		Name:        "update_task",
		Description: "Update a task's title or description",
		Params: map[string]ParamSpec{
			"task_id": {
				Type:        TypeInteger,
				Description: "The task ID to update (required)",
				Required:    true,
			},
			"title": {
				Type:        TypeString,
				Description: "New task title (optional, max 1000 chars)",
				MaxLength:   maxTextLen,
			},
			"description": {
				Type:        TypeString,
				Description: "New task description (optional, max 1000 chars)",
				MaxLength:   maxTextLen,
			},
		},
	}
}

func (t *updateTaskTool) Invoke(ctx context.Context, userID string, params map[string]any) Result {
	id, _ := intParam(params, "task_id")
	if id <= 0 {
		return Failure(errx.KindInvalidParams, "task_id must be a positive integer")
	}

	var title, description *string
	if v, ok := stringParam(params, "title"); ok {
		if v == "" {
			return Failure(errx.KindInvalidParams, "title must not be empty")
		}
		title = &v
	}
	if v, ok := stringParam(params, "description"); ok {
		description = &v
	}
	if title == nil && description == nil {
		return Failure(errx.KindInvalidParams, "at least one of title or description must be provided")
	}

	task, err := t.store.UpdateTask(ctx, userID, id, title, description)
	if err != nil {
		if errx.KindOf(err) == errx.KindNotFound {
			return Failure(errx.KindNotFound, fmt.Sprintf("task %d not found", id))
		}
		return Failure(errx.KindStore, "failed to update task")
	}

	return Success(map[string]any{
		"task_id":     task.ID,
		"title":       task.Title,
		"description": task.Description,
		"status":      "updated",
	})
}
