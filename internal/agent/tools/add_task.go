package tools

import (
	"context"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
)

type addTaskTool struct {
	store *store.Store
}

func (t *addTaskTool) Schema() Schema {
	return Schema{
		Name:        "add_task",
		Description: "Create a new task for the user",
		Params: map[string]ParamSpec{
			"title": {
				Type:        TypeString,
				Description: "Task title (required, max 1000 chars)",
				Required:    true,
				MaxLength:   maxTextLen,
			},
			"description": {
				Type:        TypeString,
				Description: "Task description (optional, max 1000 chars)",
				MaxLength:   maxTextLen,
			},
		},
	}
}

func (t *addTaskTool) Invoke(ctx context.Context, userID string, params map[string]any) Result {
	title, _ := stringParam(params, "title")
	if title == "" {
		return Failure(errx.KindInvalidParams, "title must not be empty")
	}
	description, _ := stringParam(params, "description")

	task, err := t.store.CreateTask(ctx, userID, title, description)
	if err != nil {
		return Failure(errx.KindStore, "failed to create task")
	}

	return Success(map[string]any{
		"task_id": task.ID,
		"title":   task.Title,
		"status":  "created",
	})
}
