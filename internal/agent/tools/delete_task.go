package tools

import (
	"context"
	"fmt"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
)

type deleteTaskTool struct {
	store *store.Store
}

func (t *deleteTaskTool) Schema() Schema {
	return Schema{
		Name:        "delete_task",
		Description: "Delete a task by its ID, or by its exact title when the ID is unknown",
		Params: map[string]ParamSpec{
			"task_id": {
				Type:        TypeInteger,
				Description: "The task ID to delete (either this or task_name is required)",
			},
			"task_name": {
				Type:        TypeString,
				Description: "The exact task title to delete (either this or task_id is required)",
				MaxLength:   maxTextLen,
			},
		},
	}
}

func (t *deleteTaskTool) Invoke(ctx context.Context, userID string, params map[string]any) Result {
	id, hasID := intParam(params, "task_id")
	name, hasName := stringParam(params, "task_name")
	if !hasID && (!hasName || name == "") {
		return Failure(errx.KindInvalidParams, "either task_id or task_name must be provided")
	}
	if hasID && id <= 0 {
		return Failure(errx.KindInvalidParams, "task_id must be a positive integer")
	}

	// Resolve by title when no id was given. More than one match is an
	// ambiguity the model has to resolve with the user, never a guess.
	if !hasID {
		matches, err := t.store.FindTasksByTitle(ctx, userID, name)
		if err != nil {
			return Failure(errx.KindStore, "failed to look up task")
		}
		switch len(matches) {
		case 0:
			return Failure(errx.KindNotFound, fmt.Sprintf("task with name %q not found", name))
		case 1:
			id = matches[0].ID
		default:
			return Failure(errx.KindAmbiguousTarget,
				fmt.Sprintf("%d tasks are named %q; ask the user which task_id to delete", len(matches), name))
		}
	}

	task, err := t.store.GetTask(ctx, userID, id)
	if err != nil {
		if errx.KindOf(err) == errx.KindNotFound {
			return Failure(errx.KindNotFound, fmt.Sprintf("task %d not found", id))
		}
		return Failure(errx.KindStore, "failed to look up task")
	}

	if err := t.store.DeleteTask(ctx, userID, id); err != nil {
		if errx.KindOf(err) == errx.KindNotFound {
			return Failure(errx.KindNotFound, fmt.Sprintf("task %d not found", id))
		}
		return Failure(errx.KindStore, "failed to delete task")
	}

	return Success(map[string]any{
		"task_id": task.ID,
		"title":   task.Title,
		"status":  "deleted",
	})
}
