package tools

import (
	"context"
	"time"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
)

type listTasksTool struct {
	store *store.Store
}

func (t *listTasksTool) Schema() Schema {
	return Schema{
		Name:        "list_tasks",
		Description: "Retrieve the user's tasks, optionally filtered by status",
		Params: map[string]ParamSpec{
			"status": {
				Type:        TypeString,
				Description: "Filter by status (optional, default: all)",
				Enum:        []string{"all", "pending", "completed"},
			},
		},
	}
}

func (t *listTasksTool) Invoke(ctx context.Context, userID string, params map[string]any) Result {
	filter := store.StatusAll
	if s, ok := stringParam(params, "status"); ok && s != "" {
		filter = store.StatusFilter(s)
	}
	if !filter.Valid() {
		return Failure(errx.KindInvalidParams, "status must be one of: all, pending, completed")
	}

	tasks, err := t.store.ListTasks(ctx, userID, filter)
	if err != nil {
		return Failure(errx.KindStore, "failed to retrieve tasks")
	}

	items := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, map[string]any{
			"id":          task.ID,
			"title":       task.Title,
			"description": task.Description,
			"completed":   task.Completed,
			"created_at":  task.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return Success(map[string]any{
		"tasks":  items,
		"count":  len(items),
		"status": string(filter),
	})
}
