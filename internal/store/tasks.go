package store

import (
	"context"
	"database/sql"

	errx "github.com/taskchat/server/internal/core/error"
	logx "github.com/taskchat/server/pkg/logger"
)

// StatusFilter narrows task listings.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

func (f StatusFilter) Valid() bool {
	return f == StatusAll || f == StatusPending || f == StatusCompleted
}

// CreateTask inserts a task for the user and returns it with generated fields.
func (s *Store) CreateTask(ctx context.Context, userID, title, description string) (*Task, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description) VALUES (?, ?, ?)`,
		userID, title, description)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to create task")
		return nil, errx.WrapStore(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	return s.GetTask(ctx, userID, id)
}

// GetTask fetches one task scoped by user. Missing rows map to a domain not-found.
func (s *Store) GetTask(ctx context.Context, userID string, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, completed, created_at, updated_at
		 FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	return scanTask(row)
}

// ListTasks returns the user's tasks, newest first, optionally narrowed by status.
func (s *Store) ListTasks(ctx context.Context, userID string, filter StatusFilter) ([]Task, error) {
	q := `SELECT id, user_id, title, description, completed, created_at, updated_at
	      FROM tasks WHERE user_id = ?`
	args := []any{userID}
	switch filter {
	case StatusPending:
		q += ` AND completed = 0`
	case StatusCompleted:
		q += ` AND completed = 1`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to list tasks")
		return nil, errx.WrapStore(err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var completed int
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errx.WrapStore(err)
		}
		t.Completed = completed != 0
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapStore(err)
	}
	return tasks, nil
}

// FindTasksByTitle returns every task of the user whose title matches exactly.
// Callers that need a single target must treat len > 1 as ambiguous instead of
// picking one.
func (s *Store) FindTasksByTitle(ctx context.Context, userID, title string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, completed, created_at, updated_at
		 FROM tasks WHERE user_id = ? AND title = ? ORDER BY id`, userID, title)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to find tasks by title")
		return nil, errx.WrapStore(err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var completed int
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errx.WrapStore(err)
		}
		t.Completed = completed != 0
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapStore(err)
	}
	return tasks, nil
}

// CompleteTask marks a task completed. Returns the updated task or not-found.
func (s *Store) CompleteTask(ctx context.Context, userID string, id int64) (*Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Int64("task_id", id).Msg("failed to complete task")
		return nil, errx.WrapStore(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errx.NotFound("task not found")
	}
	return s.GetTask(ctx, userID, id)
}

// UpdateTask changes title and/or description. Nil pointers leave the field as is.
func (s *Store) UpdateTask(ctx context.Context, userID string, id int64, title, description *string) (*Task, error) {
	cur, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	newTitle := cur.Title
	if title != nil {
		newTitle = *title
	}
	newDesc := cur.Description
	if description != nil {
		newDesc = *description
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`, newTitle, newDesc, id, userID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Int64("task_id", id).Msg("failed to update task")
		return nil, errx.WrapStore(err)
	}
	return s.GetTask(ctx, userID, id)
}

// DeleteTask permanently removes a task. No tombstone is kept.
func (s *Store) DeleteTask(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Int64("task_id", id).Msg("failed to delete task")
		return errx.WrapStore(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errx.NotFound("task not found")
	}
	return nil
}

func scanTask(row *sql.Row) (*Task, error) {
	var t Task
	var completed int
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	t.Completed = completed != 0
	return &t, nil
}
