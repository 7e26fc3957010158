package db

import (
	"context"
	"database/sql"

	"github.com/existflow/taskflow/internal/model"
)

// CreateActivity appends a feed entry
func (s *Store) CreateActivity(ctx context.Context, a model.Activity) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO activities (id, type, user_id, task_id, workspace_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, string(a.Type), a.UserID, nullString(a.TaskID), a.WorkspaceID, a.Message, formatTime(a.CreatedAt),
	)
	return wrapWrite("create activity", err)
}

// ListActivities returns up to limit entries in scope, newest first
func (s *Store) ListActivities(ctx context.Context, scope Scope, limit int) ([]model.Activity, error) {
	cond, arg := scope.where("workspace_id")
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, type, user_id, task_id, workspace_id, message, created_at FROM activities
		WHERE `+cond+`
		ORDER BY created_at DESC
		LIMIT $2`, arg, limit)
	if err != nil {
		return nil, wrapRead("list activities", err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var (
			a               model.Activity
			kind, createdAt string
			taskID          sql.NullString
		)
		if err := rows.Scan(&a.ID, &kind, &a.UserID, &taskID, &a.WorkspaceID, &a.Message, &createdAt); err != nil {
			return nil, wrapRead("scan activity", err)
		}
		a.Type = model.ActivityType(kind)
		a.TaskID = stringPtr(taskID)
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, wrapRead("scan activity", err)
		}
		activities = append(activities, a)
	}
	return activities, wrapRead("list activities", rows.Err())
}
