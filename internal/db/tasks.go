package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/existflow/taskflow/internal/model"
)

const taskColumns = `t.id, t.workspace_id, t.title, t.description, t.status, t.priority, t.category_id,
	t.due_date, t.assignee_id, t.tags, t.progress, t.created_at, t.updated_at`

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                    model.Task
		status, priority     string
		dueDate, assigneeID  sql.NullString
		tags                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &t.WorkspaceID, &t.Title, &t.Description, &status, &priority, &t.CategoryID,
		&dueDate, &assigneeID, &tags, &t.Progress, &createdAt, &updatedAt); err != nil {
		return model.Task{}, err
	}

	t.Status = model.StatusFromDB(status)
	t.Priority = model.Priority(priority)
	t.AssigneeID = stringPtr(assigneeID)
	t.Subtasks = []model.Subtask{}

	due, err := parseNullTime(dueDate)
	if err != nil {
		return model.Task{}, err
	}
	if due != nil {
		t.DueDate = &model.Date{Time: *due}
	}

	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return model.Task{}, fmt.Errorf("decode tags: %w", err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func dueDateValue(d *model.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(d.Time), Valid: true}
}

// CreateTask inserts t and its subtasks. Subtask ids must already be set.
func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO tasks (id, workspace_id, title, description, status, priority, category_id,
			due_date, assignee_id, tags, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.WorkspaceID, t.Title, t.Description, t.Status.DBValue(), string(t.Priority), t.CategoryID,
		dueDateValue(t.DueDate), nullString(t.AssigneeID), tags, t.Progress,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return wrapWrite("create task", err)
	}

	for i, st := range t.Subtasks {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO subtasks (id, task_id, title, completed, position)
			VALUES ($1, $2, $3, $4, $5)`,
			st.ID, t.ID, st.Title, st.Completed, i,
		)
		if err != nil {
			return wrapWrite("create subtask", err)
		}
	}
	return nil
}

// GetTask returns a task with its subtasks
func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return model.Task{}, wrapRead("get task", err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, task_id, title, completed FROM subtasks WHERE task_id = $1 ORDER BY position ASC`, id)
	if err != nil {
		return model.Task{}, wrapRead("list subtasks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st model.Subtask
		var taskID string
		if err := rows.Scan(&st.ID, &taskID, &st.Title, &st.Completed); err != nil {
			return model.Task{}, wrapRead("scan subtask", err)
		}
		t.Subtasks = append(t.Subtasks, st)
	}
	return t, wrapRead("list subtasks", rows.Err())
}

// ListTasks returns the tasks in scope, most recently updated first
func (s *Store) ListTasks(ctx context.Context, scope Scope) ([]model.Task, error) {
	cond, arg := scope.where("t.workspace_id")
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE `+cond+`
		ORDER BY t.updated_at DESC`, arg)
	if err != nil {
		return nil, wrapRead("list tasks", err)
	}

	tasks := []model.Task{}
	index := map[string]int{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, wrapRead("scan task", err)
		}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapRead("list tasks", err)
	}
	rows.Close()

	if len(tasks) == 0 {
		return tasks, nil
	}

	subRows, err := s.q.QueryContext(ctx, `
		SELECT s.id, s.task_id, s.title, s.completed FROM subtasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE `+cond+`
		ORDER BY s.task_id, s.position ASC`, arg)
	if err != nil {
		return nil, wrapRead("list subtasks", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var st model.Subtask
		var taskID string
		if err := subRows.Scan(&st.ID, &taskID, &st.Title, &st.Completed); err != nil {
			return nil, wrapRead("scan subtask", err)
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Subtasks = append(tasks[i].Subtasks, st)
		}
	}
	return tasks, wrapRead("list subtasks", subRows.Err())
}

// UpdateTask overwrites the mutable columns of t. Subtasks are left alone.
func (s *Store) UpdateTask(ctx context.Context, t model.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, category_id = $5,
			due_date = $6, assignee_id = $7, tags = $8, progress = $9, updated_at = $10
		WHERE id = $11`,
		t.Title, t.Description, t.Status.DBValue(), string(t.Priority), t.CategoryID,
		dueDateValue(t.DueDate), nullString(t.AssigneeID), tags, t.Progress, formatTime(t.UpdatedAt),
		t.ID,
	)
	return expectRow("update task", res, err)
}

// DeleteTask removes a task and its subtasks. It reports whether a row existed.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, wrapWrite("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapWrite("delete task", err)
	}
	return n > 0, nil
}
