package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/model"
)

// Tasks runs the task lifecycle. Status is a label: any status may follow
// any other.
type Tasks struct {
	*core
	access *Access
}

// SubtaskInput is a checklist item supplied at creation
type SubtaskInput struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// CreateTaskInput is the body of POST /tasks
type CreateTaskInput struct {
	WorkspaceID string         `json:"workspaceId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      model.Status   `json:"status,omitempty"`
	Priority    model.Priority `json:"priority,omitempty"`
	CategoryID  string         `json:"categoryId"`
	DueDate     *string        `json:"dueDate,omitempty"`
	AssigneeID  *string        `json:"assigneeId,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Progress    *int           `json:"progress,omitempty"`
	Subtasks    []SubtaskInput `json:"subtasks,omitempty"`
}

// UpdateTaskInput is the body of PATCH /tasks/:id. Omitted fields are left
// unchanged; an explicit null clears dueDate and assigneeId.
type UpdateTaskInput struct {
	Title       model.Optional[string]         `json:"title,omitzero"`
	Description model.Optional[string]         `json:"description,omitzero"`
	Status      model.Optional[model.Status]   `json:"status,omitzero"`
	Priority    model.Optional[model.Priority] `json:"priority,omitzero"`
	CategoryID  model.Optional[string]         `json:"categoryId,omitzero"`
	DueDate     model.Optional[string]         `json:"dueDate,omitzero"`
	AssigneeID  model.Optional[string]         `json:"assigneeId,omitzero"`
	Tags        model.Optional[[]string]       `json:"tags,omitzero"`
	Progress    model.Optional[int]            `json:"progress,omitzero"`
}

var errTaskNotFound = apperr.NotFound("Task not found")

// List returns the visible tasks, most recently updated first
func (s *Tasks) List(ctx context.Context, callerID, workspaceID string) ([]model.Task, error) {
	scope, err := s.access.Scope(ctx, callerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if scope.Empty {
		return []model.Task{}, nil
	}
	tasks, err := s.store.ListTasks(ctx, scope.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns a task the caller can see
func (s *Tasks) Get(ctx context.Context, callerID, id string) (model.Task, error) {
	t, visible, err := s.load(ctx, callerID, id)
	if err != nil {
		return model.Task{}, err
	}
	if !visible {
		return model.Task{}, errTaskNotFound
	}
	return t, nil
}

// load fetches a task and reports whether the caller may see it. A missing
// task is reported as invisible.
func (s *Tasks) load(ctx context.Context, callerID, id string) (model.Task, bool, error) {
	t, err := s.store.GetTask(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return model.Task{}, false, nil
	}
	if err != nil {
		return model.Task{}, false, fmt.Errorf("failed to load task: %w", err)
	}
	ok, err := s.access.IsMember(ctx, callerID, t.WorkspaceID)
	if err != nil {
		return model.Task{}, false, err
	}
	return t, ok, nil
}

// Create validates input, writes the task with its subtasks and records a
// task_created activity in one transaction.
func (s *Tasks) Create(ctx context.Context, callerID string, in CreateTaskInput) (model.Task, error) {
	fields := fieldErrors{}
	fields.require("workspaceId", in.WorkspaceID)
	fields.require("title", in.Title)
	fields.require("categoryId", in.CategoryID)

	status := in.Status
	if status == "" {
		status = model.StatusTodo
	} else if !status.Valid() {
		fields["status"] = "must be todo, in-progress, review or completed"
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	} else if !priority.Valid() {
		fields["priority"] = "must be low, medium, high or urgent"
	}
	progress := 0
	if in.Progress != nil {
		progress = *in.Progress
		if progress < 0 || progress > 100 {
			fields["progress"] = "must be between 0 and 100"
		}
	}
	for i, st := range in.Subtasks {
		if strings.TrimSpace(st.Title) == "" {
			fields[fmt.Sprintf("subtasks[%d].title", i)] = "required"
		}
	}
	if err := fields.err(); err != nil {
		return model.Task{}, err
	}

	var due *model.Date
	if in.DueDate != nil {
		d, err := parseDueDate(*in.DueDate)
		if err != nil {
			return model.Task{}, err
		}
		due = d
	}

	if err := s.access.RequireWriter(ctx, callerID, in.WorkspaceID); err != nil {
		return model.Task{}, err
	}
	if err := s.checkCategory(ctx, in.WorkspaceID, in.CategoryID); err != nil {
		return model.Task{}, err
	}
	assignee := in.AssigneeID
	if assignee != nil && *assignee == "" {
		assignee = nil
	}
	if err := s.checkAssignee(ctx, assignee); err != nil {
		return model.Task{}, err
	}

	now := s.now().UTC()
	t := model.Task{
		ID:          s.newID(),
		WorkspaceID: in.WorkspaceID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		CategoryID:  in.CategoryID,
		DueDate:     due,
		AssigneeID:  assignee,
		Tags:        in.Tags,
		Subtasks:    make([]model.Subtask, 0, len(in.Subtasks)),
		Progress:    progress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	for _, st := range in.Subtasks {
		t.Subtasks = append(t.Subtasks, model.Subtask{ID: s.newID(), Title: st.Title, Completed: st.Completed})
	}

	err := s.store.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.CreateTask(ctx, t); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		actor, err := s.defaultActor(ctx, tx, t.AssigneeID)
		if err != nil {
			return err
		}
		_, err = s.appendActivity(ctx, tx, model.ActivityTaskCreated, actor, t.WorkspaceID, &t.ID,
			fmt.Sprintf("Task created: %q", t.Title))
		return err
	})
	if err != nil {
		return model.Task{}, err
	}

	logger.Info("Task created", logger.F("task_id", t.ID), logger.F("workspace_id", t.WorkspaceID))
	return t, nil
}

// Update applies a partial update and records exactly one activity:
// task_completed when the patch sets status completed, task_updated
// otherwise. Setting status completed also sets progress to 100.
func (s *Tasks) Update(ctx context.Context, callerID, id string, in UpdateTaskInput) (model.Task, error) {
	t, visible, err := s.load(ctx, callerID, id)
	if err != nil {
		return model.Task{}, err
	}
	if !visible {
		return model.Task{}, errTaskNotFound
	}
	if err := s.access.RequireWriter(ctx, callerID, t.WorkspaceID); err != nil {
		return model.Task{}, err
	}

	if err := s.apply(ctx, &t, in); err != nil {
		return model.Task{}, err
	}
	completing := in.Status.Set && in.Status.Value == model.StatusCompleted
	if completing {
		t.Progress = 100
	}
	t.UpdatedAt = s.now().UTC()

	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.UpdateTask(ctx, t); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return errTaskNotFound
			}
			return fmt.Errorf("failed to update task: %w", err)
		}
		actor, err := s.defaultActor(ctx, tx, t.AssigneeID)
		if err != nil {
			return err
		}
		kind, msg := model.ActivityTaskUpdated, fmt.Sprintf("Task updated: %q", t.Title)
		if completing {
			kind, msg = model.ActivityTaskCompleted, fmt.Sprintf("Task completed: %q", t.Title)
		}
		_, err = s.appendActivity(ctx, tx, kind, actor, t.WorkspaceID, &t.ID, msg)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}

	logger.Debug("Task updated", logger.F("task_id", t.ID), logger.F("status", string(t.Status)))
	return t, nil
}

// apply validates the patch and merges it into t
func (s *Tasks) apply(ctx context.Context, t *model.Task, in UpdateTaskInput) error {
	fields := fieldErrors{}
	notNull := func(name string, set, valid bool) bool {
		if set && !valid {
			fields[name] = "cannot be null"
			return false
		}
		return set
	}

	if notNull("title", in.Title.Set, in.Title.Valid) {
		if strings.TrimSpace(in.Title.Value) == "" {
			fields["title"] = "required"
		}
		t.Title = in.Title.Value
	}
	if notNull("description", in.Description.Set, in.Description.Valid) {
		t.Description = in.Description.Value
	}
	if notNull("status", in.Status.Set, in.Status.Valid) {
		if !in.Status.Value.Valid() {
			fields["status"] = "must be todo, in-progress, review or completed"
		}
		t.Status = in.Status.Value
	}
	if notNull("priority", in.Priority.Set, in.Priority.Valid) {
		if !in.Priority.Value.Valid() {
			fields["priority"] = "must be low, medium, high or urgent"
		}
		t.Priority = in.Priority.Value
	}
	if notNull("progress", in.Progress.Set, in.Progress.Valid) {
		if in.Progress.Value < 0 || in.Progress.Value > 100 {
			fields["progress"] = "must be between 0 and 100"
		}
		t.Progress = in.Progress.Value
	}
	if notNull("tags", in.Tags.Set, in.Tags.Valid) {
		t.Tags = in.Tags.Value
		if t.Tags == nil {
			t.Tags = []string{}
		}
	}
	categoryChanged := false
	if notNull("categoryId", in.CategoryID.Set, in.CategoryID.Valid) {
		if in.CategoryID.Value == "" {
			fields["categoryId"] = "required"
		}
		categoryChanged = in.CategoryID.Value != t.CategoryID
		t.CategoryID = in.CategoryID.Value
	}
	if err := fields.err(); err != nil {
		return err
	}

	if in.DueDate.Set {
		t.DueDate = nil
		if in.DueDate.Valid {
			d, err := parseDueDate(in.DueDate.Value)
			if err != nil {
				return err
			}
			t.DueDate = d
		}
	}
	if categoryChanged {
		if err := s.checkCategory(ctx, t.WorkspaceID, t.CategoryID); err != nil {
			return err
		}
	}
	if in.AssigneeID.Set {
		t.AssigneeID = nil
		if in.AssigneeID.Valid && in.AssigneeID.Value != "" {
			assignee := in.AssigneeID.Value
			if err := s.checkAssignee(ctx, &assignee); err != nil {
				return err
			}
			t.AssigneeID = &assignee
		}
	}
	return nil
}

// Move changes only the status of a task
func (s *Tasks) Move(ctx context.Context, callerID, id string, status model.Status) (model.Task, error) {
	return s.Update(ctx, callerID, id, UpdateTaskInput{Status: model.Some(status)})
}

// Delete removes a task. Missing tasks and tasks the caller cannot see are
// treated as already gone.
func (s *Tasks) Delete(ctx context.Context, callerID, id string) error {
	t, visible, err := s.load(ctx, callerID, id)
	if err != nil {
		return err
	}
	if !visible {
		return nil
	}
	if err := s.access.RequireWriter(ctx, callerID, t.WorkspaceID); err != nil {
		return err
	}
	if _, err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	logger.Info("Task deleted", logger.F("task_id", id), logger.F("workspace_id", t.WorkspaceID))
	return nil
}

func (s *Tasks) checkCategory(ctx context.Context, workspaceID, categoryID string) error {
	c, err := s.store.GetCategory(ctx, categoryID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && c.WorkspaceID != workspaceID) {
		return apperr.Validation("categoryId not found in workspace")
	}
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	return nil
}

func (s *Tasks) checkAssignee(ctx context.Context, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	_, err := s.store.GetUser(ctx, *assigneeID)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.Validation("assigneeId not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load assignee: %w", err)
	}
	return nil
}

// parseDueDate maps "" to no date and rejects anything ParseDate refuses
func parseDueDate(v string) (*model.Date, error) {
	if v == "" {
		return nil, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return nil, apperr.Validation("Invalid dueDate")
	}
	return &d, nil
}
