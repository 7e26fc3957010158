package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Status is the presented form of a task's pipeline stage
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in pipeline order
var Statuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusCompleted}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// DBValue returns the stored form of the status
func (s Status) DBValue() string {
	if s == StatusInProgress {
		return "in_progress"
	}
	return string(s)
}

// StatusFromDB maps a stored status back to its presented form.
// Unknown values fall back to todo.
func StatusFromDB(v string) Status {
	switch v {
	case "in_progress", "in-progress":
		return StatusInProgress
	case "review":
		return StatusReview
	case "completed":
		return StatusCompleted
	default:
		return StatusTodo
	}
}

// Next returns the following pipeline stage, or s itself at the end
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s && i+1 < len(Statuses) {
			return Statuses[i+1]
		}
	}
	return s
}

// Prev returns the preceding pipeline stage, or s itself at the start
func (s Status) Prev() Status {
	for i, st := range Statuses {
		if st == s && i > 0 {
			return Statuses[i-1]
		}
	}
	return s
}

// Priority levels for tasks
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a unit of work inside a workspace
type Task struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	CategoryID  string    `json:"categoryId"`
	DueDate     *Date     `json:"dueDate"`
	AssigneeID  *string   `json:"assigneeId"`
	Tags        []string  `json:"tags"`
	Subtasks    []Subtask `json:"subtasks"`
	Progress    int       `json:"progress"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subtask is a checklist item owned by a task
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// DateLayout is the wire format of due dates
const DateLayout = "2006-01-02"

var bareDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date is a due date. It is stored as a UTC instant and rendered as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate accepts a bare YYYY-MM-DD (midnight UTC) or an RFC 3339 timestamp
func ParseDate(s string) (Date, error) {
	if bareDate.MatchString(s) {
		t, err := time.ParseInLocation(DateLayout, s, time.UTC)
		if err != nil {
			return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t.UTC()}, nil
}

// String returns the YYYY-MM-DD form in UTC
func (d Date) String() string {
	return d.UTC().Format(DateLayout)
}

// MarshalJSON renders the date as YYYY-MM-DD
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the same forms as ParseDate
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Optional distinguishes an omitted JSON field (Set false) from an explicit
// null (Set true, Valid false) and a value (Set and Valid true).
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Some returns a set, non-null Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// Null returns an Optional that clears the field
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON is only invoked when the key is present
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Valid = false
		return nil
	}
	o.Valid = true
	return json.Unmarshal(b, &o.Value)
}

// MarshalJSON renders null when the value is absent
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// IsZero reports an omitted field, for the omitzero tag option
func (o Optional[T]) IsZero() bool {
	return !o.Set
}
