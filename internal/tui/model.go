package tui

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
)

// Backend is the part of the API client the board uses
type Backend interface {
	Workspaces(ctx context.Context) ([]model.Workspace, error)
	Categories(ctx context.Context, workspaceID string) ([]model.Category, error)
	Tasks(ctx context.Context, workspaceID string) ([]model.Task, error)
	CreateTask(ctx context.Context, in service.CreateTaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, id string, in service.UpdateTaskInput) (model.Task, error)
	MoveTask(ctx context.Context, id string, status model.Status) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	Offline() bool
}

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeEditTask
	ModeFilter
	ModeHelp
)

// DefaultRefreshInterval is how often the board polls for changes
const DefaultRefreshInterval = 30 * time.Second

// Model is the kanban board
type Model struct {
	backend Backend

	workspaces  []model.Workspace
	wsCursor    int
	preferredWS string
	categories  []model.Category
	tasks       []model.Task

	// columns holds the visible tasks per status, in model.Statuses order
	columns [][]model.Task
	col     int
	rows    []int

	width   int
	height  int
	mode    Mode
	input   textinput.Model
	spinner spinner.Model
	loading bool

	filterText string
	refresh    time.Duration
	loadedAt   time.Time
	message    string
	err        error
}

// NewModel creates a board over backend. workspaceID selects the initial
// workspace; empty picks the oldest.
func NewModel(backend Backend, workspaceID string) Model {
	logger.Info("Initializing board", logger.F("workspace", workspaceID))

	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = 256
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		backend:     backend,
		preferredWS: workspaceID,
		input:       ti,
		spinner:     sp,
		loading:     true,
		refresh:     DefaultRefreshInterval,
		rows:        make([]int, len(model.Statuses)),
	}
	m.rebuild()
	return m
}

// SetRefreshInterval changes the polling interval. Zero disables polling.
func (m *Model) SetRefreshInterval(d time.Duration) {
	m.refresh = d
}

func (m *Model) currentWorkspace() *model.Workspace {
	if m.wsCursor < len(m.workspaces) {
		return &m.workspaces[m.wsCursor]
	}
	return nil
}

func (m *Model) currentTask() *model.Task {
	if m.col >= len(m.columns) {
		return nil
	}
	column := m.columns[m.col]
	if m.rows[m.col] < len(column) {
		return &column[m.rows[m.col]]
	}
	return nil
}

// rebuild sorts the tasks into status columns, applying the filter.
// Within a column tasks are ordered by priority, then due date.
func (m *Model) rebuild() {
	filter := strings.ToLower(m.filterText)
	columns := make([][]model.Task, len(model.Statuses))
	for _, t := range m.tasks {
		if filter != "" && !matches(t, filter) {
			continue
		}
		i := statusIndex(t.Status)
		columns[i] = append(columns[i], t)
	}
	for _, column := range columns {
		sort.SliceStable(column, func(i, j int) bool {
			a, b := column[i], column[j]
			if pa, pb := priorityRank(a.Priority), priorityRank(b.Priority); pa != pb {
				return pa < pb
			}
			if (a.DueDate == nil) != (b.DueDate == nil) {
				return a.DueDate != nil
			}
			if a.DueDate != nil && !a.DueDate.Equal(b.DueDate.Time) {
				return a.DueDate.Before(b.DueDate.Time)
			}
			return a.UpdatedAt.After(b.UpdatedAt)
		})
	}
	m.columns = columns
	for i := range m.rows {
		if m.rows[i] >= len(columns[i]) {
			m.rows[i] = max(len(columns[i])-1, 0)
		}
	}
}

// focus moves the cursor onto the task with id, wherever it now lives
func (m *Model) focus(id string) {
	for c, column := range m.columns {
		for r, t := range column {
			if t.ID == id {
				m.col = c
				m.rows[c] = r
				return
			}
		}
	}
}

func (m *Model) replaceTask(t model.Task) {
	for i := range m.tasks {
		if m.tasks[i].ID == t.ID {
			m.tasks[i] = t
			m.rebuild()
			m.focus(t.ID)
			return
		}
	}
	m.tasks = append(m.tasks, t)
	m.rebuild()
	m.focus(t.ID)
}

func (m *Model) removeTask(id string) {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	m.rebuild()
}

func matches(t model.Task, filter string) bool {
	if strings.Contains(strings.ToLower(t.Title), filter) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), filter) {
			return true
		}
	}
	return false
}

func statusIndex(s model.Status) int {
	for i, st := range model.Statuses {
		if st == s {
			return i
		}
	}
	return 0
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityUrgent:
		return 0
	case model.PriorityHigh:
		return 1
	case model.PriorityMedium:
		return 2
	default:
		return 3
	}
}
