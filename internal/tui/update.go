package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
)

const requestTimeout = 15 * time.Second

// workspacesMsg carries the caller's workspaces
type workspacesMsg struct {
	workspaces []model.Workspace
	err        error
}

// boardMsg carries the tasks and categories of one workspace
type boardMsg struct {
	workspaceID string
	tasks       []model.Task
	categories  []model.Category
	err         error
}

// taskSavedMsg is sent after a create or update
type taskSavedMsg struct {
	task model.Task
	verb string
	err  error
}

// taskDeletedMsg is sent after a delete
type taskDeletedMsg struct {
	id    string
	title string
	err   error
}

// refreshMsg triggers a periodic reload
type refreshMsg time.Time

// Init loads the workspaces and starts polling
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadWorkspaces(), m.refreshCmd())
}

func (m Model) refreshCmd() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) loadWorkspaces() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		workspaces, err := backend.Workspaces(ctx)
		return workspacesMsg{workspaces: workspaces, err: err}
	}
}

func (m Model) loadBoard() tea.Cmd {
	ws := m.currentWorkspace()
	if ws == nil {
		return nil
	}
	backend, id := m.backend, ws.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tasks, err := backend.Tasks(ctx, id)
		if err != nil {
			return boardMsg{workspaceID: id, err: err}
		}
		categories, err := backend.Categories(ctx, id)
		return boardMsg{workspaceID: id, tasks: tasks, categories: categories, err: err}
	}
}

// save runs a create or update against the backend
func (m Model) save(verb string, call func(ctx context.Context) (model.Task, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		t, err := call(ctx)
		return taskSavedMsg{task: t, verb: verb, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		if m.loading || m.mode != ModeNormal {
			return m, m.refreshCmd()
		}
		m.loading = true
		return m, tea.Batch(m.loadBoard(), m.refreshCmd())

	case workspacesMsg:
		return m.handleWorkspaces(msg)

	case boardMsg:
		return m.handleBoard(msg)

	case taskSavedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Could not %s task", msg.verb), msg.err)
			return m, nil
		}
		m.err = nil
		m.replaceTask(msg.task)
		m.message = fmt.Sprintf("%s: %s", capitalize(msg.verb)+"d", msg.task.Title)
		return m, nil

	case taskDeletedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError("Could not delete task", msg.err)
			return m, nil
		}
		m.err = nil
		m.removeTask(msg.id)
		m.message = fmt.Sprintf("Deleted: %s", msg.title)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddTask, ModeEditTask:
			return m.updateInput(msg)
		case ModeFilter:
			return m.updateFilter(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

func (m Model) handleWorkspaces(msg workspacesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.loading = false
		m.setError("Could not load workspaces", msg.err)
		return m, nil
	}
	m.workspaces = msg.workspaces
	if len(m.workspaces) == 0 {
		m.loading = false
		m.message = "No workspaces. Create one with 'taskflow workspace new'."
		return m, nil
	}

	// Workspaces arrive newest first; default to the oldest
	m.wsCursor = len(m.workspaces) - 1
	for i, w := range m.workspaces {
		if w.ID == m.preferredWS {
			m.wsCursor = i
		}
	}
	m.loading = true
	return m, m.loadBoard()
}

func (m Model) handleBoard(msg boardMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	ws := m.currentWorkspace()
	if ws == nil || ws.ID != msg.workspaceID {
		// Stale response for a workspace that is no longer shown
		return m, nil
	}
	if msg.err != nil {
		m.setError("Could not load tasks", msg.err)
		return m, nil
	}

	var selected string
	if t := m.currentTask(); t != nil {
		selected = t.ID
	}
	m.err = nil
	m.tasks = msg.tasks
	m.categories = msg.categories
	m.loadedAt = time.Now()
	m.rebuild()
	if selected != "" {
		m.focus(selected)
	}
	logger.Debug("Board loaded", logger.F("workspace", msg.workspaceID), logger.F("tasks", len(msg.tasks)))
	return m, nil
}

func (m *Model) setError(what string, err error) {
	logger.Warn(what, logger.Err(err))
	m.err = err
	m.message = fmt.Sprintf("%s: %v", what, err)
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.rows[m.col] > 0 {
			m.rows[m.col]--
		}

	case key.Matches(msg, keys.Down):
		if m.rows[m.col] < len(m.columns[m.col])-1 {
			m.rows[m.col]++
		}

	case key.Matches(msg, keys.Left):
		if m.col > 0 {
			m.col--
		}

	case key.Matches(msg, keys.Right):
		if m.col < len(m.columns)-1 {
			m.col++
		}

	case key.Matches(msg, keys.Next):
		return m.moveCurrent(func(s model.Status) model.Status { return s.Next() })

	case key.Matches(msg, keys.Prev):
		return m.moveCurrent(func(s model.Status) model.Status { return s.Prev() })

	case key.Matches(msg, keys.Done):
		return m.moveCurrent(func(s model.Status) model.Status {
			if s == model.StatusCompleted {
				return model.StatusTodo
			}
			return model.StatusCompleted
		})

	case msg.String() == "1", msg.String() == "2", msg.String() == "3", msg.String() == "4":
		return m.handlePriority(msg.String())

	case key.Matches(msg, keys.Add):
		return m.startInput(ModeAddTask, "")

	case key.Matches(msg, keys.Edit):
		if t := m.currentTask(); t != nil {
			return m.startInput(ModeEditTask, t.Title)
		}

	case key.Matches(msg, keys.Delete):
		return m.handleDelete()

	case key.Matches(msg, keys.Workspace):
		if len(m.workspaces) > 1 {
			m.wsCursor = (m.wsCursor + 1) % len(m.workspaces)
			m.tasks = nil
			m.categories = nil
			m.rows = make([]int, len(model.Statuses))
			m.rebuild()
			m.loading = true
			m.message = "Workspace: " + m.workspaces[m.wsCursor].Name
			return m, m.loadBoard()
		}

	case key.Matches(msg, keys.Filter):
		m.mode = ModeFilter
		m.input.SetValue(m.filterText)
		m.input.Placeholder = "filter by title or tag"
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, keys.Escape):
		if m.filterText != "" {
			m.filterText = ""
			m.rebuild()
			m.message = "Filter cleared"
		}

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		if len(m.workspaces) == 0 {
			return m, m.loadWorkspaces()
		}
		return m, m.loadBoard()

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
	}

	return m, nil
}

// writable reports whether writes can be sent, setting a message if not
func (m *Model) writable() bool {
	if m.backend.Offline() {
		m.message = "Offline: changes need a server connection"
		return false
	}
	return true
}

func (m Model) moveCurrent(next func(model.Status) model.Status) (tea.Model, tea.Cmd) {
	t := m.currentTask()
	if t == nil || !m.writable() {
		return m, nil
	}
	status := next(t.Status)
	if status == t.Status {
		return m, nil
	}
	backend, id := m.backend, t.ID
	m.loading = true
	return m, m.save("move", func(ctx context.Context) (model.Task, error) {
		return backend.MoveTask(ctx, id, status)
	})
}

func (m Model) handlePriority(k string) (tea.Model, tea.Cmd) {
	t := m.currentTask()
	if t == nil || !m.writable() {
		return m, nil
	}
	priority := map[string]model.Priority{
		"1": model.PriorityUrgent,
		"2": model.PriorityHigh,
		"3": model.PriorityMedium,
		"4": model.PriorityLow,
	}[k]
	backend, id := m.backend, t.ID
	m.loading = true
	return m, m.save("update", func(ctx context.Context) (model.Task, error) {
		return backend.UpdateTask(ctx, id, service.UpdateTaskInput{Priority: model.Some(priority)})
	})
}

func (m Model) handleDelete() (tea.Model, tea.Cmd) {
	t := m.currentTask()
	if t == nil || !m.writable() {
		return m, nil
	}
	backend, id, title := m.backend, t.ID, t.Title
	m.loading = true
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return taskDeletedMsg{id: id, title: title, err: backend.DeleteTask(ctx, id)}
	}
}

func (m Model) startInput(mode Mode, value string) (tea.Model, tea.Cmd) {
	if !m.writable() {
		return m, nil
	}
	if mode == ModeAddTask && (m.currentWorkspace() == nil || len(m.categories) == 0) {
		m.message = "This workspace has no category to add tasks to"
		return m, nil
	}
	m.mode = mode
	m.input.SetValue(value)
	m.input.Placeholder = "Task title..."
	m.input.Focus()
	m.input.CursorEnd()
	return m, textinput.Blink
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		if value == "" {
			return m, nil
		}

		backend := m.backend
		switch mode {
		case ModeAddTask:
			in := service.CreateTaskInput{
				WorkspaceID: m.currentWorkspace().ID,
				Title:       value,
				CategoryID:  m.categories[0].ID,
				Status:      model.Statuses[m.col],
			}
			m.loading = true
			return m, m.save("create", func(ctx context.Context) (model.Task, error) {
				return backend.CreateTask(ctx, in)
			})
		case ModeEditTask:
			t := m.currentTask()
			if t == nil || t.Title == value {
				return m, nil
			}
			id := t.ID
			m.loading = true
			return m, m.save("update", func(ctx context.Context) (model.Task, error) {
				return backend.UpdateTask(ctx, id, service.UpdateTaskInput{Title: model.Some(value)})
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.filterText = ""
		m.input.Blur()
		m.rebuild()
		return m, nil

	case key.Matches(msg, keys.Enter):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	// Live filter as the user types
	m.filterText = m.input.Value()
	m.rebuild()
	return m, cmd
}

// Err returns the last backend error, for callers inspecting the final model
func (m Model) Err() error {
	return m.err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
