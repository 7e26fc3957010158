package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/taskflow/internal/model"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	board := m.renderBoard()
	statusBar := m.renderStatusBar()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(statusBar)

	switch m.mode {
	case ModeAddTask, ModeEditTask:
		board = lipgloss.Place(
			m.width, bodyHeight,
			lipgloss.Center, lipgloss.Center,
			m.renderModal(),
			lipgloss.WithWhitespaceChars(" "),
		)
	case ModeHelp:
		board = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.renderHelp())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, board, statusBar)
}

func (m Model) renderHeader() string {
	title := "TaskFlow"
	if ws := m.currentWorkspace(); ws != nil {
		title += " · " + ws.Name
		if len(m.workspaces) > 1 {
			title += HelpStyle.Render(fmt.Sprintf("  (%d/%d, w to switch)", m.wsCursor+1, len(m.workspaces)))
		}
	}
	s := HeaderStyle.Render(title)
	if m.loading {
		s += " " + m.spinner.View()
	}
	if m.backend.Offline() {
		s += " " + OfflineBadgeStyle.Render("[offline]")
	} else if !m.loadedAt.IsZero() {
		s += HelpStyle.Render("  updated " + m.loadedAt.Format("15:04:05"))
	}
	return s
}

func (m Model) renderBoard() string {
	n := len(model.Statuses)
	colWidth := max(m.width/n-2, 16)
	height := max(m.height-5, 3)

	rendered := make([]string, 0, n)
	for i, status := range model.Statuses {
		rendered = append(rendered, m.renderColumn(i, status, colWidth, height))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(i int, status model.Status, width, height int) string {
	tasks := m.columns[i]
	title := lipgloss.NewStyle().Bold(true).Foreground(statusColor(status)).
		Render(fmt.Sprintf("%s (%d)", statusTitle(status), len(tasks)))

	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString(lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width-4, 1))) + "\n")

	if len(tasks) == 0 {
		b.WriteString(HelpStyle.Render("empty"))
	}

	// Scroll so the selected card stays visible
	visible := max(height-3, 1)
	start := 0
	if i == m.col && m.rows[i] >= visible {
		start = m.rows[i] - visible + 1
	}
	for r := start; r < len(tasks) && r < start+visible; r++ {
		b.WriteString(m.renderCard(tasks[r], i == m.col && r == m.rows[i], width-4) + "\n")
	}

	style := ColumnStyle
	if i == m.col {
		style = ColumnFocusedStyle
	}
	return style.Width(width).Height(height).Render(b.String())
}

func (m Model) renderCard(t model.Task, selected bool, width int) string {
	style := CardStyle
	cursor := "  "
	if selected {
		style = CardSelectedStyle
		cursor = "❯ "
	}
	if t.Status == model.StatusCompleted {
		style = CardDoneStyle
	}

	line := cursor + truncate(t.Title, max(width-7, 4))
	card := FormatPriority(t.Priority) + style.Render(line)
	if t.DueDate != nil {
		card += "\n" + HelpStyle.Render("     due "+t.DueDate.String())
	}
	if t.Progress > 0 && t.Progress < 100 {
		card += HelpStyle.Render(fmt.Sprintf("  %d%%", t.Progress))
	}
	return card
}

func (m Model) renderStatusBar() string {
	if m.mode == ModeFilter {
		return StatusBarStyle.Width(m.width).Render("/" + m.input.View())
	}

	help := "h/l:column  j/k:task  [/]:move  x:done  a:add  e:edit  d:del  1-4:priority  /:filter  ?:help  q:quit"
	if m.filterText != "" {
		help = fmt.Sprintf("/%s  Esc:clear", m.filterText)
	}
	if m.message != "" {
		help = m.message
		if m.err != nil {
			help = ErrorStyle.Render(help)
		}
	}
	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderModal() string {
	title := "Edit Task"
	if m.mode == ModeAddTask {
		title = fmt.Sprintf("Add to %s", statusTitle(model.Statuses[m.col]))
		if ws := m.currentWorkspace(); ws != nil {
			title += " in " + ws.Name
		}
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render("Enter:save  Esc:cancel")
	return ModalStyle.Render(content)
}

func (m Model) renderHelp() string {
	return `
╭─── Keyboard Shortcuts ───╮
│                          │
│  Navigation              │
│  ──────────              │
│  h/l    Switch column    │
│  j/k    Move down/up     │
│  w      Next workspace   │
│  r      Refresh          │
│                          │
│  Actions                 │
│  ───────                 │
│  ] [    Move right/left  │
│  x      Toggle done      │
│  a      Add task         │
│  e      Edit title       │
│  d      Delete           │
│  1-4    Set priority     │
│  /      Filter           │
│                          │
│  ?      Toggle help      │
│  q      Quit             │
│                          │
╰──────────────────────────╯

     Press any key to close
`
}
