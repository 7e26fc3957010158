package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/taskflow/internal/model"
)

// Color palette
var (
	// Priority colors
	PriorityUrgent = lipgloss.Color("#FF6B6B") // Red
	PriorityHigh   = lipgloss.Color("#FFB347") // Orange
	PriorityMedium = lipgloss.Color("#FFE66D") // Yellow
	PriorityLow    = lipgloss.Color("#4ECDC4") // Blue

	// Status colors
	Completed = lipgloss.Color("#95E1A3") // Green
	Review    = lipgloss.Color("#C792EA") // Purple
	Offline   = lipgloss.Color("#6C757D") // Gray
	ErrorRed  = lipgloss.Color("#FF6B6B")

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Surface   = lipgloss.Color("#16213e")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
	Highlight = lipgloss.Color("#4ECDC4")
)

// Styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	ColumnStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	ColumnFocusedStyle = ColumnStyle.
				BorderForeground(Primary)

	CardStyle = lipgloss.NewStyle().
			Padding(0, 1)

	CardSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	CardDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true).
			Padding(0, 1)

	PriorityP1Style = lipgloss.NewStyle().Foreground(PriorityUrgent).Bold(true)
	PriorityP2Style = lipgloss.NewStyle().Foreground(PriorityHigh).Bold(true)
	PriorityP3Style = lipgloss.NewStyle().Foreground(PriorityMedium)
	PriorityP4Style = lipgloss.NewStyle().Foreground(PriorityLow)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	OfflineBadgeStyle = lipgloss.NewStyle().
				Foreground(Offline).
				Bold(true)

	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorRed)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// GetPriorityStyle returns the style for a given priority
func GetPriorityStyle(p model.Priority) lipgloss.Style {
	switch p {
	case model.PriorityUrgent:
		return PriorityP1Style
	case model.PriorityHigh:
		return PriorityP2Style
	case model.PriorityMedium:
		return PriorityP3Style
	default:
		return PriorityP4Style
	}
}

// FormatPriority returns a P1..P4 badge, P1 being urgent
func FormatPriority(p model.Priority) string {
	style := GetPriorityStyle(p)
	switch p {
	case model.PriorityUrgent:
		return style.Render("P1")
	case model.PriorityHigh:
		return style.Render("P2")
	case model.PriorityMedium:
		return style.Render("P3")
	default:
		return style.Render("P4")
	}
}

// statusColor colors a column heading
func statusColor(s model.Status) lipgloss.Color {
	switch s {
	case model.StatusInProgress:
		return PriorityMedium
	case model.StatusReview:
		return Review
	case model.StatusCompleted:
		return Completed
	default:
		return Primary
	}
}

// statusTitle is the column heading of a status
func statusTitle(s model.Status) string {
	switch s {
	case model.StatusInProgress:
		return "In Progress"
	case model.StatusReview:
		return "Review"
	case model.StatusCompleted:
		return "Completed"
	default:
		return "To Do"
	}
}
