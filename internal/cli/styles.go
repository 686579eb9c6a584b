package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/tasknest/internal/model"
)

// Color palette
var (
	colorRed    = lipgloss.Color("#FF6B6B")
	colorOrange = lipgloss.Color("#FFB347")
	colorYellow = lipgloss.Color("#FFE66D")
	colorBlue   = lipgloss.Color("#4ECDC4")
	colorGreen  = lipgloss.Color("#95E1A3")
	colorGray   = lipgloss.Color("#6C757D")
	colorMuted  = lipgloss.Color("#888888")
)

var (
	idStyle      = lipgloss.NewStyle().Foreground(colorMuted)
	doneStyle    = lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true)
	overdueStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	dueStyle     = lipgloss.NewStyle().Foreground(colorBlue)
	tagStyle     = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	reminderMark = lipgloss.NewStyle().Foreground(colorYellow).Render("⏰")

	statusStyles = map[model.Status]lipgloss.Style{
		model.StatusNotStarted: lipgloss.NewStyle().Foreground(colorGray),
		model.StatusInProgress: lipgloss.NewStyle().Foreground(colorBlue).Bold(true),
		model.StatusDone:       lipgloss.NewStyle().Foreground(colorGreen),
		model.StatusCancelled:  lipgloss.NewStyle().Foreground(colorMuted),
		model.StatusArchived:   lipgloss.NewStyle().Foreground(colorMuted),
	}

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(colorOrange),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(colorBlue),
	}
)

var statusIcons = map[model.Status]string{
	model.StatusNotStarted: "[ ]",
	model.StatusInProgress: "[~]",
	model.StatusDone:       "[x]",
	model.StatusCancelled:  "[-]",
	model.StatusArchived:   "[a]",
}

func styleFor[K comparable](styles map[K]lipgloss.Style, k K) lipgloss.Style {
	if s, ok := styles[k]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
