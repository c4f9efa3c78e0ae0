package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/skybi/ticketdesk/internal/ticket"
)

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style

	priorities map[ticket.Priority]lipgloss.Style
}

// newStyles creates the output styles using a renderer detecting the color support of out
func newStyles(out io.Writer) styles {
	renderer := lipgloss.NewRenderer(out)
	return styles{
		title:   renderer.NewStyle().Bold(true),
		label:   renderer.NewStyle().Foreground(lipgloss.Color("244")),
		muted:   renderer.NewStyle().Faint(true),
		success: renderer.NewStyle().Foreground(lipgloss.Color("2")),
		failure: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		priorities: map[ticket.Priority]lipgloss.Style{
			ticket.PriorityLow:      renderer.NewStyle().Foreground(lipgloss.Color("6")),
			ticket.PriorityMedium:   renderer.NewStyle().Foreground(lipgloss.Color("4")),
			ticket.PriorityHigh:     renderer.NewStyle().Foreground(lipgloss.Color("3")),
			ticket.PriorityCritical: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		},
	}
}

func (styles styles) priority(priority ticket.Priority, text string) string {
	if style, ok := styles.priorities[priority]; ok {
		return style.Render(text)
	}
	return text
}
