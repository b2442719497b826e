package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/troopjs/weave"
)

const (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for node ids.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	// SubtitleStyle is for directives and secondary text.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	// CmdStyle is for module and widget names.
	CmdStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)
)

func stateStyle(state weave.WidgetState) lipgloss.Style {
	switch {
	case state.Failed():
		return ErrorStyle
	case state == weave.StateStarted || state == weave.StateStopped:
		return SuccessStyle
	default:
		return WarningStyle
	}
}
