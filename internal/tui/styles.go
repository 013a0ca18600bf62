package tui

import "github.com/charmbracelet/lipgloss"

var (
	PrimaryColor  = lipgloss.Color("#A78BFA")
	PositiveColor = lipgloss.Color("#10B981")
	NegativeColor = lipgloss.Color("#F87171")
	WinnerColor   = lipgloss.Color("#FBBF24")
	MutedColor    = lipgloss.Color("#9CA3AF")
	TextColor     = lipgloss.Color("#F9FAFB")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	Selected = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	Positive = lipgloss.NewStyle().Foreground(PositiveColor)
	Negative = lipgloss.NewStyle().Foreground(NegativeColor)
	Winner   = lipgloss.NewStyle().Foreground(WinnerColor).Bold(true)
	Muted    = lipgloss.NewStyle().Foreground(MutedColor)

	ErrorText = lipgloss.NewStyle().Foreground(NegativeColor).Bold(true)

	Section = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginTop(1)
)
