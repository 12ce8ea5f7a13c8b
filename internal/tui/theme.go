package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// Theme defines the visual style of the review screen.
type Theme struct {
	Title    lipgloss.Style
	Subtle   lipgloss.Style
	Selected lipgloss.Style
	Approved lipgloss.Style
	High     lipgloss.Style
	Medium   lipgloss.Style
	Low      lipgloss.Style
	Detail   lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
}

// DefaultTheme is the default theme.
var DefaultTheme = Theme{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FAFD7")),
	Subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#737373")),
	Selected: lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("#404040")).Foreground(lipgloss.Color("#fafafa")),
	Approved: lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")),
	High:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444")),
	Medium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")),
	Low:      lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6")),
	Detail: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(0, 1),
	Status: lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa")),
	Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")),
}

func (t Theme) severity(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityHigh:
		return t.High
	case model.SeverityMedium:
		return t.Medium
	default:
		return t.Low
	}
}
