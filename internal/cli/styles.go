// Package cli renders bridge output and collects operator decisions on a terminal.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

var (
	// PrimaryColor is the main accent.
	PrimaryColor = lipgloss.Color("#5FAFD7")
	// SuccessColor marks applied actions and matches.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor marks medium severity and gated batches.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor marks high severity and failures.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// InfoColor marks low severity and hints.
	InfoColor = lipgloss.Color("#95E1D3")
	// SubtleColor dims secondary text.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	// WarningStyle formats warnings.
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	// ErrorStyle formats errors.
	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor)
	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().Foreground(InfoColor)
	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().Foreground(SubtleColor)
	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// BoxStyle frames confirmation prompts and summaries.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)

	// PromptStyle is used for operator prompts.
	PromptStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠"
	InfoIcon    = "ℹ"
	BridgeIcon  = "⇄"
	SkipIcon    = "–"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return TitleStyle.Render(BridgeIcon + " " + title)
}

// FormatPrompt formats an operator prompt.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// SeverityStyle picks the color for a severity.
func SeverityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityHigh:
		return ErrorStyle.Bold(true)
	case model.SeverityMedium:
		return WarningStyle
	default:
		return InfoStyle
	}
}

// FormatSeverity renders a severity label in its color.
func FormatSeverity(s model.Severity) string {
	return SeverityStyle(s).Render(string(s))
}

// FormatStatus renders an action outcome with its icon.
func FormatStatus(s model.ActionStatus) string {
	switch s {
	case model.ActionApplied:
		return FormatSuccess(string(s))
	case model.ActionFailed:
		return FormatError(string(s))
	default:
		return SubtleStyle.Render(SkipIcon + " " + string(s))
	}
}

// RenderBox renders content in a titled box.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.UnsetMargins().Render(title),
		content,
	))
}
