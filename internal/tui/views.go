package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// chrome is the number of lines used by everything but the list.
const chrome = 12

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}

	pending, approved := m.counts()
	filter := "all"
	if m.filter != "" {
		filter = string(m.filter)
	}
	header := m.theme.Title.Render("Pending actions") + "  " +
		m.theme.Subtle.Render(fmt.Sprintf("%d pending · %d approved · filter: %s", pending, approved, filter))

	sections := []string{header, m.renderList()}
	if a, ok := m.selected(); ok {
		sections = append(sections, m.renderDetail(a))
	}
	sections = append(sections, m.renderStatus(), m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderList() string {
	if len(m.items) == 0 {
		return m.theme.Subtle.Render("  nothing to review")
	}

	rows := max(m.height-chrome, 3)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.items))

	var b strings.Builder
	for i := start; i < end; i++ {
		line := m.renderRow(m.items[i])
		if i == m.cursor {
			line = m.theme.Selected.Render("› " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderRow(a model.PendingAction) string {
	mark := " "
	if a.State == model.ApprovalApproved {
		mark = m.theme.Approved.Render("✓")
	}
	sev := "-     "
	if a.Anomaly != nil {
		sev = m.theme.severity(a.Anomaly.Severity).Render(fmt.Sprintf("%-6s", a.Anomaly.Severity))
	}
	summary := a.Summary
	if limit := m.width - 40; limit > 10 && len([]rune(summary)) > limit {
		summary = string([]rune(summary)[:limit-1]) + "…"
	}
	return fmt.Sprintf("%s %s %-14s %-24s %s", mark, sev, a.Identifier, a.Fix.Kind, summary)
}

func (m Model) renderDetail(a model.PendingAction) string {
	var lines []string
	if an := a.Anomaly; an != nil {
		lines = append(lines,
			fmt.Sprintf("%s  %s", m.theme.severity(an.Severity).Render(string(an.Severity)), an.Description),
			"Suggested: "+an.SuggestedFix,
		)
	}
	fix := fmt.Sprintf("Fix: %s", a.Fix.Kind)
	if a.Fix.Price.Valid {
		fix += fmt.Sprintf(" → %s from %s", a.Fix.Price.Decimal.StringFixed(2), a.Fix.PriceSource)
	}
	if a.Fix.NewIdentifier != "" {
		fix += " → " + a.Fix.NewIdentifier
	}
	if a.Fix.StockStatus != "" {
		fix += " → " + string(a.Fix.StockStatus)
	}
	lines = append(lines, fix)
	if a.AutoFixable() {
		lines = append(lines, m.theme.Subtle.Render("auto-fixable"))
	}
	return m.theme.Detail.Width(max(m.width-4, 20)).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return m.theme.Error.Render(m.err.Error())
	}
	return m.theme.Status.Render(m.status)
}
