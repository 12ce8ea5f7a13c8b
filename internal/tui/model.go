// Package tui is the terminal review screen for pending actions.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// Queue is the approval workflow as seen by the review screen.
type Queue interface {
	Actions() []model.PendingAction
	Approve(id string) error
	Reject(id string) error
	ApproveAutoFixable() int
}

// Outcome is how the operator left the review screen.
type Outcome int

// Review outcomes.
const (
	OutcomeQuit Outcome = iota
	OutcomeApply
	OutcomeAbort
)

// Result summarizes a review session.
type Result struct {
	Outcome  Outcome
	Approved int
	Rejected int
}

// severityFilters is the order the filter key cycles through. Empty means all.
var severityFilters = []model.Severity{"", model.SeverityHigh, model.SeverityMedium, model.SeverityLow}

// Model holds the review screen state.
type Model struct {
	queue    Queue
	err      error
	help     help.Model
	theme    Theme
	keymap   KeyMap
	status   string
	filter   model.Severity
	items    []model.PendingAction
	cursor   int
	width    int
	height   int
	result   Result
	showHelp bool
	done     bool
}

// New creates a review model over queue.
func New(queue Queue) Model {
	m := Model{
		queue:  queue,
		help:   help.New(),
		theme:  DefaultTheme,
		keymap: DefaultKeyMap(),
		width:  100,
		height: 30,
	}
	m.refresh()
	return m
}

// Result reports the session outcome once the program has exited.
func (m Model) Result() Result {
	return m.result
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	k := m.keymap

	switch {
	case key.Matches(msg, k.ForceQuit):
		return m.finish(OutcomeAbort)
	case key.Matches(msg, k.Quit):
		return m.finish(OutcomeQuit)
	case key.Matches(msg, k.Done):
		return m.finish(OutcomeApply)

	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, k.Home):
		m.cursor = 0
	case key.Matches(msg, k.End):
		m.cursor = max(len(m.items)-1, 0)

	case key.Matches(msg, k.Approve):
		if a, ok := m.selected(); ok {
			if m.err = m.queue.Approve(a.ID); m.err == nil {
				m.result.Approved++
				m.status = fmt.Sprintf("Approved %s", a.Identifier)
				m.refresh()
				m.advance()
			}
		}
	case key.Matches(msg, k.Reject):
		if a, ok := m.selected(); ok {
			if m.err = m.queue.Reject(a.ID); m.err == nil {
				m.result.Rejected++
				m.status = fmt.Sprintf("Rejected %s", a.Identifier)
				m.refresh()
			}
		}
	case key.Matches(msg, k.ApproveAuto):
		n := m.queue.ApproveAutoFixable()
		m.result.Approved += n
		m.status = fmt.Sprintf("Approved %d auto-fixable actions", n)
		m.refresh()

	case key.Matches(msg, k.Filter):
		m.filter = nextFilter(m.filter)
		m.cursor = 0
		m.refresh()
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	return m, nil
}

func (m Model) finish(outcome Outcome) (tea.Model, tea.Cmd) {
	m.result.Outcome = outcome
	m.done = true
	return m, tea.Quit
}

// refresh reloads the visible actions from the queue and keeps the cursor in range.
func (m *Model) refresh() {
	m.items = nil
	for _, a := range m.queue.Actions() {
		if m.filter != "" && (a.Anomaly == nil || a.Anomaly.Severity != m.filter) {
			continue
		}
		m.items = append(m.items, a)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

// advance moves the cursor to the next still-pending action.
func (m *Model) advance() {
	for i := m.cursor + 1; i < len(m.items); i++ {
		if m.items[i].State == model.ApprovalPending {
			m.cursor = i
			return
		}
	}
}

func (m Model) selected() (model.PendingAction, bool) {
	if len(m.items) == 0 {
		return model.PendingAction{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) counts() (pending, approved int) {
	for _, a := range m.queue.Actions() {
		if a.State == model.ApprovalApproved {
			approved++
		} else {
			pending++
		}
	}
	return pending, approved
}

func nextFilter(current model.Severity) model.Severity {
	for i, f := range severityFilters {
		if f == current {
			return severityFilters[(i+1)%len(severityFilters)]
		}
	}
	return ""
}
