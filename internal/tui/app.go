// Package tui provides the live terminal view of an orchestrated workflow.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// roleState is the display state of one pipeline stage.
type roleState int

const (
	rolePending roleState = iota
	roleRunning
	roleDone
	roleFailed
)

// CompletionMsg delivers one role completion to the view.
type CompletionMsg struct {
	Completion models.WorkflowCompletion
}

// WorkflowDoneMsg signals that the workflow reached a terminal state.
type WorkflowDoneMsg struct {
	Failed bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	resultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(4)
)

// App is the bubbletea model for a single workflow run.
type App struct {
	workflowID string
	pipeline   []models.RoleID
	states     map[models.RoleID]roleState
	retries    map[models.RoleID]int
	results    map[models.RoleID]string
	errors     map[models.RoleID]string
	spin       spinner.Model
	done       bool
	failed     bool
	quitting   bool
}

// New creates the view for a workflow over the given pipeline.
func New(workflowID string, pipeline []models.RoleID) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	states := make(map[models.RoleID]roleState, len(pipeline))
	for _, role := range pipeline {
		states[role] = rolePending
	}
	if len(pipeline) > 0 {
		states[pipeline[0]] = roleRunning
	}
	return &App{
		workflowID: workflowID,
		pipeline:   pipeline,
		states:     states,
		retries:    make(map[models.RoleID]int),
		results:    make(map[models.RoleID]string),
		errors:     make(map[models.RoleID]string),
		spin:       s,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}
		return a, nil

	case CompletionMsg:
		a.apply(msg.Completion)
		return a, nil

	case WorkflowDoneMsg:
		a.done = true
		a.failed = msg.Failed
		return a, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) apply(done models.WorkflowCompletion) {
	switch done.Status {
	case models.StatusComplete:
		a.states[done.Role] = roleDone
		a.results[done.Role] = firstLine(done.Result)
	case models.StatusError:
		a.states[done.Role] = roleFailed
		a.errors[done.Role] = done.Error
	default:
		return
	}
	a.retries[done.Role] = done.RetryCount

	if next := done.NextRole; next != "" {
		a.states[next] = roleRunning
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("workflow %s", a.workflowID)))
	b.WriteString("\n\n")

	for _, role := range a.pipeline {
		b.WriteString(a.renderRole(role))
		b.WriteString("\n")
		if out := a.results[role]; out != "" {
			b.WriteString(resultStyle.Render(out))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case a.done && a.failed:
		b.WriteString(failedStyle.Render("workflow failed"))
	case a.done:
		b.WriteString(doneStyle.Render("workflow complete"))
	default:
		b.WriteString(pendingStyle.Render("q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *App) renderRole(role models.RoleID) string {
	label := string(role)
	if n := a.retries[role]; n > 0 {
		label = fmt.Sprintf("%s (retries: %d)", label, n)
	}

	switch a.states[role] {
	case roleRunning:
		return fmt.Sprintf("  %s %s", a.spin.View(), label)
	case roleDone:
		return doneStyle.Render(fmt.Sprintf("  ✓ %s", label))
	case roleFailed:
		return failedStyle.Render(fmt.Sprintf("  ✗ %s: %s", label, a.errors[role]))
	default:
		return pendingStyle.Render(fmt.Sprintf("  · %s", label))
	}
}

// Failed reports whether the workflow ended in failure.
func (a *App) Failed() bool {
	return a.failed
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
