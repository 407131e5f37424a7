package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Watch runs the live view, forwarding completions from the watch channel
// until it closes. Returns whether the workflow failed.
func Watch(workflowID string, pipeline []models.RoleID, watch <-chan models.WorkflowCompletion) (bool, error) {
	app := New(workflowID, pipeline)
	p := tea.NewProgram(app)

	go func() {
		failed := false
		for done := range watch {
			if done.Status == models.StatusError {
				failed = true
			}
			p.Send(CompletionMsg{Completion: done})
		}
		p.Send(WorkflowDoneMsg{Failed: failed})
	}()

	final, err := p.Run()
	if err != nil {
		return false, err
	}
	if a, ok := final.(*App); ok {
		return a.Failed(), nil
	}
	return false, nil
}
