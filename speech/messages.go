package speech

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the controller and the UI.

// StateChangedMsg carries a new controller snapshot.
type StateChangedMsg struct {
	Snapshot Snapshot
}

// VoicesChangedMsg carries a refreshed voice catalog.
type VoicesChangedMsg struct {
	Voices []Voice
}

// ErrorMsg reports a failed utterance or a rejected command.
type ErrorMsg struct {
	Err error
}

// ReconcileTickMsg triggers a reconciliation pass.
type ReconcileTickMsg time.Time

// ReconcileCmd schedules the next reconciliation tick.
func ReconcileCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return ReconcileTickMsg(t)
	})
}

// SpeakCmd issues a play request and reports a rejected request as an
// ErrorMsg.
func SpeakCmd(c *Controller, req Request) tea.Cmd {
	return func() tea.Msg {
		if err := c.Speak(req); err != nil {
			return ErrorMsg{Err: err}
		}
		return StateChangedMsg{Snapshot: c.Snapshot()}
	}
}
