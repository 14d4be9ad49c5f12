package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

// stateColor returns the color used for a playback state.
func stateColor(s speech.State) lipgloss.TerminalColor {
	switch s {
	case speech.StateSpeaking:
		return green
	case speech.StatePaused:
		return yellow
	default:
		return faint
	}
}

// stateIcon returns an icon for a playback state.
func stateIcon(s speech.State) string {
	switch s {
	case speech.StateSpeaking:
		return "▶"
	case speech.StatePaused:
		return "⏸"
	default:
		return "■"
	}
}

// compactStatus returns the state badge for the status bar.
func compactStatus(s speech.Snapshot) string {
	label := fmt.Sprintf(" %s %s ", stateIcon(s.State), s.State)
	if s.State.IsActive() {
		label = fmt.Sprintf(" %s %s %3.f%% ", stateIcon(s.State), s.State, s.Progress)
	}
	return lipgloss.NewStyle().
		Foreground(stateColor(s.State)).
		Background(statusBarBg).
		Render(label)
}

type statusMessage struct {
	text    string
	isError bool
}

// statusBarView renders the bottom bar: logo, note or message, state.
func statusBarView(width int, note string, msg *statusMessage, s speech.Snapshot) string {
	logo := logoView()
	badge := compactStatus(s)

	text := note
	if msg != nil {
		text = msg.text
	}
	text = truncate.StringWithTail(" "+text+" ", uint(max(0, //nolint:gosec
		width-ansi.PrintableRuneWidth(logo)-ansi.PrintableRuneWidth(badge),
	)), ellipsis)

	style := statusBarNoteStyle
	switch {
	case msg != nil && msg.isError:
		style = statusBarErrorStyle
	case msg != nil:
		style = statusBarMessageStyle
	}
	text = style(text)

	padding := max(0,
		width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(text)-
			ansi.PrintableRuneWidth(badge),
	)
	return logo + text + style(strings.Repeat(" ", padding)) + badge
}
