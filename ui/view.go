package ui

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/murmur/speech"
)

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintln(&b, m.headerView())
	fmt.Fprintln(&b, m.bodyView())
	fmt.Fprintln(&b, m.settingsView())
	fmt.Fprintln(&b, m.progress.ViewAs(m.snapshot.Progress/100))
	fmt.Fprintln(&b, m.promptView())
	fmt.Fprintln(&b, statusBarView(m.width, m.noteView(), m.status, m.snapshot))
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m model) headerView() string {
	engine := m.cfg.Engine
	if !m.ctrl.Available() {
		engine = "no speech engine"
	}
	return logoView() + " " + dimStyle(engine)
}

func (m model) bodyView() string {
	border := blurredBorder
	if m.focus == focusEditor || m.focus == focusVoices {
		border = focusedBorder
	}
	if m.focus == focusVoices {
		w := max(10, m.width-2)
		h := max(3, m.height-m.reservedHeight())
		return border.Width(w).Height(h).Render(m.picker.view(w, h, m.selection.ID()))
	}
	return border.Render(m.editor.View())
}

func (m model) settingsView() string {
	voice := voiceLabel(m.voices, m.selection.ID())
	if len(m.voices) == 0 {
		voice = "no voices available"
	}

	values := []string{
		voice,
		fmt.Sprintf("%.1fx", m.rate),
		fmt.Sprintf("%.1f", m.pitch),
	}
	render := valueStyle
	if m.snapshot.State.IsActive() {
		render = lockedStyle
	}
	return fmt.Sprintf("%s %s  %s %s  %s %s",
		labelStyle("Voice"), render(values[0]),
		labelStyle("Rate"), render(values[1]),
		labelStyle("Pitch"), render(values[2]),
	)
}

func (m model) promptView() string {
	switch {
	case m.generating:
		return m.spinner.View() + " Generating text…"
	case m.focus == focusPrompt:
		return m.prompt.View()
	}
	return ""
}

func (m model) noteView() string {
	switch m.snapshot.State {
	case speech.StateSpeaking:
		if b := m.snapshot.Boundary; b != nil {
			return "Reading: " + spokenWord(m.snapshot.Text, *b)
		}
		return "Reading…"
	case speech.StatePaused:
		return "Paused"
	}
	switch m.focus {
	case focusEditor:
		return "Editing, esc to finish"
	case focusVoices:
		return fmt.Sprintf("%d voices", len(m.voices))
	}
	return "Press space to read the text"
}

// spokenWord returns the text covered by a boundary event.
func spokenWord(text string, b speech.BoundaryEvent) string {
	runes := []rune(text)
	if b.CharIndex < 0 || b.CharIndex >= len(runes) {
		return ""
	}
	end := b.CharIndex + b.CharLength
	if b.CharLength <= 0 || end > len(runes) {
		end = len(runes)
	}
	return strings.TrimSpace(string(runes[b.CharIndex:end]))
}
