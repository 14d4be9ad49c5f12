package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

// voiceSource adapts a voice list for fuzzy matching.
type voiceSource []speech.Voice

func (s voiceSource) String(i int) string {
	v := s[i]
	return v.Name + " " + v.Lang + " " + v.ID
}

func (s voiceSource) Len() int { return len(s) }

type voicePicker struct {
	filter  textinput.Model
	voices  []speech.Voice
	matches []speech.Voice
	cursor  int
}

func newVoicePicker() voicePicker {
	ti := textinput.New()
	ti.Prompt = "Find: "
	ti.Placeholder = "name or language"
	ti.CharLimit = 64
	return voicePicker{filter: ti}
}

func (p *voicePicker) setVoices(voices []speech.Voice) {
	p.voices = voices
	p.refilter()
}

// open focuses the filter and puts the cursor on the current voice.
func (p *voicePicker) open(currentID string) tea.Cmd {
	p.filter.Reset()
	p.refilter()
	for i, v := range p.matches {
		if v.ID == currentID {
			p.cursor = i
		}
	}
	return p.filter.Focus()
}

func (p *voicePicker) close() {
	p.filter.Blur()
}

func (p *voicePicker) refilter() {
	query := strings.TrimSpace(p.filter.Value())
	if query == "" {
		p.matches = append([]speech.Voice(nil), p.voices...)
	} else {
		found := fuzzy.FindFrom(query, voiceSource(p.voices))
		p.matches = make([]speech.Voice, 0, len(found))
		for _, m := range found {
			p.matches = append(p.matches, p.voices[m.Index])
		}
	}
	if p.cursor >= len(p.matches) {
		p.cursor = max(0, len(p.matches)-1)
	}
}

func (p *voicePicker) move(delta int) {
	if len(p.matches) == 0 {
		return
	}
	p.cursor = (p.cursor + delta + len(p.matches)) % len(p.matches)
}

func (p voicePicker) selected() (speech.Voice, bool) {
	if p.cursor < 0 || p.cursor >= len(p.matches) {
		return speech.Voice{}, false
	}
	return p.matches[p.cursor], true
}

func (p voicePicker) update(msg tea.Msg) (voicePicker, tea.Cmd) {
	before := p.filter.Value()
	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	if p.filter.Value() != before {
		p.cursor = 0
		p.refilter()
	}
	return p, cmd
}

func (p voicePicker) view(width, height int, currentID string) string {
	var b strings.Builder
	b.WriteString(p.filter.View() + "\n\n")

	if len(p.voices) == 0 {
		b.WriteString(dimStyle("no voices available"))
		return b.String()
	}
	if len(p.matches) == 0 {
		b.WriteString(dimStyle("no matching voices"))
		return b.String()
	}

	nameWidth := 0
	for _, v := range p.matches {
		nameWidth = max(nameWidth, runewidth.StringWidth(v.Name))
	}

	rows := max(1, height-2)
	start := 0
	if p.cursor >= rows {
		start = p.cursor - rows + 1
	}
	end := min(len(p.matches), start+rows)

	for i := start; i < end; i++ {
		v := p.matches[i]
		marker := "  "
		if v.ID == currentID {
			marker = "• "
		}
		line := fmt.Sprintf("%s%s  %s", marker, runewidth.FillRight(v.Name, nameWidth), v.Lang)
		if v.Default {
			line += " (default)"
		}
		line = runewidth.Truncate(line, max(1, width), "…")
		if i == p.cursor {
			line = selectedStyle(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// voiceLabel describes the voice with the given ID.
func voiceLabel(voices []speech.Voice, id string) string {
	if id == "" {
		return "engine default"
	}
	for _, v := range voices {
		if v.ID == id {
			if v.Lang == "" {
				return v.Name
			}
			return fmt.Sprintf("%s (%s)", v.Name, v.Lang)
		}
	}
	return id
}
