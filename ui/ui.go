// Package ui provides the terminal interface for murmur.
package ui

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/textgen"
	"github.com/dgnsrekt/murmur/speech"
)

const (
	ellipsis = "…"

	rateStep  = 0.1
	pitchStep = 0.1
)

// focus is the part of the screen receiving keys.
type focus int

const (
	focusControls focus = iota
	focusEditor
	focusVoices
	focusPrompt
)

func (f focus) String() string {
	return map[focus]string{
		focusControls: "controls",
		focusEditor:   "editor",
		focusVoices:   "voices",
		focusPrompt:   "prompt",
	}[f]
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, ctrl *speech.Controller, catalog *speech.Catalog, gen textgen.Generator) *tea.Program {
	log.Debug("Starting murmur", "engine", cfg.Engine, "path", cfg.Path)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	if cfg.InputTTY {
		opts = append(opts, tea.WithInputTTY())
	}
	return tea.NewProgram(newModel(cfg, ctrl, catalog, gen), opts...)
}

type model struct {
	cfg     Config
	ctrl    *speech.Controller
	catalog *speech.Catalog
	gen     textgen.Generator
	events  *bridge
	watcher *fileWatcher

	keys     keyMap
	help     help.Model
	editor   textarea.Model
	prompt   textinput.Model
	progress progress.Model
	spinner  spinner.Model
	picker   voicePicker

	focus      focus
	snapshot   speech.Snapshot
	voices     []speech.Voice
	selection  speech.VoiceSelection
	rate       float64
	pitch      float64
	generating bool

	status   *statusMessage
	statusID int

	width  int
	height int
}

func newModel(cfg Config, ctrl *speech.Controller, catalog *speech.Catalog, gen textgen.Generator) model {
	if cfg.Rate == 0 {
		cfg.Rate = speech.DefaultRate
	}
	if cfg.Pitch == 0 {
		cfg.Pitch = speech.DefaultPitch
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = time.Minute
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = ctrl.Interval()
	}

	editor := textarea.New()
	editor.Placeholder = "Type something to read aloud…"
	editor.ShowLineNumbers = cfg.LineNumbers
	editor.CharLimit = 0
	editor.MaxHeight = 0
	text := cfg.Text
	if text == "" && cfg.Path == "" {
		text = welcomeText
	}
	editor.SetValue(text)
	editor.Blur()

	prompt := textinput.New()
	prompt.Prompt = "Prompt: "
	prompt.Placeholder = "write a short story about the sea"

	m := model{
		cfg:      cfg,
		ctrl:     ctrl,
		catalog:  catalog,
		gen:      gen,
		events:   newBridge(cfg.EventBuffer),
		keys:     newKeyMap(),
		help:     help.New(),
		editor:   editor,
		prompt:   prompt,
		progress: progress.New(progress.WithDefaultGradient()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		picker:   newVoicePicker(),
		focus:    focusControls,
		snapshot: ctrl.Snapshot(),
		rate:     clampRate(cfg.Rate),
		pitch:    clampPitch(cfg.Pitch),
	}
	m.events.attach(ctrl, catalog)

	if cfg.VoiceID != "" {
		m.selection.Choose(cfg.VoiceID)
	}
	m.setVoices(catalog.Voices())

	if cfg.Path != "" {
		w, err := newFileWatcher(cfg.Path)
		if err != nil {
			log.Error("error creating fsnotify watcher", "error", err)
		} else {
			m.watcher = w
		}
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.events.wait(),
		speech.ReconcileCmd(m.cfg.ReconcileInterval),
	}
	if m.cfg.Path != "" && m.cfg.Text == "" {
		cmds = append(cmds, loadFileCmd(m.cfg.Path))
	}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.wait)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, m.events.wait())

	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.focus == focusVoices && msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				m.picker.move(-1)
			case tea.MouseButtonWheelDown:
				m.picker.move(1)
			}
		}
		return m, nil

	case speech.StateChangedMsg:
		m.snapshot = msg.Snapshot
		return m, nil

	case speech.VoicesChangedMsg:
		m.setVoices(msg.Voices)
		return m, nil

	case speech.ErrorMsg:
		m.snapshot = m.ctrl.Snapshot()
		cmd := m.showError(msg.Err)
		return m, cmd

	case speech.ReconcileTickMsg:
		m.ctrl.Reconcile()
		m.snapshot = m.ctrl.Snapshot()
		if voices := m.catalog.Voices(); !slices.Equal(voices, m.voices) {
			m.setVoices(voices)
		}
		return m, speech.ReconcileCmd(m.cfg.ReconcileInterval)

	case fileChangedMsg:
		return m, tea.Batch(loadFileCmd(m.cfg.Path), m.watcher.wait)

	case fileLoadedMsg:
		if msg.err != nil {
			log.Error("unable to read file", "file", m.cfg.Path, "error", msg.err)
			cmd := m.showError(msg.err)
			return m, cmd
		}
		stopped := m.stopForEdit()
		m.editor.SetValue(msg.text)
		if stopped {
			cmd := m.showMessage("File changed, playback stopped")
			return m, cmd
		}
		return m, nil

	case generatedMsg:
		m.generating = false
		if msg.err != nil {
			log.Error("text generation failed", "error", msg.err)
			cmd := m.showError(msg.err)
			return m, cmd
		}
		m.stopForEdit()
		m.editor.SetValue(msg.text)
		cmd := m.showMessage("Generated text inserted")
		return m, cmd

	case statusMessageTimeoutMsg:
		if msg.id == m.statusID {
			m.status = nil
		}
		return m, nil

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		cmd := m.quit()
		return m, cmd
	}

	switch m.focus {
	case focusEditor:
		if key.Matches(msg, m.keys.Focus, m.keys.Back) {
			m.setFocus(focusControls)
			return m, nil
		}
		return m.updateEditor(msg)

	case focusVoices:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.setFocus(focusControls)
		case key.Matches(msg, m.keys.Up):
			m.picker.move(-1)
		case key.Matches(msg, m.keys.Down):
			m.picker.move(1)
		case key.Matches(msg, m.keys.Choose):
			if v, ok := m.picker.selected(); ok {
				m.selection.Choose(v.ID)
				log.Debug("voice chosen", "voice", v.ID)
			}
			m.setFocus(focusControls)
		default:
			var cmd tea.Cmd
			m.picker, cmd = m.picker.update(msg)
			return m, cmd
		}
		return m, nil

	case focusPrompt:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.setFocus(focusControls)
			return m, nil
		case key.Matches(msg, m.keys.Choose):
			prompt := m.prompt.Value()
			m.setFocus(focusControls)
			cmd := m.generate(prompt)
			return m, cmd
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		cmd := m.quit()
		return m, cmd
	case key.Matches(msg, m.keys.Play):
		cmd := m.togglePlayback()
		return m, cmd
	case key.Matches(msg, m.keys.Stop):
		m.ctrl.Cancel()
		m.snapshot = m.ctrl.Snapshot()
	case key.Matches(msg, m.keys.Edit, m.keys.Focus):
		cmd := m.setFocus(focusEditor)
		return m, cmd
	case key.Matches(msg, m.keys.Voices):
		if cmd, locked := m.settingsLocked(); locked {
			return m, cmd
		}
		cmd := m.setFocus(focusVoices)
		return m, cmd
	case key.Matches(msg, m.keys.RateUp, m.keys.RateDown):
		if cmd, locked := m.settingsLocked(); locked {
			return m, cmd
		}
		step := rateStep
		if key.Matches(msg, m.keys.RateDown) {
			step = -step
		}
		m.rate = clampRate(m.rate + step)
	case key.Matches(msg, m.keys.PitchUp, m.keys.PitchDown):
		if cmd, locked := m.settingsLocked(); locked {
			return m, cmd
		}
		step := pitchStep
		if key.Matches(msg, m.keys.PitchDown) {
			step = -step
		}
		m.pitch = clampPitch(m.pitch + step)
	case key.Matches(msg, m.keys.Generate):
		if m.gen == nil {
			cmd := m.showError(textgen.ErrUnavailable)
			return m, cmd
		}
		if m.generating {
			return m, nil
		}
		cmd := m.setFocus(focusPrompt)
		return m, cmd
	case key.Matches(msg, m.keys.Copy):
		if err := clipboard.WriteAll(m.editor.Value()); err != nil {
			log.Error("unable to copy text", "error", err)
			cmd := m.showError(fmt.Errorf("unable to copy text: %w", err))
			return m, cmd
		}
		cmd := m.showMessage("Copied text to clipboard")
		return m, cmd
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.setSize(m.width, m.height)
	}
	return m, nil
}

// updateEditor passes a key to the text area. Changing the text while
// speaking or paused stops playback.
func (m model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if m.editor.Value() != before && m.stopForEdit() {
		status := m.showMessage("Text changed, playback stopped")
		return m, tea.Batch(cmd, status)
	}
	return m, cmd
}

func (m model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusEditor:
		m.editor, cmd = m.editor.Update(msg)
	case focusPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case focusVoices:
		m.picker, cmd = m.picker.update(msg)
	}
	return m, cmd
}

func (m *model) togglePlayback() tea.Cmd {
	switch m.ctrl.Snapshot().State {
	case speech.StateSpeaking:
		m.ctrl.Pause()
	case speech.StatePaused:
		m.ctrl.Resume()
	default:
		text := m.editor.Value()
		if strings.TrimSpace(text) == "" {
			return m.showError(errors.New("please enter some text to read"))
		}
		return speech.SpeakCmd(m.ctrl, speech.Request{
			Text:    text,
			VoiceID: m.selection.ID(),
			Rate:    m.rate,
			Pitch:   m.pitch,
		})
	}
	m.snapshot = m.ctrl.Snapshot()
	return nil
}

// stopForEdit cancels playback if it is active and reports whether it was.
func (m *model) stopForEdit() bool {
	if !m.ctrl.Snapshot().State.IsActive() {
		return false
	}
	log.Debug("text changed during playback, canceling")
	m.ctrl.Cancel()
	m.snapshot = m.ctrl.Snapshot()
	return true
}

func (m *model) settingsLocked() (tea.Cmd, bool) {
	if !m.ctrl.Snapshot().State.IsActive() {
		return nil, false
	}
	return m.showMessage("Stop playback to change voice, rate or pitch"), true
}

func (m *model) generate(prompt string) tea.Cmd {
	if strings.TrimSpace(prompt) == "" {
		return m.showError(textgen.ErrEmptyPrompt)
	}
	m.generating = true
	return tea.Batch(m.spinner.Tick, generateCmd(m.gen, prompt, m.cfg.GenerateTimeout))
}

func (m *model) setVoices(voices []speech.Voice) {
	m.voices = voices
	m.picker.setVoices(voices)
	if m.selection.Observe(voices) {
		log.Debug("default voice selected", "voice", m.selection.ID())
	}
}

func (m *model) setFocus(f focus) tea.Cmd {
	log.Debug("focus changed", "from", m.focus, "to", f)
	m.editor.Blur()
	m.prompt.Blur()
	m.picker.close()
	m.focus = f

	switch f {
	case focusEditor:
		return m.editor.Focus()
	case focusVoices:
		return m.picker.open(m.selection.ID())
	case focusPrompt:
		m.prompt.Reset()
		return m.prompt.Focus()
	}
	return nil
}

func (m *model) setSize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w

	const chrome = 2 // border
	m.editor.SetWidth(max(10, w-chrome))
	m.editor.SetHeight(max(3, h-m.reservedHeight()))
	m.progress.Width = max(10, w-2)
	m.prompt.Width = max(10, w-len(m.prompt.Prompt)-2)
}

// reservedHeight is the number of rows used by everything but the editor.
func (m model) reservedHeight() int {
	const (
		header    = 1
		border    = 2
		settings  = 1
		bar       = 1
		statusBar = 1
		spacing   = 2
	)
	helpHeight := 1
	if m.help.ShowAll {
		helpHeight = 4
	}
	return header + border + settings + bar + statusBar + spacing + helpHeight
}

func (m *model) showMessage(text string) tea.Cmd {
	return m.setStatus(statusMessage{text: text})
}

func (m *model) showError(err error) tea.Cmd {
	return m.setStatus(statusMessage{text: errorText(err), isError: true})
}

func (m *model) setStatus(msg statusMessage) tea.Cmd {
	m.statusID++
	m.status = &msg
	return waitForStatusMessageTimeout(m.statusID)
}

func (m *model) quit() tea.Cmd {
	m.ctrl.Cancel()
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			log.Debug("fsnotify close", "error", err)
		}
	}
	return tea.Quit
}

// errorText describes err for the status bar.
func errorText(err error) string {
	var serr *speech.SynthesisError
	if errors.As(err, &serr) {
		if serr.Category.IsBenign() {
			return "Playback " + string(serr.Category)
		}
		return fmt.Sprintf("Playback failed (%s): %v", serr.Category, serr.Err)
	}
	if errors.Is(err, speech.ErrNoEngine) {
		return "No speech engine available"
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clampRate(r float64) float64 {
	return roundTenth(math.Max(speech.MinUIRate, math.Min(speech.MaxUIRate, r)))
}

func clampPitch(p float64) float64 {
	return roundTenth(speech.ClampPitch(p))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
