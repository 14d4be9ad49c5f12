package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/markdown"
	"github.com/dgnsrekt/murmur/internal/textgen"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/fsnotify/fsnotify"
)

const statusMessageTimeout = time.Second * 3

type (
	// eventMsg wraps a message forwarded from a controller or catalog
	// callback.
	eventMsg struct{ msg tea.Msg }

	fileChangedMsg struct{}
	fileLoadedMsg  struct {
		text string
		err  error
	}
	generatedMsg struct {
		text string
		err  error
	}
	statusMessageTimeoutMsg struct{ id int }
)

// bridge forwards callbacks, which may fire on any goroutine, into the
// program. Sends never block because a callback can run inside Update.
// When the queue is full, snapshots and voice lists are dropped; the
// reconcile tick reads both again. Errors are queued from a goroutine
// instead.
type bridge struct {
	ch chan tea.Msg
}

func newBridge(size int) *bridge {
	if size <= 0 {
		size = 1
	}
	return &bridge{ch: make(chan tea.Msg, size)}
}

func (b *bridge) attach(ctrl *speech.Controller, catalog *speech.Catalog) {
	ctrl.OnChange(func(s speech.Snapshot) {
		b.send(speech.StateChangedMsg{Snapshot: s})
	})
	ctrl.OnError(func(err error) {
		b.deliver(speech.ErrorMsg{Err: err})
	})
	catalog.OnChange(func(voices []speech.Voice) {
		b.send(speech.VoicesChangedMsg{Voices: voices})
	})
}

func (b *bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		log.Warn("ui event queue full, dropping event", "type", fmt.Sprintf("%T", msg))
	}
}

// deliver queues msg without blocking the caller and without dropping it.
func (b *bridge) deliver(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		log.Debug("ui event queue full, delivering later", "type", fmt.Sprintf("%T", msg))
		go func() { b.ch <- msg }()
	}
}

func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return eventMsg{<-b.ch}
	}
}

func generateCmd(gen textgen.Generator, prompt string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := gen.Generate(ctx, prompt)
		return generatedMsg{text: text, err: err}
	}
}

func loadFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		text, err := markdown.ReadFile(path)
		return fileLoadedMsg{text: text, err: err}
	}
}

func waitForStatusMessageTimeout(id int) tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{id: id}
	})
}

// fileWatcher reports writes to a single file by watching its directory,
// which survives editors that replace the file on save.
type fileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

func newFileWatcher(path string) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	log.Info("fsnotify watching dir", "dir", dir)
	return &fileWatcher{path: abs, watcher: w}, nil
}

func (f *fileWatcher) wait() tea.Msg {
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != f.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return fileChangedMsg{}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "file", f.path, "error", err)
		}
	}
}

func (f *fileWatcher) Close() error {
	return f.watcher.Close()
}
