package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines/mock"
	"github.com/spf13/viper"
)

func TestWriteVoiceTable(t *testing.T) {
	var buf bytes.Buffer
	if err := writeVoiceTable(&buf, mock.DefaultVoices); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != len(mock.DefaultVoices)+1 {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(mock.DefaultVoices)+1, len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "NAME") || !strings.Contains(lines[0], "ID") {
		t.Errorf("Expected a header line, got %q", lines[0])
	}

	marked := 0
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "*") {
			marked++
			if !strings.Contains(line, "mock-en-gb") {
				t.Errorf("Expected the English voice to be marked, got %q", line)
			}
		}
	}
	if marked != 1 {
		t.Errorf("Expected exactly one marked voice, got %d", marked)
	}

	// Columns line up.
	idx := strings.Index(lines[0], "ID")
	for _, line := range lines[1:] {
		if !strings.HasPrefix(string([]rune(line)[idx:]), "mock-") {
			t.Errorf("Expected ID column at %d in %q", idx, line)
		}
	}
}

func TestWriteVoiceTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeVoiceTable(&buf, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := buf.String(); got != "no voices available\n" {
		t.Errorf("Expected empty notice, got %q", got)
	}
}

func TestSpeakAndWait(t *testing.T) {
	engine := mock.New(mock.WithAutoPlay(time.Millisecond))
	ctrl := speech.NewController(engine, speech.WithHostLanguage("en-US"))

	var states []speech.State
	err := speakAndWait(context.Background(), ctrl, speech.Request{Text: "one two three", Rate: 1, Pitch: 1},
		func(s speech.Snapshot) { states = append(states, s.State) })
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(states) == 0 || states[len(states)-1] != speech.StateIdle {
		t.Errorf("Expected to end idle, got %v", states)
	}
	if s := ctrl.Snapshot(); s.State != speech.StateIdle {
		t.Errorf("Expected controller idle, got %s", s.State)
	}
}

func TestSpeakAndWaitError(t *testing.T) {
	engine := mock.New()
	engine.SetSpeakError(speech.ErrNetwork)
	ctrl := speech.NewController(engine, speech.WithHostLanguage("en-US"))

	err := speakAndWait(context.Background(), ctrl, speech.Request{Text: "hello", Rate: 1, Pitch: 1}, nil)
	var serr *speech.SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected a synthesis error, got %v", err)
	}
	if serr.Category != speech.CategoryNetwork {
		t.Errorf("Expected network category, got %s", serr.Category)
	}
}

func TestSpeakAndWaitEmptyText(t *testing.T) {
	ctrl := speech.NewController(mock.New())
	err := speakAndWait(context.Background(), ctrl, speech.Request{Text: " "}, nil)
	if !errors.Is(err, speech.ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", err)
	}
}

func TestSpeakAndWaitCanceled(t *testing.T) {
	// Manual mode: the utterance never ends on its own.
	engine := mock.New()
	ctrl := speech.NewController(engine, speech.WithHostLanguage("en-US"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := speakAndWait(ctx, ctrl, speech.Request{Text: "hello", Rate: 1, Pitch: 1}, nil); err != nil {
		t.Errorf("Expected no error after cancel, got %v", err)
	}
	if s := ctrl.Snapshot(); s.State != speech.StateIdle {
		t.Errorf("Expected controller idle, got %s", s.State)
	}
	if cancels, _, _ := engine.Counts(); cancels == 0 {
		t.Error("Expected the engine to be canceled")
	}
}

func TestLogLevel(t *testing.T) {
	defer func() {
		viper.Set("debug", false)
		viper.Set("log.level", "info")
	}()

	tests := []struct {
		debug bool
		level string
		want  log.Level
	}{
		{false, "info", log.InfoLevel},
		{false, "warn", log.WarnLevel},
		{false, "bogus", log.InfoLevel},
		{true, "error", log.DebugLevel},
	}
	for _, tt := range tests {
		viper.Set("debug", tt.debug)
		viper.Set("log.level", tt.level)
		if got := logLevel(); got != tt.want {
			t.Errorf("Expected %s for debug=%v level=%q, got %s", tt.want, tt.debug, tt.level, got)
		}
	}
}

func TestSayInput(t *testing.T) {
	defer func() { sayFile = "" }()

	raw, text, err := sayInput([]string{"hello", "world"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if raw != "hello world" || text != "hello world" {
		t.Errorf("Expected joined args, got %q / %q", raw, text)
	}

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Title\n\nSome `code` here.\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	sayFile = path
	raw, text, err = sayInput(nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.HasPrefix(raw, "# Title") {
		t.Errorf("Expected raw markdown, got %q", raw)
	}
	if strings.Contains(text, "#") {
		t.Errorf("Expected speakable text, got %q", text)
	}

	if _, _, err := sayInput([]string{"both"}); err == nil {
		t.Error("Expected an error for text and --file together")
	}
}

func TestEnsureConfigFile(t *testing.T) {
	defer func() { configFile = "" }()

	configFile = filepath.Join(t.TempDir(), "sub", "murmur.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("Expected config file to exist, got %v", err)
	}
	if string(b) != defaultConfig {
		t.Error("Expected default config contents")
	}

	// An existing file is left alone.
	if err := os.WriteFile(configFile, []byte("engine: mock\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if b, _ := os.ReadFile(configFile); string(b) != "engine: mock\n" {
		t.Errorf("Expected existing config kept, got %q", b)
	}

	configFile = filepath.Join(t.TempDir(), "murmur.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("Expected an error for a non-YAML config")
	}
}
