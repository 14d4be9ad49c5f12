package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/markdown"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	sayFile   string
	sayRender bool

	sayCmd = &cobra.Command{
		Use:   "say [TEXT...]",
		Short: "Speak text without the TUI",
		Long: paragraph(fmt.Sprintf("\n%s the given text, a file or stdin and exit when done. Ctrl-C stops playback.",
			keyword("Speak"))),
		Example: paragraph("murmur say hello there\nmurmur say -f README.md --render\necho hi | murmur say"),
		RunE:    runSay,
	}
)

func init() {
	sayCmd.Flags().StringVarP(&sayFile, "file", "f", "", "read the text from a file (- for stdin)")
	sayCmd.Flags().BoolVar(&sayRender, "render", false, "print the markdown while speaking")
}

func runSay(cmd *cobra.Command, args []string) error {
	raw, text, err := sayInput(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return speech.ErrEmptyText
	}

	if sayRender {
		out, err := renderMarkdown(raw)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	}

	sess, err := newSession()
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("unable to close engine", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sess.ctrl.Run(ctx)

	var report func(speech.Snapshot)
	if term.IsTerminal(int(os.Stderr.Fd())) { //nolint:gosec
		report = progressReporter(os.Stderr)
	}

	err = speakAndWait(ctx, sess.ctrl, speech.Request{
		Text:    text,
		VoiceID: voiceID,
		Rate:    rate,
		Pitch:   pitch,
	}, report)
	if report != nil {
		fmt.Fprintln(os.Stderr)
	}

	var serr *speech.SynthesisError
	if errors.As(err, &serr) && serr.Category.IsBenign() {
		return nil
	}
	return err
}

// sayInput returns the raw input and the text to speak.
func sayInput(args []string) (string, string, error) {
	switch {
	case sayFile != "" && len(args) > 0:
		return "", "", errors.New("pass either text or --file, not both")
	case len(args) > 0:
		raw := strings.Join(args, " ")
		return raw, raw, nil
	case sayFile == "" || sayFile == "-":
		piped, err := stdinIsPipe()
		if err != nil {
			return "", "", err
		}
		if !piped && sayFile == "" {
			return "", "", errors.New("nothing to say: pass text, --file or pipe to stdin")
		}
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		return string(b), markdown.ToSpeech(b), nil
	default:
		b, err := os.ReadFile(sayFile)
		if err != nil {
			return "", "", fmt.Errorf("unable to read file: %w", err)
		}
		if markdown.IsMarkdownFile(sayFile) {
			return string(b), markdown.ToSpeech(b), nil
		}
		return string(b), string(b), nil
	}
}

func renderMarkdown(src string) (string, error) {
	style := styles.LightStyle
	if termenv.HasDarkBackground() {
		style = styles.DarkStyle
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(80), //nolint:mnd
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(string(markdown.RemoveFrontmatter([]byte(src))))
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}

// speakAndWait speaks req and blocks until the controller is idle again.
// It returns the utterance error, if any. Canceling ctx stops playback.
func speakAndWait(ctx context.Context, ctrl *speech.Controller, req speech.Request, report func(speech.Snapshot)) error {
	var (
		mu      sync.Mutex
		failure error
		once    sync.Once
		done    = make(chan struct{})
	)
	ctrl.OnError(func(err error) {
		mu.Lock()
		failure = err
		mu.Unlock()
	})
	ctrl.OnChange(func(s speech.Snapshot) {
		if report != nil {
			report(s)
		}
		if s.State == speech.StateIdle {
			once.Do(func() { close(done) })
		}
	})
	defer func() {
		ctrl.OnChange(nil)
		ctrl.OnError(nil)
	}()

	if err := ctrl.Speak(req); err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		ctrl.Cancel()
		<-done
	}

	mu.Lock()
	defer mu.Unlock()
	return failure
}

// progressReporter draws a progress bar on a single terminal line.
func progressReporter(w io.Writer) func(speech.Snapshot) {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)) //nolint:mnd
	var mu sync.Mutex
	return func(s speech.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\r%s %-8s", bar.ViewAs(s.Progress), s.State)
	}
}
