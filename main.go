// Package main provides the entry point for the murmur CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/markdown"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines"
	"github.com/dgnsrekt/murmur/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	engineName string
	voiceID    string
	rate       float64
	pitch      float64

	rootCmd = &cobra.Command{
		Use:   "murmur [FILE|-]",
		Short: "Read text aloud in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead text aloud in the terminal, %s!", keyword("softly")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// config must open even when the file does not validate.
			if name := cmd.Name(); name == "config" || name == "man" {
				return nil
			}
			if cmd.Flags().Changed("config") {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}
			return validateOptions()
		},
		RunE: execute,
	}
)

// source is text to read and, for files, where it came from.
type source struct {
	text string
	path string
}

// sourceFromArg reads the text named by arg: "-" for stdin, else a file.
// Markdown files are converted to speakable text.
func sourceFromArg(arg string) (*source, error) {
	if arg == "-" {
		return sourceFromReader(os.Stdin)
	}

	st, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}
	text, err := markdown.ReadFile(arg)
	if err != nil {
		return nil, err
	}
	u, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{text: text, path: u}, nil
}

func sourceFromReader(r io.Reader) (*source, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read from reader: %w", err)
	}
	return &source{text: markdown.ToSpeech(b)}, nil
}

func validateOptions() error {
	log.SetLevel(logLevel())

	engineName = strings.ToLower(viper.GetString("engine"))
	if engineName == "" {
		engineName = engines.None
	}
	if !slices.Contains(engines.Names(), engineName) {
		return fmt.Errorf("unknown engine %q: use one of %s", engineName, strings.Join(engines.Names(), ", "))
	}

	voiceID = viper.GetString("voice")
	rate = viper.GetFloat64("rate")
	pitch = viper.GetFloat64("pitch")
	return validateSpeechConfig()
}

// validateSpeechConfig validates speech configuration values.
func validateSpeechConfig() error {
	if rate < speech.MinUIRate || rate > speech.MaxUIRate {
		return fmt.Errorf("rate must be between %.1f and %.1f, got %.2f", speech.MinUIRate, speech.MaxUIRate, rate)
	}
	if pitch < speech.MinPitch || pitch > speech.MaxPitch {
		return fmt.Errorf("pitch must be between %.1f and %.1f, got %.2f", speech.MinPitch, speech.MaxPitch, pitch)
	}

	if d := viper.GetDuration("reconcile_interval"); d < 10*time.Millisecond || d > 5*time.Second {
		return fmt.Errorf("reconcile_interval must be between 10ms and 5s, got %s", d)
	}

	maxCacheSize := viper.GetInt("cache.max_size")
	if maxCacheSize < 1 || maxCacheSize > 10000 {
		return fmt.Errorf("cache max_size must be between 1 and 10000 MB, got %d", maxCacheSize)
	}

	if rpm := viper.GetInt("edge.requests_per_minute"); rpm < 1 || rpm > 600 {
		return fmt.Errorf("edge requests_per_minute must be between 1 and 600, got %d", rpm)
	}

	if engineName == engines.Piper && viper.GetString("piper.model") == "" {
		return errors.New("the piper engine needs a voice model: set piper.model")
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(_ *cobra.Command, args []string) error {
	// if stdin is a pipe then use stdin for input. note that you can also
	// explicitly use a - to read from stdin.
	piped, err := stdinIsPipe()
	if err != nil {
		return err
	}

	var src *source
	switch {
	case len(args) == 1:
		src, err = sourceFromArg(args[0])
	case piped:
		src, err = sourceFromReader(os.Stdin)
	default:
		src = &source{}
	}
	if err != nil {
		return err
	}

	return runTUI(src, piped || (len(args) == 1 && args[0] == "-"))
}

func runTUI(src *source, inputTTY bool) error {
	// Read environment to get UI switches
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Path = src.path
	cfg.Text = src.text
	cfg.Engine = engineName
	cfg.VoiceID = voiceID
	cfg.Rate = rate
	cfg.Pitch = pitch
	cfg.ReconcileInterval = viper.GetDuration("reconcile_interval")
	cfg.InputTTY = inputTTY

	sess, err := newSession()
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("unable to close engine", "error", err)
		}
	}()

	gen := newGenerator(context.Background())

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, sess.ctrl, sess.catalog, gen).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.StringP("engine", "e", engines.Espeak, fmt.Sprintf("speech engine (%s)", strings.Join(engines.Names(), ", ")))
	flags.String("voice", "", "voice ID (see murmur voices)")
	flags.Float64P("rate", "r", speech.DefaultRate, "speaking rate (0.5 to 2)")
	flags.Float64P("pitch", "p", speech.DefaultPitch, "voice pitch (0 to 2)")
	flags.Bool("debug", false, "log debug output")

	// Config bindings
	_ = viper.BindPFlag("engine", flags.Lookup("engine"))
	_ = viper.BindPFlag("voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("pitch", flags.Lookup("pitch"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindEnv("textgen.api_key", "MURMUR_TEXTGEN_API_KEY", "GEMINI_API_KEY")

	viper.SetDefault("engine", engines.Espeak)
	viper.SetDefault("rate", speech.DefaultRate)
	viper.SetDefault("pitch", speech.DefaultPitch)
	viper.SetDefault("reconcile_interval", speech.DefaultReconcileInterval)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size", 256)
	viper.SetDefault("espeak.binary", "espeak-ng")
	viper.SetDefault("piper.binary", "piper")
	viper.SetDefault("piper.model", "")
	viper.SetDefault("edge.voices", []string{})
	viper.SetDefault("edge.requests_per_minute", 20)
	viper.SetDefault("mock.word_delay", 250*time.Millisecond)
	viper.SetDefault("textgen.model", "")

	rootCmd.AddCommand(configCmd, manCmd, sayCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "murmur")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "murmur")}, dirs...)
	}

	if c := os.Getenv("MURMUR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("murmur")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("murmur")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}
	if len(dirs) == 0 {
		return
	}

	configFile = filepath.Join(dirs[0], "murmur.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
