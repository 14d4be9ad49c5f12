package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech engine: espeak, piper, edge, mock or none
engine: "espeak"
# voice ID, see "murmur voices" (empty uses the engine default)
voice: ""
# speaking rate (0.5 to 2)
rate: 1.0
# voice pitch (0 to 2)
pitch: 1.0
# how often playback state is checked against the engine
reconcile_interval: "100ms"

log:
  # debug, info, warn or error
  level: "info"
  # file: "~/.cache/murmur/murmur.log"

# synthesized audio is kept to replay text without synthesizing it again
cache:
  enabled: true
  # dir: "~/.cache/murmur/clips"
  # size on disk in MB
  max_size: 256

espeak:
  binary: "espeak-ng"

piper:
  binary: "piper"
  # model: "~/.local/share/piper/en_US-lessac-medium.onnx"

edge:
  # voices: ["en-US-AriaNeural", "fr-FR-DeniseNeural"]
  requests_per_minute: 20

mock:
  word_delay: "250ms"

# text generation for the prompt box (g)
textgen:
  # model: "gemini-2.5-flash"
  # api_key: "" (or set GEMINI_API_KEY)
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the murmur config file",
	Long:    paragraph(fmt.Sprintf("\n%s the murmur config file with your EDITOR. A default file is written first when none exists.", keyword("Edit"))),
	Example: paragraph("murmur config\nmurmur config --config path/to/murmur.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Murmur", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Config file:", configFile)
		return nil
	},
}

// ensureConfigFile writes the default config to configFile unless a file
// is already there.
func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.ConfigFileUsed()
	}
	if configFile == "" {
		return errors.New("no config file location found")
	}

	switch ext := filepath.Ext(configFile); ext {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("%q is not a supported config type: use .yaml or .yml", ext)
	}

	_, err := os.Stat(configFile)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	log.Info("Wrote default config", "path", configFile)
	return nil
}
