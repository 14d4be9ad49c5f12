package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// File the text was loaded from. It is watched for changes.
	Path string
	// Initial text. The welcome text is used when both Path and Text are
	// empty.
	Text string

	Engine            string
	VoiceID           string
	Rate              float64
	Pitch             float64
	ReconcileInterval time.Duration
	// InputTTY opens the terminal for keys when stdin carried the text.
	InputTTY bool

	// Settings below come from the environment.
	EnableMouse     bool          `env:"MURMUR_MOUSE"`
	AltScreen       bool          `env:"MURMUR_ALT_SCREEN"       envDefault:"true"`
	EventBuffer     int           `env:"MURMUR_EVENT_BUFFER"     envDefault:"64"`
	LineNumbers     bool          `env:"MURMUR_LINE_NUMBERS"`
	GenerateTimeout time.Duration `env:"MURMUR_GENERATE_TIMEOUT" envDefault:"60s"`
}
