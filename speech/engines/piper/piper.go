// Package piper synthesizes speech with the piper neural TTS command line
// tool. A piper model holds a single voice.
package piper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines/internal/command"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/text/language"
)

// Name identifies the engine in config and cache keys.
const Name = "piper"

const (
	// DefaultBinary is looked up on PATH.
	DefaultBinary     = "piper"
	defaultSampleRate = 22050
	synthesisTimeout  = 30 * time.Second
)

// Config configures the synthesizer.
type Config struct {
	Binary string
	Model  string
}

// Synthesizer runs piper once per utterance.
type Synthesizer struct {
	binary string
	model  string
	voice  speech.Voice
	format audio.Format
	run    command.Runner
}

// New creates a synthesizer for the model in cfg. The model's JSON
// config, if present next to it, provides the sample rate.
func New(cfg Config) (*Synthesizer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: piper model path is required", speech.ErrInvalidArgument)
	}
	model, err := homedir.Expand(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", speech.ErrInvalidArgument, err)
	}
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	return &Synthesizer{
		binary: binary,
		model:  model,
		voice:  modelVoice(model),
		format: audio.Format{SampleRate: modelSampleRate(model), Channels: 1},
		run:    command.Run,
	}, nil
}

// Name returns the engine name.
func (s *Synthesizer) Name() string {
	return Name
}

// Format returns the PCM format of synthesized clips.
func (s *Synthesizer) Format() audio.Format {
	return s.format
}

// Check verifies that the binary and the model exist.
func (s *Synthesizer) Check() error {
	if _, err := command.Check(s.binary); err != nil {
		return fmt.Errorf("%w: %v", speech.ErrSynthesisUnavailable, err)
	}
	if _, err := os.Stat(s.model); err != nil {
		return fmt.Errorf("%w: model: %v", speech.ErrVoiceUnavailable, err)
	}
	return nil
}

// Voices returns the model's voice.
func (s *Synthesizer) Voices(ctx context.Context) ([]speech.Voice, error) {
	return []speech.Voice{s.voice}, nil
}

// Synthesize runs piper. Pitch is not supported by piper and is ignored.
func (s *Synthesizer) Synthesize(ctx context.Context, u *speech.Utterance) (*audio.Clip, error) {
	if id := u.VoiceID(); id != "" && id != s.voice.ID {
		return nil, fmt.Errorf("%w: %s", speech.ErrVoiceUnavailable, id)
	}

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	out, err := s.run(ctx, s.binary, s.args(u), u.Text)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: piper produced no audio", speech.ErrSynthesisFailed)
	}
	// Drop a trailing odd byte; samples are two bytes wide.
	out = out[:len(out)/2*2]
	return &audio.Clip{Format: s.format, PCM: out}, nil
}

func (s *Synthesizer) args(u *speech.Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = speech.DefaultRate
	}
	return []string{
		"--model", s.model,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", 1/rate),
	}
}

// modelVoice derives the voice from a model file such as
// "en_US-lessac-medium.onnx".
func modelVoice(model string) speech.Voice {
	id := strings.TrimSuffix(filepath.Base(model), filepath.Ext(model))
	parts := strings.SplitN(id, "-", 3)

	v := speech.Voice{Name: id, ID: id, Default: true}
	if tag, err := language.Parse(strings.ReplaceAll(parts[0], "_", "-")); err == nil {
		v.Lang = tag.String()
	}
	if len(parts) > 1 {
		v.Name = parts[1]
		if len(parts) > 2 {
			v.Name += " (" + parts[2] + ")"
		}
	}
	return v
}

type modelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
}

// modelSampleRate reads the sample rate from "<model>.json".
func modelSampleRate(model string) int {
	data, err := os.ReadFile(model + ".json")
	if err != nil {
		return defaultSampleRate
	}
	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Audio.SampleRate == 0 {
		return defaultSampleRate
	}
	return cfg.Audio.SampleRate
}
