// Package engines builds speech engines by name.
package engines

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/internal/cache"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines/edge"
	"github.com/dgnsrekt/murmur/speech/engines/espeak"
	"github.com/dgnsrekt/murmur/speech/engines/mock"
	"github.com/dgnsrekt/murmur/speech/engines/piper"
)

// Engine names.
const (
	None   = "none"
	Mock   = "mock"
	Espeak = espeak.Name
	Piper  = piper.Name
	Edge   = edge.Name
)

const voiceLoadTimeout = 15 * time.Second

// Config holds the settings of every engine.
type Config struct {
	Espeak espeak.Config
	Piper  piper.Config
	Edge   edge.Config

	// MockWordDelay paces the mock engine.
	MockWordDelay time.Duration
	// Cache, if set, stores synthesized audio.
	Cache *cache.Cache
}

// Names returns the engine names New accepts.
func Names() []string {
	names := []string{None, Mock, Espeak, Piper, Edge}
	sort.Strings(names)
	return names
}

// checker is implemented by synthesizers that depend on external tools.
type checker interface {
	Check() error
}

// New creates the named engine. "none" and "" return a nil engine, which
// the controller treats as synthesis being unavailable.
//
// Engines backed by a Driver load their voices in the background and
// should be closed when no longer needed.
func New(name string, cfg Config) (speech.Engine, error) {
	var synth Synthesizer
	switch name {
	case "", None:
		return nil, nil
	case Mock:
		delay := cfg.MockWordDelay
		if delay <= 0 {
			delay = 250 * time.Millisecond
		}
		return mock.New(mock.WithAutoPlay(delay)), nil
	case Espeak:
		synth = espeak.New(cfg.Espeak)
	case Piper:
		s, err := piper.New(cfg.Piper)
		if err != nil {
			return nil, err
		}
		synth = s
	case Edge:
		synth = edge.New(cfg.Edge)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q (want one of %v)", speech.ErrInvalidArgument, name, Names())
	}

	if c, ok := synth.(checker); ok {
		if err := c.Check(); err != nil {
			return nil, err
		}
	}

	player, err := audio.NewPlayer(synth.Format())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", speech.ErrAudioHardware, err)
	}

	var opts []DriverOption
	if cfg.Cache != nil {
		opts = append(opts, WithCache(cfg.Cache))
	}
	d := NewDriver(synth, player, opts...)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), voiceLoadTimeout)
		defer cancel()
		if err := d.LoadVoices(ctx); err != nil {
			log.Warn("voice list unavailable", "engine", name, "err", err)
		}
	}()

	log.Debug("engine ready", "engine", name, "format", synth.Format())
	return d, nil
}
