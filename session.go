package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/cache"
	"github.com/dgnsrekt/murmur/internal/textgen"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines"
	"github.com/dgnsrekt/murmur/speech/engines/edge"
	"github.com/dgnsrekt/murmur/speech/engines/espeak"
	"github.com/dgnsrekt/murmur/speech/engines/piper"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// session bundles the engine with the controller and catalog driving it.
type session struct {
	engine  speech.Engine
	ctrl    *speech.Controller
	catalog *speech.Catalog
	cache   *cache.Cache
}

func newSession() (*session, error) {
	clips, err := newCache()
	if err != nil {
		// Playback works without a cache.
		log.Warn("audio cache disabled", "error", err)
	}

	engine, err := engines.New(engineName, engines.Config{
		Espeak: espeak.Config{Binary: viper.GetString("espeak.binary")},
		Piper: piper.Config{
			Binary: viper.GetString("piper.binary"),
			Model:  viper.GetString("piper.model"),
		},
		Edge: edge.Config{
			Voices:            viper.GetStringSlice("edge.voices"),
			RequestsPerMinute: viper.GetInt("edge.requests_per_minute"),
		},
		MockWordDelay: viper.GetDuration("mock.word_delay"),
		Cache:         clips,
	})
	switch {
	case errors.Is(err, speech.ErrSynthesisUnavailable):
		// Missing tools leave murmur without speech rather than failing.
		log.Warn("speech engine unavailable", "engine", engineName, "error", err)
		engine = nil
	case err != nil:
		return nil, fmt.Errorf("unable to start %s engine: %w", engineName, err)
	}
	if engine == nil {
		log.Info("no speech engine configured")
	}

	ctrl := speech.NewController(engine,
		speech.WithReconcileInterval(viper.GetDuration("reconcile_interval")),
	)
	return &session{
		engine:  engine,
		ctrl:    ctrl,
		catalog: speech.NewCatalog(engine),
		cache:   clips,
	}, nil
}

// Close stops playback and releases the audio device.
func (s *session) Close() error {
	s.ctrl.Cancel()
	if s.cache != nil {
		s.cache.LogStats()
	}
	if c, ok := s.engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// waitForVoices returns the catalog as soon as it is non-empty, or
// whatever it holds once timeout expires.
func (s *session) waitForVoices(ctx context.Context, timeout time.Duration) []speech.Voice {
	ch := make(chan []speech.Voice, 1)
	s.catalog.OnChange(func(voices []speech.Voice) {
		if len(voices) == 0 {
			return
		}
		select {
		case ch <- voices:
		default:
		}
	})
	if voices := s.catalog.Voices(); len(voices) > 0 || s.engine == nil {
		return voices
	}

	select {
	case voices := <-ch:
		return voices
	case <-time.After(timeout):
		log.Debug("timed out waiting for voices", "timeout", timeout)
	case <-ctx.Done():
	}
	return s.catalog.Voices()
}

func newCache() (*cache.Cache, error) {
	if !viper.GetBool("cache.enabled") {
		return nil, nil
	}
	dir := viper.GetString("cache.dir")
	if dir == "" {
		base, err := gap.NewScope(gap.User, "murmur").CacheDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "clips")
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, err
	}

	cfg := cache.DefaultConfig()
	cfg.Dir = dir
	cfg.DiskCapacity = int64(viper.GetInt("cache.max_size")) << 20
	return cache.New(cfg)
}

func newGenerator(ctx context.Context) textgen.Generator {
	g, err := textgen.NewGemini(ctx, viper.GetString("textgen.api_key"), viper.GetString("textgen.model"))
	if errors.Is(err, textgen.ErrUnavailable) {
		log.Debug("text generation disabled: no API key")
		return nil
	}
	if err != nil {
		log.Warn("text generation disabled", "error", err)
		return nil
	}
	return g
}
