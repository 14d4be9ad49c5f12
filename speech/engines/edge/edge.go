// Package edge synthesizes speech with Microsoft Edge's online voices.
package edge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
	"golang.org/x/time/rate"
)

// Name identifies the engine in config and cache keys.
const Name = "edge"

// DefaultVoices is used when no voices are configured.
var DefaultVoices = []string{
	"en-US-AriaNeural",
	"en-GB-SoniaNeural",
	"fr-FR-DeniseNeural",
	"de-DE-KatjaNeural",
	"es-ES-ElviraNeural",
	"ar-SA-ZariyahNeural",
}

// Format is the PCM format of decoded Edge audio.
var Format = audio.Format{SampleRate: 24000, Channels: 2}

const (
	defaultRequestsPerMinute = 20
	synthesisTimeout         = 30 * time.Second
)

// Config configures the synthesizer.
type Config struct {
	Voices            []string
	RequestsPerMinute int
}

// streamFunc fetches MP3 audio for text.
type streamFunc func(ctx context.Context, text, voice string) ([]byte, error)

// Synthesizer fetches MP3 audio from the Edge read-aloud service and
// decodes it to PCM. The service is not given rate or pitch.
type Synthesizer struct {
	voices  []speech.Voice
	limiter *rate.Limiter
	stream  streamFunc
}

// New creates a synthesizer.
func New(cfg Config) *Synthesizer {
	names := cfg.Voices
	if len(names) == 0 {
		names = DefaultVoices
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	voices := make([]speech.Voice, 0, len(names))
	for i, name := range names {
		voices = append(voices, parseVoice(name, i == 0))
	}
	return &Synthesizer{
		voices:  voices,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		stream:  fetch,
	}
}

// Name returns the engine name.
func (s *Synthesizer) Name() string {
	return Name
}

// Format returns the PCM format of synthesized clips.
func (s *Synthesizer) Format() audio.Format {
	return Format
}

// Voices returns the configured voices.
func (s *Synthesizer) Voices(ctx context.Context) ([]speech.Voice, error) {
	return append([]speech.Voice(nil), s.voices...), nil
}

// Synthesize renders u to PCM audio.
func (s *Synthesizer) Synthesize(ctx context.Context, u *speech.Utterance) (*audio.Clip, error) {
	voice := u.VoiceID()
	if voice == "" {
		voice = s.voiceFor(u.Lang)
	}

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := s.stream(ctx, u.Text, voice)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: edge: %v", speech.ErrNetwork, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: edge returned no audio for voice %s", speech.ErrVoiceUnavailable, voice)
	}

	clip, err := audio.DecodeMP3(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", speech.ErrSynthesisFailed, err)
	}
	if clip.Format != Format {
		return nil, fmt.Errorf("%w: unexpected sample rate %d", speech.ErrSynthesisFailed, clip.Format.SampleRate)
	}
	log.Debug("edge audio decoded", "voice", voice, "mp3", len(data), "pcm", len(clip.PCM))
	return clip, nil
}

// voiceFor picks the first voice for lang, else the first voice.
func (s *Synthesizer) voiceFor(lang string) string {
	for _, v := range s.voices {
		if strings.EqualFold(v.Lang, lang) {
			return v.ID
		}
	}
	base, _, _ := strings.Cut(lang, "-")
	for _, v := range s.voices {
		if vb, _, _ := strings.Cut(v.Lang, "-"); strings.EqualFold(vb, base) {
			return v.ID
		}
	}
	return s.voices[0].ID
}

// parseVoice turns "en-US-AriaNeural" into a voice.
func parseVoice(id string, isDefault bool) speech.Voice {
	v := speech.Voice{Name: id, ID: id, Default: isDefault}
	parts := strings.SplitN(id, "-", 3)
	if len(parts) == 3 {
		v.Lang = parts[0] + "-" + parts[1]
		v.Name = strings.TrimSuffix(parts[2], "Neural")
	}
	return v
}

func fetch(ctx context.Context, text, voice string) ([]byte, error) {
	comm, err := edge.NewCommunicate(text, edge.WithVoice(voice))
	if err != nil {
		return nil, err
	}
	ch, err := comm.Stream()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			go func() {
				for range ch {
				}
			}()
			return nil, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return buf.Bytes(), nil
			}
			if t, _ := msg["type"].(string); t == "audio" {
				if data, ok := msg["data"].([]byte); ok {
					buf.Write(data)
				}
			}
		}
	}
}
