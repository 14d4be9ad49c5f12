// Package espeak synthesizes speech with the espeak-ng command line tool.
package espeak

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines/internal/command"
)

// Name identifies the engine in config and cache keys.
const Name = "espeak"

const (
	// DefaultBinary is looked up on PATH.
	DefaultBinary = "espeak-ng"

	baseWPM   = 175
	minWPM    = 80
	maxWPM    = 500
	basePitch = 50

	synthesisTimeout = 30 * time.Second
)

// Format is the PCM format espeak-ng writes.
var Format = audio.Format{SampleRate: 22050, Channels: 1}

// Config configures the synthesizer.
type Config struct {
	Binary string
}

// Synthesizer runs espeak-ng once per utterance.
type Synthesizer struct {
	binary string
	run    command.Runner
}

// New creates a synthesizer.
func New(cfg Config) *Synthesizer {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return &Synthesizer{binary: binary, run: command.Run}
}

// Name returns the engine name.
func (s *Synthesizer) Name() string {
	return Name
}

// Format returns the PCM format of synthesized clips.
func (s *Synthesizer) Format() audio.Format {
	return Format
}

// Check verifies that the binary is installed.
func (s *Synthesizer) Check() error {
	if _, err := command.Check(s.binary); err != nil {
		return fmt.Errorf("%w: %v", speech.ErrSynthesisUnavailable, err)
	}
	return nil
}

// Voices lists the installed espeak-ng languages.
func (s *Synthesizer) Voices(ctx context.Context) ([]speech.Voice, error) {
	out, err := s.run(ctx, s.binary, []string{"--voices"}, "")
	if err != nil {
		return nil, err
	}
	return parseVoices(out), nil
}

// Synthesize renders u to PCM audio.
func (s *Synthesizer) Synthesize(ctx context.Context, u *speech.Utterance) (*audio.Clip, error) {
	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	out, err := s.run(ctx, s.binary, args(u), u.Text)
	if err != nil {
		return nil, classify(err)
	}

	clip, err := audio.FromWAV(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", speech.ErrSynthesisFailed, err)
	}
	if len(clip.PCM) == 0 {
		return nil, fmt.Errorf("%w: espeak-ng produced no audio", speech.ErrSynthesisFailed)
	}
	return clip, nil
}

func args(u *speech.Utterance) []string {
	voice := u.VoiceID()
	if voice == "" {
		voice = strings.ToLower(u.Lang)
	}
	a := []string{
		"--stdout",
		"-s", strconv.Itoa(wpm(u.Rate)),
		"-p", strconv.Itoa(pitch(u.Pitch)),
	}
	if voice != "" {
		a = append(a, "-v", voice)
	}
	return append(a, "--stdin")
}

func wpm(rate float64) int {
	w := int(math.Round(baseWPM * rate))
	return min(max(w, minWPM), maxWPM)
}

func pitch(p float64) int {
	v := int(math.Round(basePitch * p))
	return min(max(v, 0), 99)
}

// classify maps espeak-ng failures to speech errors.
func classify(err error) error {
	var cerr *command.Error
	if errors.As(err, &cerr) && strings.Contains(strings.ToLower(cerr.Stderr), "voice") {
		return fmt.Errorf("%w: %v", speech.ErrVoiceUnavailable, err)
	}
	return err
}

// parseVoices reads the table printed by "espeak-ng --voices":
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseVoices(out []byte) []speech.Voice {
	var voices []speech.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}
		lang, file := fields[1], fields[4]
		voices = append(voices, speech.Voice{
			Name:    strings.ReplaceAll(fields[3], "_", " "),
			Lang:    lang,
			ID:      lang,
			Default: file == "gmw/en" || lang == "en",
		})
	}
	return voices
}
