package espeak

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines/internal/command"
)

const voicesOutput = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  de              --/M      German             gmw/de
 2  en-gb           --/M      English_(Great_Britain) gmw/en              (en 2)
 2  en-us           --/M      English_(America)  gmw/en-US            (en 3)
 5  fr-fr           --/M      French_(France)    roa/fr
`

func TestParseVoices(t *testing.T) {
	voices := parseVoices([]byte(voicesOutput))
	if len(voices) != 5 {
		t.Fatalf("Expected 5 voices, got %d", len(voices))
	}

	gb := voices[2]
	want := speech.Voice{Name: "English (Great Britain)", Lang: "en-gb", ID: "en-gb", Default: true}
	if gb != want {
		t.Errorf("Expected %+v, got %+v", want, gb)
	}
	for i, v := range voices {
		if i != 2 && v.Default {
			t.Errorf("Expected only en-gb to be default, %s is too", v.ID)
		}
	}
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		u    *speech.Utterance
		want []string
	}{
		{
			name: "voice",
			u:    &speech.Utterance{Voice: &speech.Voice{ID: "de"}, Lang: "de", Rate: 1, Pitch: 1},
			want: []string{"--stdout", "-s", "175", "-p", "50", "-v", "de", "--stdin"},
		},
		{
			name: "language fallback",
			u:    &speech.Utterance{Lang: "en-US", Rate: 2, Pitch: 2},
			want: []string{"--stdout", "-s", "350", "-p", "99", "-v", "en-us", "--stdin"},
		},
		{
			name: "clamped",
			u:    &speech.Utterance{Lang: "fr", Rate: 0.1, Pitch: 0},
			want: []string{"--stdout", "-s", "80", "-p", "0", "-v", "fr", "--stdin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := args(tt.u); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func wav(pcm []byte) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint32(22050))
	binary.Write(&b, binary.LittleEndian, uint32(44100))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(0x7FFFFFFF))
	b.Write(pcm)
	return b.Bytes()
}

func TestSynthesize(t *testing.T) {
	s := New(Config{})
	var gotStdin string
	s.run = func(ctx context.Context, name string, args []string, stdin string) ([]byte, error) {
		if name != DefaultBinary {
			t.Errorf("Expected %s, got %s", DefaultBinary, name)
		}
		gotStdin = stdin
		return wav(make([]byte, 4410)), nil
	}

	clip, err := s.Synthesize(context.Background(), &speech.Utterance{Text: "hello", Lang: "en-US", Rate: 1, Pitch: 1})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if gotStdin != "hello" {
		t.Errorf("Expected text on stdin, got %q", gotStdin)
	}
	if clip.Format != Format || len(clip.PCM) != 4410 {
		t.Errorf("Unexpected clip %+v with %d bytes", clip.Format, len(clip.PCM))
	}
}

func TestSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name string
		out  []byte
		err  error
		want speech.Category
	}{
		{
			name: "unknown voice",
			err:  &command.Error{Name: DefaultBinary, Stderr: "Failed to read voice 'xx'", Err: errors.New("exit status 1")},
			want: speech.CategoryVoiceUnavailable,
		},
		{
			name: "crash",
			err:  &command.Error{Name: DefaultBinary, Err: errors.New("signal: segmentation fault")},
			want: speech.CategorySynthesisFailed,
		},
		{
			name: "garbage output",
			out:  []byte("nope"),
			want: speech.CategorySynthesisFailed,
		},
		{
			name: "empty audio",
			out:  wav(nil),
			want: speech.CategorySynthesisFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Binary: "espeak-ng"})
			s.run = func(context.Context, string, []string, string) ([]byte, error) {
				return tt.out, tt.err
			}
			_, err := s.Synthesize(context.Background(), &speech.Utterance{Text: "x", Rate: 1, Pitch: 1})
			if got := speech.Classify(err); got != tt.want {
				t.Errorf("Expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestCheckMissingBinary(t *testing.T) {
	s := New(Config{Binary: "definitely-not-espeak-ng-binary"})
	if err := s.Check(); !errors.Is(err, speech.ErrSynthesisUnavailable) {
		t.Errorf("Expected ErrSynthesisUnavailable, got %v", err)
	}
}
