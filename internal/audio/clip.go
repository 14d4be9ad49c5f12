package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// ErrInvalidFormat is returned for audio that cannot be played.
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerSecond returns the data rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Validate checks that the format can be played.
func (f Format) Validate() error {
	if f.SampleRate < 8000 || f.SampleRate > 192000 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	return nil
}

// Clip is a block of PCM audio.
type Clip struct {
	Format Format
	PCM    []byte
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	bps := c.Format.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(len(c.PCM)) * time.Second / time.Duration(bps)
}

// FromWAV reads a RIFF/WAVE file holding 16-bit PCM.
func FromWAV(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a WAV file", ErrInvalidFormat)
	}

	var (
		format Format
		bits   uint16
		pos    = 12
	)
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidFormat)
			}
			format.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = binary.LittleEndian.Uint16(body[14:16])
		case "data":
			if bits != 16 {
				return nil, fmt.Errorf("%w: %d bits per sample", ErrInvalidFormat, bits)
			}
			// Streaming writers leave the size unset.
			if size == 0 || size > len(body) {
				size = len(body)
			}
			clip := &Clip{Format: format, PCM: body[:size]}
			return clip, format.Validate()
		}

		pos += 8 + size + size%2
	}
	return nil, fmt.Errorf("%w: no data chunk", ErrInvalidFormat)
}

// DecodeMP3 decodes an MP3 stream. The result is always stereo.
func DecodeMP3(r io.Reader) (*Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, fmt.Errorf("mp3 decode: %w", err)
	}
	return &Clip{
		Format: Format{SampleRate: dec.SampleRate(), Channels: 2},
		PCM:    buf.Bytes(),
	}, nil
}
