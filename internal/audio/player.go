package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrClosed is returned when playing on a closed player.
var ErrClosed = errors.New("audio player is closed")

// Sink plays one clip at a time.
type Sink interface {
	Play(clip *Clip) error
	Pause()
	Resume()
	Stop()
	// Position returns how much of the current clip has been heard.
	Position() time.Duration
	// Finished reports whether the current clip played to its end.
	Finished() bool
	Close() error
}

// Player is a Sink backed by the system audio device through oto.
// Only one oto context may exist per process.
type Player struct {
	context *oto.Context
	format  Format

	mu     sync.Mutex
	player *oto.Player
	// clip keeps the PCM reachable while oto reads from it.
	clip       *Clip
	startTime  time.Time
	pausedAt   time.Duration
	totalPause time.Duration
	paused     bool
	closed     bool
}

// NewPlayer opens the audio device for the given format.
func NewPlayer(format Format) (*Player, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Player{context: ctx, format: format}, nil
}

// Format returns the format the device was opened with.
func (p *Player) Format() Format {
	return p.format
}

// Play starts clip from the beginning, replacing any clip playing now.
func (p *Player) Play(clip *Clip) error {
	if clip == nil || len(clip.PCM) == 0 {
		return fmt.Errorf("%w: empty clip", ErrInvalidFormat)
	}
	if clip.Format != p.format {
		return fmt.Errorf("%w: clip is %d Hz/%d ch, device is %d Hz/%d ch",
			ErrInvalidFormat, clip.Format.SampleRate, clip.Format.Channels, p.format.SampleRate, p.format.Channels)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.stopLocked()

	player := p.context.NewPlayer(bytes.NewReader(clip.PCM))
	p.player = player
	p.clip = clip
	p.startTime = time.Now()
	p.pausedAt = 0
	p.totalPause = 0
	p.paused = false
	player.Play()
	return nil
}

// Pause holds playback at the current position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil || p.paused {
		return
	}
	p.pausedAt = p.positionLocked()
	p.paused = true
	p.player.Pause()
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil || !p.paused {
		return
	}
	// The pause began at startTime + totalPause + pausedAt.
	p.totalPause += time.Since(p.startTime.Add(p.totalPause + p.pausedAt))
	p.paused = false
	p.player.Play()
}

// Stop ends playback and drops the clip.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Position returns how much of the clip has been played.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// Finished reports whether the whole clip has played.
func (p *Player) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil || p.paused {
		return false
	}
	return !p.player.IsPlaying()
}

// Close stops playback. The oto context itself lives until the process
// exits.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}

func (p *Player) positionLocked() time.Duration {
	if p.player == nil {
		return 0
	}
	if p.paused {
		return p.pausedAt
	}
	elapsed := time.Since(p.startTime) - p.totalPause
	if d := p.clip.Duration(); elapsed > d {
		elapsed = d
	}
	return elapsed
}

func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Pause()
		_ = p.player.Close()
		p.player = nil
	}
	p.clip = nil
	p.pausedAt = 0
	p.totalPause = 0
	p.paused = false
}
