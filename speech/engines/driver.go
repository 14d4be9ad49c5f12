package engines

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/internal/boundary"
	"github.com/dgnsrekt/murmur/internal/cache"
	"github.com/dgnsrekt/murmur/speech"
)

// DefaultPollInterval is how often the driver samples playback position.
const DefaultPollInterval = 50 * time.Millisecond

// DefaultMaxTextLength is the longest text, in runes, a driver accepts.
const DefaultMaxTextLength = 5000

// Synthesizer turns an utterance into PCM audio.
type Synthesizer interface {
	Name() string
	// Format is the format of every clip Synthesize returns.
	Format() audio.Format
	Voices(ctx context.Context) ([]speech.Voice, error)
	Synthesize(ctx context.Context, u *speech.Utterance) (*audio.Clip, error)
}

// Driver implements speech.Engine on top of a Synthesizer and an audio
// sink. Synthesis runs in the background; the start event fires when audio
// begins, word boundaries are estimated from the playback position.
type Driver struct {
	synth   Synthesizer
	sink    audio.Sink
	cache   *cache.Cache
	poll    time.Duration
	maxText int

	mu       sync.Mutex
	voices   []speech.Voice
	onVoices func()
	job      *job
	speaking bool
	paused   bool
	closed   bool
}

type job struct {
	u        *speech.Utterance
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	schedule *boundary.Schedule
	last     int
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithCache stores synthesized audio in c.
func WithCache(c *cache.Cache) DriverOption {
	return func(d *Driver) {
		d.cache = c
	}
}

// WithPollInterval sets the position sampling interval. Zero disables the
// background loop; callers then drive progress with Poll.
func WithPollInterval(interval time.Duration) DriverOption {
	return func(d *Driver) {
		d.poll = interval
	}
}

// WithMaxTextLength limits the utterance length in runes. Zero means no
// limit.
func WithMaxTextLength(n int) DriverOption {
	return func(d *Driver) {
		d.maxText = n
	}
}

// NewDriver creates a driver. Voices are empty until LoadVoices runs.
func NewDriver(synth Synthesizer, sink audio.Sink, opts ...DriverOption) *Driver {
	d := &Driver{
		synth:   synth,
		sink:    sink,
		poll:    DefaultPollInterval,
		maxText: DefaultMaxTextLength,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the synthesizer name.
func (d *Driver) Name() string {
	return d.synth.Name()
}

// LoadVoices fetches the synthesizer's voices and fires the change
// notification.
func (d *Driver) LoadVoices(ctx context.Context) error {
	voices, err := d.synth.Voices(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to list voices: %w", d.synth.Name(), err)
	}

	d.mu.Lock()
	d.voices = voices
	fn := d.onVoices
	d.mu.Unlock()

	log.Debug("voices loaded", "engine", d.synth.Name(), "count", len(voices))
	if fn != nil {
		fn()
	}
	return nil
}

// Voices returns the voices loaded by LoadVoices.
func (d *Driver) Voices() []speech.Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]speech.Voice(nil), d.voices...)
}

// OnVoicesChanged registers fn to run after each LoadVoices.
func (d *Driver) OnVoicesChanged(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onVoices = fn
}

// Speak replaces any active utterance with u. Synthesis and playback
// happen in the background; only overlong text fails here.
func (d *Driver) Speak(u *speech.Utterance) error {
	if n := utf8.RuneCountInString(u.Text); d.maxText > 0 && n > d.maxText {
		return fmt.Errorf("%w: %d characters (max %d)", speech.ErrTextTooLong, n, d.maxText)
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{u: u, ctx: ctx, cancel: cancel, last: -1}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		cancel()
		return speech.ErrSynthesisUnavailable
	}
	prev := d.stopLocked()
	d.job = j
	d.speaking = true
	d.paused = false
	d.mu.Unlock()

	notifyStopped(prev)
	go d.run(j)
	return nil
}

// Pause pauses the active utterance. Before audio starts, the pause is
// applied once playback begins.
func (d *Driver) Pause() {
	d.mu.Lock()
	if !d.speaking || d.paused || d.job == nil {
		d.mu.Unlock()
		return
	}
	d.paused = true
	if d.job.started {
		d.sink.Pause()
	}
	u := d.job.u
	d.mu.Unlock()

	u.NotifyPause()
}

// Resume continues a paused utterance.
func (d *Driver) Resume() {
	d.mu.Lock()
	if !d.paused || d.job == nil {
		d.mu.Unlock()
		return
	}
	d.paused = false
	if d.job.started {
		d.sink.Resume()
	}
	u := d.job.u
	d.mu.Unlock()

	u.NotifyResume()
}

// Cancel stops the active utterance. It reports interrupted if audio had
// started and canceled otherwise.
func (d *Driver) Cancel() {
	d.mu.Lock()
	prev := d.stopLocked()
	d.mu.Unlock()

	notifyStopped(prev)
}

// Speaking reports whether an utterance is active, paused or not.
func (d *Driver) Speaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speaking
}

// Paused reports whether the active utterance is paused.
func (d *Driver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Poll samples the playback position once, emitting a boundary or the end
// event when due.
func (d *Driver) Poll() {
	d.mu.Lock()
	j := d.job
	d.mu.Unlock()
	if j != nil {
		d.step(j)
	}
}

// Close cancels playback and releases the audio device.
func (d *Driver) Close() error {
	d.Cancel()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.sink.Close()
}

func (d *Driver) run(j *job) {
	clip, err := d.synthesize(j.ctx, j.u)
	if err != nil {
		if j.ctx.Err() != nil {
			return
		}
		if d.finish(j) {
			j.u.NotifyError(err)
		}
		return
	}

	d.mu.Lock()
	if d.job != j {
		d.mu.Unlock()
		return
	}
	if err := d.sink.Play(clip); err != nil {
		d.job = nil
		d.speaking = false
		d.paused = false
		d.mu.Unlock()
		j.cancel()
		j.u.NotifyError(fmt.Errorf("%w: %v", speech.ErrAudioHardware, err))
		return
	}
	j.started = true
	j.schedule = boundary.NewSchedule(j.u.Text, clip.Duration())
	if d.paused {
		d.sink.Pause()
	}
	d.mu.Unlock()

	log.Debug("playback started", "engine", d.synth.Name(), "generation", j.u.Generation, "duration", clip.Duration())
	j.u.NotifyStart()

	if d.poll <= 0 {
		return
	}
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			if !d.step(j) {
				return
			}
		}
	}
}

// step reports whether j is still playing.
func (d *Driver) step(j *job) bool {
	d.mu.Lock()
	if d.job != j {
		d.mu.Unlock()
		return false
	}
	if !j.started || d.paused {
		d.mu.Unlock()
		return true
	}
	if d.sink.Finished() {
		d.job = nil
		d.speaking = false
		d.paused = false
		d.sink.Stop()
		d.mu.Unlock()
		j.cancel()
		j.u.NotifyEnd()
		return false
	}

	var ev *speech.BoundaryEvent
	if span, ok := j.schedule.At(d.sink.Position()); ok && span.Index != j.last {
		j.last = span.Index
		ev = &speech.BoundaryEvent{CharIndex: span.Start, CharLength: span.Length, Unit: speech.UnitWord}
	}
	d.mu.Unlock()

	if ev != nil {
		j.u.NotifyBoundary(*ev)
	}
	return true
}

func (d *Driver) synthesize(ctx context.Context, u *speech.Utterance) (*audio.Clip, error) {
	var key string
	if d.cache != nil {
		key = cache.Key(d.synth.Name(), u.Text, u.VoiceID(), u.Rate, u.Pitch)
		if pcm, ok := d.cache.Get(key); ok {
			log.Debug("audio cache hit", "engine", d.synth.Name(), "generation", u.Generation)
			return &audio.Clip{Format: d.synth.Format(), PCM: pcm}, nil
		}
	}

	start := time.Now()
	clip, err := d.synth.Synthesize(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Debug("synthesized", "engine", d.synth.Name(), "took", time.Since(start), "audio", clip.Duration())

	if d.cache != nil {
		if err := d.cache.Put(key, clip.PCM); err != nil {
			log.Warn("failed to cache audio", "err", err)
		}
	}
	return clip, nil
}

// finish clears j if it is still active and reports whether it was.
func (d *Driver) finish(j *job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.job != j {
		return false
	}
	d.job = nil
	d.speaking = false
	d.paused = false
	j.cancel()
	return true
}

func (d *Driver) stopLocked() *job {
	j := d.job
	d.job = nil
	d.speaking = false
	d.paused = false
	if j == nil {
		return nil
	}
	j.cancel()
	if j.started {
		d.sink.Stop()
	}
	return j
}

func notifyStopped(j *job) {
	if j == nil {
		return
	}
	if j.started {
		j.u.NotifyError(speech.ErrInterrupted)
	} else {
		j.u.NotifyError(speech.ErrCanceled)
	}
}
