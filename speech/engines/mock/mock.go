// Package mock provides a scriptable speech engine for tests and demos.
package mock

import (
	"sync"
	"time"

	"github.com/dgnsrekt/murmur/internal/boundary"
	"github.com/dgnsrekt/murmur/speech"
)

// DefaultVoices is the voice list a new engine starts with.
var DefaultVoices = []speech.Voice{
	{Name: "Mock Amélie", Lang: "fr-FR", ID: "mock-fr"},
	{Name: "Mock Oliver", Lang: "en-GB", ID: "mock-en-gb"},
	{Name: "Mock Anna", Lang: "de-DE", ID: "mock-de", Default: true},
	{Name: "Mock Laila", Lang: "ar-SA", ID: "mock-ar"},
}

// Engine implements speech.Engine. In manual mode nothing happens after
// Speak until the test calls Start, Boundary, End or Fail. In auto mode the
// engine reports a boundary for every word at a fixed pace.
type Engine struct {
	mu        sync.Mutex
	voices    []speech.Voice
	onVoices  func()
	current   *speech.Utterance
	speaking  bool
	paused    bool
	spoken    []*speech.Utterance
	speakErr  error
	wordDelay time.Duration
	stop      chan struct{}
	resumed   chan struct{}

	cancels int
	pauses  int
	resumes int
}

// Option configures an Engine.
type Option func(*Engine)

// WithVoices sets the initial voice list.
func WithVoices(voices ...speech.Voice) Option {
	return func(e *Engine) {
		e.voices = voices
	}
}

// WithAutoPlay makes the engine speak on its own, one word per delay.
func WithAutoPlay(wordDelay time.Duration) Option {
	return func(e *Engine) {
		e.wordDelay = wordDelay
	}
}

// New creates a mock engine.
func New(opts ...Option) *Engine {
	e := &Engine{voices: append([]speech.Voice(nil), DefaultVoices...)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Voices returns a copy of the voice list.
func (e *Engine) Voices() []speech.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]speech.Voice(nil), e.voices...)
}

// OnVoicesChanged registers fn for SetVoices.
func (e *Engine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onVoices = fn
}

// Speak records u and, in auto mode, starts speaking it.
func (e *Engine) Speak(u *speech.Utterance) error {
	e.mu.Lock()
	if e.speakErr != nil {
		err := e.speakErr
		e.mu.Unlock()
		return err
	}
	e.stopLocked()
	e.current = u
	e.speaking = true
	e.paused = false
	e.spoken = append(e.spoken, u)
	if e.wordDelay > 0 {
		e.stop = make(chan struct{})
		go e.play(u, e.stop)
	}
	e.mu.Unlock()
	return nil
}

// Pause pauses the current utterance.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.speaking || e.paused {
		e.mu.Unlock()
		return
	}
	e.pauses++
	e.paused = true
	e.resumed = make(chan struct{})
	u := e.current
	e.mu.Unlock()

	if u != nil {
		u.NotifyPause()
	}
}

// Resume continues a paused utterance.
func (e *Engine) Resume() {
	e.mu.Lock()
	if !e.paused {
		e.mu.Unlock()
		return
	}
	e.resumes++
	e.paused = false
	if e.resumed != nil {
		close(e.resumed)
		e.resumed = nil
	}
	u := e.current
	e.mu.Unlock()

	if u != nil {
		u.NotifyResume()
	}
}

// Cancel stops the current utterance. In auto mode the interrupted error
// is reported asynchronously, the way real engines do.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.cancels++
	u := e.current
	auto := e.wordDelay > 0
	e.stopLocked()
	e.current = nil
	e.speaking = false
	e.paused = false
	e.mu.Unlock()

	if auto && u != nil {
		go u.NotifyError(speech.ErrInterrupted)
	}
}

// Speaking reports whether an utterance is active.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Paused reports whether the current utterance is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Engine) stopLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	if e.resumed != nil {
		close(e.resumed)
		e.resumed = nil
	}
}

func (e *Engine) play(u *speech.Utterance, stop chan struct{}) {
	u.NotifyStart()

	for _, w := range boundary.Words(u.Text) {
		if !e.waitWhilePaused(stop) {
			return
		}
		select {
		case <-stop:
			return
		case <-time.After(e.wordDelay):
		}
		if !e.waitWhilePaused(stop) {
			return
		}
		u.NotifyBoundary(speech.BoundaryEvent{
			CharIndex:  w.Start,
			CharLength: w.Length,
			Unit:       speech.UnitWord,
		})
	}

	e.mu.Lock()
	if e.current != u {
		e.mu.Unlock()
		return
	}
	e.current = nil
	e.speaking = false
	e.paused = false
	e.stop = nil
	e.mu.Unlock()

	u.NotifyEnd()
}

func (e *Engine) waitWhilePaused(stop chan struct{}) bool {
	for {
		e.mu.Lock()
		if !e.paused {
			e.mu.Unlock()
			select {
			case <-stop:
				return false
			default:
				return true
			}
		}
		resumed := e.resumed
		e.mu.Unlock()

		select {
		case <-stop:
			return false
		case <-resumed:
		}
	}
}

// Test controls.

// SetVoices replaces the voice list and fires the change notification.
func (e *Engine) SetVoices(voices ...speech.Voice) {
	e.mu.Lock()
	e.voices = voices
	fn := e.onVoices
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// SetSpeakError makes the next calls to Speak fail with err.
func (e *Engine) SetSpeakError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speakErr = err
}

// Last returns the most recently spoken utterance.
func (e *Engine) Last() *speech.Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.spoken) == 0 {
		return nil
	}
	return e.spoken[len(e.spoken)-1]
}

// Spoken returns every utterance passed to Speak.
func (e *Engine) Spoken() []*speech.Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*speech.Utterance(nil), e.spoken...)
}

// Start fires the start callback of the current utterance.
func (e *Engine) Start() {
	if u := e.currentUtterance(); u != nil {
		u.NotifyStart()
	}
}

// Boundary fires a word boundary for the current utterance.
func (e *Engine) Boundary(charIndex, charLength int) {
	if u := e.currentUtterance(); u != nil {
		u.NotifyBoundary(speech.BoundaryEvent{CharIndex: charIndex, CharLength: charLength, Unit: speech.UnitWord})
	}
}

// End finishes the current utterance normally.
func (e *Engine) End() {
	if u := e.finish(); u != nil {
		u.NotifyEnd()
	}
}

// Fail finishes the current utterance with err.
func (e *Engine) Fail(err error) {
	if u := e.finish(); u != nil {
		u.NotifyError(err)
	}
}

// Halt stops speaking without firing any callback.
func (e *Engine) Halt() {
	e.finish()
}

// SetFlags overrides the speaking and paused flags without callbacks.
func (e *Engine) SetFlags(speaking, paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speaking = speaking
	e.paused = paused
}

// Counts returns how many times Cancel, Pause and Resume took effect.
func (e *Engine) Counts() (cancels, pauses, resumes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancels, e.pauses, e.resumes
}

func (e *Engine) currentUtterance() *speech.Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) finish() *speech.Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	u := e.current
	e.stopLocked()
	e.current = nil
	e.speaking = false
	e.paused = false
	return u
}
