// Package speech coordinates a speech synthesis engine with a playback
// state machine.
package speech

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultReconcileInterval is how often Run polls the engine flags.
const DefaultReconcileInterval = 100 * time.Millisecond

// Snapshot is the observable state of the controller.
type Snapshot struct {
	State      State
	Generation uint64
	Text       string
	Boundary   *BoundaryEvent
	Progress   float64
}

// Controller owns the single active utterance and the playback state.
//
// Commands are serialized. Engine callbacks are applied only if they belong
// to the active utterance, so a callback that arrives after a cancel or a
// newer Speak is dropped.
type Controller struct {
	engine   Engine
	hostLang string
	interval time.Duration

	// cmdMu serializes commands. It is held across engine calls.
	cmdMu sync.Mutex

	// mu guards the fields below. It is never held across engine calls.
	mu         sync.Mutex
	state      State
	active     *Utterance
	boundary   *BoundaryEvent
	generation uint64
	onChange   func(Snapshot)
	onError    func(error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithHostLanguage overrides the language used when the voice has none.
func WithHostLanguage(tag string) Option {
	return func(c *Controller) {
		c.hostLang = tag
	}
}

// WithReconcileInterval sets the polling interval used by Run.
func WithReconcileInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// NewController creates a controller driving engine. A nil engine is
// allowed; every command then becomes a no-op.
func NewController(engine Engine, opts ...Option) *Controller {
	c := &Controller{
		engine:   engine,
		hostLang: HostLanguage(),
		interval: DefaultReconcileInterval,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers a callback for every state change.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// OnError registers a callback for utterance errors. The error is always
// a *SynthesisError.
func (c *Controller) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Available reports whether an engine is attached.
func (c *Controller) Available() bool {
	return c.engine != nil
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Speak starts a new utterance, canceling any active one first.
func (c *Controller) Speak(req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}
	if c.engine == nil {
		return ErrNoEngine
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	voice := c.resolveVoice(req.VoiceID)
	engineBusy := c.engine.Speaking() || c.engine.Paused()

	c.mu.Lock()
	hadActive := c.active != nil
	c.generation++
	u := &Utterance{
		ID:         uuid.NewString(),
		Generation: c.generation,
		Text:       req.Text,
		Lang:       resolveLanguage(voice, c.hostLang),
		Voice:      voice,
		Rate:       ClampRate(req.Rate),
		Pitch:      ClampPitch(req.Pitch),
	}
	u.Hooks = c.hooksFor(u.Generation)
	c.active = u
	c.boundary = nil
	c.state = StateSpeaking
	snap := c.snapshotLocked()
	onChange := c.onChange
	c.mu.Unlock()

	if hadActive || engineBusy {
		log.Debug("canceling previous utterance", "generation", u.Generation-1)
		c.engine.Cancel()
	}

	log.Debug("speaking",
		"id", u.ID,
		"generation", u.Generation,
		"voice", u.VoiceID(),
		"lang", u.Lang,
		"rate", u.Rate,
		"pitch", u.Pitch,
		"chars", len(u.Text))

	notify(onChange, snap)

	if err := c.engine.Speak(u); err != nil {
		c.fail(u.Generation, err)
	}
	return nil
}

// Pause asks the engine to pause if it is speaking and not paused.
func (c *Controller) Pause() {
	if c.engine == nil {
		return
	}
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.engine.Speaking() && !c.engine.Paused() {
		c.engine.Pause()
	}
}

// Resume asks the engine to resume if it is paused.
func (c *Controller) Resume() {
	if c.engine == nil {
		return
	}
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.engine.Paused() {
		c.engine.Resume()
	}
}

// Cancel stops any active utterance. Local state is Idle when Cancel
// returns, whatever the engine reports later.
func (c *Controller) Cancel() {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	changed := c.active != nil || c.state != StateIdle
	c.releaseLocked()
	snap := c.snapshotLocked()
	onChange := c.onChange
	c.mu.Unlock()

	if c.engine != nil {
		c.engine.Cancel()
	}
	if changed {
		log.Debug("canceled", "generation", snap.Generation)
		notify(onChange, snap)
	}
}

// Reconcile compares local state with the engine flags and corrects it
// when they disagree. It is a fallback for engines that stop without
// reporting it.
func (c *Controller) Reconcile() {
	if c.engine == nil {
		return
	}
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	want := derive(c.engine.Speaking(), c.engine.Paused())

	c.mu.Lock()
	if c.active == nil || c.state == want {
		c.mu.Unlock()
		return
	}
	from := c.state
	if want == StateIdle {
		c.releaseLocked()
	} else {
		c.state = want
	}
	snap := c.snapshotLocked()
	onChange := c.onChange
	c.mu.Unlock()

	log.Debug("reconciled state with engine", "from", from, "to", want)
	notify(onChange, snap)
}

// Run calls Reconcile at the configured interval until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Reconcile()
		}
	}
}

// Interval returns the reconciliation interval.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

func (c *Controller) resolveVoice(id string) *Voice {
	if id == "" {
		return nil
	}
	for _, v := range c.engine.Voices() {
		if v.ID == id {
			v := v
			return &v
		}
	}
	log.Debug("voice not found, using engine default", "voice", id)
	return nil
}

func (c *Controller) hooksFor(gen uint64) Hooks {
	return Hooks{
		OnStart: func() {
			// Speak already moved to speaking; a pause requested before
			// audio began must survive the start event.
			c.apply(gen, "start", func() bool {
				changed := c.boundary != nil
				c.boundary = nil
				return changed
			})
		},
		OnEnd: func() {
			c.apply(gen, "end", func() bool {
				c.releaseLocked()
				return true
			})
		},
		OnPause: func() {
			c.apply(gen, "pause", func() bool {
				if !canTransition(c.state, StatePaused) {
					return false
				}
				c.state = StatePaused
				return true
			})
		},
		OnResume: func() {
			c.apply(gen, "resume", func() bool {
				if !c.state.CanResume() {
					return false
				}
				c.state = StateSpeaking
				return true
			})
		},
		OnBoundary: func(ev BoundaryEvent) {
			if !ev.Unit.Tracked() {
				log.Debug("ignoring boundary", "unit", ev.Unit, "generation", gen)
				return
			}
			c.apply(gen, "boundary", func() bool {
				if ev.CharIndex < 0 {
					ev.CharIndex = 0
				}
				c.boundary = &ev
				return true
			})
		},
		OnError: func(err error) {
			c.fail(gen, err)
		},
	}
}

// apply runs fn under the state lock if gen is still active.
func (c *Controller) apply(gen uint64, event string, fn func() bool) {
	c.mu.Lock()
	if c.active == nil || c.active.Generation != gen {
		c.mu.Unlock()
		log.Debug("dropping stale engine event", "event", event, "generation", gen)
		return
	}
	changed := fn()
	snap := c.snapshotLocked()
	onChange := c.onChange
	c.mu.Unlock()

	if changed {
		notify(onChange, snap)
	}
}

// fail ends the utterance after an error. Every category has the same
// effect.
func (c *Controller) fail(gen uint64, err error) {
	serr := NewSynthesisError(gen, err)

	c.mu.Lock()
	if c.active == nil || c.active.Generation != gen {
		c.mu.Unlock()
		log.Debug("dropping stale engine error", "generation", gen, "category", serr.Category)
		return
	}
	c.releaseLocked()
	snap := c.snapshotLocked()
	onChange, onError := c.onChange, c.onError
	c.mu.Unlock()

	if serr.Category.IsBenign() {
		log.Warn("utterance stopped", "category", serr.Category, "generation", gen)
	} else {
		log.Error("utterance failed", "category", serr.Category, "generation", gen, "err", err)
	}

	// Observers see the error before the idle snapshot.
	if onError != nil {
		onError(serr)
	}
	notify(onChange, snap)
}

func (c *Controller) releaseLocked() {
	c.state = StateIdle
	c.active = nil
	c.boundary = nil
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      c.state,
		Generation: c.generation,
	}
	if c.active != nil {
		s.Text = c.active.Text
		if c.boundary != nil {
			b := *c.boundary
			s.Boundary = &b
		}
		s.Progress = Progress(c.boundary, c.active.Text)
	}
	return s
}

func notify(fn func(Snapshot), s Snapshot) {
	if fn != nil {
		fn(s)
	}
}
