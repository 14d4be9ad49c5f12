package speech

// Engine is a speech synthesis capability. Implementations own audio
// production; the controller only orchestrates them.
//
// Speaking reports true from the moment an utterance is accepted until it
// ends, including while it is paused. Callbacks on an Utterance may be
// invoked from any goroutine but must not be invoked while the engine holds
// its own locks.
type Engine interface {
	// Voices returns the voices currently known to the engine.
	Voices() []Voice
	// OnVoicesChanged registers fn to be called whenever the voice list
	// changes. A later call replaces the previous function.
	OnVoicesChanged(fn func())
	// Speak queues an utterance. Progress is reported through the
	// utterance's hooks.
	Speak(u *Utterance) error
	Pause()
	Resume()
	// Cancel stops the active utterance and clears the queue.
	Cancel()
	Speaking() bool
	Paused() bool
}

// Hooks receive the lifecycle notifications of one utterance.
type Hooks struct {
	OnStart    func()
	OnEnd      func()
	OnPause    func()
	OnResume   func()
	OnBoundary func(BoundaryEvent)
	OnError    func(error)
}

// Utterance is one play request handed to an engine.
type Utterance struct {
	ID         string
	Generation uint64
	Text       string
	Lang       string
	Voice      *Voice
	Rate       float64
	Pitch      float64

	Hooks Hooks
}

// VoiceID returns the ID of the requested voice, or "" for the engine
// default.
func (u *Utterance) VoiceID() string {
	if u.Voice == nil {
		return ""
	}
	return u.Voice.ID
}

// NotifyStart reports that audio for the utterance began.
func (u *Utterance) NotifyStart() {
	if u.Hooks.OnStart != nil {
		u.Hooks.OnStart()
	}
}

// NotifyEnd reports that the utterance finished normally.
func (u *Utterance) NotifyEnd() {
	if u.Hooks.OnEnd != nil {
		u.Hooks.OnEnd()
	}
}

// NotifyPause reports that playback paused.
func (u *Utterance) NotifyPause() {
	if u.Hooks.OnPause != nil {
		u.Hooks.OnPause()
	}
}

// NotifyResume reports that playback resumed.
func (u *Utterance) NotifyResume() {
	if u.Hooks.OnResume != nil {
		u.Hooks.OnResume()
	}
}

// NotifyBoundary reports the position reached in the text.
func (u *Utterance) NotifyBoundary(ev BoundaryEvent) {
	if u.Hooks.OnBoundary != nil {
		u.Hooks.OnBoundary(ev)
	}
}

// NotifyError reports a terminal error. Use the category sentinels, such
// as ErrInterrupted, so the error can be classified.
func (u *Utterance) NotifyError(err error) {
	if u.Hooks.OnError != nil {
		u.Hooks.OnError(err)
	}
}
