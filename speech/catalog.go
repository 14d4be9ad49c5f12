package speech

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// Catalog keeps a snapshot of the voices offered by an engine. It is
// refreshed whenever the engine reports that its voices changed.
type Catalog struct {
	engine Engine

	// refreshMu orders refreshes: each reads the engine and stores the
	// result before the next one reads.
	refreshMu sync.Mutex

	mu       sync.RWMutex
	voices   []Voice
	onChange []func([]Voice)
}

// NewCatalog creates a catalog for engine and subscribes to its voice
// changes. A nil engine yields a catalog that stays empty.
func NewCatalog(engine Engine) *Catalog {
	c := &Catalog{engine: engine}
	if engine != nil {
		engine.OnVoicesChanged(c.Refresh)
		c.Refresh()
	}
	return c
}

// Refresh replaces the catalog with the engine's current voices and
// notifies subscribers. Concurrent refreshes run one at a time, so the
// catalog always ends with the list read last. Subscribers must not call
// Refresh.
func (c *Catalog) Refresh() {
	if c.engine == nil {
		return
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	fresh := slices.Clone(c.engine.Voices())

	c.mu.Lock()
	c.voices = fresh
	subs := slices.Clone(c.onChange)
	c.mu.Unlock()

	log.Debug("voice catalog refreshed", "voices", len(fresh))

	for _, fn := range subs {
		fn(slices.Clone(fresh))
	}
}

// Voices returns a copy of the current catalog.
func (c *Catalog) Voices() []Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Voice(nil), c.voices...)
}

// Lookup finds a voice by ID.
func (c *Catalog) Lookup(id string) (Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// OnChange registers fn to receive every refreshed catalog.
func (c *Catalog) OnChange(fn func([]Voice)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// DefaultVoice picks the voice to preselect: the first English voice,
// else the engine default, else the first voice.
func DefaultVoice(voices []Voice) (Voice, bool) {
	for _, v := range voices {
		if v.IsEnglish() {
			return v, true
		}
	}
	for _, v := range voices {
		if v.Default {
			return v, true
		}
	}
	if len(voices) > 0 {
		return voices[0], true
	}
	return Voice{}, false
}

// VoiceSelection tracks the chosen voice. The default is applied once,
// the first time a non-empty catalog is observed, and never replaces an
// explicit choice.
type VoiceSelection struct {
	id     string
	chosen bool
}

// Observe applies the default voice if nothing has been chosen yet. It
// reports whether the selection changed.
func (s *VoiceSelection) Observe(voices []Voice) bool {
	if s.chosen {
		return false
	}
	v, ok := DefaultVoice(voices)
	if !ok {
		return false
	}
	s.id = v.ID
	s.chosen = true
	return true
}

// Choose records an explicit choice.
func (s *VoiceSelection) Choose(id string) {
	s.id = id
	s.chosen = true
}

// ID returns the selected voice ID, or "" if none.
func (s VoiceSelection) ID() string {
	return s.id
}

// Chosen reports whether a voice has been selected.
func (s VoiceSelection) Chosen() bool {
	return s.chosen
}
