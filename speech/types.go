package speech

import "strings"

// Rate and pitch limits. The UI offers a narrower rate range than the
// engines accept.
const (
	MinRate   = 0.1
	MaxRate   = 10.0
	MinPitch  = 0.0
	MaxPitch  = 2.0
	MinUIRate = 0.5
	MaxUIRate = 2.0

	DefaultRate  = 1.0
	DefaultPitch = 1.0
)

// Voice describes a synthetic voice offered by an engine.
type Voice struct {
	Name    string `json:"name" yaml:"name"`
	Lang    string `json:"lang" yaml:"lang"`
	ID      string `json:"id" yaml:"id"`
	Default bool   `json:"default" yaml:"default"`
}

// IsEnglish reports whether the voice's language tag starts with "en".
func (v Voice) IsEnglish() bool {
	return strings.HasPrefix(strings.ToLower(v.Lang), "en")
}

// Request is a single play action issued by a caller.
type Request struct {
	Text    string
	VoiceID string
	Rate    float64
	Pitch   float64
}

// Unit is the granularity of a boundary event.
type Unit string

const (
	UnitWord     Unit = "word"
	UnitSentence Unit = "sentence"
)

// Tracked reports whether boundaries of this unit update playback
// progress. Only words and sentences do.
func (u Unit) Tracked() bool {
	return u == UnitWord || u == UnitSentence
}

// BoundaryEvent marks the position the engine has reached in the text.
// Offsets count runes.
type BoundaryEvent struct {
	CharIndex  int
	CharLength int
	Unit       Unit
}

// ClampRate limits a speaking rate to what engines accept.
func ClampRate(rate float64) float64 {
	return clamp(rate, MinRate, MaxRate)
}

// ClampPitch limits a pitch to what engines accept.
func ClampPitch(pitch float64) float64 {
	return clamp(pitch, MinPitch, MaxPitch)
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
