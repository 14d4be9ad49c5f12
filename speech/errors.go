package speech

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
)

// Caller errors.
var (
	ErrEmptyText = errors.New("nothing to speak: text is empty")
	ErrNoEngine  = errors.New("speech synthesis is not available")
)

// Category classifies an error reported for an utterance. Every category
// has the same effect on playback; it only changes what is reported.
type Category string

const (
	CategoryCanceled             Category = "canceled"
	CategoryInterrupted          Category = "interrupted"
	CategoryAudioBusy            Category = "audio-busy"
	CategoryAudioHardware        Category = "audio-hardware"
	CategoryNetwork              Category = "network"
	CategorySynthesisUnavailable Category = "synthesis-unavailable"
	CategoryLanguageUnavailable  Category = "language-unavailable"
	CategoryVoiceUnavailable     Category = "voice-unavailable"
	CategoryTextTooLong          Category = "text-too-long"
	CategoryInvalidArgument      Category = "invalid-argument"
	CategorySynthesisFailed      Category = "synthesis-failed"
	CategoryUnknown              Category = "unknown"
)

// Sentinel errors, one per category. Engines wrap or return these so the
// controller can classify what went wrong.
var (
	ErrCanceled             = errors.New("utterance canceled before it started")
	ErrInterrupted          = errors.New("utterance interrupted")
	ErrAudioBusy            = errors.New("audio device is busy")
	ErrAudioHardware        = errors.New("audio hardware fault")
	ErrNetwork              = errors.New("network fault")
	ErrSynthesisUnavailable = errors.New("synthesis engine unavailable")
	ErrLanguageUnavailable  = errors.New("language unavailable")
	ErrVoiceUnavailable     = errors.New("voice unavailable")
	ErrTextTooLong          = errors.New("text too long")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrSynthesisFailed      = errors.New("synthesis failed")
	ErrUnknown              = errors.New("unknown synthesis error")
)

var categoryErrors = []struct {
	category Category
	err      error
}{
	{CategoryCanceled, ErrCanceled},
	{CategoryInterrupted, ErrInterrupted},
	{CategoryAudioBusy, ErrAudioBusy},
	{CategoryAudioHardware, ErrAudioHardware},
	{CategoryNetwork, ErrNetwork},
	{CategorySynthesisUnavailable, ErrSynthesisUnavailable},
	{CategoryLanguageUnavailable, ErrLanguageUnavailable},
	{CategoryVoiceUnavailable, ErrVoiceUnavailable},
	{CategoryTextTooLong, ErrTextTooLong},
	{CategoryInvalidArgument, ErrInvalidArgument},
	{CategorySynthesisFailed, ErrSynthesisFailed},
	{CategoryUnknown, ErrUnknown},
}

// Categories returns every known category.
func Categories() []Category {
	out := make([]Category, 0, len(categoryErrors))
	for _, ce := range categoryErrors {
		out = append(out, ce.category)
	}
	return out
}

// Err returns the sentinel error for the category.
func (c Category) Err() error {
	for _, ce := range categoryErrors {
		if ce.category == c {
			return ce.err
		}
	}
	return ErrUnknown
}

// ParseCategory maps an engine error code to a category. Unrecognized
// codes map to CategoryUnknown.
func ParseCategory(code string) Category {
	for _, ce := range categoryErrors {
		if string(ce.category) == code {
			return ce.category
		}
	}
	return CategoryUnknown
}

// Classify determines the category of an error reported by an engine.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Category
	}
	for _, ce := range categoryErrors {
		if errors.Is(err, ce.err) {
			return ce.category
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return CategorySynthesisUnavailable
	case errors.Is(err, context.Canceled):
		return CategoryCanceled
	case errors.As(err, &netErr):
		return CategoryNetwork
	}
	return CategorySynthesisFailed
}

// SynthesisError is reported when an utterance ends with an error.
type SynthesisError struct {
	Category   Category
	Generation uint64
	Err        error
}

// NewSynthesisError classifies err and wraps it for the given utterance.
func NewSynthesisError(generation uint64, err error) *SynthesisError {
	return &SynthesisError{
		Category:   Classify(err),
		Generation: generation,
		Err:        err,
	}
}

func (e *SynthesisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("speech %s", e.Category)
	}
	return fmt.Sprintf("speech %s: %v", e.Category, e.Err)
}

// Unwrap returns the underlying engine error.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// IsBenign reports whether the category results from a user action rather
// than a fault.
func (c Category) IsBenign() bool {
	return c == CategoryCanceled || c == CategoryInterrupted
}
