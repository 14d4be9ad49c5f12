// Package boundary estimates which word is audible at a playback position.
package boundary

import (
	"time"
	"unicode"
)

// Span is a run of text. Offsets count runes.
type Span struct {
	Index  int
	Start  int
	Length int
}

// Words splits text into whitespace-separated words.
func Words(text string) []Span {
	var (
		spans []Span
		start = -1
		pos   int
	)
	for _, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, Span{Index: len(spans), Start: start, Length: pos - start})
				start = -1
			}
		} else if start < 0 {
			start = pos
		}
		pos++
	}
	if start >= 0 {
		spans = append(spans, Span{Index: len(spans), Start: start, Length: pos - start})
	}
	return spans
}

// Schedule spreads the words of a text over a clip duration. Each word is
// given time in proportion to its length plus the gap that follows it.
type Schedule struct {
	spans []Span
	ends  []time.Duration
}

// NewSchedule builds a schedule for text spoken over total.
func NewSchedule(text string, total time.Duration) *Schedule {
	spans := Words(text)
	s := &Schedule{spans: spans, ends: make([]time.Duration, len(spans))}
	if len(spans) == 0 {
		return s
	}

	weights := make([]int, len(spans))
	sum := 0
	for i, sp := range spans {
		w := sp.Length
		if i+1 < len(spans) {
			w = spans[i+1].Start - sp.Start
		} else {
			w++
		}
		weights[i] = w
		sum += w
	}

	acc := 0
	for i, w := range weights {
		acc += w
		s.ends[i] = time.Duration(float64(total) * float64(acc) / float64(sum))
	}
	return s
}

// Len returns the number of words.
func (s *Schedule) Len() int {
	return len(s.spans)
}

// At returns the word audible at position.
func (s *Schedule) At(position time.Duration) (Span, bool) {
	if len(s.spans) == 0 || position < 0 {
		return Span{}, false
	}
	for i, end := range s.ends {
		if end > position {
			return s.spans[i], true
		}
	}
	return s.spans[len(s.spans)-1], true
}
