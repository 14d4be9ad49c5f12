package boundary

import (
	"testing"
	"time"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Span
	}{
		{"empty", "", nil},
		{"blank", "  \n\t", nil},
		{"single", "hello", []Span{{0, 0, 5}}},
		{"spaces", "  hi  there ", []Span{{0, 2, 2}, {1, 6, 5}}},
		{"multibyte", "héllo wörld", []Span{{0, 0, 5}, {1, 6, 5}}},
		{"cjk", "你好 世界", []Span{{0, 0, 2}, {1, 3, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d spans, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Span %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestScheduleAt(t *testing.T) {
	// "aaa bbb" has two words of equal weight (4 each).
	s := NewSchedule("aaa bbb", 8*time.Second)
	if s.Len() != 2 {
		t.Fatalf("Expected 2 words, got %d", s.Len())
	}

	tests := []struct {
		pos  time.Duration
		want int
	}{
		{0, 0},
		{3 * time.Second, 0},
		{4 * time.Second, 1},
		{7 * time.Second, 1},
		{20 * time.Second, 1},
	}
	for _, tt := range tests {
		span, ok := s.At(tt.pos)
		if !ok {
			t.Fatalf("Expected a span at %v", tt.pos)
		}
		if span.Index != tt.want {
			t.Errorf("At(%v): expected word %d, got %d", tt.pos, tt.want, span.Index)
		}
	}
}

func TestScheduleEmpty(t *testing.T) {
	s := NewSchedule("   ", time.Second)
	if _, ok := s.At(0); ok {
		t.Error("Expected no span for blank text")
	}
}

func TestScheduleNegativePosition(t *testing.T) {
	s := NewSchedule("word", time.Second)
	if _, ok := s.At(-time.Millisecond); ok {
		t.Error("Expected no span before the start")
	}
}
