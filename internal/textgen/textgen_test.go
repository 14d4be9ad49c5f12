package textgen

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestNewGeminiWithoutKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		g, err := NewGemini(context.Background(), key, "")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Expected ErrUnavailable for %q, got %v", key, err)
		}
		if g != nil {
			t.Error("Expected no generator")
		}
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	g := &Gemini{model: DefaultModel}
	if _, err := g.Generate(context.Background(), "  \n"); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("Expected ErrEmptyPrompt, got %v", err)
	}
}

func TestResponseText(t *testing.T) {
	tt := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{}},
		}, ""},
		{"joined parts", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: " Once upon "}, nil, {Text: "a time. "},
				}},
			}},
		}, "Once upon a time."},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := responseText(tc.resp); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}
