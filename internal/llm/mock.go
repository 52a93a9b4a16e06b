package llm

import (
	"context"
	"strings"
)

// mockGenerator returns canned documents keyed off the prompt text. It is
// the default backend when nothing real is configured, so the app stays
// usable offline (and in tests) just like the original no-API-key fallback.
type mockGenerator struct{}

// NewMockGenerator constructs the offline fallback backend.
func NewMockGenerator() Generator { return mockGenerator{} }

func (mockGenerator) Name() string { return "mock" }

const mockSlidesJSON = `{
  "deck_title": "Demo: The Solar System",
  "slides": [
    {"type": "title", "title": "The Solar System", "bullets": [], "speaker_notes": "Intro"},
    {"type": "content", "title": "Inner Planets", "bullets": ["Mercury", "Venus", "Earth", "Mars"], "speaker_notes": "Rocky planets."},
    {"type": "summary", "title": "Review", "bullets": ["8 Planets", "Sun is a star"], "speaker_notes": "Wrap up."}
  ]
}`

const mockPosterJSON = `{
  "poster_title": "Lab Safety Rules",
  "sections": [
    {"heading": "Protection", "body_bullets": ["Wear Goggles", "Use Gloves"]},
    {"heading": "Behavior", "body_bullets": ["No running", "No eating"]}
  ],
  "footer_callout": "Stay Safe!"
}`

const mockAssignmentJSON = `{
  "assignment_title": "Solar System Quiz",
  "instructions": "Answer all questions.",
  "questions": [
    {"type": "mcq", "prompt": "Which is the red planet?", "choices": ["Mars", "Venus"], "answer": "Mars", "explanation": "Iron oxide dust."},
    {"type": "short", "prompt": "Name the largest planet.", "choices": [], "answer": "Jupiter", "explanation": "Gas giant."}
  ],
  "rubric": ["1pt per correct answer"]
}`

func (mockGenerator) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	select {
	case <-ctx.Done():
		return FinalResult{}, ctx.Err()
	default:
	}
	p := strings.ToLower(prompt)
	var out string
	switch {
	case strings.Contains(p, "slide"):
		out = mockSlidesJSON
	case strings.Contains(p, "poster"):
		out = mockPosterJSON
	default:
		out = mockAssignmentJSON
	}
	if onToken != nil {
		if err := onToken(out); err != nil {
			return FinalResult{}, err
		}
	}
	return FinalResult{Content: out, FinishReason: "stop"}, nil
}
