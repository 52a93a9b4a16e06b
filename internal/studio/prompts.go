package studio

import (
	"fmt"
	"strings"

	"classkitd/pkg/types"
)

const slidesSchema = `{
  "deck_title": "string",
  "slides": [
    {"type": "title|content|summary", "title": "string", "bullets": ["string"], "speaker_notes": "string"}
  ]
}`

const posterSchema = `{
  "poster_title": "string",
  "sections": [{"heading": "string", "body_bullets": ["string"]}],
  "footer_callout": "string"
}`

const assignmentSchema = `{
  "assignment_title": "string",
  "instructions": "string",
  "questions": [{"type": "mcq|short", "prompt": "string", "choices": ["string"], "answer": "string", "explanation": "string"}],
  "rubric": ["string"]
}`

// buildPrompt composes the full prompt for one generation: the system
// framing, the task line for the kind, and the required JSON structure.
func buildPrompt(kind types.DocKind, p *types.Project) (string, error) {
	if strings.TrimSpace(p.SourceNotes) == "" {
		return "", fmt.Errorf("source notes are required for generation")
	}
	var task, schema string
	switch kind {
	case types.KindSlides:
		task = fmt.Sprintf("Create a slide deck for %s grade %s about: %s", p.Grade, p.Subject, p.SourceNotes)
		schema = slidesSchema
	case types.KindPoster:
		task = fmt.Sprintf("Create a one-page educational poster content for %s grade %s about: %s", p.Grade, p.Subject, p.SourceNotes)
		schema = posterSchema
	case types.KindAssignment:
		task = fmt.Sprintf("Create a homework assignment with 3 MCQs and 2 Short Answers for %s grade %s about: %s", p.Grade, p.Subject, p.SourceNotes)
		schema = assignmentSchema
	default:
		return "", fmt.Errorf("unknown document kind: %q", kind)
	}
	var b strings.Builder
	b.WriteString("You are an educational content generator.\n")
	b.WriteString("Output strictly valid JSON. No markdown fences.\n\n")
	b.WriteString("Task: ")
	b.WriteString(task)
	b.WriteString("\n\nRequired JSON Structure:\n")
	b.WriteString(schema)
	b.WriteString("\n")
	return b.String(), nil
}
