package types

import (
	"fmt"
	"strings"
	"time"
)

// DocKind identifies one of the three generated document kinds.
type DocKind string

const (
	KindSlides     DocKind = "slides"
	KindPoster     DocKind = "poster"
	KindAssignment DocKind = "assignment"
)

// ParseDocKind validates a kind string from a URL or request body.
func ParseDocKind(s string) (DocKind, error) {
	switch DocKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSlides:
		return KindSlides, nil
	case KindPoster:
		return KindPoster, nil
	case KindAssignment:
		return KindAssignment, nil
	}
	return "", fmt.Errorf("unknown document kind: %q", s)
}

// Project is one teaching unit: the source notes plus whatever documents
// have been generated from them so far.
type Project struct {
	// Stable identifier.
	// example: 1c1bb4e0-9c3f-4df0-9e57-2f1f4f8a2f11
	ID string `json:"id" example:"1c1bb4e0-9c3f-4df0-9e57-2f1f4f8a2f11"`
	// Creation time.
	CreatedAt time.Time `json:"created_at"`
	// Project title shown to teacher and students.
	// example: The Solar System
	Title string `json:"title" example:"The Solar System"`
	// Subject, free-form.
	// example: Science
	Subject string `json:"subject" example:"Science"`
	// Grade level, free-form.
	// example: 5th
	Grade string `json:"grade" example:"5th"`
	// Raw topic notes the documents are generated from.
	SourceNotes string `json:"source_notes"`

	// Generated documents; nil until generated.
	Slides     *SlideDeck  `json:"slides,omitempty"`
	Poster     *Poster     `json:"poster,omitempty"`
	Assignment *Assignment `json:"assignment,omitempty"`

	// Share tokens. The student token must never expose answer material.
	TeacherToken string `json:"teacher_token,omitempty"`
	StudentToken string `json:"student_token,omitempty"`
}

// SlideDeck is the generated slides document.
type SlideDeck struct {
	DeckTitle string  `json:"deck_title"`
	Slides    []Slide `json:"slides"`
}

// Slide is a single slide. Type is one of title, content, summary.
type Slide struct {
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	SpeakerNotes string   `json:"speaker_notes,omitempty"`
}

// Validate checks the minimal shape required before persisting.
func (d *SlideDeck) Validate() error {
	if d == nil {
		return fmt.Errorf("slide deck is empty")
	}
	if strings.TrimSpace(d.DeckTitle) == "" {
		return fmt.Errorf("slide deck has no title")
	}
	if len(d.Slides) == 0 {
		return fmt.Errorf("slide deck has no slides")
	}
	return nil
}

// Poster is the generated one-page poster document.
type Poster struct {
	PosterTitle   string          `json:"poster_title"`
	Sections      []PosterSection `json:"sections"`
	FooterCallout string          `json:"footer_callout,omitempty"`
}

// PosterSection is a headed bullet group on the poster.
type PosterSection struct {
	Heading     string   `json:"heading"`
	BodyBullets []string `json:"body_bullets"`
}

func (p *Poster) Validate() error {
	if p == nil {
		return fmt.Errorf("poster is empty")
	}
	if strings.TrimSpace(p.PosterTitle) == "" {
		return fmt.Errorf("poster has no title")
	}
	if len(p.Sections) == 0 {
		return fmt.Errorf("poster has no sections")
	}
	return nil
}

// Assignment is the generated homework document, answers included.
type Assignment struct {
	AssignmentTitle string     `json:"assignment_title"`
	Instructions    string     `json:"instructions"`
	Questions       []Question `json:"questions"`
	Rubric          []string   `json:"rubric,omitempty"`
}

// Question is one assignment question. Type is "mcq" or "short".
type Question struct {
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Choices     []string `json:"choices,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

func (a *Assignment) Validate() error {
	if a == nil {
		return fmt.Errorf("assignment is empty")
	}
	if strings.TrimSpace(a.AssignmentTitle) == "" {
		return fmt.Errorf("assignment has no title")
	}
	if len(a.Questions) == 0 {
		return fmt.Errorf("assignment has no questions")
	}
	return nil
}

// StudentCopy returns the assignment with all answer material removed.
func (a *Assignment) StudentCopy() *Assignment {
	if a == nil {
		return nil
	}
	out := &Assignment{
		AssignmentTitle: a.AssignmentTitle,
		Instructions:    a.Instructions,
		Questions:       make([]Question, len(a.Questions)),
	}
	for i, q := range a.Questions {
		out.Questions[i] = Question{
			Type:    q.Type,
			Prompt:  q.Prompt,
			Choices: append([]string(nil), q.Choices...),
		}
	}
	return out
}

// StudentView projects a Project into what a student share link may see:
// no tokens, no answer material, no speaker notes.
func (p *Project) StudentView() *Project {
	if p == nil {
		return nil
	}
	out := &Project{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		Title:     p.Title,
		Subject:   p.Subject,
		Grade:     p.Grade,
	}
	if p.Poster != nil {
		poster := *p.Poster
		out.Poster = &poster
	}
	if p.Assignment != nil {
		out.Assignment = p.Assignment.StudentCopy()
	}
	if p.Slides != nil {
		deck := &SlideDeck{DeckTitle: p.Slides.DeckTitle, Slides: make([]Slide, len(p.Slides.Slides))}
		for i, s := range p.Slides.Slides {
			deck.Slides[i] = Slide{Type: s.Type, Title: s.Title, Bullets: append([]string(nil), s.Bullets...)}
		}
		out.Slides = deck
	}
	return out
}
