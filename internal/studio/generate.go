package studio

import (
	"context"
	"time"

	"classkitd/internal/llm"
	"classkitd/pkg/types"
)

// Generate runs one generation for the given project and kind, persists the
// resulting document, and returns the updated project. Requests queue behind
// the single inference slot; callers get a tooBusy error when the queue is
// full or the wait exceeds the configured maximum.
func (s *Studio) Generate(ctx context.Context, projectID string, kind types.DocKind, req types.GenerateRequest) (*types.Project, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	prompt, err := buildPrompt(kind, p)
	if err != nil {
		return nil, ErrInvalidInput(err.Error())
	}

	release, err := s.beginGeneration(ctx, string(kind))
	if err != nil {
		return nil, err
	}
	defer release()

	params := s.params
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		params.Temperature = float32(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = float32(req.TopP)
	}
	if req.TopK > 0 {
		params.TopK = req.TopK
	}

	s.pub.Publish(Event{Name: "generation_started", ProjectID: p.ID, Fields: map[string]any{"kind": string(kind)}})
	start := time.Now()
	res, err := s.gen.Generate(ctx, prompt, params, nil)
	if err != nil {
		s.setLastError(err)
		s.pub.Publish(Event{Name: "generation_failed", ProjectID: p.ID, Fields: map[string]any{"kind": string(kind), "error": err.Error()}})
		return nil, err
	}
	if err := s.applyCompletion(p, kind, res.Content); err != nil {
		s.setLastError(err)
		s.pub.Publish(Event{Name: "generation_failed", ProjectID: p.ID, Fields: map[string]any{"kind": string(kind), "error": err.Error()}})
		return nil, err
	}
	if err := s.store.Save(ctx, p); err != nil {
		s.setLastError(err)
		return nil, err
	}
	s.bumpTotal(kind)
	s.pub.Publish(Event{Name: "generation_finished", ProjectID: p.ID, Fields: map[string]any{"kind": string(kind), "dur_ms": time.Since(start).Milliseconds()}})
	s.logger.Info().Str("project_id", p.ID).Str("kind", string(kind)).Dur("dur", time.Since(start)).Msg("generation finished")
	return p, nil
}

// applyCompletion decodes and validates the completion for the kind and
// attaches the document to the project. Documents are validated before they
// are ever persisted.
func (s *Studio) applyCompletion(p *types.Project, kind types.DocKind, content string) error {
	switch kind {
	case types.KindSlides:
		var d types.SlideDeck
		if err := llm.ExtractJSON(content, &d); err != nil {
			return badOutputError{msg: err.Error()}
		}
		if err := d.Validate(); err != nil {
			return badOutputError{msg: err.Error()}
		}
		p.Slides = &d
	case types.KindPoster:
		var d types.Poster
		if err := llm.ExtractJSON(content, &d); err != nil {
			return badOutputError{msg: err.Error()}
		}
		if err := d.Validate(); err != nil {
			return badOutputError{msg: err.Error()}
		}
		p.Poster = &d
	case types.KindAssignment:
		var d types.Assignment
		if err := llm.ExtractJSON(content, &d); err != nil {
			return badOutputError{msg: err.Error()}
		}
		if err := d.Validate(); err != nil {
			return badOutputError{msg: err.Error()}
		}
		p.Assignment = &d
	default:
		return ErrInvalidInput("unknown document kind")
	}
	return nil
}
