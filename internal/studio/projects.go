package studio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"classkitd/internal/store"
	"classkitd/pkg/types"
)

// CreateProject validates the request and persists a new project with fresh
// share tokens.
func (s *Studio) CreateProject(ctx context.Context, req types.CreateProjectRequest) (*types.Project, error) {
	if !req.SafetyAck {
		return nil, ErrInvalidInput("safety confirmation is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrInvalidInput("title is required")
	}
	p := &types.Project{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Title:        strings.TrimSpace(req.Title),
		Subject:      strings.TrimSpace(req.Subject),
		Grade:        strings.TrimSpace(req.Grade),
		SourceNotes:  req.SourceNotes,
		TeacherToken: uuid.NewString(),
		StudentToken: uuid.NewString(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.pub.Publish(Event{Name: "project_created", ProjectID: p.ID})
	s.logger.Info().Str("project_id", p.ID).Str("title", p.Title).Msg("project created")
	return p, nil
}

// GetProject loads a project by id.
func (s *Studio) GetProject(ctx context.Context, id string) (*types.Project, error) {
	p, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound("project")
	}
	return p, err
}

// ListProjects returns project summaries, newest first.
func (s *Studio) ListProjects(ctx context.Context) ([]types.ProjectSummary, error) {
	return s.store.List(ctx)
}

// ResolveToken looks up a share token as either role, student first (the
// original routes tokens to the student view with priority). Successful
// resolutions are cached briefly since students hammer the same link.
func (s *Studio) ResolveToken(ctx context.Context, token string) (*types.Project, store.Role, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, "", ErrNotFound("share token")
	}
	if item := s.tokens.Get(token); item != nil {
		entry := item.Value()
		p, err := s.store.Get(ctx, entry.projectID)
		if err == nil {
			return p, entry.role, nil
		}
		// Project vanished underneath the cache entry; fall through.
	}
	for _, role := range []store.Role{store.RoleStudent, store.RoleTeacher} {
		p, err := s.store.GetByToken(ctx, token, role)
		if err == nil {
			s.tokens.Set(token, tokenEntry{projectID: p.ID, role: role}, ttlcache.DefaultTTL)
			return p, role, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", ErrNotFound("share token")
}
