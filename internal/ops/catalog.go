package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/project"
)

// ListProjects returns every catalog project ordered by id.
func (s *Service) ListProjects(ctx context.Context) ([]project.Project, error) {
	projects, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return projects, nil
}

// GetProject fetches a catalog project by id.
func (s *Service) GetProject(ctx context.Context, id string) (*project.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	return s.catalog.GetByID(ctx, id)
}

// AddProject validates p and inserts it. p.ID and p.CreatedAt are filled
// in when missing.
func (s *Service) AddProject(ctx context.Context, p *project.Project) error {
	if err := p.Validate(); err != nil {
		return errors.NewInvalidRequest(err.Error())
	}
	p.IsAIGenerated = false
	return s.catalog.Insert(ctx, p)
}

// DeleteProject removes a catalog project by id.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.NewInvalidRequest("id is required")
	}
	return s.catalog.Delete(ctx, id)
}

// CountProjects returns the catalog size.
func (s *Service) CountProjects(ctx context.Context) (int, error) {
	return s.catalog.Count(ctx)
}
