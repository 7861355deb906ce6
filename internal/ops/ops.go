// Package ops implements spark's operations on top of the catalog store:
// prompt recommendation and catalog management. Transports (HTTP, MCP, CLI)
// call into a Service and only translate inputs and outputs.
package ops

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hpungsan/spark/internal/generate"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
	"github.com/hpungsan/spark/internal/search"
	"github.com/hpungsan/spark/internal/terms"
	"github.com/hpungsan/spark/internal/validate"
)

// Catalog is a project store. Both the SQLite and PostgreSQL stores satisfy it.
type Catalog interface {
	search.Catalog

	Insert(ctx context.Context, p *project.Project) error
	InsertAll(ctx context.Context, projects []project.Project) error
	Upsert(ctx context.Context, p *project.Project) error
	GetByID(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context) ([]project.Project, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

// Options configures a Service. Zero values use the built-in tables,
// search defaults, and a disabled generator.
type Options struct {
	Validator  *validate.Validator
	Normalizer *query.Normalizer
	Topics     terms.Set

	Search search.Options

	// Limit bounds search-only results; CombinedLimit applies when
	// suggestions are generated alongside.
	Limit         int
	CombinedLimit int

	Generator *generate.Generator
	Logger    zerolog.Logger
}

// Service runs spark operations against a Catalog.
type Service struct {
	catalog    Catalog
	validator  *validate.Validator
	normalizer *query.Normalizer
	topics     terms.Set
	searcher   *search.Orchestrator
	generator  *generate.Generator

	limit         int
	combinedLimit int

	logger zerolog.Logger
}

// NewService creates a Service over catalog.
func NewService(catalog Catalog, opts Options) *Service {
	s := &Service{
		catalog:       catalog,
		validator:     opts.Validator,
		normalizer:    opts.Normalizer,
		topics:        opts.Topics,
		generator:     opts.Generator,
		limit:         opts.Limit,
		combinedLimit: opts.CombinedLimit,
		logger:        opts.Logger.With().Str("component", "ops").Logger(),
	}
	if s.validator == nil {
		s.validator = validate.Default()
	}
	if s.normalizer == nil {
		s.normalizer = query.New(terms.Stopwords(), terms.DefaultSynonyms())
	}
	if s.topics.Len() == 0 {
		s.topics = terms.Technical()
	}
	if s.generator == nil {
		s.generator = generate.Disabled()
	}
	if s.limit <= 0 {
		s.limit = search.DefaultLimit
	}
	if s.combinedLimit <= 0 {
		s.combinedLimit = search.CombinedLimit
	}

	searchOpts := opts.Search
	searchOpts.Logger = opts.Logger
	s.searcher = search.New(catalog, searchOpts)
	return s
}

// Catalog returns the underlying store.
func (s *Service) Catalog() Catalog {
	return s.catalog
}

// SuggestionsEnabled reports whether recommendations include generated projects.
func (s *Service) SuggestionsEnabled() bool {
	return s.generator.Enabled()
}

// CheckPrompt runs the quality gate on prompt without searching.
func (s *Service) CheckPrompt(prompt string) validate.Verdict {
	return s.validator.Check(prompt)
}
