// Package search runs a prompt against the catalog through an ordered
// list of increasingly permissive strategies.
package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/metrics"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
)

// Limits
const (
	DefaultLimit  = 6
	CombinedLimit = 3
	MaxLimit      = 50

	DefaultStageTimeout = 5 * time.Second
)

// Stage names a fallback tier.
type Stage string

const (
	StageRanked    Stage = "ranked"
	StageFuzzy     Stage = "fuzzy"
	StageDegraded  Stage = "degraded"
	StageExhausted Stage = "exhausted"
)

// errNoTerms is a stage failure: there is nothing to match on.
var errNoTerms = stderrors.New("no search terms")

// Catalog is the subset of a project store the orchestrator needs.
type Catalog interface {
	RankedSearch(ctx context.Context, expr query.Expression, mode query.Mode, limit int) ([]project.Project, error)
	SubstringSearch(ctx context.Context, patterns []string, fields []project.Field, limit int) ([]project.Project, error)
}

// Query is one search request.
type Query struct {
	Prompt     string
	Expression query.Expression
	Limit      int
}

// Attempt records the outcome of one stage.
type Attempt struct {
	Stage    Stage         `json:"stage"`
	Count    int           `json:"count"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Result is the outcome of a search.
type Result struct {
	Projects []project.Project `json:"projects"`

	// Stage is the tier that produced Projects.
	Stage    Stage     `json:"stage"`
	Attempts []Attempt `json:"attempts"`
}

// strategy is one tier. advanceOnEmpty makes zero rows unusable as well as errors.
type strategy struct {
	stage          Stage
	advanceOnEmpty bool
	run            func(ctx context.Context, q Query) ([]project.Project, error)
}

// Options configures an Orchestrator.
type Options struct {
	Mode         query.Mode
	StageTimeout time.Duration
	Logger       zerolog.Logger
}

// Orchestrator executes the fallback tiers.
type Orchestrator struct {
	catalog    Catalog
	mode       query.Mode
	timeout    time.Duration
	logger     zerolog.Logger
	strategies []strategy
}

// New creates an Orchestrator over catalog.
func New(catalog Catalog, opts Options) *Orchestrator {
	o := &Orchestrator{
		catalog: catalog,
		mode:    opts.Mode,
		timeout: opts.StageTimeout,
		logger:  opts.Logger.With().Str("component", "search").Logger(),
	}
	if o.mode == "" {
		o.mode = query.DefaultMode
	}
	if o.timeout <= 0 {
		o.timeout = DefaultStageTimeout
	}
	o.strategies = []strategy{
		{stage: StageRanked, advanceOnEmpty: true, run: o.ranked},
		{stage: StageFuzzy, advanceOnEmpty: false, run: o.fuzzy},
		{stage: StageDegraded, advanceOnEmpty: false, run: o.degraded},
	}
	return o
}

// Search tries each tier in order and returns the first usable result.
// A tier is usable when it did not fail and, for the ranked tier, returned
// at least one row. Only the failure of every tier is an error.
func (o *Orchestrator) Search(ctx context.Context, q Query) (*Result, error) {
	q.Limit = clampLimit(q.Limit)
	result := &Result{Projects: []project.Project{}, Stage: StageExhausted}

	var failures []error
	for _, s := range o.strategies {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		start := time.Now()
		projects, err := o.runStage(ctx, s, q)
		attempt := Attempt{Stage: s.stage, Count: len(projects), Duration: time.Since(start)}

		if err != nil {
			attempt.Error = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			failures = append(failures, fmt.Errorf("%s: %w", s.stage, err))
			metrics.SearchStages.WithLabelValues(string(s.stage), "error").Inc()
			o.logger.Warn().Err(err).Str("stage", string(s.stage)).Msg("search stage failed, falling back")
			continue
		}

		result.Attempts = append(result.Attempts, attempt)
		if len(projects) == 0 && s.advanceOnEmpty {
			metrics.SearchStages.WithLabelValues(string(s.stage), "empty").Inc()
			o.logger.Debug().Str("stage", string(s.stage)).Msg("search stage empty, falling back")
			continue
		}

		metrics.SearchStages.WithLabelValues(string(s.stage), "ok").Inc()
		result.Projects = projects
		result.Stage = s.stage
		return result, nil
	}

	metrics.SearchStages.WithLabelValues(string(StageExhausted), "error").Inc()
	return result, errors.NewSearchExhausted(stderrors.Join(failures...))
}

func (o *Orchestrator) runStage(ctx context.Context, s strategy, q Query) ([]project.Project, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	projects, err := s.run(stageCtx, q)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []project.Project{}
	}
	if len(projects) > q.Limit {
		projects = projects[:q.Limit]
	}
	return projects, nil
}

// ranked runs the boolean expression through the store's full-text index.
// An empty expression matches nothing without touching the store.
func (o *Orchestrator) ranked(ctx context.Context, q Query) ([]project.Project, error) {
	if q.Expression.Empty() {
		return []project.Project{}, nil
	}
	return o.catalog.RankedSearch(ctx, q.Expression, o.mode, q.Limit)
}

// fuzzy ORs a substring match of every canonical term over all searchable fields.
func (o *Orchestrator) fuzzy(ctx context.Context, q Query) ([]project.Project, error) {
	terms := q.Expression.Terms()
	if len(terms) == 0 {
		return nil, errNoTerms
	}
	return o.catalog.SubstringSearch(ctx, terms, project.SearchFields, q.Limit)
}

// degraded matches the whole prompt as one substring of title or description.
func (o *Orchestrator) degraded(ctx context.Context, q Query) ([]project.Project, error) {
	prompt := strings.TrimSpace(q.Prompt)
	if prompt == "" {
		return nil, errNoTerms
	}
	return o.catalog.SubstringSearch(ctx, []string{prompt},
		[]project.Field{project.FieldTitle, project.FieldDescription}, q.Limit)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
