package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/generate"
	"github.com/hpungsan/spark/internal/logging"
	"github.com/hpungsan/spark/internal/metrics"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
	"github.com/hpungsan/spark/internal/reasoning"
	"github.com/hpungsan/spark/internal/search"
)

// Uncertainty areas and their confidence cost.
const (
	UncertaintyExactMatch = "exact catalog match"
	UncertaintyPrecision  = "search precision"
	UncertaintyCoverage   = "catalog coverage"
	UncertaintyAI         = "ai suggestions"
	UncertaintyScope      = "prompt scope"
)

var uncertaintyImpact = map[string]float64{
	UncertaintyExactMatch: 0.1,
	UncertaintyPrecision:  0.2,
	UncertaintyCoverage:   0.2,
	UncertaintyAI:         0.1,
	UncertaintyScope:      0.1,
}

// RecommendInput contains parameters for the Recommend operation.
type RecommendInput struct {
	Prompt  string
	Explain bool // include Reasoning in the output
}

// Reasoning explains a recommendation.
type Reasoning struct {
	reasoning.Snapshot
	Stage    search.Stage     `json:"stage"`
	Attempts []search.Attempt `json:"attempts"`
}

// RecommendOutput contains the result of the Recommend operation.
//
// It serializes in one of two shapes. Search-only:
//
//	{"projects": [...]}
//
// Combined, when suggestions are enabled:
//
//	{"intro": "...", "aiSuggestions": [...], "recommendations": [...]}
type RecommendOutput struct {
	Combined bool

	// Projects are the catalog matches.
	Projects []project.Project

	Intro         string
	AISuggestions []project.Project

	Reasoning *Reasoning
}

type searchOnlyJSON struct {
	Projects  []project.Project `json:"projects"`
	Reasoning *Reasoning        `json:"reasoning,omitempty"`
}

type combinedJSON struct {
	Intro           string            `json:"intro"`
	AISuggestions   []project.Project `json:"aiSuggestions"`
	Recommendations []project.Project `json:"recommendations"`
	Reasoning       *Reasoning        `json:"reasoning,omitempty"`
}

// MarshalJSON renders the search-only or combined shape.
func (o RecommendOutput) MarshalJSON() ([]byte, error) {
	projects := o.Projects
	if projects == nil {
		projects = []project.Project{}
	}
	if !o.Combined {
		return json.Marshal(searchOnlyJSON{Projects: projects, Reasoning: o.Reasoning})
	}
	suggestions := o.AISuggestions
	if suggestions == nil {
		suggestions = []project.Project{}
	}
	return json.Marshal(combinedJSON{
		Intro:           o.Intro,
		AISuggestions:   suggestions,
		Recommendations: projects,
		Reasoning:       o.Reasoning,
	})
}

// Recommend validates prompt, then searches the catalog and (when enabled)
// generates suggestions concurrently.
func (s *Service) Recommend(ctx context.Context, input RecommendInput) (*RecommendOutput, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, errors.NewPromptRequired()
	}
	// The gate measures the prompt as typed, padding included.
	if verdict := s.validator.Check(input.Prompt); !verdict.Valid {
		return nil, errors.NewPromptRejected(verdict.Reason)
	}

	expr := s.normalizer.Normalize(prompt)
	combined := s.generator.Enabled()
	limit := s.limit
	if combined {
		limit = s.combinedLimit
	}

	var (
		result      *search.Result
		suggestions generate.Suggestions
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = s.searcher.Search(gctx, search.Query{Prompt: prompt, Expression: expr, Limit: limit})
		return err
	})
	if combined {
		g.Go(func() error {
			suggestions = s.generator.Generate(gctx, prompt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("prompt", prompt).Msg("recommendation search failed")
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}

	tracker := reasoning.New(s.topics)
	s.annotate(tracker, prompt, expr, result, combined, suggestions)

	snapshot := tracker.Snapshot()
	metrics.RecommendationConfidence.Observe(snapshot.Confidence)
	logging.Ctx(ctx).Debug().
		Str("stage", string(result.Stage)).
		Int("matches", len(result.Projects)).
		Int("suggestions", len(suggestions.Projects)).
		Float64("confidence", snapshot.Confidence).
		Strs("conclusions", snapshot.Conclusions).
		Msg("recommendation served")

	out := &RecommendOutput{
		Combined: combined,
		Projects: result.Projects,
	}
	if combined {
		out.Intro = suggestions.Intro
		out.AISuggestions = suggestions.Projects
	}
	if input.Explain {
		out.Reasoning = &Reasoning{Snapshot: snapshot, Stage: result.Stage, Attempts: result.Attempts}
	}
	return out, nil
}

// annotate records what the pipeline did and where it had to guess.
func (s *Service) annotate(t *reasoning.Tracker, prompt string, expr query.Expression,
	result *search.Result, combined bool, suggestions generate.Suggestions) {

	t.AddThought("Analyzing request: " + prompt)

	searchTerms := expr.Terms()
	if len(searchTerms) > 0 {
		t.AddThought("Search terms: " + strings.Join(searchTerms, ", "))
	}
	if expr.Expanded() {
		t.AddThought("Expanded synonyms: " + expr.String())
	}
	t.AddThought(fmt.Sprintf("Catalog search used the %s stage and found %d projects", result.Stage, len(result.Projects)))
	for _, p := range result.Projects {
		t.AddThought("Matched catalog project: " + p.Title)
	}
	for _, p := range suggestions.Projects {
		thought := "Suggested project: " + p.Title
		if len(p.TechStack) > 0 {
			thought += " using " + strings.Join(p.TechStack, ", ")
		}
		t.AddThought(thought)
	}

	mark := func(area string) { t.MarkUncertaintyWithImpact(area, uncertaintyImpact[area]) }
	if result.Stage != search.StageRanked {
		mark(UncertaintyExactMatch)
	}
	if result.Stage == search.StageDegraded {
		mark(UncertaintyPrecision)
	}
	if len(result.Projects) == 0 {
		mark(UncertaintyCoverage)
	}
	if combined && len(suggestions.Projects) == 0 {
		mark(UncertaintyAI)
	}
	if len(searchTerms) <= 1 {
		mark(UncertaintyScope)
	}
}
