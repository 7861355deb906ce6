// Package generate asks a text-generation backend for project ideas and
// turns its reply into synthetic projects. Generation never fails: every
// problem degrades to an empty suggestion list with a default intro.
package generate

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/hpungsan/spark/internal/metrics"
	"github.com/hpungsan/spark/internal/project"
)

// DefaultIntro is returned whenever generation fails.
const DefaultIntro = "Here are some project suggestions:"

// Defaults
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxSuggestions = 3
)

// Backend produces a single-turn completion for prompt.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Suggestions are the generated intro and projects.
type Suggestions struct {
	Intro    string            `json:"intro"`
	Projects []project.Project `json:"projects"`
}

// Fallback is the result of any failed generation.
func Fallback() Suggestions {
	return Suggestions{Intro: DefaultIntro, Projects: []project.Project{}}
}

// Options configures a Generator.
type Options struct {
	Timeout        time.Duration
	MaxSuggestions int
	Logger         zerolog.Logger
}

// Generator wraps a Backend. A nil backend disables generation.
type Generator struct {
	backend Backend
	timeout time.Duration
	max     int
	logger  zerolog.Logger
}

// New creates a Generator over backend.
func New(backend Backend, opts Options) *Generator {
	g := &Generator{
		backend: backend,
		timeout: opts.Timeout,
		max:     opts.MaxSuggestions,
		logger:  opts.Logger.With().Str("component", "generate").Logger(),
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.max <= 0 {
		g.max = DefaultMaxSuggestions
	}
	return g
}

// Disabled returns a Generator that always yields Fallback.
func Disabled() *Generator {
	return New(nil, Options{Logger: zerolog.Nop()})
}

// Enabled reports whether a backend is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.backend != nil
}

// Generate requests suggestions for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) Suggestions {
	if !g.Enabled() {
		metrics.GenerationTotal.WithLabelValues("disabled").Inc()
		return Fallback()
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.backend.Complete(callCtx, BuildPrompt(prompt))
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "backend_error"
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		metrics.GenerationTotal.WithLabelValues(outcome).Inc()
		g.logger.Warn().Err(err).Str("outcome", outcome).Msg("suggestion backend failed")
		return Fallback()
	}

	s, err := ParseSuggestions(raw)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("parse_error").Inc()
		g.logger.Warn().Err(err).Int("raw_len", len(raw)).Msg("unparseable suggestion response")
		return Fallback()
	}
	if len(s.Projects) > g.max {
		s.Projects = s.Projects[:g.max]
	}

	metrics.GenerationTotal.WithLabelValues("ok").Inc()
	g.logger.Debug().Int("count", len(s.Projects)).Dur("took", time.Since(start)).Msg("suggestions generated")
	return s
}
