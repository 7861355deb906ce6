package generate

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/hpungsan/spark/internal/metrics"
)

// BreakerSettings configures a circuit breaker around a Backend.
type BreakerSettings struct {
	Name string

	// Failures is the number of consecutive failures that opens the circuit.
	Failures uint32

	// Cooldown is how long the circuit stays open before a trial request.
	Cooldown time.Duration

	Logger zerolog.Logger
}

// breakerBackend rejects calls with gobreaker.ErrOpenState while the
// wrapped backend is considered down.
type breakerBackend struct {
	backend Backend
	cb      *gobreaker.CircuitBreaker[string]
}

// WithBreaker wraps backend in a circuit breaker.
func WithBreaker(backend Backend, s BreakerSettings) Backend {
	if s.Name == "" {
		s.Name = "suggestion-backend"
	}
	if s.Failures == 0 {
		s.Failures = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = time.Minute
	}
	logger := s.Logger.With().Str("component", "breaker").Str("breaker", s.Name).Logger()
	metrics.BreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.Failures
		},
		// a caller abandoning the request says nothing about backend health
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &breakerBackend{backend: backend, cb: cb}
}

func (b *breakerBackend) Complete(ctx context.Context, prompt string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.backend.Complete(ctx, prompt)
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
