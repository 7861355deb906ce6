package generate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spark/internal/metrics"
)

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeBackend{err: fmt.Errorf("backend down")}
	b := WithBreaker(inner, BreakerSettings{Name: "test-open", Failures: 2, Cooldown: time.Hour, Logger: zerolog.Nop()})

	for i := 0; i < 2; i++ {
		_, err := b.Complete(context.Background(), "p")
		assert.ErrorContains(t, err, "backend down")
	}

	_, err := b.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls, "open circuit does not call the backend")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.BreakerState.WithLabelValues("test-open")))
}

func TestWithBreaker_SuccessResetsCount(t *testing.T) {
	inner := &fakeBackend{err: fmt.Errorf("flaky")}
	b := WithBreaker(inner, BreakerSettings{Name: "test-reset", Failures: 2, Cooldown: time.Hour, Logger: zerolog.Nop()})

	_, _ = b.Complete(context.Background(), "p")
	inner.err, inner.reply = nil, "ok"
	out, err := b.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	inner.err = fmt.Errorf("flaky")
	_, err = b.Complete(context.Background(), "p")
	assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.BreakerState.WithLabelValues("test-reset")))
}

func TestWithBreaker_CancellationIsNotAFailure(t *testing.T) {
	inner := &fakeBackend{err: context.Canceled}
	b := WithBreaker(inner, BreakerSettings{Name: "test-cancel", Failures: 1, Cooldown: time.Hour, Logger: zerolog.Nop()})

	for i := 0; i < 3; i++ {
		_, err := b.Complete(context.Background(), "p")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, inner.calls)
}

func TestGenerate_BreakerOpenFallsBack(t *testing.T) {
	inner := &fakeBackend{err: fmt.Errorf("down")}
	b := WithBreaker(inner, BreakerSettings{Name: "test-generate", Failures: 1, Cooldown: time.Hour, Logger: zerolog.Nop()})
	g := newGenerator(b)

	before := testutil.ToFloat64(metrics.GenerationTotal.WithLabelValues("breaker_open"))
	g.Generate(context.Background(), "react")
	s := g.Generate(context.Background(), "react")

	assert.Equal(t, Fallback(), s)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GenerationTotal.WithLabelValues("breaker_open")))
}
