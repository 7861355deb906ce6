package generate

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hpungsan/spark/internal/config"
)

// FromConfig builds a Generator from the ai config section. A disabled
// section yields a Generator that always returns Fallback.
func FromConfig(cfg config.AIConfig, logger zerolog.Logger) (*Generator, error) {
	if !cfg.Enabled {
		return New(nil, Options{Logger: logger}), nil
	}

	var backend Backend
	switch cfg.Provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ai.api_key (or GEMINI_API_KEY) is required for the gemini provider")
		}
		backend = NewGeminiBackend(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.Timeout)
	case "openai":
		backend = NewOpenAIBackend(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}

	failures := cfg.BreakerFailures
	if failures < 0 {
		failures = 0
	}
	backend = WithBreaker(backend, BreakerSettings{
		Name:     cfg.Provider,
		Failures: uint32(failures),
		Cooldown: cfg.BreakerCooldown,
		Logger:   logger,
	})

	return New(backend, Options{
		Timeout:        cfg.Timeout,
		MaxSuggestions: cfg.MaxSuggestions,
		Logger:         logger,
	}), nil
}
