// Package config loads spark configuration from defaults, an optional
// config file in the data directory, and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/hpungsan/spark/internal/query"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "SPARK_CONFIG"

// EnvPrefix prefixes every spark environment variable.
const EnvPrefix = "SPARK_"

// ConfigFileNames are searched in baseDir in order. JSON is read with the
// YAML parser.
var ConfigFileNames = []string{"config.yaml", "config.yml", "config.json"}

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Search   SearchConfig   `koanf:"search"`
	AI       AIConfig       `koanf:"ai"`
	Logging  LoggingConfig  `koanf:"logging"`
	MCP      MCPConfig      `koanf:"mcp"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Bind string `koanf:"bind" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP. 0 disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`

	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gt=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// DatabaseConfig selects and tunes the catalog store.
type DatabaseConfig struct {
	// Driver is sqlite (embedded, default) or postgres.
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`

	// Path overrides the SQLite file location. Empty means <SPARK_HOME>/spark.db.
	Path string `koanf:"path"`

	// URL is the PostgreSQL connection string.
	URL string `koanf:"url" validate:"required_if=Driver postgres"`

	// MaxOpenConns limits open connections. 0 keeps the driver default.
	// Setting 1 serializes SQLite access.
	MaxOpenConns int `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int `koanf:"max_idle_conns" validate:"gte=0"`

	// TextSearchConfig is the PostgreSQL regconfig used for ranked search.
	TextSearchConfig string `koanf:"text_search_config"`
}

// SearchConfig tunes the fallback search.
type SearchConfig struct {
	// Mode is the ranked-stage query mode: tsquery, plain, phrase, websearch.
	Mode string `koanf:"mode"`

	Limit         int           `koanf:"limit" validate:"min=1,max=50"`
	CombinedLimit int           `koanf:"combined_limit" validate:"min=1,max=50"`
	StageTimeout  time.Duration `koanf:"stage_timeout" validate:"gt=0"`
}

// AIConfig configures suggestion generation.
type AIConfig struct {
	Enabled bool `koanf:"enabled"`

	// Provider is gemini or openai (any OpenAI-compatible endpoint).
	Provider string `koanf:"provider" validate:"oneof=gemini openai"`
	Endpoint string `koanf:"endpoint" validate:"omitempty,url"`
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`

	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxSuggestions int           `koanf:"max_suggestions" validate:"min=1,max=10"`
	Temperature    float64       `koanf:"temperature" validate:"gte=0,lte=2"`

	// BreakerFailures consecutive failures open the circuit for BreakerCooldown.
	BreakerFailures int           `koanf:"breaker_failures" validate:"min=1"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" validate:"gt=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	// DisabledTools are excluded from registration. Unknown names are logged.
	DisabledTools []string `koanf:"disabled_tools"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:              "127.0.0.1",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
			MaxBodyBytes:      64 << 10,
		},
		Database: DatabaseConfig{
			Driver:           "sqlite",
			TextSearchConfig: "english",
		},
		Search: SearchConfig{
			Mode:          string(query.DefaultMode),
			Limit:         6,
			CombinedLimit: 3,
			StageTimeout:  5 * time.Second,
		},
		AI: AIConfig{
			Enabled:         false,
			Provider:        "gemini",
			Model:           "gemini-2.0-flash",
			Timeout:         30 * time.Second,
			MaxSuggestions:  3,
			Temperature:     0.7,
			BreakerFailures: 5,
			BreakerCooldown: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds configuration for the data directory baseDir: defaults, then
// the first config file found, then SPARK_* environment variables.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.spark.
func Load(baseDir string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(baseDir); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	applyProviderKey(cfg)
	cfg.MCP.DisabledTools = dedupe(cfg.MCP.DisabledTools)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile(baseDir string) string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, name := range ConfigFileNames {
		p := filepath.Join(baseDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envSections are the top-level keys an environment variable may address.
// SPARK_AI_API_KEY becomes ai.api_key; the first underscore after the
// section is the only delimiter.
var envSections = []string{"server", "database", "search", "ai", "logging", "mcp"}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "home" || key == "config" {
		return ""
	}
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when set from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"mcp.disabled_tools",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := dedupe(strings.Split(s, ","))
		if parts == nil {
			parts = []string{}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// providerKeyEnv are the conventional key variables per provider, used when
// ai.api_key is unset.
var providerKeyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
}

func applyProviderKey(cfg *Config) {
	if cfg.AI.APIKey != "" {
		return
	}
	if name, ok := providerKeyEnv[cfg.AI.Provider]; ok {
		cfg.AI.APIKey = os.Getenv(name)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum values and ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q constraint (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if _, err := query.ParseMode(c.Search.Mode); err != nil {
		return fmt.Errorf("invalid Config.Search.Mode: %w", err)
	}
	if c.Search.CombinedLimit > c.Search.Limit {
		return fmt.Errorf("search.combined_limit (%d) exceeds search.limit (%d)", c.Search.CombinedLimit, c.Search.Limit)
	}
	return nil
}

// dedupe trims whitespace and removes empty and duplicate entries.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
