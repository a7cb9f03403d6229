// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (FOLIO_*, runtime override)
//  2. Config file (~/.folio/config.yaml)
//  3. Default values
//
// Security: sensitive fields (API keys, passwords) are masked in MarshalJSON
// and never logged. Validation lives in validation.go with sentinel errors
// so callers can use errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration problems.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the OpenAI API key is missing.
	ErrMissingAPIKey = errors.New("missing OpenAI API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidRateLimit indicates the per-window request limit is invalid.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidMaxToolLoops indicates the tool loop bound is out of range.
	ErrInvalidMaxToolLoops = errors.New("invalid max tool loops")

	// ErrInvalidMaxHistory indicates the history window size is invalid.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Defaults mirror the knobs the orchestrator depends on. They bound memory
// and model context size; change them only together with the documented
// invariants in the packages that consume them.
const (
	// DefaultModelName is the chat completion model.
	DefaultModelName = "gpt-4o"

	// DefaultEmbedderModel is the embedding model. text-embedding-3-small
	// outputs 1536 dimensions; the code_chunks schema matches.
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultTopK is the number of retrieved chunks per query.
	DefaultTopK = 8

	// DefaultRateLimit is the per-client request budget per window.
	DefaultRateLimit = 20

	// DefaultRateWindow is the fixed rate-limit window.
	DefaultRateWindow = time.Minute

	// DefaultCacheTTL is the retrieval cache freshness window.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultMaxToolLoops bounds tool-calling iterations per request.
	DefaultMaxToolLoops = 5

	// DefaultMaxHistory is the per-conversation sliding window of turns.
	DefaultMaxHistory = 12

	// DefaultSessionTTL is the idle time after which a session may be swept.
	DefaultSessionTTL = 30 * time.Minute
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// HTTP server
	Addr        string   `mapstructure:"addr" json:"addr"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// OpenAI
	OpenAIAPIKey  string  `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`

	// GitHub (source-hosting collaborator). Token is optional; unauthenticated
	// requests work with a lower rate limit.
	GitHubToken string `mapstructure:"github_token" json:"github_token"` // SENSITIVE: masked in MarshalJSON
	GitHubOwner string `mapstructure:"github_owner" json:"github_owner"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Orchestrator knobs
	RateLimit    int           `mapstructure:"rate_limit" json:"rate_limit"`
	RateWindow   time.Duration `mapstructure:"rate_window" json:"rate_window"`
	TopK         int           `mapstructure:"top_k" json:"top_k"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" json:"cache_ttl"`
	MaxToolLoops int           `mapstructure:"max_tool_loops" json:"max_tool_loops"`
	MaxHistory   int           `mapstructure:"max_history" json:"max_history"`
	SessionTTL   time.Duration `mapstructure:"session_ttl" json:"session_ttl"`

	// Entity catalog
	ProjectsFile string `mapstructure:"projects_file" json:"projects_file"`

	// Observability (OTLP trace export; empty endpoint disables tracing)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`

	// Logging
	LogJSON bool `mapstructure:"log_json" json:"log_json"`
	Debug   bool `mapstructure:"debug" json:"debug"`
}

// Load reads configuration from defaults, the optional config file, and
// environment variables, in ascending priority.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; a missing file is not an error.
	if dir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, ".folio"))
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Well-known env vars override the FOLIO_* forms for cloud deployments.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAIAPIKey = key
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHubToken = token
	}
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values for all configuration keys.
func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("trust_proxy", false)

	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.3)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "folio")
	v.SetDefault("postgres_db_name", "folio")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("rate_limit", DefaultRateLimit)
	v.SetDefault("rate_window", DefaultRateWindow)
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("max_tool_loops", DefaultMaxToolLoops)
	v.SetDefault("max_history", DefaultMaxHistory)
	v.SetDefault("session_ttl", DefaultSessionTTL)

	v.SetDefault("projects_file", "data/projects.json")

	v.SetDefault("environment", "dev")
	v.SetDefault("service_name", "folio")
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // Avoid recursion
	masked := alias(c)
	if masked.OpenAIAPIKey != "" {
		masked.OpenAIAPIKey = "***"
	}
	if masked.GitHubToken != "" {
		masked.GitHubToken = "***"
	}
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal(masked)
}
