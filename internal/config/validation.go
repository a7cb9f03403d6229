package config

import (
	"fmt"
	"strings"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for the serve path. All problems are
// wrapped sentinel errors checkable with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY or FOLIO_OPENAI_API_KEY", ErrMissingAPIKey)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}

	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d (must be in [1, 50])", ErrInvalidTopK, c.TopK)
	}

	if c.RateLimit < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidRateLimit, c.RateLimit)
	}

	if c.MaxToolLoops < 1 || c.MaxToolLoops > 20 {
		return fmt.Errorf("%w: %d (must be in [1, 20])", ErrInvalidMaxToolLoops, c.MaxToolLoops)
	}

	if c.MaxHistory < 2 {
		return fmt.Errorf("%w: %d (must be >= 2 to hold one exchange)", ErrInvalidMaxHistory, c.MaxHistory)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}
