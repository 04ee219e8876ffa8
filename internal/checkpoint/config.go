package checkpoint

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by LoadBackendConfig.
const (
	EnvExecutionMode    = "SPENDCUBE_ENV"           // "production" / "staging" select durable when a URL is present
	EnvBackend          = "CHECKPOINT_BACKEND"      // Optional explicit override: "memory" or "durable"
	EnvConnectionString = "CHECKPOINT_DATABASE_URL" // Redis URL for the durable backend
	EnvRedisURL         = "REDIS_URL"               // Fallback when CHECKPOINT_DATABASE_URL is unset
	EnvPoolSize         = "CHECKPOINT_POOL_SIZE"    // Max pool connections, default 10
)

// Pool defaults for the durable backend.
const (
	DefaultPoolSize = 10
	IdleTimeout     = 30 * time.Second
	ConnectTimeout  = 2 * time.Second
	SetupTimeout    = 10 * time.Second // Bounds one construction of the shared instance
)

// Kind identifies a checkpoint backend.
type Kind string

const (
	// KindMemory is a process-local store that does not survive restarts
	KindMemory Kind = "memory"

	// KindDurable is the Redis-backed store
	KindDurable Kind = "durable"
)

// BackendConfig selects and parameterises a checkpoint backend.
type BackendConfig struct {
	Kind             Kind
	ConnectionString string
	PoolSize         int
}

// Validate checks if the BackendConfig is usable.
// A durable config without a connection string is a configuration error.
func (c BackendConfig) Validate() error {
	switch c.Kind {
	case KindMemory:
	case KindDurable:
		if strings.TrimSpace(c.ConnectionString) == "" {
			return ErrMissingConnectionString
		}
	default:
		return fmt.Errorf("unknown checkpoint backend: %q", c.Kind)
	}

	if c.PoolSize < 0 {
		return fmt.Errorf("invalid pool size: must be >= 1, got %d", c.PoolSize)
	}

	return nil
}

// poolSize returns the configured pool size or the default.
func (c BackendConfig) poolSize() int {
	if c.PoolSize == 0 {
		return DefaultPoolSize
	}
	return c.PoolSize
}

// isProductionLike reports whether the execution mode should persist durably.
func isProductionLike(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "production", "prod", "staging":
		return true
	default:
		return false
	}
}

// LoadBackendConfig derives the backend configuration from the environment.
// Durable is selected when the execution mode is production-like and a
// connection string is present, or when CHECKPOINT_BACKEND=durable.
// Pass nil to read the process environment.
func LoadBackendConfig(getenv func(string) string) (BackendConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := BackendConfig{
		Kind:             KindMemory,
		ConnectionString: getenv(EnvConnectionString),
		PoolSize:         DefaultPoolSize,
	}
	if cfg.ConnectionString == "" {
		cfg.ConnectionString = getenv(EnvRedisURL)
	}

	if raw := getenv(EnvPoolSize); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return cfg, fmt.Errorf("invalid %s: must be a positive integer, got %q", EnvPoolSize, raw)
		}
		cfg.PoolSize = size
	}

	switch strings.ToLower(getenv(EnvBackend)) {
	case "":
		if isProductionLike(getenv(EnvExecutionMode)) && cfg.ConnectionString != "" {
			cfg.Kind = KindDurable
		}
	case string(KindMemory):
		cfg.Kind = KindMemory
	case string(KindDurable):
		cfg.Kind = KindDurable
	default:
		return cfg, fmt.Errorf("invalid %s: %q (must be 'memory' or 'durable')", EnvBackend, getenv(EnvBackend))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// merge returns c with every non-zero field of override applied.
func (c BackendConfig) merge(override BackendConfig) BackendConfig {
	if override.Kind != "" {
		c.Kind = override.Kind
	}
	if override.ConnectionString != "" {
		c.ConnectionString = override.ConnectionString
	}
	if override.PoolSize != 0 {
		c.PoolSize = override.PoolSize
	}
	return c
}
