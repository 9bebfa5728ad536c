package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
)

type Config struct {
	// Database connection.
	DatabaseURL      string
	StatementTimeout time.Duration

	// Analysis scope and thresholds.
	Schemas     []string // empty means all non-system schemas
	Thresholds  domain.Thresholds
	RulesetFile string // optional path to ruleset YAML

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport string // "cli" (default) or "stdio" for MCP serving

	// Connection pool.
	PoolMaxConns        int32         // default: 5
	PoolMinConns        int32         // default: 1
	PoolMaxConnLifetime time.Duration // default: 30m

	// Observability.
	OTelEnabled bool

	// CLI-only fields (not settable via env vars).
	Apply    bool   // false means dry run
	Format   string // "text" or "json"
	AuditLog string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	DatabaseURL        *string
	LogLevel           *string
	Schemas            *string
	MinUnusedSize      *int64
	LargeSize          *int64
	RarelyUsedMaxScans *int64
	StatementTimeout   *time.Duration
	RulesetFile        *string
	Transport          *string
	OTelEnabled        bool
	Apply              bool
	Format             *string
	AuditLog           string

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StatementTimeout:    30 * time.Second,
		Thresholds:          domain.DefaultThresholds(),
		Transport:           "cli",
		Format:              "text",
		PoolMaxConns:        5,
		PoolMinConns:        1,
		PoolMaxConnLifetime: 30 * time.Minute,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("SCHEMAS"); v != "" {
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				cfg.Schemas = append(cfg.Schemas, s)
			}
		}
	}

	if v := os.Getenv("MIN_UNUSED_SIZE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid MIN_UNUSED_SIZE_BYTES value %q: must be a non-negative integer", v)
		}
		cfg.Thresholds.MinUnusedSizeBytes = n
	}

	if v := os.Getenv("LARGE_SIZE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid LARGE_SIZE_BYTES value %q: must be a non-negative integer", v)
		}
		cfg.Thresholds.LargeSizeBytes = n
	}

	if v := os.Getenv("RARELY_USED_MAX_SCANS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid RARELY_USED_MAX_SCANS value %q: must be a positive integer", v)
		}
		cfg.Thresholds.RarelyUsedMaxScans = n
	}

	if v := os.Getenv("STATEMENT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STATEMENT_TIMEOUT value %q: %w", v, err)
		}
		cfg.StatementTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	cfg.RulesetFile = os.Getenv("RULESET_FILE")

	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.Transport = v
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return loadPoolEnvVars(cfg)
}

// loadPoolEnvVars reads connection pool environment variables.
func loadPoolEnvVars(cfg *Config) error {
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid POOL_MIN_CONNS value %q: must be a non-negative integer", v)
		}
		cfg.PoolMinConns = int32(n)
	}
	if v := os.Getenv("POOL_MAX_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POOL_MAX_CONN_LIFETIME value %q: %w", v, err)
		}
		cfg.PoolMaxConnLifetime = d
	}
	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.Schemas != nil {
		cfg.Schemas = nil
		for _, s := range strings.Split(*o.Schemas, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				cfg.Schemas = append(cfg.Schemas, s)
			}
		}
	}
	if o.MinUnusedSize != nil {
		if *o.MinUnusedSize < 0 {
			return fmt.Errorf("invalid --min-unused-size value: must be non-negative")
		}
		cfg.Thresholds.MinUnusedSizeBytes = *o.MinUnusedSize
	}
	if o.LargeSize != nil {
		if *o.LargeSize < 0 {
			return fmt.Errorf("invalid --large-size value: must be non-negative")
		}
		cfg.Thresholds.LargeSizeBytes = *o.LargeSize
	}
	if o.RarelyUsedMaxScans != nil {
		if *o.RarelyUsedMaxScans <= 0 {
			return fmt.Errorf("invalid --rarely-used-max-scans value: must be a positive integer")
		}
		cfg.Thresholds.RarelyUsedMaxScans = *o.RarelyUsedMaxScans
	}
	if o.StatementTimeout != nil {
		cfg.StatementTimeout = *o.StatementTimeout
	}
	if o.RulesetFile != nil {
		cfg.RulesetFile = *o.RulesetFile
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.Format != nil {
		cfg.Format = *o.Format
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	cfg.Apply = o.Apply
	cfg.AuditLog = o.AuditLog
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (set via env var or --database-url flag)")
	}

	switch cfg.Transport {
	case "cli", "stdio":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"cli\" or \"stdio\"", cfg.Transport)
	}

	switch cfg.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid --format value %q: must be \"text\" or \"json\"", cfg.Format)
	}

	if cfg.Transport == "stdio" && cfg.Apply {
		return fmt.Errorf("--apply is not supported with the stdio transport; use the apply tool's confirm argument instead")
	}

	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
