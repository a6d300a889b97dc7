package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"metapanel/internal/errors"
)

// Config represents the complete pipeline configuration
type Config struct {
	Aggregation AggregationConfig
	Governance  GovernanceConfig
	Leakage     LeakageConfig
	Export      ExportConfig
	Database    DatabaseConfig
}

// AggregationConfig controls the grain ladder and temporal prior.
// Optional filter semantics are explicit: TargetOnly=false means the
// coverage allow-list is not consulted at all.
type AggregationConfig struct {
	MinN        int     // minimum raw sample size per grain
	Alpha       float64 // CI significance level
	UsePrior    bool    // enable temporal shrinkage
	PriorWindow int     // patches of history eligible for the prior
	Decay       float64 // per-patch-step weight decay, (0,1)
	PriorMinN   float64 // weighted-evidence floor for trusting a prior
	Alpha0      float64 // weak-prior pseudo-wins always added when blending
	Beta0       float64 // weak-prior pseudo-losses always added when blending

	TargetOnly      bool     // restrict grouping to the coverage allow-list
	CoverageTargets []string // entity allow-list, entity IDs

	// EmitWeakRows emits sub-threshold rows tagged CONTEXT instead of
	// dropping them. Off by default to match the drop policy.
	EmitWeakRows bool
}

// GovernanceConfig controls quality scoring and compliance checks
type GovernanceConfig struct {
	FreshnessWindow time.Duration // full-score window for timeliness
	KDATolerance    float64       // cross-field reconciliation tolerance
	SourceSystem    string        // lineage source system label
	SourceTable     string        // lineage source table label
}

// LeakageConfig controls the temporal leakage guard
type LeakageConfig struct {
	BufferPatches int  // training-patch lookahead guard
	Strict        bool // fail the batch on any violation
}

// ExportConfig controls panel partitioning and caps
type ExportConfig struct {
	MaxRecordsPerFile int    // entity-panel row cap
	OutputDir         string // panel sink directory
}

// DatabaseConfig holds panel-store connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Aggregation: AggregationConfig{
			MinN:            getEnvIntOrDefault("MIN_N", 30),
			Alpha:           getEnvFloatOrDefault("ALPHA", 0.05),
			UsePrior:        getEnvBoolOrDefault("USE_PRIOR", true),
			PriorWindow:     getEnvIntOrDefault("PRIOR_WINDOW", 4),
			Decay:           getEnvFloatOrDefault("DECAY", 0.7),
			PriorMinN:       getEnvFloatOrDefault("PRIOR_MIN_N", 20),
			Alpha0:          getEnvFloatOrDefault("ALPHA0", 1),
			Beta0:           getEnvFloatOrDefault("BETA0", 1),
			TargetOnly:      getEnvBoolOrDefault("TARGET_ONLY", false),
			CoverageTargets: getEnvListOrDefault("COVERAGE_TARGETS", nil),
			EmitWeakRows:    getEnvBoolOrDefault("EMIT_WEAK_ROWS", false),
		},
		Governance: GovernanceConfig{
			FreshnessWindow: getEnvDurationOrDefault("FRESHNESS_WINDOW", 14*24*time.Hour),
			KDATolerance:    getEnvFloatOrDefault("KDA_TOLERANCE", 0.01),
			SourceSystem:    getEnvOrDefault("SOURCE_SYSTEM", "match_ingest"),
			SourceTable:     getEnvOrDefault("SOURCE_TABLE", "match_player_records"),
		},
		Leakage: LeakageConfig{
			BufferPatches: getEnvIntOrDefault("LEAKAGE_BUFFER_PATCHES", 1),
			Strict:        getEnvBoolOrDefault("STRICT_LEAKAGE", true),
		},
		Export: ExportConfig{
			MaxRecordsPerFile: getEnvIntOrDefault("MAX_RECORDS_PER_FILE", 3000),
			OutputDir:         getEnvOrDefault("OUTPUT_DIR", "./panels"),
		},
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// Validate checks cross-field configuration constraints
func (c *Config) Validate() error {
	agg := c.Aggregation
	if agg.MinN < 1 {
		return errors.ConfigInvalid("MIN_N must be >= 1")
	}
	if agg.Alpha <= 0 || agg.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0,1)")
	}
	if agg.UsePrior {
		if agg.Decay <= 0 || agg.Decay >= 1 {
			return errors.ConfigInvalid("DECAY must be in (0,1)")
		}
		if agg.PriorWindow < 1 {
			return errors.ConfigInvalid("PRIOR_WINDOW must be >= 1 when USE_PRIOR is set")
		}
		if agg.PriorMinN < 0 {
			return errors.ConfigInvalid("PRIOR_MIN_N must be >= 0")
		}
	}
	if agg.TargetOnly && len(agg.CoverageTargets) == 0 {
		return errors.ConfigInvalid("TARGET_ONLY requires COVERAGE_TARGETS")
	}
	if c.Leakage.BufferPatches < 1 {
		return errors.ConfigInvalid("LEAKAGE_BUFFER_PATCHES must be >= 1")
	}
	if c.Export.MaxRecordsPerFile < 1 {
		return errors.ConfigInvalid("MAX_RECORDS_PER_FILE must be >= 1")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBoolOrDefault(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvListOrDefault(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
