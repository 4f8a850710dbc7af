package config

import (
	"os"
	"strconv"

	"neurotune/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Analysis AnalysisConfig
	Paths    PathConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port string
}

// AnalysisConfig holds tuning-analysis parameters
type AnalysisConfig struct {
	// TrialDuration is the static-grating presentation length in seconds.
	TrialDuration float64
	// SFDIBias is the degrees-of-freedom correction term for the
	// discrimination index standard error (denominator is trials - bias).
	SFDIBias int
	// Parallel enables the data-parallel per-unit metrics map.
	Parallel bool
}

// PathConfig holds file system paths for the input tables
type PathConfig struct {
	ConditionsFile string
	StatisticsFile string
	TrialsFile     string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			Enabled: os.Getenv("DATABASE_URL") != "",
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Analysis: AnalysisConfig{
			TrialDuration: 0.25,
			SFDIBias:      5,
			Parallel:      os.Getenv("ANALYSIS_SERIAL") == "",
		},
		Paths: PathConfig{
			ConditionsFile: os.Getenv("CONDITIONS_FILE"),
			StatisticsFile: os.Getenv("STATISTICS_FILE"),
			TrialsFile:     os.Getenv("TRIALS_FILE"),
		},
	}

	if v := os.Getenv("TRIAL_DURATION"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			return nil, errors.New(errors.CodeConfig, "TRIAL_DURATION must be a positive number")
		}
		cfg.Analysis.TrialDuration = d
	}

	if v := os.Getenv("SFDI_BIAS"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil || b < 0 {
			return nil, errors.New(errors.CodeConfig, "SFDI_BIAS must be a non-negative integer")
		}
		cfg.Analysis.SFDIBias = b
	}

	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
