// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/features"
	"github.com/dvloznov/txn-features/internal/timebucket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds settings shared by the CLI subcommands. Flags override
// these values.
type Config struct {
	LogLevel        string
	GCPProject      string
	FeaturesDataset string
	FeaturesTable   string
	FirstNTxn       int
	LastNTxn        int
	TimeLayout      string
	ParsePolicy     domain.BadRowPolicy
}

// Load reads a .env file if one exists and then the environment.
func Load(log zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, applying defaults for unset keys.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	getEnv := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}
	def := features.DefaultConfig()

	firstN, err := strconv.Atoi(getEnv("FIRST_N_TXN", strconv.Itoa(def.FirstNTxn)))
	if err != nil {
		return nil, fmt.Errorf("config: FIRST_N_TXN: %w", err)
	}
	lastN, err := strconv.Atoi(getEnv("LAST_N_TXN", strconv.Itoa(def.LastNTxn)))
	if err != nil {
		return nil, fmt.Errorf("config: LAST_N_TXN: %w", err)
	}
	policy, err := domain.ParseBadRowPolicy(getEnv("PARSE_POLICY", string(domain.BadRowAbort)))
	if err != nil {
		return nil, fmt.Errorf("config: PARSE_POLICY: %w", err)
	}

	return &Config{
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		GCPProject:      getEnv("GCP_PROJECT", ""),
		FeaturesDataset: getEnv("FEATURES_DATASET", "features"),
		FeaturesTable:   getEnv("FEATURES_TABLE", "user_features"),
		FirstNTxn:       firstN,
		LastNTxn:        lastN,
		TimeLayout:      getEnv("TIME_LAYOUT", timebucket.DefaultLayout),
		ParsePolicy:     policy,
	}, nil
}

// DefaultOutput is the bq:// location of the configured feature table, or
// "-" when no project is set.
func (c *Config) DefaultOutput() string {
	if c.GCPProject == "" {
		return "-"
	}
	return fmt.Sprintf("bq://%s.%s.%s", c.GCPProject, c.FeaturesDataset, c.FeaturesTable)
}
