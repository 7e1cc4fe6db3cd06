package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"oddsrules/domain/dataset"
	"oddsrules/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Dataset DatasetConfig
	Mining  MiningConfig
	Paths   PathConfig
	Server  ServerConfig
}

// DatasetConfig describes where cases come from and how rows are filtered
type DatasetConfig struct {
	File        string
	Sheet       string
	SkipRows    int
	AlignedOnly bool
}

// MiningConfig tunes the rule search
type MiningConfig struct {
	TargetGroups  []dataset.Group
	MinGroupSize  int
	MaxPredicates int
	ModeAVariant  string
	CatalogFile   string
	Workers       int
}

// PathConfig holds output and auxiliary input paths
type PathConfig struct {
	RulesFile       string
	ReportFile      string
	ManualRulesFile string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port             string
	GinMode          string
	QueryResultLimit int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	p := &envParser{}
	cfg := &Config{
		Dataset: DatasetConfig{
			File:        getEnvOrDefault("DATASET_FILE", "docs/dataset.xlsx"),
			Sheet:       getEnvOrDefault("DATASET_SHEET", ""),
			SkipRows:    p.intOrDefault("DATASET_SKIP_ROWS", 2),
			AlignedOnly: p.boolOrDefault("DATASET_ALIGNED_ONLY", true),
		},
		Mining: MiningConfig{
			TargetGroups:  p.groups("TARGET_GROUPS", "主/0/0,客/0/0"),
			MinGroupSize:  p.intOrDefault("MIN_GROUP_SIZE", 5),
			MaxPredicates: p.intOrDefault("MAX_PREDICATES", 3),
			ModeAVariant:  strings.ToLower(getEnvOrDefault("MODE_A_VARIANT", "plain")),
			CatalogFile:   getEnvOrDefault("CATALOG_FILE", ""),
			Workers:       p.intOrDefault("MINING_WORKERS", 4),
		},
		Paths: PathConfig{
			RulesFile:       getEnvOrDefault("RULES_FILE", "static/rules.json"),
			ReportFile:      getEnvOrDefault("REPORT_FILE", "static/report.md"),
			ManualRulesFile: getEnvOrDefault("MANUAL_RULES_FILE", ""),
		},
		Server: ServerConfig{
			Port:             getEnvOrDefault("PORT", "8080"),
			GinMode:          getEnvOrDefault("GIN_MODE", "debug"),
			QueryResultLimit: p.intOrDefault("QUERY_RESULT_LIMIT", 5),
		},
	}
	if p.err != nil {
		return nil, errors.Wrap(p.err, "failed to parse environment")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Dataset.File == "" {
		return errors.ConfigInvalid("DATASET_FILE is required")
	}
	if cfg.Dataset.SkipRows < 0 {
		return errors.ConfigInvalid("DATASET_SKIP_ROWS must be >= 0")
	}
	if cfg.Mining.MaxPredicates < 1 || cfg.Mining.MaxPredicates > 3 {
		return errors.ConfigInvalid("MAX_PREDICATES must be between 1 and 3")
	}
	if cfg.Mining.MinGroupSize < 1 {
		return errors.ConfigInvalid("MIN_GROUP_SIZE must be >= 1")
	}
	if cfg.Mining.Workers < 1 {
		return errors.ConfigInvalid("MINING_WORKERS must be >= 1")
	}
	switch cfg.Mining.ModeAVariant {
	case "plain", "strict":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("MODE_A_VARIANT must be plain or strict, got %q", cfg.Mining.ModeAVariant))
	}
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PORT must be numeric, got %q", cfg.Server.Port))
	}
	return nil
}

// envParser collects the first malformed value instead of silently defaulting
type envParser struct {
	err error
}

func (p *envParser) fail(key, value, want string) {
	if p.err == nil {
		p.err = errors.ConfigInvalid(fmt.Sprintf("%s=%q is not a valid %s", key, value, want))
	}
}

func (p *envParser) intOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, "integer")
		return defaultValue
	}
	return intValue
}

func (p *envParser) boolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, "boolean")
		return defaultValue
	}
	return boolValue
}

// groups parses a comma separated list of side/first/second keys. An explicitly
// empty value (TARGET_GROUPS=) is distinct from unset and means every group.
func (p *envParser) groups(key, defaultValue string) []dataset.Group {
	value, set := os.LookupEnv(key)
	if !set {
		value = defaultValue
	}
	var out []dataset.Group
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		g, err := dataset.ParseGroup(part)
		if err != nil {
			p.fail(key, part, "group (side/first/second)")
			continue
		}
		out = append(out, g)
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
