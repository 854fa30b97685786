package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads path, expands ${VAR}-style environment references the way the
// teacher's config.Load does, decodes strictly (unknown keys are an
// error), applies env var overrides, fills defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: expected a single document")
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets deployment environment variables win over the
// file, mirroring the teacher's SEED_*-prefixed override pattern.
func applyEnvOverrides(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv("SEED_ADDR")); value != "" {
		cfg.Server.Addr = value
	}
	if value := strings.TrimSpace(os.Getenv("SEED_WORKSPACE_ROOT")); value != "" {
		cfg.Workspace.Root = value
	}
	if value := strings.TrimSpace(os.Getenv("SEED_LOG_LEVEL")); value != "" {
		cfg.Logging.Level = value
	}
	if value := strings.TrimSpace(os.Getenv("SEED_TOOLS_MAX_CONCURRENCY")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			cfg.Tools.MaxConcurrency = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("SEED_APPROVAL_DEADLINE")); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			cfg.Approval.Deadline = parsed
		}
	}
}

// ProvidersFromEnv builds per-provider credentials from environment
// variables, keyed the same way Config.Agents[id].Provider names them.
// API keys never live in the YAML file.
func ProvidersFromEnv() map[string]ProviderConfig {
	out := map[string]ProviderConfig{}
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		out["anthropic"] = ProviderConfig{
			APIKey:  key,
			BaseURL: strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")),
		}
	}
	return out
}
