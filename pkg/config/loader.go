package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the user configuration file looked up in the config dir.
const ConfigFileName = "newslens.yaml"

// Initialize loads, merges, and validates configuration.
//
// Steps performed:
//  1. Load newslens.yaml from configDir (optional; defaults apply without it)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user values over built-in defaults
//  5. Validate the merged result
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg := builtinDefaults()

	path := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Info("No user configuration found, using built-in defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		user := &Config{}
		if err := yaml.Unmarshal(ExpandEnv(data), user); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge configuration: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized",
		"providers", len(cfg.Providers),
		"routes", len(cfg.Routes),
		"k_final_default", cfg.Retrieval.KFinalDefault,
		"embedding_dim", cfg.Memory.EmbeddingDim)
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Retrieval.KFinalDefault < 5 || cfg.Retrieval.KFinalDefault > 10 {
		return fmt.Errorf("retrieval.k_final_default must be in [5,10], got %d", cfg.Retrieval.KFinalDefault)
	}
	if _, ok := ParseWindow(cfg.Retrieval.WindowDefault); !ok {
		return fmt.Errorf("retrieval.window_default %q is not a recognized window", cfg.Retrieval.WindowDefault)
	}
	if cfg.Budget.MaxTokensPerCommand < 2048 {
		return fmt.Errorf("budget.max_tokens_per_command must be >= 2048, got %d", cfg.Budget.MaxTokensPerCommand)
	}
	if cfg.Budget.MaxCostCentsPerCommand < 25 {
		return fmt.Errorf("budget.max_cost_cents_per_command must be >= 25, got %g", cfg.Budget.MaxCostCentsPerCommand)
	}
	if cfg.Budget.MaxDurationSec < 8 {
		return fmt.Errorf("budget.max_duration_sec must be >= 8, got %d", cfg.Budget.MaxDurationSec)
	}
	if d := cfg.Memory.EmbeddingDim; d != 1536 && d != 3072 {
		return fmt.Errorf("memory.embedding_dim must be 1536 or 3072, got %d", d)
	}

	for task, route := range cfg.Routes {
		if _, ok := cfg.Providers[route.Primary]; !ok {
			return fmt.Errorf("route %q: unknown primary provider %q", task, route.Primary)
		}
		for _, fb := range route.Fallbacks {
			if _, ok := cfg.Providers[fb]; !ok {
				return fmt.Errorf("route %q: unknown fallback provider %q", task, fb)
			}
		}
		if _, err := route.TimeoutDuration(); err != nil {
			return fmt.Errorf("route %q: %w", task, err)
		}
	}
	for name, p := range cfg.Providers {
		switch p.Provider {
		case "openai", "anthropic", "gemini":
		default:
			return fmt.Errorf("provider %q: unsupported backend %q", name, p.Provider)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %q: model is required", name)
		}
	}
	return nil
}
