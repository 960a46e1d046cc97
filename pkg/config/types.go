// Package config loads, merges, and validates the newslens configuration:
// retrieval behavior, per-request budgets, model routes, provider
// credentials, policy lists, and memory settings.
package config

import (
	"fmt"
	"time"
)

// Config is the fully merged and validated configuration.
type Config struct {
	Retrieval RetrievalConfig           `yaml:"retrieval"`
	Budget    BudgetConfig              `yaml:"budget"`
	Memory    MemoryConfig              `yaml:"memory"`
	Policy    PolicyConfig              `yaml:"policy"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Routes    map[string]RouteConfig    `yaml:"routes"`
	Cleanup   CleanupConfig             `yaml:"cleanup"`
}

// RetrievalConfig controls the hybrid retriever and its auto-recovery.
type RetrievalConfig struct {
	WindowDefault            string `yaml:"window_default"`
	KFinalDefault            int    `yaml:"k_final_default"`
	EnableRerank             *bool  `yaml:"enable_rerank"`
	AutoExpandWindow         *bool  `yaml:"auto_expand_window"`
	RelaxFiltersOnEmpty      *bool  `yaml:"relax_filters_on_empty"`
	FallbackRerankOffOnEmpty *bool  `yaml:"fallback_rerank_off_on_empty"`
	CacheTTLSec              int    `yaml:"cache_ttl_sec"`
}

// BudgetConfig holds the per-request limits and per-user daily quotas.
type BudgetConfig struct {
	MaxTokensPerCommand      int     `yaml:"max_tokens_per_command"`
	MaxCostCentsPerCommand   float64 `yaml:"max_cost_cents_per_command"`
	MaxDurationSec           int     `yaml:"max_duration_sec"`
	MaxCommandsPerUserDaily  int     `yaml:"max_commands_per_user_daily"`
	MaxCostCentsPerUserDaily float64 `yaml:"max_cost_cents_per_user_daily"`
}

// MaxDuration returns the per-request wall-clock limit.
func (b BudgetConfig) MaxDuration() time.Duration {
	return time.Duration(b.MaxDurationSec) * time.Second
}

// MemoryConfig selects the embedder backing the memory store.
// Supported dims: 1536 (text-embedding-3-small) and 3072 (-large).
type MemoryConfig struct {
	EmbeddingProvider string `yaml:"embedding_provider"`
	EmbeddingModel    string `yaml:"embedding_model"`
	EmbeddingDim      int    `yaml:"embedding_dim"`
}

// PolicyConfig controls the response validator.
type PolicyConfig struct {
	PIIMaskEnabled  *bool    `yaml:"pii_mask_enabled"`
	DomainWhitelist []string `yaml:"domain_whitelist"`
	DomainBlacklist []string `yaml:"domain_blacklist"`
}

// ProviderConfig describes one LLM provider endpoint. APIKeyEnv names
// the environment variable holding the key; the key itself never lives
// in YAML.
type ProviderConfig struct {
	Provider      string `yaml:"provider"` // "openai" | "anthropic" | "gemini"
	Model         string `yaml:"model"`
	APIKeyEnv     string `yaml:"api_key_env"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// RouteConfig is one row of the model route table, keyed by task.
type RouteConfig struct {
	Primary   string   `yaml:"primary"`
	Fallbacks []string `yaml:"fallbacks"`
	Timeout   string   `yaml:"timeout"`
}

// TimeoutDuration parses the route timeout.
func (r RouteConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid route timeout %q: %w", r.Timeout, err)
	}
	return d, nil
}

// CleanupConfig controls the background memory retention loop.
type CleanupConfig struct {
	Interval string `yaml:"interval"`
}

// IntervalDuration parses the cleanup interval, defaulting to 1h.
func (c CleanupConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// RerankEnabled reports whether the reranker should be invoked at all.
func (r RetrievalConfig) RerankEnabled() bool { return boolOr(r.EnableRerank, true) }

// AutoExpand reports whether the window expansion ladder is enabled.
func (r RetrievalConfig) AutoExpand() bool { return boolOr(r.AutoExpandWindow, true) }

// RelaxFilters reports whether empty results relax lang/source filters.
func (r RetrievalConfig) RelaxFilters() bool { return boolOr(r.RelaxFiltersOnEmpty, true) }

// FallbackRerankOff reports whether empty results retry without rerank.
func (r RetrievalConfig) FallbackRerankOff() bool { return boolOr(r.FallbackRerankOffOnEmpty, true) }

// CacheTTL returns the retrieval cache lifetime.
func (r RetrievalConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSec) * time.Second
}

// PIIMasking reports whether PII patterns are masked in responses.
func (p PolicyConfig) PIIMasking() bool { return boolOr(p.PIIMaskEnabled, true) }
