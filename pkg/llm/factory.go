package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/newslens/newslens/pkg/config"
)

// BuildProviders constructs one adapter per configured provider. A
// missing API key fails fast: a route that can never succeed is a
// deployment error, not a runtime fallback.
func BuildProviders(ctx context.Context, cfg *config.Config) (map[string]Provider, error) {
	providers := make(map[string]Provider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		apiKey := os.Getenv(pc.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("provider %q: environment variable %s is not set", name, pc.APIKeyEnv)
		}

		switch pc.Provider {
		case "openai":
			providers[name] = NewOpenAIProvider(name, pc.Model, apiKey)
		case "anthropic":
			providers[name] = NewAnthropicProvider(name, pc.Model, apiKey)
		case "gemini":
			p, err := NewGeminiProvider(ctx, name, pc.Model, apiKey)
			if err != nil {
				return nil, err
			}
			providers[name] = p
		default:
			return nil, fmt.Errorf("provider %q: unsupported backend %q", name, pc.Provider)
		}
	}
	return providers, nil
}
