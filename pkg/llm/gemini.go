package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider adapts the Gemini API.
type GeminiProvider struct {
	name   string
	model  string
	client *genai.Client
}

// NewGeminiProvider creates an adapter bound to one model.
func NewGeminiProvider(ctx context.Context, name, model, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{name: name, model: model, client: client}, nil
}

func (p *GeminiProvider) Name() string  { return p.name }
func (p *GeminiProvider) Model() string { return p.model }

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}

	out := &Completion{Text: resp.Text()}
	if usage := resp.UsageMetadata; usage != nil {
		out.TokensIn = int(usage.PromptTokenCount)
		out.TokensOut = int(usage.CandidatesTokenCount)
	}
	return out, nil
}
