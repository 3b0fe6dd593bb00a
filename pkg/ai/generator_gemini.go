package ai

import "context"

// GeminiGenerator wraps GeminiClient with a fixed model. The model is chosen
// once at process start and treated as immutable configuration.
type GeminiGenerator struct {
	client *GeminiClient
	model  string
}

// NewGeminiGenerator builds a Gemini-based Generator.
func NewGeminiGenerator(client *GeminiClient, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

// Model returns the bound model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate implements Generator using Gemini.
func (g *GeminiGenerator) Generate(ctx context.Context, parts []Part, cfg *GenerateConfig) (string, error) {
	return g.client.GenerateContent(ctx, g.model, parts, cfg)
}
