package ai

import "context"

// Generator issues one synchronous content-generation call. Callers are
// expected to degrade to a fallback answer on error instead of propagating
// the failure to the client.
type Generator interface {
	Generate(ctx context.Context, parts []Part, cfg *GenerateConfig) (string, error)
}
