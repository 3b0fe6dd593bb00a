package ai

import (
	"context"
	"log/slog"
	"strings"
)

// FallbackModel is used blindly when the model listing itself fails.
const FallbackModel = "gemini-1.5-flash"

// modelPriority orders candidates from high-quota stable variants down to
// experimental/preview ones. The list endpoint reports names with a
// "models/" prefix.
var modelPriority = []string{
	"models/gemini-2.0-flash-lite",
	"models/gemini-flash-lite-latest",
	"models/gemini-1.5-flash",
	"models/gemini-1.5-flash-001",
	"models/gemini-1.5-flash-002",
	"models/gemini-1.5-flash-8b",
	"models/gemini-2.0-flash-exp",
	"models/gemini-2.0-flash",
}

// SelectModel picks the first available model from the priority list. When
// no listed model matches it falls back to any "flash" variant, and when
// listing fails entirely it returns FallbackModel without error. Intended to
// run once at process start.
func SelectModel(ctx context.Context, client *GeminiClient) string {
	models, err := client.ListModels(ctx)
	if err != nil {
		slog.Warn("model listing failed, using fallback", "model", FallbackModel, "err", err)
		return FallbackModel
	}
	available := make(map[string]bool, len(models))
	for _, m := range models {
		if m.SupportsGeneration() {
			available[m.Name] = true
		}
	}
	for _, candidate := range modelPriority {
		if available[candidate] {
			slog.Info("model selected", "model", candidate)
			return candidate
		}
	}
	for _, m := range models {
		if m.SupportsGeneration() && strings.Contains(m.Name, "flash") {
			slog.Info("model selected outside priority list", "model", m.Name)
			return m.Name
		}
	}
	slog.Warn("no usable model listed, using fallback", "model", FallbackModel)
	return FallbackModel
}
