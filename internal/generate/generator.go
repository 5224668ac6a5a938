// Package generate turns natural-language prompts into single-file HTML
// documents via external text-generation providers.
package generate

import "context"

// Options tune a single generation call.
type Options struct {
	Model  string
	APIKey string
}

// Generator is the external text-generation capability. Implementations
// must honor ctx cancellation and bound their own network timeouts.
type Generator interface {
	Name() string
	Generate(ctx context.Context, systemInstruction, userPrompt string, opts Options) (string, error)
}

// ModelInfo describes one entry of a provider's model catalog.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description,omitempty"`
}

// ModelLister is implemented by providers that expose a model catalog.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
