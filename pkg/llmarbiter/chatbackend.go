package llmarbiter

import "context"

// GenerateOptions mirrors the collaborator contract of spec.md §6's chat
// backend: temperature and max tokens. The per-call timeout is not an
// option here; it travels on the ctx passed to Generate.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// ChatBackend is the local, stateless chat collaborator spec.md §6
// describes: generate(model_id, prompt, opts) → string | error.
type ChatBackend interface {
	Generate(ctx context.Context, modelID string, prompt string, opts GenerateOptions) (string, error)
}
