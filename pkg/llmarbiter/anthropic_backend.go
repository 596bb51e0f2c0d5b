package llmarbiter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend implements ChatBackend against the Anthropic Messages
// API. It is stateless: every call carries its own model id, so the same
// backend instance serves both the primary and secondary model in
// spec.md §4.E's retry step.
type AnthropicBackend struct {
	client anthropic.Client
}

func NewAnthropicBackend(apiKey string) *AnthropicBackend {
	return &AnthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (b *AnthropicBackend) Generate(ctx context.Context, modelID string, prompt string, opts GenerateOptions) (string, error) {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 200
	}

	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(modelID),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llmarbiter: anthropic generate: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("llmarbiter: anthropic returned no content blocks")
	}

	var out string
	for _, block := range message.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("llmarbiter: anthropic returned no text content")
	}
	return out, nil
}
