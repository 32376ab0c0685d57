// Package llm provides the LLM clients used for contract analysis and
// contract generation. Two providers are supported behind one interface:
// any OpenAI-compatible endpoint, and the Anthropic API.
package llm

import "context"

// Client defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// Model returns the configured model name.
	Model() string
}
