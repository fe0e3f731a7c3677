package interfaces

import "context"

// ChatRequest mirrors pkg/llm's OpenAI-compatible chat shape.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// LLMClient is the port the Strategist and Trader call through (§4.2,
// §4.3). Implementations own their own retry/circuit-breaker policy so
// callers only ever see a clean error or a completion string.
type LLMClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
	Healthy(ctx context.Context) bool
}
