// Package llm adapts pkg/llm's OpenAI-compatible client to the
// interfaces.LLMClient port the Strategist and Trader depend on.
package llm

import (
	"context"
	"fmt"

	"futures_engine/internal/interfaces"
	"futures_engine/pkg/llm"
)

// providerDefaults gives a sane base URL/model per AI_PROVIDER value when
// the operator hasn't overridden them explicitly (SPEC_FULL §5 config).
var providerDefaults = map[string]struct {
	baseURL string
	model   string
}{
	"deepseek": {baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	"qwen":     {baseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", model: "qwen-plus"},
}

type Client struct {
	inner *llm.Client
}

// New builds a provider client. baseURL/model, when non-empty, override the
// provider's default.
func New(provider, baseURL, apiKey, model string) (*Client, error) {
	defaults, ok := providerDefaults[provider]
	if !ok && (baseURL == "" || model == "") {
		return nil, fmt.Errorf("llm: unknown provider %q and no explicit base_url/model given", provider)
	}
	if baseURL == "" {
		baseURL = defaults.baseURL
	}
	if model == "" {
		model = defaults.model
	}
	return &Client{inner: llm.NewClient(baseURL, apiKey, model)}, nil
}

func (c *Client) Complete(ctx context.Context, req interfaces.ChatRequest) (string, error) {
	return c.inner.Generate(ctx, req.SystemPrompt, req.UserPrompt, req.Temperature)
}

func (c *Client) Healthy(ctx context.Context) bool {
	status := c.inner.Health(ctx)
	return status.Healthy
}
