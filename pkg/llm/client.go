package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout    = 2 * time.Minute
	DefaultMaxRetries = 3
	DefaultMaxTokens  = 4096

	CircuitBreakerThreshold = 5
	CircuitBreakerTimeout   = 30 * time.Second
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker trips after CircuitBreakerThreshold consecutive failures
// and rejects calls until CircuitBreakerTimeout has elapsed; the next call
// then moves it to half-open, where a failure reopens it and a success
// closes it. Calls made while half-open are not limited to a single probe.
type CircuitBreaker struct {
	mu            sync.RWMutex
	state         CircuitState
	failures      int
	nextRetryTime time.Time
}

func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{state: CircuitClosed}
}

func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	switch cb.state {
	case CircuitOpen:
		return time.Now().After(cb.nextRetryTime)
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= CircuitBreakerThreshold {
		cb.state = CircuitOpen
		cb.nextRetryTime = time.Now().Add(CircuitBreakerTimeout)
	}
}

func (cb *CircuitBreaker) TransitionToHalfOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && time.Now().After(cb.nextRetryTime) {
		cb.state = CircuitHalfOpen
	}
}

func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Client talks to any OpenAI-compatible chat-completions endpoint
// (DeepSeek, Qwen, or a self-hosted gateway in front of either), wrapped in
// a circuit breaker and bounded retry so a flaky provider degrades the
// Strategist/Trader cycle rather than hanging it.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client

	MaxRetries int
	MaxTokens  int

	circuitBreaker *CircuitBreaker
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		MaxRetries:     DefaultMaxRetries,
		MaxTokens:      DefaultMaxTokens,
		circuitBreaker: NewCircuitBreaker(),
	}
}

// Generate sends a system+user prompt pair and returns the completion text.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	req := ChatRequest{
		Model: c.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:      false,
		Temperature: temperature,
		MaxTokens:   c.MaxTokens,
	}

	resp, err := c.generateWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) generateWithRetry(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !c.circuitBreaker.CanAttempt() {
		return nil, fmt.Errorf("llm: circuit breaker %s, provider unavailable", c.circuitBreaker.GetState())
	}
	c.circuitBreaker.TransitionToHalfOpen()

	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		resp, err := c.doGenerate(ctx, req)
		if err == nil {
			c.circuitBreaker.RecordSuccess()
			return resp, nil
		}
		lastErr = err

		if attempt < c.MaxRetries {
			backoff := time.Duration(attempt*attempt) * time.Second
			log.Printf("llm: attempt %d failed, retrying in %v: %v", attempt, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				c.circuitBreaker.RecordFailure()
				return nil, ctx.Err()
			}
		}
	}
	c.circuitBreaker.RecordFailure()
	return nil, fmt.Errorf("llm: all %d attempts failed: %w", c.MaxRetries, lastErr)
}

func (c *Client) doGenerate(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: provider returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	return &chatResp, nil
}

// Stream sends the request with stream=true and feeds each SSE delta chunk
// to callback, OpenAI "data: {...}" framing.
func (c *Client) Stream(ctx context.Context, systemPrompt, userPrompt string, temperature float64, callback StreamCallback) error {
	req := ChatRequest{
		Model: c.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:      true,
		Temperature: temperature,
		MaxTokens:   c.MaxTokens,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("llm: provider returned %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return callback("", true)
		}
		var chunk struct {
			Choices []struct {
				Delta Message `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if err := callback(chunk.Choices[0].Delta.Content, false); err != nil {
			return fmt.Errorf("llm: callback error: %w", err)
		}
	}
	return scanner.Err()
}

// StreamCallback receives one streamed delta; done=true marks the final call.
type StreamCallback func(chunk string, done bool) error

// Health sends a minimal probe request and reports latency/availability.
func (c *Client) Health(ctx context.Context) *HealthStatus {
	start := time.Now()
	_, err := c.Generate(ctx, "health check", "ping", 0)
	status := &HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}
	if err != nil {
		status.ErrorMessage = err.Error()
	}
	return status
}
