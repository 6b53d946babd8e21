package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config describes the model backend. Provider is one of "ollama", "openai"
// or "mock".
type Config struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	BaseURL       string `json:"base_url"`
	APIKey        string `json:"api_key"`
	TimeoutSec    int    `json:"timeout_sec"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// ConfigFromEnv builds a Config from environment variables with
// conservative defaults (local Ollama, 2 concurrent requests).
func ConfigFromEnv() Config {
	cfg := Config{
		Provider:      "ollama",
		Model:         "qwen2.5:latest",
		BaseURL:       "http://localhost:11434",
		TimeoutSec:    120,
		MaxConcurrent: 2,
	}
	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_API_KEY")); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("LLM_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSec = n
		}
	}
	if v := os.Getenv("LLM_MAX_CONCURRENT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}
	return cfg
}

// Client is an HTTP model-service client. In-flight requests are bounded by
// a semaphore so concurrent pipeline runs cannot swamp the backend.
type Client struct {
	config     Config
	httpClient *http.Client
	slots      chan struct{}
}

func NewClient(cfg Config) *Client {
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 120
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	log.Printf("🌐 [LLM] Client initialized: provider=%s model=%s max_concurrent=%d", cfg.Provider, cfg.Model, cfg.MaxConcurrent)
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		slots:      make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Invoke sends one chat completion request and returns the raw response
// text. A timeout or cancellation surfaces as an error; the caller treats it
// like any other hard model failure.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	select {
	case c.slots <- struct{}{}:
		defer func() { <-c.slots }()
	case <-ctx.Done():
		return "", fmt.Errorf("failed to acquire LLM slot: %w", ctx.Err())
	}

	switch c.config.Provider {
	case "ollama", "local":
		return c.invokeOllama(ctx, systemPrompt, userPrompt, temperature)
	case "openai":
		return c.invokeOpenAI(ctx, systemPrompt, userPrompt, temperature)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.config.Provider)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) invokeOllama(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	request := map[string]any{
		"model":    c.config.Model,
		"messages": buildMessages(systemPrompt, userPrompt),
		"stream":   false,
		"options":  map[string]any{"temperature": temperature},
	}
	body, err := c.post(ctx, strings.TrimRight(c.config.BaseURL, "/")+"/api/chat", request, "")
	if err != nil {
		return "", err
	}

	var parsed struct {
		Message chatMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %v", err)
	}
	return parsed.Message.Content, nil
}

func (c *Client) invokeOpenAI(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	request := map[string]any{
		"model":       c.config.Model,
		"messages":    buildMessages(systemPrompt, userPrompt),
		"temperature": temperature,
	}
	url := c.config.BaseURL
	if url == "" {
		url = "https://api.openai.com"
	}
	if !strings.HasSuffix(url, "/v1/chat/completions") {
		url = strings.TrimRight(url, "/") + "/v1/chat/completions"
	}
	body, err := c.post(ctx, url, request, c.config.APIKey)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode openai response: %v", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildMessages(systemPrompt, userPrompt string) []chatMessage {
	var messages []chatMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})
	return messages
}

func (c *Client) post(ctx context.Context, url string, payload any, apiKey string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LLM request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read LLM response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM API returned status %d: %s", resp.StatusCode, truncateBody(body))
	}
	return body, nil
}

// Ping probes the backend so the health endpoint can report model
// availability. Mocked and OpenAI providers are assumed reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.config.Provider != "ollama" && c.config.Provider != "local" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, "GET", strings.TrimRight(c.config.BaseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
