// Package llm is the synchronous chat-completion client the Generator,
// Analyzer, and Rewriter pipeline stages call against a single
// configured model endpoint.
//
// The contract is deliberately plain prompt-in/string-out against an
// OpenAI-compatible chat completions endpoint: no multi-turn history,
// no tool calls, no streaming. Retry/backoff on transient HTTP
// failures comes from pkg/httpclient; the pipeline's own rewrite loop
// is the coarser retry mechanism above it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kadirpekel/docuquery/pkg/httpclient"
)

// Error wraps a failure from a Call, identifying which operation
// failed and why.
type Error struct {
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[llm] %s: %s", e.Operation, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Config configures a Client against one chat-completions endpoint.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	CtxFull  int // token budget for rag/chat/summarize calls
	CtxSmall int // token budget for analyzer/rewriter calls
}

func (c *Config) setDefaults() {
	if c.CtxFull <= 0 {
		c.CtxFull = 8192
	}
	if c.CtxSmall <= 0 {
		c.CtxSmall = 2048
	}
}

// Client is a synchronous chat-completion client.
type Client struct {
	cfg  Config
	http *httpclient.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	cfg.setDefaults()
	return &Client{cfg: cfg, http: httpclient.New()}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Call issues a single chat-completion request for prompt. smallCtx
// selects the analyzer/rewriter context budget (CtxSmall) over the
// full rag/chat budget (CtxFull); temperature is always 0 for
// deterministic, reproducible pipeline behavior.
func (c *Client) Call(ctx context.Context, prompt string, smallCtx bool) (string, error) {
	maxTokens := c.cfg.CtxFull
	if smallCtx {
		maxTokens = c.cfg.CtxSmall
	}

	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   maxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Operation: "call", Message: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Operation: "call", Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &Error{Operation: "call", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Operation: "call", Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Operation: "call", Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &Error{Operation: "call", Message: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Operation: "call", Message: "empty choices in response"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
