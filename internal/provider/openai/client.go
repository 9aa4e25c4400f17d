package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/provider"
	"github.com/edgelog/internal/trace"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const providerName = "openai"

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion call. Zero Model/Temperature/MaxTokens
// fall back to the client defaults.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Usage is the token accounting returned by the provider
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the first choice of a completion
type ChatResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// ChatCompleter is implemented by Client and by test fakes
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint
type Client struct {
	client *resty.Client
	cfg    config.AIConfig
	logger *zap.Logger
}

var _ ChatCompleter = (*Client)(nil)

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout()).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{client: client, cfg: cfg, logger: logger}
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Complete sends the messages and returns the first choice
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := trace.StartSpan(ctx, "openai-chat-completion")
	defer span.End()

	if c.cfg.APIKey == "" {
		return nil, provider.ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	if req.Temperature == 0 {
		req.Temperature = c.cfg.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.cfg.MaxTokens
	}
	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	start := time.Now()
	r := c.client.R().SetBody(req).SetResult(&completionResponse{})
	resp, err := provider.Do(ctx, providerName, c.logger, 2, http.MethodPost, "/chat/completions", r)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := resp.Result().(*completionResponse)
	if len(out.Choices) == 0 {
		return nil, errors.New("openai: no choices returned")
	}

	span.SetAttributes(attribute.Int("llm.total_tokens", out.Usage.TotalTokens))
	c.logger.Debug("Chat completion finished",
		zap.String("model", out.Model),
		zap.Int("total_tokens", out.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)),
	)

	return &ChatResponse{
		Model:   out.Model,
		Content: strings.TrimSpace(out.Choices[0].Message.Content),
		Usage:   out.Usage,
	}, nil
}
