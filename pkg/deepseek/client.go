// Package deepseek talks to the DeepSeek chat API through its
// OpenAI-compatible endpoint.
package deepseek

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"bargain-backend/pkg/llm"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultBaseURL = "https://api.deepseek.com"

type Client struct {
	api *openai.Client
}

// NewClient returns a client for the given key. timeout bounds each HTTP
// request; zero means no limit beyond the caller's context.
func NewClient(apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("deepseek api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{api: openai.NewClientWithConfig(cfg)}, nil
}

func (c *Client) CompleteChat(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       params.Model,
		Messages:    toChatMessages(messages),
		Temperature: float32(params.Temperature),
		MaxTokens:   params.MaxTokens,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(messages []llm.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// classify maps SDK errors onto the gateway's retry classes.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.NewAPIError(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewAPIError(reqErr.HTTPStatusCode, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTransientError(err)
	}
	return fmt.Errorf("deepseek: %w", err)
}
