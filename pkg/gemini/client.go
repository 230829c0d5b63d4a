// Package gemini adapts the Gemini API to the llm.LanguageModel port.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"bargain-backend/pkg/llm"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash-001"

type Client struct {
	models *genai.Models
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{models: client.Models, model: model}, nil
}

func (c *Client) CompleteChat(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	system, contents := toContents(messages)

	model := params.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.models.GenerateContent(ctx, model, contents, generationConfig(system, params))
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

// toContents splits system messages out into a single instruction; Gemini
// takes them separately from the conversation.
func toContents(messages []llm.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case "system":
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return system, contents
}

func generationConfig(system *genai.Content, params llm.ChatParams) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(float32(params.Temperature)),
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}
	return cfg
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.NewAPIError(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return llm.NewAPIError(apiErrPtr.Code, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTransientError(err)
	}
	return fmt.Errorf("gemini: %w", err)
}
