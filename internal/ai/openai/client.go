package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/spigell/resume-screener/internal/ai"
)

const (
	DefaultModel = "gpt-4o-mini"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Client sends one-shot chat completions to the OpenAI API.
type Client struct {
	chat chatCompleter
}

// NewClient creates a client for the OpenAI API. A non-empty baseURL points it
// at an OpenAI compatible endpoint instead.
func NewClient(apiKey, baseURL string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{chat: goopenai.NewClientWithConfig(cfg)}, nil
}

// Factory returns an ai.CompleterFactory for the endpoint.
func Factory(baseURL string) ai.CompleterFactory {
	return func(_ context.Context, apiKey string) (ai.Completer, error) {
		return NewClient(apiKey, baseURL)
	}
}

// Complete sends the prompt as a single user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	if c == nil || c.chat == nil {
		return "", errors.New("openai client is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	temperature := req.Temperature
	if temperature == 0 {
		// go-openai drops a zero temperature from the payload and the API
		// then falls back to its default of 1.
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.chat.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{{
			Role:    goopenai.ChatMessageRoleUser,
			Content: prompt,
		}},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("openai api returned empty response")
	}

	return output, nil
}
