// internal/gpt/client.go
package gpt

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const MockPrefix = "[Mock AI Output]"

const systemPrompt = "You are a marketing assistant for small online creators. " +
	"Write ready-to-use content that follows the instructions exactly. Reply with the content only."

type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewClient(apiKey string) *Client {
	return &Client{
		client:    openai.NewClient(apiKey),
		model:     openai.GPT4o,
		maxTokens: 1500,
	}
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithMaxTokens(n int) *Client {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// Generate sends a compiled prompt and returns the first completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.7,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from GPT API")
	}

	return resp.Choices[0].Message.Content, nil
}

// Mock stands in for the API when no key is configured. Its output is
// always marked with MockPrefix.
type Mock struct{}

func (Mock) Generate(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("%s Generated content for prompt: %s", MockPrefix, strings.TrimSpace(prompt)), nil
}
