// Package claude adapts the Anthropic SDK to the narrow completion
// surface the summarizer needs.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

// Client wraps an Anthropic API client for single-shot completions.
type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates a Claude client with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: defaultMaxTokens,
	}
}

// Complete sends one user prompt under a system prompt and returns the
// concatenated text of the response.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude completion: %w", err)
	}

	text := textOf(msg)
	if text == "" {
		return "", fmt.Errorf("claude completion: empty response, stop reason %q", msg.StopReason)
	}
	return text, nil
}

// textOf concatenates the text blocks of a response, skipping any other
// block types.
func textOf(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
