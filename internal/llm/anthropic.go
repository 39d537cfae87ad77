package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 8192

// implements Client using Anthropic Claude
type AnthropicClient struct {
	client  anthropic.Client
	model   anthropic.Model
	pricing Pricing
}

func NewAnthropicClient(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicClient{
		client:  client,
		model:   model,
		pricing: opts.pricing(),
	}, nil
}

func (c *AnthropicClient) Model() string {
	return string(c.model)
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt, err := inlineText(req)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return c.parseResponse(message)
}

func (c *AnthropicClient) parseResponse(message *anthropic.Message) (*Response, error) {
	if message == nil || len(message.Content) == 0 {
		return nil, fmt.Errorf("empty response from Anthropic")
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text in Anthropic response")
	}

	return &Response{
		Text: responseText,
		Usage: c.pricing.Usage(
			c.Model(),
			message.Usage.InputTokens,
			message.Usage.OutputTokens,
		),
	}, nil
}
