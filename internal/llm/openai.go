package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Client using OpenAI Chat Completions
type OpenAIClient struct {
	client  openai.Client
	model   string
	pricing Pricing
}

func NewOpenAIClient(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := opts.Model
	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAIClient{
		client:  client,
		model:   model,
		pricing: opts.pricing(),
	}, nil
}

func (c *OpenAIClient) Model() string {
	return c.model
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt, err := inlineText(req)
	if err != nil {
		return nil, err
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return c.parseResponse(completion)
}

func (c *OpenAIClient) parseResponse(completion *openai.ChatCompletion) (*Response, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := completion.Choices[0].Message.Content
	if responseText == "" {
		return nil, fmt.Errorf("no text in OpenAI response")
	}

	return &Response{
		Text: responseText,
		Usage: c.pricing.Usage(
			c.model,
			completion.Usage.PromptTokens,
			completion.Usage.CompletionTokens,
		),
	}, nil
}
