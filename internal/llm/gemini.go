package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// implements Client using Google Gemini
type GeminiClient struct {
	client  *genai.Client
	model   string
	pricing Pricing
	// interval between file state polls
	pollInterval time.Duration
}

func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiClient{
		client:       client,
		model:        model,
		pricing:      opts.pricing(),
		pollInterval: 2 * time.Second,
	}, nil
}

func (c *GeminiClient) Model() string {
	return c.model
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	parts := []*genai.Part{}
	for _, a := range req.Attachments {
		file, err := c.upload(ctx, a)
		if err != nil {
			return nil, err
		}
		defer func(name string) {
			_, _ = c.client.Files.Delete(context.WithoutCancel(ctx), name, nil)
		}(file.Name)
		parts = append(parts, genai.NewPartFromURI(file.URI, file.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return c.parseResponse(result)
}

// uploads through the Files API and waits until the file can be used
func (c *GeminiClient) upload(ctx context.Context, a Attachment) (*genai.File, error) {
	file, err := c.client.Files.UploadFromPath(ctx, a.Path, &genai.UploadFileConfig{
		MIMEType: a.mimeType(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", a.Path, err)
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		file, err = c.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to check upload state: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		_, _ = c.client.Files.Delete(ctx, file.Name, nil)
		return nil, fmt.Errorf("processing of %s failed", a.Path)
	}
	return file, nil
}

func (c *GeminiClient) parseResponse(result *genai.GenerateContentResponse) (*Response, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	var input, output int64
	if md := result.UsageMetadata; md != nil {
		input = int64(md.PromptTokenCount)
		output = int64(md.CandidatesTokenCount) + int64(md.ThoughtsTokenCount)
	}

	return &Response{
		Text:  responseText,
		Usage: c.pricing.Usage(c.model, input, output),
	}, nil
}
