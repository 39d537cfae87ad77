package llm

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// language model provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

var ErrAttachmentUnsupported = errors.New("provider cannot read this attachment")

// Attachment is a local file sent alongside the prompt.
type Attachment struct {
	Path     string
	MIMEType string // sniffed from the extension when empty
}

func (a Attachment) mimeType() string {
	if a.MIMEType != "" {
		return a.MIMEType
	}
	switch strings.ToLower(filepath.Ext(a.Path)) {
	case ".srt", ".txt", ".json":
		return "text/plain"
	}
	if t := mime.TypeByExtension(filepath.Ext(a.Path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (a Attachment) isText() bool {
	return strings.HasPrefix(a.mimeType(), "text/")
}

type Request struct {
	System      string
	Prompt      string
	Attachments []Attachment
	// ask for a JSON reply where the provider supports it
	JSON      bool
	MaxTokens int64
}

type Response struct {
	Text  string
	Usage Usage
}

// Client sends one prompt and returns the text reply.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

type Options struct {
	Model   string
	Pricing Pricing // DefaultPricing when nil
}

func (o Options) pricing() Pricing {
	if o.Pricing != nil {
		return o.Pricing
	}
	return DefaultPricing
}

// creates Client based on provider
func NewClient(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Client, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAIClient(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicClient(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// inlineText appends text attachments to the prompt for providers without a
// file API.
func inlineText(req Request) (string, error) {
	if len(req.Attachments) == 0 {
		return req.Prompt, nil
	}

	var sb strings.Builder
	for _, a := range req.Attachments {
		if !a.isText() {
			return "", fmt.Errorf("%w: %s (%s)", ErrAttachmentUnsupported, a.Path, a.mimeType())
		}
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read attachment: %w", err)
		}
		sb.WriteString("<file name=\"")
		sb.WriteString(filepath.Base(a.Path))
		sb.WriteString("\">\n")
		sb.Write(data)
		sb.WriteString("\n</file>\n\n")
	}
	sb.WriteString(req.Prompt)
	return sb.String(), nil
}
