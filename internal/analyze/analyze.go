package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
)

type Request struct {
	Track subtitle.Track
	// optional audio or video the provider may inspect alongside the
	// subtitles
	MediaPath string
	Topic     string
}

type Result struct {
	Payload *cutlist.Payload
	Raw     string
	Usage   llm.Usage
}

// interface for cut-range proposal
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

type Options struct {
	// extra instructions appended to the prompt
	Prompt string
}

// implements Analyzer on top of any llm.Client
type LLMAnalyzer struct {
	client  llm.Client
	options Options
}

func New(client llm.Client, opts Options) (*LLMAnalyzer, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	return &LLMAnalyzer{client: client, options: opts}, nil
}

// BuildPrompt creates the range analysis prompt. The subtitles, and media
// when given, travel as attachments.
func BuildPrompt(opts Options, topic string, withMedia bool) string {
	var sb strings.Builder

	if withMedia {
		sb.WriteString("Analyze the attached SRT subtitles together with the attached recording.\n")
	} else {
		sb.WriteString("Analyze the attached SRT subtitles.\n")
	}
	if topic != "" {
		sb.WriteString(fmt.Sprintf("The recording is about: '%s'.\n", topic))
	}
	sb.WriteString("\nIdentify all ranges that should be removed.\n")
	sb.WriteString("Focus on:\n")
	sb.WriteString("1. Long silences (over 2 seconds).\n")
	sb.WriteString("2. Sections with filler words (uh, um) not captured in the subtitles.\n")
	sb.WriteString("3. Errors or repeated takes.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt))
	}

	sb.WriteString("Return ONLY a JSON object with a list of ranges to delete.\n")
	sb.WriteString("Example format:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"ranges_to_delete\": [\n")
	sb.WriteString("    {\"start\": \"00:00:05,000\", \"end\": \"00:00:08,500\", \"reason\": \"silence\"},\n")
	sb.WriteString("    {\"start\": \"00:01:12,200\", \"end\": \"00:01:15,000\", \"reason\": \"filler words\"}\n")
	sb.WriteString("  ]\n")
	sb.WriteString("}")

	return sb.String()
}

// Analyze sends the track and optional media to the model and decodes its
// reply. When decoding fails the raw reply is still returned in Result.
func (a *LLMAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if len(req.Track) == 0 {
		return nil, fmt.Errorf("subtitle track is empty")
	}

	dir, err := os.MkdirTemp("", "trimsub-analyze-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srtPath := filepath.Join(dir, "subtitles.srt")
	if err := subtitle.WriteFile(srtPath, req.Track); err != nil {
		return nil, err
	}

	attachments := []llm.Attachment{{Path: srtPath, MIMEType: "text/plain"}}
	if req.MediaPath != "" {
		if _, err := os.Stat(req.MediaPath); err != nil {
			return nil, fmt.Errorf("media file not accessible: %w", err)
		}
		attachments = append(attachments, llm.Attachment{Path: req.MediaPath})
	}

	resp, err := a.client.Complete(ctx, llm.Request{
		Prompt:      BuildPrompt(a.options, req.Topic, req.MediaPath != ""),
		Attachments: attachments,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	result := &Result{Raw: resp.Text, Usage: resp.Usage}
	payload, err := cutlist.DecodePayload(resp.Text)
	result.Payload = payload
	if err != nil {
		return result, fmt.Errorf(
			"failed to decode ranges: %w (response: %s)",
			err,
			llm.Truncate(resp.Text, 200),
		)
	}
	return result, nil
}
