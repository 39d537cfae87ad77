package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `[{"id":1}]`, `[{"id":1}]`},
		{"json fence", "```json\n[{\"id\":1}]\n```", `[{"id":1}]`},
		{"bare fence", "```\n{}\n```", `{}`},
		{"surrounding space", "  \n{}\n ", `{}`},
		{"fence with prose", "Here:\n```JSON\n[]\n```\nDone.", "Here:\n[]\nDone."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.input); got != tt.want {
				t.Errorf("CleanJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixInvalidEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid escapes untouched", `a\nb\"c\\dé`, `a\nb\"c\\dé`},
		{"ass line break", `line\Nnext`, `line\\Nnext`},
		{"hard space", `a\hb`, `a\\hb`},
		{"trailing backslash", `end\`, `end\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixInvalidEscapes(tt.input); got != tt.want {
				t.Errorf("FixInvalidEscapes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("abcé", 4); got != "abc..." {
		t.Errorf("Truncate() split a rune: %q", got)
	}
}

func TestAttachmentMIMEType(t *testing.T) {
	tests := []struct {
		a    Attachment
		want string
	}{
		{Attachment{Path: "talk.srt"}, "text/plain"},
		{Attachment{Path: "TALK.SRT"}, "text/plain"},
		{Attachment{Path: "notes.txt"}, "text/plain"},
		{Attachment{Path: "clip.bin"}, "application/octet-stream"},
		{Attachment{Path: "clip.mp4", MIMEType: "video/mp4"}, "video/mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.a.Path, func(t *testing.T) {
			if got := tt.a.mimeType(); got != tt.want {
				t.Errorf("mimeType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInlineText(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "talk.srt")
	if err := os.WriteFile(srt, []byte("1\n00:00:01,000 --> 00:00:02,000\nhi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := inlineText(Request{
		Prompt:      "find the cuts",
		Attachments: []Attachment{{Path: srt}},
	})
	if err != nil {
		t.Fatalf("inlineText() error = %v", err)
	}
	if !strings.HasPrefix(got, `<file name="talk.srt">`) {
		t.Errorf("inlineText() missing file header: %q", got)
	}
	if !strings.HasSuffix(got, "find the cuts") {
		t.Errorf("inlineText() should end with the prompt: %q", got)
	}

	_, err = inlineText(Request{
		Prompt:      "x",
		Attachments: []Attachment{{Path: filepath.Join(dir, "clip.mp4"), MIMEType: "video/mp4"}},
	})
	if !errors.Is(err, ErrAttachmentUnsupported) {
		t.Errorf("inlineText(video) error = %v, want ErrAttachmentUnsupported", err)
	}

	got, err = inlineText(Request{Prompt: "bare"})
	if err != nil || got != "bare" {
		t.Errorf("inlineText(no attachments) = %q, %v", got, err)
	}
}

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()

	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		t.Run(string(p)+" empty key", func(t *testing.T) {
			if _, err := NewClient(ctx, p, "", Options{}); err == nil {
				t.Error("expected error for empty API key")
			}
		})
	}

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := NewClient(ctx, Provider("mystery"), "key", Options{}); err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}

func TestNewClientDefaultModels(t *testing.T) {
	ctx := context.Background()

	oc, err := NewOpenAIClient(ctx, "test-key", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if oc.Model() != "gpt-5-mini" {
		t.Errorf("OpenAI default model = %q", oc.Model())
	}

	ac, err := NewAnthropicClient(ctx, "test-key", Options{Model: "claude-sonnet-4-5"})
	if err != nil {
		t.Fatal(err)
	}
	if ac.Model() != "claude-sonnet-4-5" {
		t.Errorf("Anthropic model = %q", ac.Model())
	}
}

func TestGeminiCompleteIntegration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewGeminiClient(ctx, apiKey, Options{})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	resp, err := client.Complete(ctx, Request{Prompt: "Reply with the single word: ok"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text == "" {
		t.Error("expected non-empty reply")
	}
	if resp.Usage.InputTokens == 0 {
		t.Error("expected usage to be reported")
	}
	t.Logf("reply %q, %s", resp.Text, resp.Usage)
}
