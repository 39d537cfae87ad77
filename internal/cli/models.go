package cli

import (
	"fmt"
	"strings"

	"github.com/mgpai22/trimsub/internal/llm"
)

var geminiModels = []string{
	"gemini-3-pro-preview",
	"gemini-3-flash-preview",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

var openAIModels = []string{
	"o1", "o3-mini", "o1-pro", "o3",
	"gpt-5", "gpt-5-nano", "gpt-5-mini", "gpt-5-pro",
	"gpt-5.1", "gpt-5.2", "gpt-5.2-pro",
}

var anthropicModels = []string{
	"claude-haiku-4-5",
	"claude-sonnet-4-5",
	"claude-opus-4-5",
}

func isValidGeminiModel(model string) bool {
	return containsFold(geminiModels, model)
}

func isValidOpenAIModel(model string) bool {
	return containsFold(openAIModels, model)
}

// dated snapshots such as claude-haiku-4-5-20251001 are accepted
func isValidAnthropicModel(model string) bool {
	model = strings.ToLower(strings.TrimSpace(model))
	for _, m := range anthropicModels {
		if model == m || strings.HasPrefix(model, m+"-") {
			return true
		}
	}
	return false
}

// Whisper can only transcribe as-is or translate into English.
func isValidOpenAITranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	}
	return false
}

// validateModel checks model against the provider's known list unless
// override is set. An empty model selects the provider default.
func validateModel(provider llm.Provider, model string, override bool) error {
	if model == "" || override {
		return nil
	}

	var (
		ok    bool
		known []string
	)
	switch provider {
	case llm.ProviderGemini:
		ok, known = isValidGeminiModel(model), geminiModels
	case llm.ProviderOpenAI:
		ok, known = isValidOpenAIModel(model), openAIModels
	case llm.ProviderAnthropic:
		ok, known = isValidAnthropicModel(model), anthropicModels
	default:
		return fmt.Errorf("unsupported provider: %s", provider)
	}
	if ok {
		return nil
	}
	return fmt.Errorf(
		"unsupported %s model %q: valid models are %s (use --model-override to bypass)",
		provider,
		model,
		strings.Join(known, ", "),
	)
}

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
