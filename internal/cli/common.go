package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/config"
	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

// loadTrack reads an SRT file and logs every skipped block. With strict set
// any skipped block fails the load.
func loadTrack(path string, strict bool) (subtitle.Track, error) {
	file, err := loadFile(path, strict)
	if err != nil {
		return nil, err
	}
	return file.Track(), nil
}

// loadFile is loadTrack for callers that edit the file and write it back.
func loadFile(path string, strict bool) (subtitle.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	file, err := subtitle.Open(path)
	if err != nil {
		return nil, err
	}

	diags := file.Diagnostics()
	for _, d := range diags {
		msg := "Skipped malformed subtitle block"
		if d.Kept {
			msg = "Read subtitle time as 0"
		}
		logger.Warnw(msg,
			"file", path,
			"block", d.Block,
			"line", d.Line,
			"reason", d.Reason,
			"excerpt", d.Excerpt,
		)
	}
	if strict && len(diags) > 0 {
		return nil, fmt.Errorf("%s: %w", path, &subtitle.ParseError{Diagnostics: diags})
	}

	return file, nil
}

// addLLMFlags registers the provider selection flags shared by the
// LLM-backed commands.
func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().
		StringP("provider", "p", "", "LLM provider: gemini, openai or anthropic (default from config)")
	cmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY)")
	cmd.Flags().
		String("model", "", "Model name (default depends on provider)")
	cmd.Flags().
		Bool("model-override", false, "Skip model validation and use the provided model name as-is")
}

type llmSettings struct {
	Provider llm.Provider
	Model    string
	APIKey   string
}

// resolveLLM applies flags over config (which already carries environment
// overrides) and checks that a key is available.
func resolveLLM(cmd *cobra.Command) (llmSettings, error) {
	provider, _ := cmd.Flags().GetString("provider")
	apiKey, _ := cmd.Flags().GetString("api-key")
	model, _ := cmd.Flags().GetString("model")
	override, _ := cmd.Flags().GetBool("model-override")

	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = cfg.LLM.Provider
	}
	switch provider {
	case config.ProviderGemini, config.ProviderOpenAI, config.ProviderAnthropic:
	default:
		return llmSettings{}, fmt.Errorf("unsupported provider %q: use gemini, openai or anthropic", provider)
	}

	if model == "" && provider == cfg.LLM.Provider {
		model = cfg.LLM.Model
	}
	if err := validateModel(llm.Provider(provider), model, override); err != nil {
		return llmSettings{}, err
	}

	if apiKey == "" {
		apiKey = cfg.APIKey(provider)
	}
	if apiKey == "" {
		return llmSettings{}, fmt.Errorf(
			"%s API key is required: use --api-key flag or set %s environment variable",
			provider,
			config.APIKeyEnv(provider),
		)
	}

	return llmSettings{
		Provider: llm.Provider(provider),
		Model:    model,
		APIKey:   apiKey,
	}, nil
}

func newLLMClient(ctx context.Context, s llmSettings) (llm.Client, error) {
	return llm.NewClient(ctx, s.Provider, s.APIKey, llm.Options{Model: s.Model})
}

// parseDuration accepts a Go duration ("90s", "1h2m"), plain seconds
// ("90.5") or a timestamp ("01:02:03,500").
func parseDuration(s string) (timecode.Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.Contains(s, ":") {
		return timecode.ParseStrict(s)
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("invalid duration %q: must be a finite non-negative number", s)
		}
		return timecode.Timestamp(math.Round(secs * 1000)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: expected 1m30s or HH:MM:SS,mmm", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return timecode.FromDuration(d), nil
}

// mediaDuration returns the duration given by flag, else probes mediaPath,
// else 0 (unknown).
func mediaDuration(ctx context.Context, flag, mediaPath string) (timecode.Timestamp, error) {
	if flag != "" {
		return parseDuration(flag)
	}
	if mediaPath == "" {
		return 0, nil
	}
	d, err := audio.MediaDuration(ctx, mediaPath)
	if err != nil {
		return 0, fmt.Errorf("failed to probe media duration: %w", err)
	}
	return d, nil
}

type cutPlan struct {
	Mode cutlist.Mode
	// canonical list in the payload's own mode
	List cutlist.List
	// what to excise from the timeline
	Removal  cutlist.List
	Warnings []cutlist.Warning
}

// planCuts normalizes payload against duration. modeFlag, when set,
// overrides the mode implied by the payload.
func planCuts(
	payload *cutlist.Payload,
	modeFlag string,
	duration timecode.Timestamp,
	keepOverlaps bool,
) (*cutPlan, error) {
	mode := payload.Mode
	if modeFlag != "" {
		m, err := cutlist.ParseMode(modeFlag)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	if mode == cutlist.ModeKeep && keepOverlaps {
		return nil, fmt.Errorf("--keep-overlaps cannot be combined with keep mode")
	}

	list, warnings := cutlist.Normalize(payload.Ranges, cutlist.Options{
		KeepOverlaps: keepOverlaps,
		ClampTo:      duration,
	})
	if mode == cutlist.ModeKeep && len(list) == 0 {
		return nil, fmt.Errorf("no usable ranges to keep")
	}

	return &cutPlan{
		Mode:     mode,
		List:     list,
		Removal:  cutlist.ToRemoval(list, mode, duration),
		Warnings: warnings,
	}, nil
}

// loadPayload reads a cut-list file. An empty remove list is not an error.
func loadPayload(path string) (*cutlist.Payload, error) {
	payload, err := cutlist.LoadFile(path)
	if errors.Is(err, cutlist.ErrNoRanges) && payload != nil {
		logger.Warnw("Cut list is empty", "file", path)
		return payload, nil
	}
	return payload, err
}

func logCutWarnings(warnings []cutlist.Warning) {
	for _, w := range warnings {
		logger.Warnw("Adjusted cut range",
			"position", w.Position+1,
			"start", w.Raw.Start,
			"end", w.Raw.End,
			"reason", w.Reason,
		)
	}
}

func outputOr(cmd *cobra.Command, fallback string) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	return fallback
}
