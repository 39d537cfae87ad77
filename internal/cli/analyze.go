package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/analyze"
	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [srt_file]",
	Short: "Ask an LLM which ranges of a recording to cut",
	Long: `Send subtitles, and optionally the recording itself, to an LLM and save
the ranges it proposes to remove as <name>_ranges.json. The raw reply is
kept next to it as <name>_ranges.txt.

Only Gemini can inspect audio or video; other providers see the subtitles.

Examples:
  trimsub analyze talk.srt
  trimsub analyze talk.srt --media talk.mp4 --topic "Go generics"
  trimsub analyze talk.srt -p anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	addLLMFlags(analyzeCmd)
	analyzeCmd.Flags().
		String("media", "", "Recording to attach to the request (Gemini only)")
	analyzeCmd.Flags().
		String("topic", "", "What the recording is about")
	analyzeCmd.Flags().
		String("prompt", "", "Extra instructions for the model")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	srtPath := args[0]
	ctx := cmd.Context()

	mediaPath, _ := cmd.Flags().GetString("media")
	topic, _ := cmd.Flags().GetString("topic")
	prompt, _ := cmd.Flags().GetString("prompt")

	settings, err := resolveLLM(cmd)
	if err != nil {
		return err
	}

	track, err := loadTrack(srtPath, false)
	if err != nil {
		return err
	}

	if mediaPath != "" && settings.Provider != llm.ProviderGemini {
		logger.Warnw("Provider cannot inspect media; sending subtitles only",
			"provider", settings.Provider,
			"media", mediaPath,
		)
		mediaPath = ""
	}

	client, err := newLLMClient(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", settings.Provider, err)
	}

	outputPath := outputOr(cmd, subtitle.SiblingPath(srtPath, "_ranges", ".json"))
	payload, usage, err := proposeCuts(cmd, client, track, mediaPath, topic, prompt, outputPath)
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Cut ranges saved: %s\n", absOutput)
	fmt.Printf("  Mode: %s\n", payload.Mode)
	fmt.Printf("  Ranges: %d\n", len(payload.Ranges))
	fmt.Printf("  Usage: %s\n", usage)

	return nil
}

// proposeCuts runs the analyzer and writes both the payload and the raw
// reply. An empty proposal is saved as an empty list.
func proposeCuts(
	cmd *cobra.Command,
	client llm.Client,
	track subtitle.Track,
	mediaPath, topic, prompt, outputPath string,
) (*cutlist.Payload, llm.Usage, error) {
	analyzer, err := analyze.New(client, analyze.Options{Prompt: prompt})
	if err != nil {
		return nil, llm.Usage{}, err
	}

	logger.Infow("Analyzing subtitles",
		"records", len(track),
		"model", client.Model(),
		"media", mediaPath,
	)

	result, err := analyzer.Analyze(cmd.Context(), analyze.Request{
		Track:     track,
		MediaPath: mediaPath,
		Topic:     topic,
	})

	if result != nil && result.Raw != "" {
		rawPath := subtitle.SiblingPath(outputPath, "", ".txt")
		if werr := os.WriteFile(rawPath, []byte(result.Raw), 0644); werr != nil {
			logger.Warnw("Failed to save raw reply", "path", rawPath, "error", werr)
		} else {
			logger.Debugw("Saved raw reply", "path", rawPath)
		}
	}

	switch {
	case errors.Is(err, cutlist.ErrNoRanges) && result != nil && result.Payload != nil:
		logger.Infow("Model proposed no cuts")
	case err != nil:
		return nil, usageOf(result), err
	}

	if err := cutlist.WriteRawFile(outputPath, result.Payload); err != nil {
		return nil, result.Usage, err
	}
	return result.Payload, result.Usage, nil
}

func usageOf(result *analyze.Result) llm.Usage {
	if result == nil {
		return llm.Usage{}
	}
	return result.Usage
}
