package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/correct"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
)

var correctCmd = &cobra.Command{
	Use:   "correct [srt_file]",
	Short: "Fix transcription errors in subtitles with an LLM",
	Long: `Send subtitle text to an LLM in batches and write back the corrected
text. Timestamps and numbering are left untouched. Batches that fail keep
their original text.

Examples:
  trimsub correct talk.srt
  trimsub correct talk.srt --topic "Kubernetes networking" -l en
  trimsub correct talk.srt -p openai --batch-size 30 --concurrency 5`,
	Args: cobra.ExactArgs(1),
	RunE: runCorrect,
}

func init() {
	rootCmd.AddCommand(correctCmd)

	addLLMFlags(correctCmd)
	correctCmd.Flags().
		String("topic", "", "What the recording is about; helps with names and jargon")
	correctCmd.Flags().
		String("prompt", "", "Extra instructions for the model")
	correctCmd.Flags().
		Int("batch-size", 0, "Subtitles per request (default from config, 50)")
	correctCmd.Flags().
		Int("concurrency", 0, "Number of parallel requests (default from config, 3)")
}

func runCorrect(cmd *cobra.Command, args []string) error {
	srtPath := args[0]
	ctx := cmd.Context()

	settings, err := resolveLLM(cmd)
	if err != nil {
		return err
	}

	file, err := loadFile(srtPath, false)
	if err != nil {
		return err
	}

	client, err := newLLMClient(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", settings.Provider, err)
	}

	opts := correctOptions(cmd)
	corrected, changed, usage, err := correctTrack(ctx, client, file.Track(), opts)
	if err != nil {
		return err
	}

	outputPath := outputOr(cmd, subtitle.SiblingPath(srtPath, "_corrected", ".srt"))
	if err := writeCorrected(file, corrected, outputPath); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles corrected successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", len(corrected))
	fmt.Printf("  Changed: %d\n", changed)
	fmt.Printf("  Usage: %s\n", usage)

	return nil
}

// writeCorrected copies the corrected text into file and writes it to
// path. Timing stays as parsed.
func writeCorrected(file subtitle.File, corrected subtitle.Track, path string) error {
	for i, rec := range corrected {
		if err := file.SetText(i, rec.Text); err != nil {
			return fmt.Errorf("failed to update subtitle %d: %w", rec.Index, err)
		}
	}
	return file.Write(path)
}

func correctOptions(cmd *cobra.Command) correct.Options {
	language, _ := cmd.Flags().GetString("language")
	topic, _ := cmd.Flags().GetString("topic")
	prompt, _ := cmd.Flags().GetString("prompt")

	opts := correct.Options{
		Language:    language,
		Topic:       topic,
		Prompt:      prompt,
		BatchSize:   cfg.LLM.BatchSize,
		Concurrency: cfg.LLM.Concurrency,
	}
	if n, _ := cmd.Flags().GetInt("batch-size"); n > 0 {
		opts.BatchSize = n
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		opts.Concurrency = n
	}
	return opts
}

// correctTrack applies whatever batches succeeded. It fails only when no
// batch did.
func correctTrack(
	ctx context.Context,
	client llm.Client,
	track subtitle.Track,
	opts correct.Options,
) (subtitle.Track, int, llm.Usage, error) {
	corrector, err := correct.New(client, opts)
	if err != nil {
		return nil, 0, llm.Usage{}, err
	}

	items := correct.Items(track)
	logger.Infow("Correcting subtitles",
		"records", len(items),
		"model", client.Model(),
		"batch_size", opts.BatchSize,
		"concurrency", opts.Concurrency,
	)

	results, usage, err := corrector.Correct(ctx, items)
	switch {
	case errors.Is(err, correct.ErrPartial):
		logger.Warnw("Some correction batches failed; their subtitles are unchanged",
			"corrected", len(results),
			"total", len(items),
			"error", err,
		)
	case err != nil:
		return nil, 0, usage, fmt.Errorf("correction failed: %w", err)
	}

	corrected, changed := correct.Apply(track, results)
	logger.Infow("Correction complete", "changed", changed, "usage", usage.String())
	return corrected, changed, usage, nil
}
