package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/chapters"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters [srt_file]",
	Short: "Generate YouTube-style chapters from subtitles",
	Long: `Ask an LLM to split a recording into chapters and save them as
<name>_chapters.txt, one "HH:MM:SS - Title" line per chapter.

Examples:
  trimsub chapters talk_remapped.srt
  trimsub chapters talk.srt --topic "Rust async" -l de`,
	Args: cobra.ExactArgs(1),
	RunE: runChapters,
}

func init() {
	rootCmd.AddCommand(chaptersCmd)

	addLLMFlags(chaptersCmd)
	chaptersCmd.Flags().
		String("topic", "", "What the recording is about")
}

func runChapters(cmd *cobra.Command, args []string) error {
	srtPath := args[0]
	ctx := cmd.Context()

	language, _ := cmd.Flags().GetString("language")
	topic, _ := cmd.Flags().GetString("topic")

	settings, err := resolveLLM(cmd)
	if err != nil {
		return err
	}

	track, err := loadTrack(srtPath, false)
	if err != nil {
		return err
	}

	client, err := newLLMClient(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", settings.Provider, err)
	}

	outputPath := outputOr(cmd, subtitle.SiblingPath(srtPath, "_chapters", ".txt"))
	result, err := writeChapters(ctx, client, track, chapters.Options{
		Language: language,
		Topic:    topic,
	}, outputPath)
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Chapters saved: %s\n\n", absOutput)
	fmt.Print(chapters.Format(result.Chapters))
	fmt.Printf("\nUsage: %s\n", result.Usage)

	return nil
}

func writeChapters(
	ctx context.Context,
	client llm.Client,
	track subtitle.Track,
	opts chapters.Options,
	outputPath string,
) (*chapters.Result, error) {
	logger.Infow("Generating chapters",
		"records", len(track),
		"model", client.Model(),
	)

	result, err := chapters.Generate(ctx, client, track, opts)
	if err != nil {
		return result, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(chapters.Format(result.Chapters)), 0644); err != nil {
		return result, fmt.Errorf("failed to write chapters: %w", err)
	}
	return result, nil
}
