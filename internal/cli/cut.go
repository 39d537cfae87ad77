package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/timecode"
	"github.com/mgpai22/trimsub/internal/video"
)

var cutCmd = &cobra.Command{
	Use:   "cut [video_file]",
	Short: "Remove or keep ranges of a video",
	Long: `Render a new video from the parts of the input that survive a cut list.

Ranges come from a JSON cut list (--cuts) or a single --start/--end pair.
In remove mode the ranges are deleted; in keep mode only they remain.
Each surviving segment is re-encoded with libx264/aac and the pieces are
joined. The output defaults to cleaned_<name> (remove) or trimmed_<name>
(keep) next to the input.

Examples:
  trimsub cut talk.mp4 --cuts talk_ranges.json
  trimsub cut talk.mp4 --start 00:01:00 --end 00:02:30 --mode keep
  trimsub cut talk.mp4 --start 90 --end 120`,
	Args: cobra.ExactArgs(1),
	RunE: runCut,
}

func init() {
	rootCmd.AddCommand(cutCmd)

	cutCmd.Flags().
		StringP("cuts", "c", "", "Cut list JSON file")
	cutCmd.Flags().
		String("start", "", "Start of a single range (HH:MM:SS or seconds)")
	cutCmd.Flags().
		String("end", "", "End of a single range (HH:MM:SS or seconds)")
	cutCmd.Flags().
		StringP("mode", "m", "", "remove or keep (default from the cut list, else remove)")
	cutCmd.Flags().
		Int("concurrency", 2, "Number of segments rendered in parallel")
	cutCmd.MarkFlagsMutuallyExclusive("cuts", "start")
	cutCmd.MarkFlagsMutuallyExclusive("cuts", "end")
	cutCmd.MarkFlagsRequiredTogether("start", "end")
}

func runCut(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()

	cutsPath, _ := cmd.Flags().GetString("cuts")
	modeFlag, _ := cmd.Flags().GetString("mode")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	payload, err := cutPayload(cmd, cutsPath)
	if err != nil {
		return err
	}

	info, err := probeVideo(ctx, videoPath)
	if err != nil {
		return err
	}
	duration := timecode.FromDuration(info.Duration)

	plan, err := planCuts(payload, modeFlag, duration, false)
	if err != nil {
		return err
	}
	logCutWarnings(plan.Warnings)

	outputPath := outputOr(cmd, video.OutputPath(videoPath, plan.Mode))
	segments, err := renderCut(cmd, info, outputPath, plan, concurrency)
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Video cut successfully: %s\n", absOutput)
	fmt.Printf("  Segments: %d\n", len(segments))
	fmt.Printf("  Original: %s\n", timecode.FormatClock(duration))
	fmt.Printf("  Final:    %s\n", timecode.FormatClock(total(segments)))

	return nil
}

// cutPayload builds the payload from --cuts or from a --start/--end pair.
func cutPayload(cmd *cobra.Command, cutsPath string) (*cutlist.Payload, error) {
	if cutsPath != "" {
		return loadPayload(cutsPath)
	}

	startFlag, _ := cmd.Flags().GetString("start")
	endFlag, _ := cmd.Flags().GetString("end")
	if startFlag == "" || endFlag == "" {
		return nil, fmt.Errorf("either --cuts or both --start and --end are required")
	}

	start, err := parseDuration(startFlag)
	if err != nil {
		return nil, fmt.Errorf("--start: %w", err)
	}
	end, err := parseDuration(endFlag)
	if err != nil {
		return nil, fmt.Errorf("--end: %w", err)
	}

	return &cutlist.Payload{
		Mode: cutlist.ModeRemove,
		Ranges: []cutlist.RawRange{{
			Start: timecode.Format(start),
			End:   timecode.Format(end),
		}},
	}, nil
}

// probeVideo reads the duration and stream layout of videoPath.
func probeVideo(ctx context.Context, videoPath string) (*video.Info, error) {
	info, err := video.NewProcessor("").GetInfo(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}
	if !info.HasAudio {
		logger.Infow("Video has no audio stream; cutting picture only", "video", videoPath)
	}
	return info, nil
}

// renderCut renders the segments of info.Path that survive plan and
// returns them.
func renderCut(
	cmd *cobra.Command,
	info *video.Info,
	outputPath string,
	plan *cutPlan,
	concurrency int,
) ([]cutlist.Range, error) {
	videoPath := info.Path
	segments := cutlist.Segments(plan.List, plan.Mode, timecode.FromDuration(info.Duration))
	if len(segments) == 0 {
		return nil, fmt.Errorf("no video content remains after processing")
	}

	logger.Infow("Cutting video",
		"input", videoPath,
		"output", outputPath,
		"mode", plan.Mode,
		"segments", len(segments),
	)

	processor := video.NewProcessor("").
		WithConcurrency(concurrency).
		WithAudio(info.HasAudio)
	if err := processor.Cut(cmd.Context(), videoPath, outputPath, segments); err != nil {
		return nil, fmt.Errorf("cut failed: %w", err)
	}
	return segments, nil
}

func total(segments []cutlist.Range) timecode.Timestamp {
	return cutlist.List(segments).Total()
}
