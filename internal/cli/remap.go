package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/alignment"
	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/remap"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

var remapCmd = &cobra.Command{
	Use:   "remap [srt_file]",
	Short: "Rewrite subtitle timestamps for a cut recording",
	Long: `Apply a cut list to an SRT file so its cues line up with the recording
after the listed ranges were removed.

The cut list is JSON: a bare array of {"start","end"} objects, or an object
with "ranges_to_delete" or "ranges_to_keep". Keep lists need the media
duration, given with --duration or probed from --media; without it the
last kept range runs to the end of the recording.

Cues that shrink below --min-duration are dropped. Survivors are
renumbered from 1.

Examples:
  trimsub remap talk.srt --cuts talk_ranges.json
  trimsub remap talk.srt --cuts keep.json --mode keep --media talk.mp4
  trimsub remap talk.srt --cuts cuts.json --min-duration 250ms -o out.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runRemap,
}

func init() {
	rootCmd.AddCommand(remapCmd)

	remapCmd.Flags().
		StringP("cuts", "c", "", "Cut list JSON file")
	remapCmd.Flags().
		StringP("mode", "m", "", "remove or keep (default from the cut list)")
	remapCmd.Flags().
		String("duration", "", "Media duration (e.g. 12m30s or 00:12:30,000)")
	remapCmd.Flags().
		String("media", "", "Probe the media duration from this file")
	remapCmd.Flags().
		Duration("min-duration", 0, "Drop cues shorter than this after the cut (default from config, 100ms)")
	remapCmd.Flags().
		Bool("strict", false, "Fail if any subtitle block is malformed")
	remapCmd.Flags().
		Bool("keep-overlaps", false, "Do not merge overlapping cut ranges")
	_ = remapCmd.MarkFlagRequired("cuts")
}

func runRemap(cmd *cobra.Command, args []string) error {
	srtPath := args[0]
	ctx := cmd.Context()

	cutsPath, _ := cmd.Flags().GetString("cuts")
	modeFlag, _ := cmd.Flags().GetString("mode")
	durationFlag, _ := cmd.Flags().GetString("duration")
	mediaPath, _ := cmd.Flags().GetString("media")
	strict, _ := cmd.Flags().GetBool("strict")

	keepOverlaps := cfg.Remap.KeepOverlaps
	if cmd.Flags().Changed("keep-overlaps") {
		keepOverlaps, _ = cmd.Flags().GetBool("keep-overlaps")
	}
	minDuration := cfg.MinDuration()
	if cmd.Flags().Changed("min-duration") {
		d, _ := cmd.Flags().GetDuration("min-duration")
		minDuration = timecode.FromDuration(d)
	}

	track, err := loadTrack(srtPath, strict)
	if err != nil {
		return err
	}

	payload, err := loadPayload(cutsPath)
	if err != nil {
		return err
	}

	duration, err := mediaDuration(ctx, durationFlag, mediaPath)
	if err != nil {
		return err
	}

	plan, err := planCuts(payload, modeFlag, duration, keepOverlaps)
	if err != nil {
		return err
	}
	logCutWarnings(plan.Warnings)

	logger.Infow("Applying cuts",
		"input", srtPath,
		"records", len(track),
		"mode", plan.Mode,
		"ranges", len(plan.List),
		"cuts", len(plan.Removal),
	)

	out, report, err := remap.Apply(track, plan.Removal, remap.MinDuration(minDuration))
	if err != nil {
		return fmt.Errorf("failed to apply cuts: %w", err)
	}
	for _, d := range report.DroppedRecords {
		logger.Debugw("Dropped subtitle",
			"index", d.Record.Index,
			"start", d.Record.Start,
			"end", d.Record.End,
			"new_start", d.NewStart,
			"new_end", d.NewEnd,
		)
	}

	outputPath := outputOr(cmd, subtitle.SiblingPath(srtPath, "_remapped", ".srt"))
	if err := subtitle.WriteFile(outputPath, out); err != nil {
		return err
	}

	if violations := alignment.Validate(out); len(violations) > 0 {
		logger.Warnw("Remapped subtitles have alignment problems",
			"violations", len(violations),
		)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles remapped successfully: %s\n", absOutput)
	fmt.Printf("  Kept: %d\n", report.Kept)
	fmt.Printf("  Dropped: %d\n", report.Dropped)
	if openEnded(plan.Removal) {
		fmt.Printf("  Removed: everything after %s\n", plan.Removal[len(plan.Removal)-1].Start)
	} else {
		fmt.Printf("  Removed: %s\n", report.Removed)
	}

	return nil
}

func openEnded(list cutlist.List) bool {
	return len(list) > 0 && list[len(list)-1].End == cutlist.Unbounded
}
