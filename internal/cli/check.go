package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/alignment"
)

var checkCmd = &cobra.Command{
	Use:   "check [srt_file]",
	Short: "Report overlapping, unsorted or empty subtitles",
	Long: `Validate the timing of an SRT file. Every cue must start before it
ends, cues must be in start order and no cue may start before the previous
one ended. Touching cues are fine.

Exits with a non-zero status when any problem is found.

Examples:
  trimsub check talk_remapped.srt
  trimsub check talk.srt --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().
		Bool("strict", false, "Fail if any subtitle block is malformed")
}

func runCheck(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")

	track, err := loadTrack(args[0], strict)
	if err != nil {
		return err
	}

	violations := alignment.Validate(track)
	writeViolations(os.Stdout, violations)
	if len(violations) > 0 {
		return fmt.Errorf("%d alignment violations in %s", len(violations), args[0])
	}
	return nil
}
