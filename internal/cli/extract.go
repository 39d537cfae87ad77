package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
	"github.com/mgpai22/trimsub/internal/video"
)

var audioFormats = []string{"wav", "mp3", "aac", "flac"}

var extractCmd = &cobra.Command{
	Use:   "extract [video_file]",
	Short: "Extract audio from a video file",
	Long: `Extract the audio track from a video file and save it as a separate audio file.

The format follows --format, else the extension of -o, else wav. With
--compact the audio is encoded the way transcription and analysis upload
it (mono mp3 at a low bitrate), which keeps requests small.

Examples:
  trimsub extract video.mp4
  trimsub extract video.mp4 -o audio.mp3
  trimsub extract video.mp4 --compact
  trimsub extract video.mp4 --format wav --sample-rate 44100 --channels 2`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addExtractFlags(extractCmd)
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().
		StringP("format", "f", "", "Output audio format (wav, mp3, aac, flac)")
	cmd.Flags().
		IntP("sample-rate", "r", 0, "Sample rate in Hz (default 16000)")
	cmd.Flags().
		IntP("channels", "c", 0, "Number of audio channels (default 1)")
	cmd.Flags().
		StringP("bitrate", "b", "", "Bitrate for lossy formats (e.g., 128k, 320k)")
	cmd.Flags().
		Bool("compact", false, "Use the compressed settings sent to LLM providers")
}

// extractOptions resolves the audio settings from flags, the output
// extension and the defaults, in that order.
func extractOptions(cmd *cobra.Command, outputPath string) (video.ExtractAudioOptions, error) {
	opts := video.DefaultExtractAudioOptions()
	if compact, _ := cmd.Flags().GetBool("compact"); compact {
		opts = audio.DefaultCompressionOptions()
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" && outputPath != "" {
		format = strings.TrimPrefix(filepath.Ext(outputPath), ".")
	}
	if format != "" {
		opts.Format = strings.ToLower(format)
	}
	if !slices.Contains(audioFormats, opts.Format) {
		return opts, fmt.Errorf(
			"invalid format %q: supported formats are %s",
			opts.Format,
			strings.Join(audioFormats, ", "),
		)
	}

	if n, _ := cmd.Flags().GetInt("sample-rate"); n > 0 {
		opts.SampleRate = n
	}
	if n, _ := cmd.Flags().GetInt("channels"); n > 0 {
		opts.Channels = n
	}
	if b, _ := cmd.Flags().GetString("bitrate"); b != "" {
		opts.Bitrate = b
	}
	return opts, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")

	opts, err := extractOptions(cmd, outputPath)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = subtitle.SiblingPath(videoPath, "", "."+opts.Format)
	}

	logger.Infow("Extracting audio",
		"video", videoPath,
		"output", outputPath,
		"format", opts.Format,
		"sample_rate", opts.SampleRate,
		"channels", opts.Channels,
	)

	processor := video.NewProcessor("")
	if err := processor.ExtractAudio(cmd.Context(), videoPath, outputPath, opts); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Audio extracted successfully: %s\n", absOutput)
	if d, err := audio.MediaDuration(cmd.Context(), outputPath); err == nil {
		fmt.Printf("  Duration: %s\n", timecode.FormatClock(d))
	}

	return nil
}
