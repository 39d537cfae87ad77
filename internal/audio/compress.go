package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/trimsub/internal/ffmpeg"
)

// CompressAudio re-encodes inputPath into outputPath. Any video stream is
// dropped, so a video file works as input too.
func CompressAudio(ctx context.Context, inputPath, outputPath string, opts Options) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// mp3 unless the caller named a lossy codec
	if c, ok := codecs[opts.Format]; !ok || !c.lossy {
		opts.Format = "mp3"
	}

	stream := ffmpeg.Input(inputPath).Output(outputPath, opts.KwArgs())
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}
	return nil
}
