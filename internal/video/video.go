package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/cutlist"
	ffmpegbin "github.com/mgpai22/trimsub/internal/ffmpeg"
)

// video file information
type Info struct {
	Path      string
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64
	Codec     string
	HasAudio  bool
}

// defines interface for video processing operations
type Processor interface {
	// extracts audio from video file
	ExtractAudio(
		ctx context.Context,
		videoPath, outputPath string,
		opts ExtractAudioOptions,
	) error

	// retrieves video file information
	GetInfo(ctx context.Context, videoPath string) (*Info, error)

	// renders the given segments of videoPath back to back into outputPath
	Cut(
		ctx context.Context,
		videoPath, outputPath string,
		segments []cutlist.Range,
	) error
}

// ExtractAudioOptions selects the codec and layout of extracted audio.
type ExtractAudioOptions = audio.Options

// returns sensible defaults for audio extraction
func DefaultExtractAudioOptions() ExtractAudioOptions {
	return ExtractAudioOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
	}
}

// default implementation using ffmpeg
type DefaultProcessor struct {
	tempDir string
	// segments rendered in parallel by Cut
	concurrency int
	// Cut drops audio for sources without an audio stream
	noAudio bool
}

func NewProcessor(tempDir string) *DefaultProcessor {
	return &DefaultProcessor{
		tempDir:     tempDir,
		concurrency: 2,
	}
}

// WithConcurrency sets how many segments Cut renders at once.
func (p *DefaultProcessor) WithConcurrency(n int) *DefaultProcessor {
	if n > 0 {
		p.concurrency = n
	}
	return p
}

// WithAudio tells Cut whether the source carries an audio stream.
func (p *DefaultProcessor) WithAudio(has bool) *DefaultProcessor {
	p.noAudio = !has
	return p
}

// extracts audio from video file
func (p *DefaultProcessor) ExtractAudio(
	ctx context.Context,
	videoPath, outputPath string,
	opts ExtractAudioOptions,
) error {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("video file not found: %s", videoPath)
	}

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stream := ffmpeg.Input(videoPath).Output(outputPath, opts.KwArgs())
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("ffmpeg extraction failed: %w", err)
	}

	return nil
}

// OutputPath names the result of cutting videoPath: cleaned_<name> when
// ranges were removed, trimmed_<name> when they were kept.
func OutputPath(videoPath string, mode cutlist.Mode) string {
	tag := "cleaned"
	if mode == cutlist.ModeKeep {
		tag = "trimmed"
	}
	dir := filepath.Dir(videoPath)
	return filepath.Join(dir, tag+"_"+filepath.Base(videoPath))
}
