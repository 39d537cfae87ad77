package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/config"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/transcribe"
	"github.com/mgpai22/trimsub/internal/video"
)

var generateCmd = &cobra.Command{
	Use:   "generate [media_file]",
	Short: "Generate subtitles for an audio or video file",
	Long: `Generate SRT subtitles for the specified audio or video file using AI transcription.

The command accepts both audio files (mp3, wav, aac, etc.) and video files (mp4, mkv, etc.).
For video files, audio is automatically extracted before transcription.

The audio is split into chunks (default 1 minute) and transcribed in parallel
using Google Gemini or OpenAI Whisper.

Examples:
  trimsub generate video.mp4
  trimsub generate video.mp4 --api-key YOUR_KEY --chunk-duration 2
  trimsub generate podcast.mp3 -d 1 --concurrency 5
  trimsub generate talk.mp4 --provider openai --transcript-language english`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addTranscribeFlags(generateCmd)
}

func addTranscribeFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("transcribe-provider", "gemini", "Transcription provider: gemini or openai")
	cmd.Flags().
		String("transcribe-model", "", "Transcription model (default gemini-2.5-flash or whisper-1)")
	cmd.Flags().
		String("transcribe-key", "", "API key for the transcription provider (default from environment)")
	cmd.Flags().
		IntP("chunk-duration", "d", 1, "Chunk duration in minutes for splitting audio")
	cmd.Flags().
		Int("transcribe-concurrency", 3, "Number of parallel transcription workers")
	cmd.Flags().
		String("transcript-language", "native", "Output language for transcript (e.g., 'english', 'spanish', or 'native' for original language)")
}

type transcribeSettings struct {
	Provider      transcribe.Provider
	APIKey        string
	Options       transcribe.Options
	ChunkDuration time.Duration
	Concurrency   int
}

func resolveTranscribe(cmd *cobra.Command) (transcribeSettings, error) {
	providerStr, _ := cmd.Flags().GetString("transcribe-provider")
	model, _ := cmd.Flags().GetString("transcribe-model")
	apiKey, _ := cmd.Flags().GetString("transcribe-key")
	chunkMinutes, _ := cmd.Flags().GetInt("chunk-duration")
	concurrency, _ := cmd.Flags().GetInt("transcribe-concurrency")
	language, _ := cmd.Flags().GetString("language")
	transcriptLang, _ := cmd.Flags().GetString("transcript-language")

	provider := strings.ToLower(strings.TrimSpace(providerStr))
	switch provider {
	case config.ProviderGemini:
		if model != "" && !isValidGeminiModel(model) {
			return transcribeSettings{}, fmt.Errorf("unsupported gemini model %q", model)
		}
	case config.ProviderOpenAI:
		if !isValidOpenAITranscriptLanguage(transcriptLang) {
			return transcribeSettings{}, fmt.Errorf(
				"openai transcription only supports native or english output, got %q",
				transcriptLang,
			)
		}
	default:
		return transcribeSettings{}, fmt.Errorf("unsupported transcription provider %q: use gemini or openai", providerStr)
	}

	if apiKey == "" {
		apiKey = cfg.APIKey(provider)
	}
	if apiKey == "" {
		return transcribeSettings{}, fmt.Errorf(
			"%s API key is required: use --transcribe-key flag or set %s environment variable",
			provider,
			config.APIKeyEnv(provider),
		)
	}
	if chunkMinutes <= 0 {
		return transcribeSettings{}, fmt.Errorf("--chunk-duration must be positive, got %d", chunkMinutes)
	}

	return transcribeSettings{
		Provider: transcribe.Provider(provider),
		APIKey:   apiKey,
		Options: transcribe.Options{
			Language:           language,
			TranscriptLanguage: transcriptLang,
			Model:              model,
		},
		ChunkDuration: time.Duration(chunkMinutes) * time.Minute,
		Concurrency:   concurrency,
	}, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := cmd.Context()

	settings, err := resolveTranscribe(cmd)
	if err != nil {
		return err
	}

	outputPath := outputOr(cmd, subtitle.SiblingPath(mediaPath, "", ".srt"))

	logger.Infow("Starting subtitle generation",
		"input", mediaPath,
		"output", outputPath,
		"provider", settings.Provider,
		"chunk_duration", settings.ChunkDuration.String(),
		"concurrency", settings.Concurrency,
	)

	track, result, err := transcribeMedia(ctx, mediaPath, settings)
	if err != nil {
		return err
	}

	if err := subtitle.WriteFile(outputPath, track); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles generated successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", len(track))
	fmt.Printf("  Duration: %s\n", result.Duration.String())
	if result.Usage.InputTokens > 0 {
		fmt.Printf("  Usage: %s\n", result.Usage)
	}

	return nil
}

// transcribeMedia prepares compressed audio from mediaPath, transcribes it
// in chunks and builds a subtitle track from the segments.
func transcribeMedia(
	ctx context.Context,
	mediaPath string,
	settings transcribeSettings,
) (subtitle.Track, *transcribe.Result, error) {
	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("file not found: %s", mediaPath)
	}
	if !audio.IsMediaFile(mediaPath) {
		return nil, nil, fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(mediaPath))
	}

	tempDir, err := os.MkdirTemp("", "trimsub-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	audioPath := filepath.Join(tempDir, "audio.mp3")
	compressionOpts := audio.DefaultCompressionOptions()

	if audio.IsVideoFile(mediaPath) {
		logger.Infow("Extracting audio from video")

		processor := video.NewProcessor(tempDir)
		if err := processor.ExtractAudio(ctx, mediaPath, audioPath, compressionOpts); err != nil {
			return nil, nil, fmt.Errorf("failed to extract audio: %w", err)
		}
	} else {
		logger.Infow("Compressing audio for transcription")
		if err := audio.CompressAudio(ctx, mediaPath, audioPath, compressionOpts); err != nil {
			return nil, nil, fmt.Errorf("failed to compress audio: %w", err)
		}
	}

	chunkDir := filepath.Join(tempDir, "chunks")
	logger.Infow("Splitting audio into chunks",
		"chunk_duration", settings.ChunkDuration.String(),
	)

	chunks, err := audio.ChunkAudio(ctx, audioPath, settings.ChunkDuration, chunkDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split audio: %w", err)
	}
	logger.Infow("Created audio chunks", "count", len(chunks))

	transcriber, err := transcribe.Factory(ctx, settings.Provider, settings.APIKey, settings.Options)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	concurrent, ok := transcriber.(transcribe.ConcurrentTranscriber)
	if !ok {
		return nil, nil, fmt.Errorf("%s transcriber does not support chunked transcription", settings.Provider)
	}

	logger.Infow("Transcribing audio", "concurrency", settings.Concurrency)
	result, err := concurrent.TranscribeWithChunks(ctx, chunks, settings.Concurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("transcription failed: %w", err)
	}
	logger.Infow("Transcription complete", "segments", len(result.Segments))

	track, err := subtitle.NewDefaultGenerator().Generate(result.Segments)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate subtitles: %w", err)
	}
	return track, result, nil
}
