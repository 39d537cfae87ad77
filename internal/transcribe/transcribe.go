package transcribe

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

// transcription result
type Result struct {
	Segments []subtitle.Segment
	Language string
	Duration time.Duration
	// zero for providers that do not report tokens
	Usage llm.Usage
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

type ConcurrentTranscriber interface {
	Transcriber
	TranscribeWithChunks(
		ctx context.Context,
		chunks []audio.ChunkInfo,
		concurrency int,
	) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// transcription options
type Options struct {
	Language           string // Source language of audio
	TranscriptLanguage string // Output language for transcript (default: "native")
	Model              string
	Prompt             string
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// converts fractional seconds from a provider reply
func seconds(s float64) timecode.Timestamp {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return timecode.Timestamp(math.Round(s * 1000))
}

// shifts chunk-relative segments onto the timeline of the whole file
func offsetSegments(segments []subtitle.Segment, chunk audio.ChunkInfo) []subtitle.Segment {
	offset := timecode.FromDuration(chunk.StartTime)
	adjusted := make([]subtitle.Segment, len(segments))
	for i, seg := range segments {
		adjusted[i] = subtitle.Segment{
			Start: seg.Start + offset,
			End:   seg.End + offset,
			Text:  seg.Text,
		}
	}
	return adjusted
}

// transcribeChunks runs transcribe over chunks with at most concurrency
// calls in flight and concatenates the shifted segments in chunk order.
// The first failure cancels the remaining work.
func transcribeChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
	language string,
	transcribe func(ctx context.Context, path string) (*Result, error),
) (*Result, error) {
	if len(chunks) == 0 {
		return &Result{}, nil
	}
	if concurrency <= 0 {
		concurrency = 3
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	parts := make([][]subtitle.Segment, len(chunks))
	usages := make([]llm.Usage, len(chunks))

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	sem := make(chan struct{}, concurrency)

dispatch:
	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Go(func() {
			defer func() { <-sem }()
			result, err := transcribe(ctx, chunk.Path)
			if err != nil {
				once.Do(func() {
					firstErr = fmt.Errorf("chunk %d failed: %w", chunk.Index, err)
					cancel()
				})
				return
			}
			parts[i] = offsetSegments(result.Segments, chunk)
			usages[i] = result.Usage
		})
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Result{
		Language: language,
		Duration: chunks[len(chunks)-1].EndTime,
	}
	for i := range chunks {
		out.Segments = append(out.Segments, parts[i]...)
		out.Usage = out.Usage.Add(usages[i])
	}
	return out, nil
}
