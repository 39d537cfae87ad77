package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/trimsub/internal/ffmpeg"
)

// default number of ffmpeg processes cutting chunks at once
const chunkWorkers = 4

// ChunkInfo is one slice of a longer recording and where it sits in it.
type ChunkInfo struct {
	Path      string
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
}

func (c ChunkInfo) Duration() time.Duration {
	return c.EndTime - c.StartTime
}

// planChunks lays out consecutive chunks covering total; the last one may
// be shorter.
func planChunks(audioPath string, total, size time.Duration, outputDir string) []ChunkInfo {
	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), ext)

	var chunks []ChunkInfo
	for start := time.Duration(0); start < total; start += size {
		i := len(chunks)
		chunks = append(chunks, ChunkInfo{
			Path:      filepath.Join(outputDir, fmt.Sprintf("%s_chunk_%03d%s", base, i, ext)),
			Index:     i,
			StartTime: start,
			EndTime:   min(start+size, total),
		})
	}
	return chunks
}

// ChunkAudio stream-copies audioPath into chunks of at most size, in order.
// On failure every chunk already written is removed.
func ChunkAudio(ctx context.Context, audioPath string, size time.Duration, outputDir string) ([]ChunkInfo, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", size)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	total, err := GetDurationContext(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	chunks := planChunks(audioPath, total, size, outputDir)
	if err := cutChunks(ctx, audioPath, chunks); err != nil {
		_ = CleanupChunks(chunks)
		return nil, err
	}
	return chunks, nil
}

func cutChunks(ctx context.Context, audioPath string, chunks []ChunkInfo) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan ChunkInfo)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for range min(chunkWorkers, len(chunks)) {
		wg.Go(func() {
			for c := range jobs {
				stream := ffmpeg.Input(audioPath, ffmpeg.KwArgs{"ss": c.StartTime.Seconds()}).
					Output(c.Path, ffmpeg.KwArgs{"t": c.Duration().Seconds(), "c": "copy"})
				if err := ffmpegbin.Run(ctx, stream); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
					}
					mu.Unlock()
					cancel()
				}
			}
		})
	}

feed:
	for _, c := range chunks {
		select {
		case jobs <- c:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// CleanupChunks removes chunk files, ignoring ones already gone.
func CleanupChunks(chunks []ChunkInfo) error {
	var errs []error
	for _, c := range chunks {
		if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
