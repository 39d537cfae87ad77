package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/trimsub/internal/cutlist"
	ffmpegbin "github.com/mgpai22/trimsub/internal/ffmpeg"
	"github.com/mgpai22/trimsub/internal/timecode"
)

// Cut re-encodes every segment of videoPath with libx264/aac and joins
// them with the concat demuxer. A segment ending at cutlist.Unbounded runs
// to the end of the input.
func (p *DefaultProcessor) Cut(
	ctx context.Context,
	videoPath, outputPath string,
	segments []cutlist.Range,
) error {
	if len(segments) == 0 {
		return fmt.Errorf("nothing left to render")
	}
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("video file not found: %s", videoPath)
	}

	workDir, err := os.MkdirTemp(p.tempDir, "trimsub-cut-*")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	ext := filepath.Ext(outputPath)
	if ext == "" {
		ext = ".mp4"
	}
	parts := make([]string, len(segments))
	for i := range segments {
		parts[i] = filepath.Join(workDir, fmt.Sprintf("part_%04d%s", i, ext))
	}

	if err := p.renderSegments(ctx, videoPath, segments, parts); err != nil {
		return err
	}

	listPath := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(concatList(parts)), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stream := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(outputPath, ffmpeg.KwArgs{"c": "copy"})
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("concatenation failed: %w", err)
	}
	return nil
}

func (p *DefaultProcessor) renderSegments(
	ctx context.Context,
	videoPath string,
	segments []cutlist.Range,
	parts []string,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	concurrency := p.concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, concurrency)

	for i, seg := range segments {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Go(func() {
				defer func() { <-sem }()

				stream := ffmpeg.Input(videoPath, segmentInputArgs(seg)).
					Output(parts[i], segmentOutputArgs(p.noAudio))

				if err := ffmpegbin.Run(ctx, stream); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("segment %d (%s) failed: %w", i, seg, err)
					}
					mu.Unlock()
					cancel()
				}
			})
		}
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// segmentOutputArgs re-encodes video with libx264 and audio with aac, or
// drops audio when the source has none.
func segmentOutputArgs(noAudio bool) ffmpeg.KwArgs {
	if noAudio {
		return ffmpeg.KwArgs{"c:v": "libx264", "an": ""}
	}
	return ffmpeg.KwArgs{"c:v": "libx264", "c:a": "aac"}
}

// seeks before decoding; the duration is omitted for an open tail
func segmentInputArgs(seg cutlist.Range) ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{"ss": seconds(seg.Start)}
	if seg.End != cutlist.Unbounded {
		kwargs["t"] = seconds(seg.End - seg.Start)
	}
	return kwargs
}

func seconds(t timecode.Timestamp) string {
	return fmt.Sprintf("%.3f", float64(t)/1000)
}

func concatList(parts []string) string {
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(part, "'", `'\''`))
		sb.WriteString("'\n")
	}
	return sb.String()
}
