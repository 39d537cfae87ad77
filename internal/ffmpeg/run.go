package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// Run executes an ffmpeg-go output stream with the resolved ffmpeg binary.
// The process is killed when ctx is done; a failure carries the tail of
// ffmpeg's stderr.
func Run(ctx context.Context, stream *ffmpeggo.Stream) error {
	bin, err := FFmpegPath()
	if err != nil {
		return err
	}
	cmd := stream.OverWriteOutput().SetFfmpegPath(bin).Compile()

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %s", err, tail(stderr.String(), 400))
		}
		return nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

// Probe returns ffprobe's JSON description of path: its format section and,
// with streams set, every stream.
func Probe(ctx context.Context, path string, streams bool) ([]byte, error) {
	bin, err := FFprobePath()
	if err != nil {
		return nil, err
	}

	args := []string{"-v", "quiet", "-print_format", "json", "-show_format"}
	if streams {
		args = append(args, "-show_streams")
	}
	args = append(args, path)

	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, tail(stderr.String(), 200))
	}
	return out.Bytes(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
