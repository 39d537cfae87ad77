package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	ffmpegbin "github.com/mgpai22/trimsub/internal/ffmpeg"
	"github.com/mgpai22/trimsub/internal/timecode"
)

// GetDuration probes the container duration of filePath.
func GetDuration(filePath string) (time.Duration, error) {
	return GetDurationContext(context.Background(), filePath)
}

func GetDurationContext(ctx context.Context, filePath string) (time.Duration, error) {
	if _, err := os.Stat(filePath); err != nil {
		return 0, fmt.Errorf("file not found: %s", filePath)
	}
	data, err := ffmpegbin.Probe(ctx, filePath, false)
	if err != nil {
		return 0, err
	}
	return parseProbeDuration(data)
}

// MediaDuration is GetDurationContext on the subtitle timeline.
func MediaDuration(ctx context.Context, filePath string) (timecode.Timestamp, error) {
	d, err := GetDurationContext(ctx, filePath)
	if err != nil {
		return 0, err
	}
	return timecode.FromDuration(d), nil
}

func parseProbeDuration(data []byte) (time.Duration, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	raw := strings.TrimSpace(probe.Format.Duration)
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", raw, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
