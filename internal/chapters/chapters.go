package chapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

var ErrNoChapters = errors.New("no chapters found in response")

// Chapter marks where a section of the recording begins.
type Chapter struct {
	Start timecode.Timestamp
	Title string
}

func (c Chapter) String() string {
	return timecode.FormatClock(c.Start) + " - " + c.Title
}

type Options struct {
	Language string
	Topic    string
}

type Result struct {
	Chapters []Chapter
	Raw      string
	Usage    llm.Usage
}

// BuildPrompt creates the chapter prompt; the subtitles travel as an
// attachment.
func BuildPrompt(opts Options) string {
	var sb strings.Builder

	sb.WriteString("Analyze the attached SRT subtitles of this recording.\n")
	if opts.Topic != "" {
		sb.WriteString(fmt.Sprintf(
			"The topic of this recording is: '%s'. Use this context to create more accurate and meaningful chapter titles.\n",
			opts.Topic,
		))
	}
	if opts.Language != "" {
		sb.WriteString(fmt.Sprintf(
			"The input is in %s language. Please write the chapter titles in %s.\n",
			opts.Language,
			opts.Language,
		))
	}
	sb.WriteString("\nYour task is to create a list of chapters that summarize the entire content.\n")
	sb.WriteString("1. Break down the content into logical chapters.\n")
	sb.WriteString("2. For each chapter, provide the Start Time (HH:MM:SS) and a concise title.\n")
	sb.WriteString("3. Ensure the chapters cover the flow of the entire recording.\n\n")
	sb.WriteString("Output format:\n")
	sb.WriteString("00:00:00 - Introduction\n")
	sb.WriteString("00:05:30 - Topic A description\n")
	sb.WriteString("00:12:45 - Key takeaway about B\n\n")
	sb.WriteString("Do not add any other text, just the list of timecodes and titles.")

	return sb.String()
}

// Generate asks the model for chapters of track.
func Generate(
	ctx context.Context,
	client llm.Client,
	track subtitle.Track,
	opts Options,
) (*Result, error) {
	if len(track) == 0 {
		return nil, fmt.Errorf("subtitle track is empty")
	}

	dir, err := os.MkdirTemp("", "trimsub-chapters-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srtPath := filepath.Join(dir, "subtitles.srt")
	if err := subtitle.WriteFile(srtPath, track); err != nil {
		return nil, err
	}

	resp, err := client.Complete(ctx, llm.Request{
		Prompt: BuildPrompt(opts),
		Attachments: []llm.Attachment{
			{Path: srtPath, MIMEType: "text/plain"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chapter generation failed: %w", err)
	}

	result := &Result{Raw: resp.Text, Usage: resp.Usage}
	result.Chapters = Parse(resp.Text)
	if len(result.Chapters) == 0 {
		return result, fmt.Errorf(
			"%w (response: %s)",
			ErrNoChapters,
			llm.Truncate(resp.Text, 200),
		)
	}
	return result, nil
}

var chapterLine = regexp.MustCompile(
	`^\s*(?:[-*•]\s*|\d+[.)]\s+)?\**\[?((?:\d{1,3}:)?\d{1,2}:\d{2}(?:[.,]\d{1,3})?)\]?\**\s*[-–—:|]?\s*(.+?)\s*$`,
)

// Parse reads "HH:MM:SS - Title" lines, ignoring anything else. Bullets,
// numbering and bold markers around the time are tolerated. Chapters are
// returned sorted by start with duplicate starts removed.
func Parse(text string) []Chapter {
	var out []Chapter
	seen := map[timecode.Timestamp]bool{}

	for _, line := range strings.Split(llm.CleanJSON(text), "\n") {
		m := chapterLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start, err := timecode.ParseStrict(m[1])
		if err != nil {
			continue
		}
		title := strings.Trim(strings.TrimSpace(m[2]), "*")
		title = strings.TrimSpace(title)
		if title == "" || seen[start] {
			continue
		}
		seen[start] = true
		out = append(out, Chapter{Start: start, Title: title})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Format renders one chapter per line.
func Format(chapters []Chapter) string {
	var sb strings.Builder
	for _, c := range chapters {
		sb.WriteString(c.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
