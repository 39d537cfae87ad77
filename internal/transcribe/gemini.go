package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

// GeminiTranscriber sends audio to a multimodal model and asks for timed
// JSON segments back.
type GeminiTranscriber struct {
	client  llm.Client
	options Options
	// audio.GetDuration when nil
	probe func(path string) (time.Duration, error)
}

var errNoTranscript = errors.New("no transcript JSON found in response")

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
	client, err := llm.NewGeminiClient(ctx, apiKey, llm.Options{Model: opts.Model})
	if err != nil {
		return nil, err
	}
	return &GeminiTranscriber{client: client, options: opts}, nil
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	resp, err := t.client.Complete(ctx, llm.Request{
		Prompt:      t.prompt(),
		Attachments: []llm.Attachment{{Path: audioPath}},
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, err := parseTranscription(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	probe := t.probe
	if probe == nil {
		probe = audio.GetDuration
	}
	duration, _ := probe(audioPath)

	return &Result{
		Segments: segments,
		Language: t.options.Language,
		Duration: duration,
		Usage:    resp.Usage,
	}, nil
}

func (t *GeminiTranscriber) TranscribeWithChunks(ctx context.Context, chunks []audio.ChunkInfo, concurrency int) (*Result, error) {
	return transcribeChunks(ctx, chunks, concurrency, t.options.Language, t.Transcribe)
}

func (t *GeminiTranscriber) Close() error {
	return nil
}

func (t *GeminiTranscriber) prompt() string {
	lines := []string{
		"Transcribe this audio verbatim, one JSON object per sentence or short phrase.",
		`Reply with a JSON array of {"start": <seconds>, "end": <seconds>, "text": <spoken words>}.`,
		"Times are numbers of seconds from the start of this audio.",
	}
	if lang := t.options.Language; lang != "" {
		lines = append(lines, "The audio is in "+lang+".")
	}
	if out := t.options.TranscriptLanguage; out != "" && out != "native" {
		lines = append(lines, "Write the transcript in "+out+".")
	}
	if t.options.Prompt != "" {
		lines = append(lines, t.options.Prompt)
	}
	lines = append(lines, "Return only the JSON array, without markdown.")
	return strings.Join(lines, "\n")
}

// seconds as the model wrote them: a number, a numeric string or a
// clock string such as "00:01:02,500"
type replySeconds float64

func (s *replySeconds) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = replySeconds(f)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("time must be a number or string, got %s", data)
	}
	str = strings.TrimSpace(str)
	if strings.Contains(str, ":") {
		ts, err := timecode.ParseStrict(str)
		if err != nil {
			return err
		}
		*s = replySeconds(float64(ts) / 1000)
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(str, "s"), 64)
	if err != nil {
		return fmt.Errorf("invalid time %q", str)
	}
	*s = replySeconds(f)
	return nil
}

type replySegment struct {
	Start replySeconds `json:"start"`
	End   replySeconds `json:"end"`
	Text  string       `json:"text"`
}

// parseTranscription converts a model reply into subtitle segments.
func parseTranscription(text string) ([]subtitle.Segment, error) {
	text = llm.CleanJSON(text)

	found, err := findSegments(text)
	if err != nil {
		return nil, fmt.Errorf("%w (response: %s)", err, llm.Truncate(text, 200))
	}

	segments := make([]subtitle.Segment, len(found))
	for i, s := range found {
		segments[i] = subtitle.Segment{
			Start: seconds(float64(s.Start)),
			End:   seconds(float64(s.End)),
			Text:  strings.TrimSpace(s.Text),
		}
	}
	return segments, nil
}

// findSegments decodes JSON values from each '[' or '{' in text and returns
// the first that holds transcript segments, directly or under any key.
func findSegments(text string) ([]replySegment, error) {
	text = llm.FixInvalidEscapes(text)

	for i := range len(text) {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}
		if segments, ok := segmentsIn(raw, 3); ok {
			return segments, nil
		}
	}
	return nil, errNoTranscript
}

// preferred wrapper keys, tried before any other key
var segmentKeys = []string{"segments", "transcript", "data"}

func segmentsIn(raw json.RawMessage, depth int) ([]replySegment, bool) {
	var segments []replySegment
	if err := json.Unmarshal(raw, &segments); err == nil {
		return segments, hasContent(segments)
	}
	if depth == 0 {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	for _, key := range segmentKeys {
		if v, ok := fields[key]; ok {
			if segments, ok := segmentsIn(v, depth-1); ok {
				return segments, true
			}
		}
	}
	for _, v := range fields {
		if segments, ok := segmentsIn(v, depth-1); ok {
			return segments, true
		}
	}
	return nil, false
}

// hasContent is false for an empty list or one of all-zero segments, which
// is what an unrelated array of objects decodes to.
func hasContent(segments []replySegment) bool {
	for _, s := range segments {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}
