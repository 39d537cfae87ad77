package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

const defaultWhisperModel = "whisper-1"

// implements Transcriber on the OpenAI audio endpoints (Whisper)
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
	// audio.GetDuration when nil
	probe func(path string) (time.Duration, error)
}

// verbose_json body shared by the transcription and translation endpoints
type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	model := opts.Model
	if model == "" {
		model = defaultWhisperModel
	}

	return &OpenAITranscriber{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		options: opts,
	}, nil
}

// translates reports whether output should be English regardless of the
// spoken language; Whisper has a dedicated endpoint for that
func (t *OpenAITranscriber) translates() bool {
	switch strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage)) {
	case "english", "en":
		return true
	}
	return false
}

// Transcribe sends one audio file to Whisper. When the reply carries no
// usable segments the whole text becomes a single segment spanning the
// file.
func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio file not found: %s", audioPath)
		}
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	probe := t.probe
	if probe == nil {
		probe = audio.GetDuration
	}
	duration, _ := probe(audioPath)

	raw, text, err := t.request(ctx, file)
	if err != nil {
		return nil, err
	}

	result := &Result{Duration: duration, Language: t.options.Language}
	if t.translates() {
		result.Language = "en"
	}

	segments, lang, err := parseWhisper(raw, timecode.FromDuration(duration))
	switch {
	case err == nil:
		result.Segments = segments
		if lang != "" && !t.translates() {
			result.Language = lang
		}
	case strings.TrimSpace(text) != "":
		result.Segments = []subtitle.Segment{{
			End:  timecode.FromDuration(duration),
			Text: strings.TrimSpace(text),
		}}
	}
	return result, nil
}

// request calls the transcription or translation endpoint and returns the
// raw verbose_json body and the plain text.
func (t *OpenAITranscriber) request(ctx context.Context, file *os.File) (string, string, error) {
	if t.translates() {
		params := openai.AudioTranslationNewParams{
			File:           file,
			Model:          openai.AudioModel(t.model),
			ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
		}
		if t.options.Prompt != "" {
			params.Prompt = openai.String(t.options.Prompt)
		}
		resp, err := t.client.Audio.Translations.New(ctx, params)
		if err != nil {
			return "", "", fmt.Errorf("translation failed: %w", err)
		}
		return resp.RawJSON(), resp.Text, nil
	}

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}
	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}
	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.RawJSON(), resp.Text, nil
}

// parseWhisper converts a verbose_json body into segments and the detected
// language. Blank segments are skipped and an end before its start is
// pulled up to the start. Without segments the text spans the reported
// duration, or fallback when none is reported.
func parseWhisper(raw string, fallback timecode.Timestamp) ([]subtitle.Segment, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", fmt.Errorf("empty response")
	}

	var resp whisperResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, "", fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(resp.Segments) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, "", fmt.Errorf("no segments or text in response")
		}
		end := fallback
		if resp.Duration > 0 {
			end = seconds(resp.Duration)
		}
		return []subtitle.Segment{{End: end, Text: text}}, resp.Language, nil
	}

	segments := make([]subtitle.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start := seconds(seg.Start)
		segments = append(segments, subtitle.Segment{
			Start: start,
			End:   max(start, seconds(seg.End)),
			Text:  text,
		})
	}
	return segments, resp.Language, nil
}

// transcribes multiple chunks in parallel
func (t *OpenAITranscriber) TranscribeWithChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
) (*Result, error) {
	return transcribeChunks(ctx, chunks, concurrency, t.options.Language, t.Transcribe)
}

func (t *OpenAITranscriber) Close() error {
	return nil
}
