package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/llm/llmtest"
)

func TestFindSegments(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   bool
	}{
		{
			name:      "bare array",
			input:     `[{"start": 0.0, "end": 2.5, "text": "Hello"}, {"start": 2.5, "end": 5.0, "text": "again"}]`,
			wantCount: 2,
		},
		{
			name:      "chatter around the array",
			input:     "Sure, here it is:\n[{\"start\": 1, \"end\": 3, \"text\": \"Test\"}]\nAnything else?",
			wantCount: 1,
		},
		{
			name:      "segments key",
			input:     `{"segments": [{"start": 0, "end": 2, "text": "Wrapped"}]}`,
			wantCount: 1,
		},
		{
			name:      "custom key",
			input:     `{"lines": [{"start": 0, "end": 2, "text": "Custom"}]}`,
			wantCount: 1,
		},
		{
			name:      "nested wrapper",
			input:     `{"response": {"result": {"transcript": [{"start": 0, "end": 1, "text": "Deep"}]}}}`,
			wantCount: 1,
		},
		{
			name: "unrelated values before the transcript",
			input: `{"status": "ok", "count": 5}
			[1, 2, 3]
			[{"start": 0, "end": 2, "text": "Real"}]`,
			wantCount: 1,
		},
		{
			name:      "timestamps without text",
			input:     `[{"start": 1.0, "end": 2.0, "text": ""}]`,
			wantCount: 1,
		},
		{
			name:      "string timestamps",
			input:     `[{"start": "00:00:01,500", "end": "2.25s", "text": "Strings"}]`,
			wantCount: 1,
		},
		{name: "empty array", input: `[]`, wantErr: true},
		{name: "all-zero segment", input: `[{"start": 0, "end": 0, "text": ""}]`, wantErr: true},
		{name: "objects without segment fields", input: `[{"speaker": "A"}]`, wantErr: true},
		{name: "truncated", input: `[{"start": 0.0, "end": 2.0, "text": "incomplete"`, wantErr: true},
		{name: "prose only", input: `No speech detected in this clip.`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := findSegments(tt.input)
			if tt.wantErr {
				if !errors.Is(err, errNoTranscript) {
					t.Errorf("expected errNoTranscript, got %v (%d segments)", err, len(segments))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(segments) != tt.wantCount {
				t.Errorf("got %d segments, want %d", len(segments), tt.wantCount)
			}
		})
	}
}

func TestReplySeconds(t *testing.T) {
	tests := []struct {
		input   string
		want    replySeconds
		wantErr bool
	}{
		{`1.25`, 1.25, false},
		{`"3"`, 3, false},
		{`"4.5s"`, 4.5, false},
		{`"00:01:02,500"`, 62.5, false},
		{`"01:30"`, 90, false},
		{`null`, 0, false},
		{`"soon"`, 0, true},
		{`"aa:bb"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got replySeconds
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Unmarshal(%s) = %v, %v, want %v", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestParseTranscriptionTimestamps(t *testing.T) {
	segments, err := parseTranscription("```json\n" +
		`[{"start": 1.2345, "end": "00:00:02,500", "text": "  Hi there "}, {"start": -1, "end": 0.0004, "text": "x"}]` +
		"\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if segments[0].Start != 1235 || segments[0].End != 2500 {
		t.Errorf("segment 0 = %+v, want 1235-2500", segments[0])
	}
	if segments[0].Text != "Hi there" {
		t.Errorf("segment 0 text = %q", segments[0].Text)
	}
	if segments[1].Start != 0 || segments[1].End != 0 {
		t.Errorf("segment 1 = %+v, negative and sub-millisecond times clamp to 0", segments[1])
	}
}

func TestGeminiPrompt(t *testing.T) {
	tr := &GeminiTranscriber{options: Options{Language: "German", TranscriptLanguage: "English", Prompt: "Speakers: Ana, Ben."}}
	p := tr.prompt()
	for _, want := range []string{"in German", "in English", "Speakers: Ana, Ben.", "JSON array"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}

	native := (&GeminiTranscriber{options: Options{TranscriptLanguage: "native"}}).prompt()
	if strings.Contains(native, "Write the transcript in") {
		t.Errorf("native transcript language should not ask for translation:\n%s", native)
	}
}

func TestTranscribeWithChunksOffsets(t *testing.T) {
	dir := t.TempDir()
	chunks := []audio.ChunkInfo{
		{Path: writeFile(t, dir, "chunk_000.mp3"), Index: 0, StartTime: 0, EndTime: 10 * time.Second},
		{Path: writeFile(t, dir, "chunk_001.mp3"), Index: 1, StartTime: 10 * time.Second, EndTime: 15 * time.Second},
	}

	fake := llmtest.Reply(`[{"start": 0.5, "end": 2.0, "text": "segment"}]`)
	fake.Usage = llm.Usage{Model: "fake", InputTokens: 7, OutputTokens: 3}
	transcriber := &GeminiTranscriber{client: fake, probe: noProbe}

	result, err := transcriber.TranscribeWithChunks(context.Background(), chunks, 2)
	if err != nil {
		t.Fatalf("TranscribeWithChunks() error = %v", err)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}
	if result.Segments[0].Start != 500 || result.Segments[1].Start != 10500 {
		t.Errorf("starts = %d, %d, want 500, 10500", result.Segments[0].Start, result.Segments[1].Start)
	}
	if result.Segments[1].End != 12000 {
		t.Errorf("end = %d, want 12000", result.Segments[1].End)
	}
	if result.Usage.InputTokens != 14 {
		t.Errorf("usage = %+v, want summed over chunks", result.Usage)
	}
	if result.Duration != chunks[1].EndTime {
		t.Errorf("duration = %v, want %v", result.Duration, chunks[1].EndTime)
	}
}

func noProbe(string) (time.Duration, error) {
	return 0, errors.New("no ffprobe in tests")
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
