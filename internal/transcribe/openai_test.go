package transcribe

import (
	"path/filepath"
	"testing"

	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

func TestParseWhisper(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback timecode.Timestamp
		want     []subtitle.Segment
		wantLang string
		wantErr  bool
	}{
		{
			name: "segments",
			raw: `{
				"text": "Hello world. How are you today?",
				"segments": [
					{"start": 0.0, "end": 1.5, "text": "Hello world."},
					{"start": 1.5, "end": 3.0, "text": "How are you today?"}
				],
				"language": "en",
				"duration": 3.0
			}`,
			want: []subtitle.Segment{
				{Start: 0, End: 1500, Text: "Hello world."},
				{Start: 1500, End: 3000, Text: "How are you today?"},
			},
			wantLang: "en",
		},
		{
			name: "blank segments skipped and text trimmed",
			raw: `{
				"segments": [
					{"start": 0.0, "end": 0.5, "text": ""},
					{"start": 0.5, "end": 1.5, "text": "  Hello world  "},
					{"start": 1.5, "end": 2.0, "text": "   "}
				]
			}`,
			want: []subtitle.Segment{{Start: 500, End: 1500, Text: "Hello world"}},
		},
		{
			name: "end before start pulled up",
			raw:  `{"segments": [{"start": 2.0, "end": 1.0, "text": "odd"}]}`,
			want: []subtitle.Segment{{Start: 2000, End: 2000, Text: "odd"}},
		},
		{
			name:     "text only uses reported duration",
			raw:      `{"text": "No segments here.", "duration": 10.5}`,
			fallback: 15 * timecode.Second,
			want:     []subtitle.Segment{{Start: 0, End: 10500, Text: "No segments here."}},
		},
		{
			name:     "null segments use fallback duration",
			raw:      `{"text": "Transcription text only.", "segments": null, "language": "german"}`,
			fallback: 5 * timecode.Second,
			want:     []subtitle.Segment{{Start: 0, End: 5000, Text: "Transcription text only."}},
			wantLang: "german",
		},
		{
			name: "real whisper response",
			raw: `{
				"task": "transcribe",
				"language": "english",
				"duration": 8.470000267028809,
				"text": "The stale smell of old beer lingers. It takes heat to bring out the odor.",
				"segments": [
					{"id": 0, "seek": 0, "start": 0.0, "end": 3.319999933242798,
					 "text": " The stale smell of old beer lingers.", "tokens": [50364, 440], "temperature": 0.0},
					{"id": 1, "seek": 0, "start": 3.319999933242798, "end": 6.190000057220459,
					 "text": " It takes heat to bring out the odor.", "tokens": [50530, 467], "temperature": 0.0}
				]
			}`,
			want: []subtitle.Segment{
				{Start: 0, End: 3320, Text: "The stale smell of old beer lingers."},
				{Start: 3320, End: 6190, Text: "It takes heat to bring out the odor."},
			},
			wantLang: "english",
		},
		{name: "empty response", raw: "", wantErr: true},
		{name: "invalid JSON", raw: `{"text": "incomplete`, wantErr: true},
		{name: "no segments and no text", raw: `{"text": " ", "segments": []}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, lang, err := parseWhisper(tt.raw, tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if lang != tt.wantLang {
				t.Errorf("language = %q, want %q", lang, tt.wantLang)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d segments, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTranslates(t *testing.T) {
	tests := []struct {
		transcriptLang string
		want           bool
	}{
		{"english", true},
		{"English", true},
		{"ENGLISH", true},
		{"en", true},
		{"EN", true},
		{" english ", true},
		{"native", false},
		{"", false},
		{"spanish", false},
		{"japanese", false},
	}

	for _, tt := range tests {
		t.Run(tt.transcriptLang, func(t *testing.T) {
			transcriber := &OpenAITranscriber{
				options: Options{TranscriptLanguage: tt.transcriptLang},
			}
			if got := transcriber.translates(); got != tt.want {
				t.Errorf("translates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewOpenAITranscriber(t *testing.T) {
	if _, err := NewOpenAITranscriber(t.Context(), "", Options{}); err == nil {
		t.Error("expected error without API key")
	}

	tr, err := NewOpenAITranscriber(t.Context(), "sk-test", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.model != defaultWhisperModel {
		t.Errorf("model = %q, want %q", tr.model, defaultWhisperModel)
	}
}

func TestOpenAITranscribeMissingFile(t *testing.T) {
	tr := &OpenAITranscriber{probe: noProbe}
	_, err := tr.Transcribe(t.Context(), filepath.Join(t.TempDir(), "missing.mp3"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
