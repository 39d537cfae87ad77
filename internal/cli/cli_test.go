package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mgpai22/trimsub/internal/alignment"
	"github.com/mgpai22/trimsub/internal/chapters"
	"github.com/mgpai22/trimsub/internal/config"
	"github.com/mgpai22/trimsub/internal/correct"
	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/llm/llmtest"
	"github.com/mgpai22/trimsub/internal/logging"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
	"github.com/mgpai22/trimsub/internal/video"
)

func TestMain(m *testing.M) {
	logger = logging.NewNop()
	defaults := config.Default()
	cfg = &defaults
	os.Exit(m.Run())
}

const sampleSRT = `1
00:00:00,000 --> 00:00:01,000
Hello there

2
00:00:02,500 --> 00:00:03,500
um, so

3
00:00:05,000 --> 00:00:06,000
Welcome back
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    timecode.Timestamp
		wantErr bool
	}{
		{"", 0, false},
		{"90s", 90 * timecode.Second, false},
		{"1m30s", 90 * timecode.Second, false},
		{"250ms", 250, false},
		{"90", 90 * timecode.Second, false},
		{"1.5", 1500, false},
		{"00:01:30", 90 * timecode.Second, false},
		{"00:01:30,250", 90250, false},
		{"-5", 0, true},
		{"-5s", 0, true},
		{"soon", 0, true},
		{"aa:bb", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlanCuts(t *testing.T) {
	payload := &cutlist.Payload{
		Mode: cutlist.ModeRemove,
		Ranges: []cutlist.RawRange{
			{Start: "00:00:05,000", End: "00:00:08,000"},
			{Start: "00:00:01,000", End: "00:00:02,000"},
			{Start: "00:00:07,000", End: "00:00:09,000"},
			{Start: "00:00:10,000", End: "garbage"},
		},
	}

	t.Run("remove merges and warns", func(t *testing.T) {
		plan, err := planCuts(payload, "", 0, false)
		if err != nil {
			t.Fatalf("planCuts failed: %v", err)
		}
		want := cutlist.List{{Start: 1000, End: 2000}, {Start: 5000, End: 9000}}
		if len(plan.Removal) != len(want) {
			t.Fatalf("got %v, want %v", plan.Removal, want)
		}
		for i := range want {
			if plan.Removal[i] != want[i] {
				t.Errorf("range %d = %v, want %v", i, plan.Removal[i], want[i])
			}
		}
		if len(plan.Warnings) != 3 {
			t.Errorf("got %d warnings, want 3 (merge, time read as 0, empty range)", len(plan.Warnings))
		}
	})

	t.Run("mode flag selects keep", func(t *testing.T) {
		plan, err := planCuts(payload, "keep", 10*timecode.Second, false)
		if err != nil {
			t.Fatalf("planCuts failed: %v", err)
		}
		if plan.Mode != cutlist.ModeKeep {
			t.Errorf("mode = %s, want keep", plan.Mode)
		}
		want := cutlist.List{{Start: 0, End: 1000}, {Start: 2000, End: 5000}, {Start: 9000, End: 10000}}
		if len(plan.Removal) != len(want) {
			t.Fatalf("got %v, want %v", plan.Removal, want)
		}
		for i := range want {
			if plan.Removal[i] != want[i] {
				t.Errorf("range %d = %v, want %v", i, plan.Removal[i], want[i])
			}
		}
	})

	t.Run("bad mode", func(t *testing.T) {
		if _, err := planCuts(payload, "trim", 0, false); err == nil {
			t.Error("expected error for unknown mode")
		}
	})

	t.Run("keep with overlaps rejected", func(t *testing.T) {
		if _, err := planCuts(payload, "keep", 0, true); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty keep list", func(t *testing.T) {
		empty := &cutlist.Payload{Mode: cutlist.ModeKeep}
		if _, err := planCuts(empty, "", 0, false); err == nil {
			t.Error("expected error for empty keep list")
		}
	})
}

func TestLoadTrack(t *testing.T) {
	dir := t.TempDir()
	broken := sampleSRT + "\nx\nnot a timing line\ntext\n"
	path := writeFile(t, dir, "broken.srt", broken)

	track, err := loadTrack(path, false)
	if err != nil {
		t.Fatalf("loadTrack failed: %v", err)
	}
	if len(track) != 3 {
		t.Errorf("got %d records, want 3", len(track))
	}

	_, err = loadTrack(path, true)
	var perr *subtitle.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("strict load error = %v, want *subtitle.ParseError", err)
	}
	if len(perr.Diagnostics) != 1 {
		t.Errorf("got %d diagnostics, want 1", len(perr.Diagnostics))
	}

	if _, err := loadTrack(filepath.Join(dir, "missing.srt"), false); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := loadTrack(writeFile(t, dir, "subs.vtt", "WEBVTT\n"), false); !errors.Is(err, subtitle.ErrUnsupportedFormat) {
		t.Errorf("vtt error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestWriteCorrected(t *testing.T) {
	dir := t.TempDir()
	file, err := loadFile(writeFile(t, dir, "talk.srt", sampleSRT), false)
	if err != nil {
		t.Fatalf("loadFile failed: %v", err)
	}

	corrected := file.Track()
	corrected[1].Text = "so"
	out := filepath.Join(dir, "out", "talk_corrected.srt")
	if err := writeCorrected(file, corrected, out); err != nil {
		t.Fatalf("writeCorrected failed: %v", err)
	}

	track, err := loadTrack(out, true)
	if err != nil {
		t.Fatalf("reloading output failed: %v", err)
	}
	if len(track) != 3 || track[1].Text != "so" || track[0].Text != "Hello there" {
		t.Errorf("written track = %+v", track)
	}
	if track[1].Start != 2500 || track[1].End != 3500 {
		t.Errorf("timing changed: %+v", track[1])
	}

	extra := append(file.Track(), subtitle.Record{Index: 4, Text: "extra"})
	if err := writeCorrected(file, extra, out); err == nil {
		t.Error("expected error when corrected track is longer than the file")
	}
}

func TestRenderTablePlain(t *testing.T) {
	var buf bytes.Buffer
	got := renderTable(&buf, []string{"A", "B"}, [][]string{{"1", "2"}, {"3"}}, nil)
	if got != "1\t2\n3\n" {
		t.Errorf("renderTable = %q", got)
	}
	if renderTable(&buf, nil, nil, nil) != "" {
		t.Error("expected empty output without headers")
	}
}

func TestWriteViolations(t *testing.T) {
	var buf bytes.Buffer
	writeViolations(&buf, nil)
	if !strings.Contains(buf.String(), "Validation passed") {
		t.Errorf("output = %q", buf.String())
	}

	track := subtitle.Track{
		{Index: 1, Start: 0, End: 2000, Text: "a"},
		{Index: 2, Start: 1500, End: 3000, Text: "b"},
		{Index: 3, Start: 4000, End: 4000, Text: "c"},
	}
	buf.Reset()
	writeViolations(&buf, alignment.Validate(track))
	out := buf.String()
	for _, want := range []string{"Overlap detected between 1 and 2", "Subtitle 3", "Validation failed", "1 overlap"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestUsageRows(t *testing.T) {
	session := llm.NewSession()
	session.Add("correct", llm.Usage{Model: "m", InputTokens: 10, OutputTokens: 5, Cost: 0.5})
	session.Add("analyze", llm.Usage{Model: "m", InputTokens: 20, OutputTokens: 1, Cost: 0.25})

	rows := usageRows(session)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "analyze" || rows[1][0] != "correct" {
		t.Errorf("stages not sorted: %v", rows)
	}
	total := rows[2]
	if total[0] != "total" || total[2] != "30" || total[3] != "6" || total[4] != "$0.7500" {
		t.Errorf("total row = %v", total)
	}

	var buf bytes.Buffer
	writeUsage(&buf, llm.NewSession())
	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty session, got %q", buf.String())
	}
}

func TestCorrectTrack(t *testing.T) {
	track := subtitle.Parse(sampleSRT)
	fake := llmtest.Reply(`[{"id": 1, "text": "Hello there!"}, {"id": 3, "text": "Welcome back"}]`)
	fake.Usage = llm.Usage{InputTokens: 7, OutputTokens: 3}

	out, changed, usage, err := correctTrack(t.Context(), fake, track, correct.Options{})
	if err != nil {
		t.Fatalf("correctTrack failed: %v", err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
	if out[0].Text != "Hello there!" || out[1].Text != "um, so" {
		t.Errorf("unexpected texts: %q, %q", out[0].Text, out[1].Text)
	}
	if out[0].Start != track[0].Start || out[0].End != track[0].End {
		t.Error("timestamps changed")
	}
	if usage.InputTokens != 7 {
		t.Errorf("usage = %+v", usage)
	}
	if track[0].Text != "Hello there" {
		t.Error("input track was modified")
	}
}

func TestCorrectTrackAllFail(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(llm.Request) (string, error) {
		return "", errors.New("quota")
	}}
	if _, _, _, err := correctTrack(t.Context(), fake, subtitle.Parse(sampleSRT), correct.Options{}); err == nil {
		t.Error("expected error when every batch fails")
	}
}

func TestWriteChapters(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "talk_chapters.txt")
	fake := llmtest.Reply("00:00:00 - Intro\n00:00:05 - Welcome back\n")

	result, err := writeChapters(t.Context(), fake, subtitle.Parse(sampleSRT), chapters.Options{Topic: "demo"}, out)
	if err != nil {
		t.Fatalf("writeChapters failed: %v", err)
	}
	if len(result.Chapters) != 2 {
		t.Errorf("got %d chapters, want 2", len(result.Chapters))
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("chapters file not written: %v", err)
	}
	if string(data) != "00:00:00 - Intro\n00:00:05 - Welcome back\n" {
		t.Errorf("chapters file = %q", data)
	}

	_, err = writeChapters(t.Context(), llmtest.Reply("no idea"), subtitle.Parse(sampleSRT), chapters.Options{}, out)
	if !errors.Is(err, chapters.ErrNoChapters) {
		t.Errorf("error = %v, want ErrNoChapters", err)
	}
}

func testCommand(t *testing.T) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(t.Context())
	return cmd
}

func TestProposeCuts(t *testing.T) {
	dir := t.TempDir()
	track := subtitle.Parse(sampleSRT)

	t.Run("writes payload and raw reply", func(t *testing.T) {
		out := filepath.Join(dir, "talk_ranges.json")
		reply := "Here you go:\n```json\n{\"ranges_to_delete\": [{\"start\": \"00:00:02,000\", \"end\": \"00:00:04,000\", \"reason\": \"filler\"}]}\n```"
		payload, _, err := proposeCuts(testCommand(t), llmtest.Reply(reply), track, "", "", "", out)
		if err != nil {
			t.Fatalf("proposeCuts failed: %v", err)
		}
		if len(payload.Ranges) != 1 || payload.Ranges[0].Reason != "filler" {
			t.Errorf("payload = %+v", payload)
		}

		loaded, err := cutlist.LoadFile(out)
		if err != nil {
			t.Fatalf("saved payload unreadable: %v", err)
		}
		if loaded.Ranges[0].Start != "00:00:02,000" {
			t.Errorf("saved range = %+v", loaded.Ranges[0])
		}
		raw, err := os.ReadFile(filepath.Join(dir, "talk_ranges.txt"))
		if err != nil || string(raw) != reply {
			t.Errorf("raw reply = %q, %v", raw, err)
		}
	})

	t.Run("empty proposal is saved", func(t *testing.T) {
		out := filepath.Join(dir, "empty_ranges.json")
		payload, _, err := proposeCuts(testCommand(t), llmtest.Reply(`{"ranges_to_delete": []}`), track, "", "", "", out)
		if err != nil {
			t.Fatalf("proposeCuts failed: %v", err)
		}
		if len(payload.Ranges) != 0 {
			t.Errorf("got %d ranges, want 0", len(payload.Ranges))
		}
		if _, err := os.Stat(out); err != nil {
			t.Errorf("payload not written: %v", err)
		}
	})

	t.Run("undecodable reply", func(t *testing.T) {
		out := filepath.Join(dir, "bad_ranges.json")
		_, _, err := proposeCuts(testCommand(t), llmtest.Reply("I cannot help"), track, "", "", "", out)
		if !errors.Is(err, cutlist.ErrNoPayload) {
			t.Errorf("error = %v, want ErrNoPayload", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "bad_ranges.txt")); err != nil {
			t.Errorf("raw reply not kept: %v", err)
		}
	})
}

func TestWorkflowSummary(t *testing.T) {
	wf := newWorkflow(logger)
	_ = wf.step("transcribe", func() (string, error) { return "talk.srt", nil })
	wf.skip("cut", "--no-cut")
	err := wf.step("chapters", func() (string, error) { return "", errors.New("boom") })
	if err == nil {
		t.Fatal("expected step error to be returned")
	}

	if len(wf.steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(wf.steps))
	}
	wantStatus := []stepStatus{stepDone, stepSkipped, stepFailed}
	for i, s := range wf.steps {
		if s.Status != wantStatus[i] {
			t.Errorf("step %s status = %s, want %s", s.Name, s.Status, wantStatus[i])
		}
	}

	var buf bytes.Buffer
	wf.summary(&buf, 1500*time.Millisecond)
	out := buf.String()
	for _, want := range []string{"transcribe\tdone", "cut\tskipped\t\t--no-cut", "chapters\tfailed", "Total time: 1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWorkflowLogsRunID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &logging.Logger{SugaredLogger: zap.New(core).Sugar()}
	saved := logger
	logger = base
	t.Cleanup(func() { logger = saved })

	wf := newWorkflow(logger.With("run_id", "run-1"))
	_ = wf.step("transcribe", func() (string, error) { return "talk.srt", nil })
	wf.skip("cut", "--no-cut")
	logger.Infow("after the run")

	if logger != base {
		t.Fatal("package logger was replaced by the run logger")
	}
	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("got %d log entries, want 4", len(entries))
	}
	for _, e := range entries[:3] {
		if e.ContextMap()["run_id"] != "run-1" {
			t.Errorf("%q missing run_id: %v", e.Message, e.ContextMap())
		}
	}
	if _, ok := entries[3].ContextMap()["run_id"]; ok {
		t.Errorf("package logger carries run_id: %v", entries[3].ContextMap())
	}
}

func TestRemapCommand(t *testing.T) {
	dir := t.TempDir()
	srt := writeFile(t, dir, "talk.srt", sampleSRT)
	cuts := writeFile(t, dir, "cuts.json", `[{"start": "00:00:02,000", "end": "00:00:04,000"}]`)

	rootCmd.SetArgs([]string{"remap", srt, "--cuts", cuts, "--config", filepath.Join(dir, "none.toml")})
	if err := rootCmd.ExecuteContext(t.Context()); err != nil {
		t.Fatalf("remap failed: %v", err)
	}

	text, err := subtitle.ReadFile(filepath.Join(dir, "talk_remapped.srt"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	got := subtitle.Parse(text)
	want := subtitle.Track{
		{Index: 1, Start: 0, End: 1000, Text: "Hello there"},
		{Index: 2, Start: 3000, End: 4000, Text: "Welcome back"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d:\n%s", len(got), len(want), text)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRemapCommandZeroMinDuration(t *testing.T) {
	minFlag := remapCmd.Flags().Lookup("min-duration")
	outFlag := rootCmd.PersistentFlags().Lookup("output")
	t.Cleanup(func() {
		_ = minFlag.Value.Set("0s")
		minFlag.Changed = false
		_ = outFlag.Value.Set("")
		outFlag.Changed = false
	})

	dir := t.TempDir()
	srt := writeFile(t, dir, "talk.srt", sampleSRT)
	// leaves 50ms of "um, so"
	cuts := writeFile(t, dir, "cuts.json", `[{"start": "00:00:02,000", "end": "00:00:03,450"}]`)
	out := filepath.Join(dir, "zero.srt")

	rootCmd.SetArgs([]string{"remap", srt, "--cuts", cuts, "--min-duration", "0", "-o", out, "--config", filepath.Join(dir, "none.toml")})
	if err := rootCmd.ExecuteContext(t.Context()); err != nil {
		t.Fatalf("remap failed: %v", err)
	}

	text, err := subtitle.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	got := subtitle.Parse(text)
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3:\n%s", len(got), text)
	}
	if want := (subtitle.Record{Index: 2, Start: 2000, End: 2050, Text: "um, so"}); got[1] != want {
		t.Errorf("record 2 = %+v, want %+v", got[1], want)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.srt", sampleSRT)
	bad := writeFile(t, dir, "bad.srt", "1\n00:00:00,000 --> 00:00:02,000\na\n\n2\n00:00:01,000 --> 00:00:03,000\nb\n")
	configPath := filepath.Join(dir, "none.toml")

	rootCmd.SetArgs([]string{"check", good, "--config", configPath})
	if err := rootCmd.ExecuteContext(t.Context()); err != nil {
		t.Errorf("check on valid file failed: %v", err)
	}

	rootCmd.SetArgs([]string{"check", bad, "--config", configPath})
	if err := rootCmd.ExecuteContext(t.Context()); err == nil {
		t.Error("expected check to fail on overlapping subtitles")
	}
}

func TestExtractOptions(t *testing.T) {
	tests := []struct {
		name    string
		flags   map[string]string
		output  string
		want    video.ExtractAudioOptions
		wantErr bool
	}{
		{
			name: "defaults",
			want: video.ExtractAudioOptions{Format: "wav", SampleRate: 16000, Channels: 1},
		},
		{
			name:   "format from output extension",
			output: "talk.FLAC",
			want:   video.ExtractAudioOptions{Format: "flac", SampleRate: 16000, Channels: 1},
		},
		{
			name:   "flag beats extension",
			flags:  map[string]string{"format": "mp3", "bitrate": "128k", "channels": "2"},
			output: "talk.wav",
			want:   video.ExtractAudioOptions{Format: "mp3", SampleRate: 16000, Channels: 2, Bitrate: "128k"},
		},
		{
			name:  "compact",
			flags: map[string]string{"compact": "true"},
			want:  video.ExtractAudioOptions{Format: "mp3", SampleRate: 16000, Channels: 1, Bitrate: "64k"},
		},
		{
			name:    "unknown format",
			output:  "talk.ogg",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := testCommand(t)
			addExtractFlags(cmd)
			for k, v := range tt.flags {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatal(err)
				}
			}
			got, err := extractOptions(cmd, tt.output)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractOptions failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("extractOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
