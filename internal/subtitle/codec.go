package subtitle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mgpai22/trimsub/internal/timecode"
)

const arrow = "-->"

// Diagnostic describes one block that Parse skipped, or kept with a time
// that could not be read and became 0.
type Diagnostic struct {
	Block   int // 1-based block ordinal in the input
	Line    int // 1-based line where the block starts
	Reason  string
	Excerpt string
	Kept    bool
}

func (d Diagnostic) String() string {
	action := "skipped"
	if d.Kept {
		action = "kept"
	}
	return fmt.Sprintf("block %d (line %d) %s: %s: %q", d.Block, d.Line, action, d.Reason, d.Excerpt)
}

// ParseError is returned by ParseStrict when any block was skipped.
type ParseError struct {
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "malformed subtitle input"
	}
	if len(e.Diagnostics) == 1 {
		return "malformed " + e.Diagnostics[0].String()
	}
	return fmt.Sprintf(
		"%d malformed blocks, first at %s",
		len(e.Diagnostics),
		e.Diagnostics[0].String(),
	)
}

type block struct {
	ordinal int
	line    int
	lines   []string
}

// Parse reads indexed SRT blocks. Malformed blocks are skipped silently.
func Parse(text string) Track {
	track, _ := ParseWithDiagnostics(text)
	return track
}

// ParseStrict fails with a *ParseError if any block had to be skipped.
func ParseStrict(text string) (Track, error) {
	track, diags := ParseWithDiagnostics(text)
	if len(diags) > 0 {
		return track, &ParseError{Diagnostics: diags}
	}
	return track, nil
}

// ParseWithDiagnostics returns the parsed track and one diagnostic per
// skipped or leniently read block.
func ParseWithDiagnostics(text string) (Track, []Diagnostic) {
	track := Track{}
	var diags []Diagnostic

	for _, blk := range splitBlocks(text) {
		rec, reason, ok := parseBlock(blk.lines)
		if reason != "" {
			diags = append(diags, Diagnostic{
				Block:   blk.ordinal,
				Line:    blk.line,
				Reason:  reason,
				Excerpt: excerpt(blk.lines),
				Kept:    ok,
			})
		}
		if ok {
			track = append(track, rec)
		}
	}

	return track, diags
}

func splitBlocks(text string) []block {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var blocks []block
	var current *block
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if current != nil {
				blocks = append(blocks, *current)
				current = nil
			}
			continue
		}
		if current == nil {
			current = &block{ordinal: len(blocks) + 1, line: i + 1}
		}
		current.lines = append(current.lines, line)
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks
}

// parseBlock reports a non-empty reason for anything it could not read;
// ok is false when the block has to be skipped.
func parseBlock(lines []string) (rec Record, reason string, ok bool) {
	if len(lines) < 2 {
		return Record{}, "block has fewer than two lines", false
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Record{}, "index line is not an integer", false
	}

	start, end, reason, ok := parseTimingLine(lines[1])
	if !ok {
		return Record{}, reason, false
	}

	return Record{
		Index: index,
		Start: start,
		End:   end,
		Text:  strings.Join(lines[2:], "\n"),
	}, reason, true
}

// parseTimingLine reads "start --> end". A time with the wrong number of
// fields, or none, reads as 0 and keeps the block; a non-numeric field
// skips it.
func parseTimingLine(line string) (start, end timecode.Timestamp, reason string, ok bool) {
	parts := strings.Split(line, arrow)
	if len(parts) != 2 {
		return 0, 0, "timing line has no start --> end pair", false
	}

	var reasons []string
	times := [2]timecode.Timestamp{}
	for i, name := range []string{"start", "end"} {
		t, err := timecode.ParseStrict(parts[i])
		if errors.Is(err, timecode.ErrInvalidPart) {
			return 0, 0, fmt.Sprintf("%s time: %v", name, err), false
		}
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s time read as 0: %v", name, err))
		}
		times[i] = t
	}
	return times[0], times[1], strings.Join(reasons, "; "), true
}

// excerpt is the block on one line, cut to 60 bytes on a rune boundary.
func excerpt(lines []string) string {
	s := strings.Join(lines, " | ")
	if len(s) <= 60 {
		return s
	}
	cut := 60
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Serialize renders the track as index, timing line, text and a blank line
// per record.
func Serialize(track Track) string {
	var sb strings.Builder
	for _, rec := range track {
		sb.WriteString(strconv.Itoa(rec.Index))
		sb.WriteString("\n")
		sb.WriteString(timecode.Format(rec.Start))
		sb.WriteString(" " + arrow + " ")
		sb.WriteString(timecode.Format(rec.End))
		sb.WriteString("\n")
		sb.WriteString(rec.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
