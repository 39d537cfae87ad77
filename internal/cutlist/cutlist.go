package cutlist

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/mgpai22/trimsub/internal/timecode"
)

// Unbounded marks the open end of a range that runs to the end of the media
// when the media duration is not known.
const Unbounded timecode.Timestamp = math.MaxInt64

var (
	ErrNoRanges  = errors.New("no cut ranges in payload")
	ErrNoPayload = errors.New("no cut-range payload found")
)

// Range is a half-open interval [Start, End) on the original timeline.
type Range struct {
	Start timecode.Timestamp
	End   timecode.Timestamp
}

func (r Range) Duration() timecode.Timestamp {
	return r.End - r.Start
}

func (r Range) String() string {
	if r.End == Unbounded {
		return r.Start.String() + " --> end"
	}
	return r.Start.String() + " --> " + r.End.String()
}

// untrusted entry as produced by a cut-range source
type RawRange struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
}

// List is a canonical cut list: ascending by start and, unless built with
// KeepOverlaps, disjoint.
type List []Range

// total duration covered by the ranges
func (l List) Total() timecode.Timestamp {
	var total timecode.Timestamp
	for _, r := range l {
		total += r.Duration()
	}
	return total
}

type Mode string

const (
	ModeRemove Mode = "remove"
	ModeKeep   Mode = "keep"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRemove, "":
		return ModeRemove, nil
	case ModeKeep:
		return ModeKeep, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected remove or keep)", s)
	}
}

type Options struct {
	// KeepOverlaps sorts without merging; overlaps are reported as warnings.
	KeepOverlaps bool
	// ClampTo, when non-zero, is the media duration. Ranges starting at or
	// after it are dropped and ends past it are clamped.
	ClampTo timecode.Timestamp
}

// Warning describes a raw range that was dropped or altered.
type Warning struct {
	Position int // 0-based position in the raw input
	Raw      RawRange
	Reason   string
}

func (w Warning) String() string {
	return fmt.Sprintf(
		"range %d (%s -> %s): %s",
		w.Position+1,
		w.Raw.Start,
		w.Raw.End,
		w.Reason,
	)
}

type entry struct {
	Range
	pos int
}

// Normalize parses the raw ranges into a canonical list. Empty or inverted
// ranges are dropped and reported, never fatal.
func Normalize(raw []RawRange, opts Options) (List, []Warning) {
	var warnings []Warning
	warn := func(pos int, reason string) {
		warnings = append(warnings, Warning{Position: pos, Raw: raw[pos], Reason: reason})
	}

	// unreadable times read as 0 like the subtitle codec does; the range
	// survives unless that leaves it empty
	parse := func(pos int, field, text string) timecode.Timestamp {
		if _, err := timecode.ParseStrict(text); err != nil {
			warn(pos, fmt.Sprintf("%s time read as 0: %v", field, err))
		}
		return timecode.Parse(text)
	}

	entries := make([]entry, 0, len(raw))
	for i, r := range raw {
		start := parse(i, "start", r.Start)
		end := parse(i, "end", r.End)
		if start >= end {
			warn(i, "start is not before end")
			continue
		}
		if opts.ClampTo > 0 {
			if start >= opts.ClampTo {
				warn(i, "starts after the end of the media")
				continue
			}
			if end > opts.ClampTo {
				end = opts.ClampTo
				warn(i, "end clamped to media duration "+opts.ClampTo.String())
			}
		}
		entries = append(entries, entry{Range: Range{Start: start, End: end}, pos: i})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	list := make(List, 0, len(entries))
	for i, e := range entries {
		if len(list) == 0 {
			list = append(list, e.Range)
			continue
		}
		last := &list[len(list)-1]
		if opts.KeepOverlaps {
			if e.Start < entries[i-1].End {
				warn(e.pos, "overlaps range "+fmt.Sprint(entries[i-1].pos+1))
			}
			list = append(list, e.Range)
			continue
		}
		if e.Start <= last.End {
			if e.Start < last.End {
				warn(e.pos, "merged into overlapping range")
			}
			last.End = max(last.End, e.End)
			continue
		}
		list = append(list, e.Range)
	}

	return list, warnings
}

// Complement returns the gaps before, between and after the given ranges.
// The list must be sorted and disjoint. A zero duration leaves the last gap
// open-ended.
func Complement(list List, duration timecode.Timestamp) List {
	end := duration
	if end <= 0 {
		end = Unbounded
	}

	out := List{}
	var cursor timecode.Timestamp
	for _, r := range list {
		if r.Start >= end {
			break
		}
		if r.Start > cursor {
			out = append(out, Range{Start: cursor, End: r.Start})
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if cursor < end {
		out = append(out, Range{Start: cursor, End: end})
	}
	return out
}

// ToRemoval returns the ranges to excise from the timeline for either mode.
func ToRemoval(list List, mode Mode, duration timecode.Timestamp) List {
	if mode == ModeKeep {
		return Complement(list, duration)
	}
	return list
}

// Segments returns the spans of media that survive the cut, in order.
func Segments(list List, mode Mode, duration timecode.Timestamp) []Range {
	if mode == ModeKeep {
		out := make([]Range, 0, len(list))
		for _, r := range list {
			if duration > 0 {
				if r.Start >= duration {
					break
				}
				r.End = min(r.End, duration)
			}
			out = append(out, r)
		}
		return out
	}
	return Complement(list, duration)
}
