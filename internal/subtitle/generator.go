package subtitle

import (
	"strings"
	"unicode/utf8"

	"github.com/mgpai22/trimsub/internal/timecode"
)

// DefaultGenerator turns transcription segments into display-sized records.
type DefaultGenerator struct {
	MaxCharsPerLine int
	MaxLinesPerSub  int
	MaxDuration     timecode.Timestamp
}

func NewDefaultGenerator() *DefaultGenerator {
	return &DefaultGenerator{
		MaxCharsPerLine: 42,
		MaxLinesPerSub:  2,
		MaxDuration:     7 * timecode.Second,
	}
}

// Generate numbers the non-empty segments from 1. A segment over the
// character or duration cap becomes several contiguous records whose
// timings are proportional to their share of the text.
func (g *DefaultGenerator) Generate(segments []Segment) (Track, error) {
	track := Track{}
	for _, seg := range segments {
		words := strings.Fields(seg.Text)
		if len(words) == 0 || seg.End <= seg.Start {
			continue
		}
		for _, p := range g.pieces(seg, words) {
			p.Index = len(track) + 1
			track = append(track, p)
		}
	}
	return track, nil
}

func (g *DefaultGenerator) capacity() int {
	return max(g.MaxCharsPerLine*g.MaxLinesPerSub, 1)
}

func (g *DefaultGenerator) pieceCount(text string, span timecode.Timestamp) int {
	n := (utf8.RuneCountInString(text) + g.capacity() - 1) / g.capacity()
	if g.MaxDuration > 0 {
		n = max(n, int((span+g.MaxDuration-1)/g.MaxDuration))
	}
	return max(n, 1)
}

// pieces assigns each word to a group by the position of its midpoint in
// the text, then times each group by its cumulative character offset.
func (g *DefaultGenerator) pieces(seg Segment, words []string) []Record {
	text := strings.Join(words, " ")
	span := seg.End - seg.Start
	n := g.pieceCount(text, span)
	if n == 1 {
		return []Record{{Start: seg.Start, End: seg.End, Text: g.wrap(text)}}
	}

	total := 0
	for _, w := range words {
		total += utf8.RuneCountInString(w)
	}

	groups := make([][]string, n)
	offsets := make([]int, n)
	pos := 0
	for _, w := range words {
		size := utf8.RuneCountInString(w)
		k := min((pos+size/2)*n/total, n-1)
		if len(groups[k]) == 0 {
			offsets[k] = pos
		}
		groups[k] = append(groups[k], w)
		pos += size
	}

	var out []Record
	var carry []string
	start := seg.Start
	for k, group := range groups {
		carry = append(carry, group...)
		if len(carry) == 0 {
			continue
		}
		end := seg.End
		if next := nextOffset(groups, offsets, k); next >= 0 {
			end = seg.Start + span*timecode.Timestamp(next)/timecode.Timestamp(total)
		}
		if end <= start {
			continue
		}
		out = append(out, Record{Start: start, End: end, Text: g.wrap(strings.Join(carry, " "))})
		carry = nil
		start = end
	}
	if len(carry) > 0 && len(out) > 0 {
		last := &out[len(out)-1]
		last.Text = g.wrap(strings.Join(strings.Fields(last.Text), " ") + " " + strings.Join(carry, " "))
	}
	return out
}

// nextOffset is the character offset of the first non-empty group after k,
// or -1 when k is the last one.
func nextOffset(groups [][]string, offsets []int, k int) int {
	for j := k + 1; j < len(groups); j++ {
		if len(groups[j]) > 0 {
			return offsets[j]
		}
	}
	return -1
}

// wrap breaks text over at most two lines at the word boundary that keeps
// the longer line shortest.
func (g *DefaultGenerator) wrap(text string) string {
	if utf8.RuneCountInString(text) <= g.MaxCharsPerLine || g.MaxLinesPerSub < 2 {
		return text
	}
	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}

	total := utf8.RuneCountInString(strings.Join(words, " "))
	best, bestLen := 0, total
	left := -1
	for i := 0; i < len(words)-1; i++ {
		left += utf8.RuneCountInString(words[i]) + 1
		longer := max(left, total-left-1)
		if longer < bestLen {
			best, bestLen = i+1, longer
		}
	}
	return strings.Join(words[:best], " ") + "\n" + strings.Join(words[best:], " ")
}
