package alignment

import (
	"fmt"

	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

type Kind int

const (
	NonPositiveDuration Kind = iota + 1
	Overlap
	Unsorted
)

func (k Kind) String() string {
	switch k {
	case NonPositiveDuration:
		return "non-positive duration"
	case Overlap:
		return "overlap"
	case Unsorted:
		return "unsorted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Violation is one alignment problem. Prev* fields are set for the pairwise
// kinds only.
type Violation struct {
	Kind      Kind
	Index     int
	PrevIndex int
	Start     timecode.Timestamp
	End       timecode.Timestamp
	PrevStart timecode.Timestamp
	PrevEnd   timecode.Timestamp
	// how far the record reaches back into its predecessor
	Overlap timecode.Timestamp
}

func (v Violation) String() string {
	switch v.Kind {
	case NonPositiveDuration:
		return fmt.Sprintf(
			"Subtitle %d: Start time (%s) >= End time (%s)",
			v.Index, v.Start, v.End,
		)
	case Overlap:
		return fmt.Sprintf(
			"Overlap detected between %d and %d: Prev End (%s) > Curr Start (%s). Overlap: %dms",
			v.PrevIndex, v.Index, v.PrevEnd, v.Start, int64(v.Overlap),
		)
	case Unsorted:
		return fmt.Sprintf(
			"Unsorted subtitles detected at %d: Start (%s) < Prev Start (%s)",
			v.Index, v.Start, v.PrevStart,
		)
	default:
		return fmt.Sprintf("Subtitle %d: %s", v.Index, v.Kind)
	}
}

// Validate reports every alignment problem in track, in encounter order.
// A valid track yields an empty slice. Touching records are not an overlap.
func Validate(track subtitle.Track) []Violation {
	violations := []Violation{}

	for i, cur := range track {
		if cur.Start >= cur.End {
			violations = append(violations, Violation{
				Kind:  NonPositiveDuration,
				Index: cur.Index,
				Start: cur.Start,
				End:   cur.End,
			})
		}
		if i == 0 {
			continue
		}

		prev := track[i-1]
		pair := Violation{
			Index:     cur.Index,
			PrevIndex: prev.Index,
			Start:     cur.Start,
			End:       cur.End,
			PrevStart: prev.Start,
			PrevEnd:   prev.End,
		}
		if cur.Start < prev.End {
			v := pair
			v.Kind = Overlap
			v.Overlap = prev.End - cur.Start
			violations = append(violations, v)
		}
		if cur.Start < prev.Start {
			v := pair
			v.Kind = Unsorted
			violations = append(violations, v)
		}
	}

	return violations
}

// Summary counts violations per kind.
func Summary(violations []Violation) map[Kind]int {
	counts := make(map[Kind]int)
	for _, v := range violations {
		counts[v.Kind]++
	}
	return counts
}
