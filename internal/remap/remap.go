package remap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/timecode"
)

var (
	ErrInvalidCut      = errors.New("cut range does not start before it ends")
	ErrUnsortedCuts    = errors.New("cut ranges are not sorted by start")
	ErrOverlappingCuts = errors.New("cut ranges overlap")
)

// lists longer than this are searched instead of scanned
const linearScanLimit = 32

// Remapper maps instants on the original timeline onto the timeline left
// after a cut list is excised.
type Remapper struct {
	cuts cutlist.List
	// removed[i] is the total duration of cuts[:i]
	removed []timecode.Timestamp
}

// New validates the list and prepares it for mapping. The list must be
// sorted and disjoint, as produced by cutlist.Normalize without
// KeepOverlaps.
func New(list cutlist.List) (*Remapper, error) {
	cuts := make(cutlist.List, len(list))
	copy(cuts, list)

	removed := make([]timecode.Timestamp, len(cuts)+1)
	for i, c := range cuts {
		if c.Start >= c.End {
			return nil, fmt.Errorf("%w: cut %d (%s)", ErrInvalidCut, i+1, c)
		}
		if i > 0 {
			prev := cuts[i-1]
			if c.Start < prev.Start {
				return nil, fmt.Errorf("%w: cut %d (%s) starts before cut %d (%s)", ErrUnsortedCuts, i+1, c, i, prev)
			}
			if c.Start < prev.End {
				return nil, fmt.Errorf("%w: cut %d (%s) and cut %d (%s)", ErrOverlappingCuts, i, prev, i+1, c)
			}
		}
		removed[i+1] = removed[i] + c.Duration()
	}

	return &Remapper{cuts: cuts, removed: removed}, nil
}

// Map returns where t lands once the cuts are removed. An instant inside a
// cut is clamped to that cut's start and reported with insideCut set.
func (r *Remapper) Map(t timecode.Timestamp) (newT timecode.Timestamp, insideCut bool) {
	if len(r.cuts) > linearScanLimit {
		return r.search(t)
	}
	return r.scan(t)
}

func (r *Remapper) scan(t timecode.Timestamp) (timecode.Timestamp, bool) {
	var offset timecode.Timestamp
	for _, c := range r.cuts {
		if t < c.Start {
			return t - offset, false
		}
		if t < c.End {
			return c.Start - offset, true
		}
		offset += c.End - c.Start
	}
	return t - offset, false
}

func (r *Remapper) search(t timecode.Timestamp) (timecode.Timestamp, bool) {
	// first cut that has not ended by t
	i := sort.Search(len(r.cuts), func(i int) bool {
		return r.cuts[i].End > t
	})
	offset := r.removed[i]
	if i == len(r.cuts) || t < r.cuts[i].Start {
		return t - offset, false
	}
	return r.cuts[i].Start - offset, true
}

// total duration excised by the list
func (r *Remapper) Removed() timecode.Timestamp {
	return r.removed[len(r.cuts)]
}

func (r *Remapper) Len() int {
	return len(r.cuts)
}
