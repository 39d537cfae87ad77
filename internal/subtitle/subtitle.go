package subtitle

import (
	"github.com/mgpai22/trimsub/internal/timecode"
)

// represents single subtitle record
type Record struct {
	Index int
	Start timecode.Timestamp
	End   timecode.Timestamp
	Text  string
}

func (r Record) Duration() timecode.Timestamp {
	return r.End - r.Start
}

// represents complete subtitle track, in display order
type Track []Record

// returns a copy that shares no backing array with t
func (t Track) Clone() Track {
	if t == nil {
		return nil
	}
	out := make(Track, len(t))
	copy(out, t)
	return out
}

// represents transcribed audio segment
type Segment struct {
	Start timecode.Timestamp
	End   timecode.Timestamp
	Text  string
}

// interface for subtitle generation
type Generator interface {
	Generate(segments []Segment) (Track, error)
}
