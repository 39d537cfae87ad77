package remap

import (
	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
)

const DefaultMinDuration = 100 * timecode.Millisecond

type ApplyOptions struct {
	// records shorter than this after mapping are dropped; nil means
	// DefaultMinDuration and zero keeps every record
	MinDuration *timecode.Timestamp
}

// MinDuration returns options with an explicit drop threshold.
func MinDuration(d timecode.Timestamp) ApplyOptions {
	return ApplyOptions{MinDuration: &d}
}

func (o ApplyOptions) minDuration() timecode.Timestamp {
	if o.MinDuration != nil {
		return max(*o.MinDuration, 0)
	}
	return DefaultMinDuration
}

// DroppedRecord is an input record that did not survive the cut.
type DroppedRecord struct {
	Record   subtitle.Record
	NewStart timecode.Timestamp
	NewEnd   timecode.Timestamp
}

type Report struct {
	Kept           int
	Dropped        int
	DroppedRecords []DroppedRecord
	// total duration excised from the timeline
	Removed timecode.Timestamp
}

// Apply rebuilds track for the timeline left after list is removed.
func Apply(
	track subtitle.Track,
	list cutlist.List,
	opts ApplyOptions,
) (subtitle.Track, Report, error) {
	r, err := New(list)
	if err != nil {
		return nil, Report{}, err
	}
	out, report := r.Apply(track, opts)
	return out, report, nil
}

// Apply maps both ends of every record and drops records whose mapped
// duration falls below the minimum. Survivors keep their order and text and
// are renumbered from 1. The input track is not modified.
func (r *Remapper) Apply(
	track subtitle.Track,
	opts ApplyOptions,
) (subtitle.Track, Report) {
	minDuration := opts.minDuration()
	out := make(subtitle.Track, 0, len(track))
	report := Report{Removed: r.Removed()}

	for _, rec := range track {
		newStart, _ := r.Map(rec.Start)
		newEnd, _ := r.Map(rec.End)

		if newEnd-newStart < minDuration {
			report.Dropped++
			report.DroppedRecords = append(report.DroppedRecords, DroppedRecord{
				Record:   rec,
				NewStart: newStart,
				NewEnd:   newEnd,
			})
			continue
		}

		out = append(out, subtitle.Record{
			Index: len(out) + 1,
			Start: newStart,
			End:   newEnd,
			Text:  rec.Text,
		})
	}

	report.Kept = len(out)
	return out, report
}
