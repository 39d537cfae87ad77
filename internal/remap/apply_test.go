package remap

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/subtitle"
)

func TestApplyReconstruction(t *testing.T) {
	track := subtitle.Track{
		{Index: 1, Start: 0, End: 1000, Text: "keep1"},
		{Index: 2, Start: 1200, End: 1800, Text: "delete"},
		{Index: 3, Start: 2500, End: 3500, Text: "keep2"},
	}

	got, report, err := Apply(track, cutlist.List{{1000, 2000}}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	want := subtitle.Track{
		{Index: 1, Start: 0, End: 1000, Text: "keep1"},
		{Index: 2, Start: 1500, End: 2500, Text: "keep2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}

	if report.Kept != 2 || report.Dropped != 1 {
		t.Errorf("report = %d kept, %d dropped", report.Kept, report.Dropped)
	}
	if report.DroppedRecords[0].Record.Text != "delete" {
		t.Errorf("unexpected dropped record %+v", report.DroppedRecords[0])
	}
	if report.Removed != 1000 {
		t.Errorf("report.Removed = %d, want 1000", report.Removed)
	}
}

func TestApplyMinDuration(t *testing.T) {
	// clipped to 50ms by the cut
	track := subtitle.Track{
		{Index: 7, Start: 900, End: 2050, Text: "sliver"},
		{Index: 8, Start: 3000, End: 3150, Text: "short"},
	}
	cuts := cutlist.List{{950, 2050}}

	got, _, err := Apply(track, cuts, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "short" || got[0].Index != 1 {
		t.Errorf("default threshold: got %+v", got)
	}

	got, report, err := Apply(track, cuts, MinDuration(10))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(got) != 2 || report.Dropped != 0 {
		t.Errorf("lower threshold should keep both records, got %+v", got)
	}

	got, _, err = Apply(track, cuts, MinDuration(500))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("higher threshold should drop both records, got %+v", got)
	}
}

func TestApplyZeroMinDurationKeepsEverything(t *testing.T) {
	track := subtitle.Track{
		{Index: 1, Start: 900, End: 2050, Text: "sliver"},
		{Index: 2, Start: 3000, End: 3050, Text: "blink"},
		{Index: 3, Start: 1000, End: 2000, Text: "swallowed"},
	}
	cuts := cutlist.List{{950, 2050}}

	got, report, err := Apply(track, cuts, MinDuration(0))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(got) != 3 || report.Dropped != 0 {
		t.Fatalf("zero threshold should keep every record, got %+v (dropped %d)", got, report.Dropped)
	}
	if got[1].Text != "blink" || got[1].End-got[1].Start != 50 {
		t.Errorf("50ms record = %+v", got[1])
	}
	if got[2].Start != got[2].End {
		t.Errorf("record inside the cut should collapse to a point, got %+v", got[2])
	}

	got, _, err = Apply(track, cuts, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("unset threshold should use the 100ms default, got %+v", got)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	track := subtitle.Track{
		{Index: 5, Start: 3000, End: 4000, Text: "a"},
		{Index: 9, Start: 5000, End: 6000, Text: "b"},
	}
	before := track.Clone()

	got, _, err := Apply(track, cutlist.List{}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !reflect.DeepEqual(track, before) {
		t.Errorf("input track was modified: %+v", track)
	}
	if got[0].Index != 1 || got[1].Index != 2 {
		t.Errorf("expected renumbering even without cuts, got %+v", got)
	}

	got[0].Text = "changed"
	if track[0].Text != "a" {
		t.Error("result shares storage with the input")
	}
}

func TestApplyEmptyTrack(t *testing.T) {
	got, report, err := Apply(nil, cutlist.List{{0, 1000}}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil track, got %#v", got)
	}
	if report.Kept != 0 || report.Dropped != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestApplyRejectsOverlappingCuts(t *testing.T) {
	_, _, err := Apply(subtitle.Track{}, cutlist.List{{0, 2000}, {1000, 3000}}, ApplyOptions{})
	if !errors.Is(err, ErrOverlappingCuts) {
		t.Errorf("expected ErrOverlappingCuts, got %v", err)
	}
}

func TestApplyKeepMode(t *testing.T) {
	track := subtitle.Track{
		{Index: 1, Start: 500, End: 1500, Text: "intro"},
		{Index: 2, Start: 10000, End: 12000, Text: "kept"},
		{Index: 3, Start: 20000, End: 21000, Text: "outro"},
	}
	keep := cutlist.List{{9000, 13000}}

	got, _, err := Apply(track, cutlist.ToRemoval(keep, cutlist.ModeKeep, 30000), ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := subtitle.Track{{Index: 1, Start: 1000, End: 3000, Text: "kept"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
}
