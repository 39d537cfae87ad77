package subtitle

import (
	"fmt"
)

type SRTFile struct {
	track Track
	diags []Diagnostic
}

func (f *SRTFile) Track() Track {
	return f.track.Clone()
}

// blocks skipped, or read with a zero time, while parsing
func (f *SRTFile) Diagnostics() []Diagnostic {
	return f.diags
}

// SetText replaces the text of the record at position index (0-based).
func (f *SRTFile) SetText(index int, text string) error {
	if index < 0 || index >= len(f.track) {
		return fmt.Errorf(
			"index %d out of range (0-%d)",
			index,
			len(f.track)-1,
		)
	}
	f.track[index].Text = text
	return nil
}

func (f *SRTFile) Write(path string) error {
	return WriteFile(path, f.track)
}
