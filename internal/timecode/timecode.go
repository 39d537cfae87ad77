package timecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a non-negative count of milliseconds since media start.
type Timestamp int64

const (
	Millisecond Timestamp = 1
	Second                = 1000 * Millisecond
	Minute                = 60 * Second
	Hour                  = 60 * Minute
)

var (
	ErrEmpty       = errors.New("empty timestamp")
	ErrFieldCount  = errors.New("expected HH:MM:SS or MM:SS")
	ErrInvalidPart = errors.New("invalid timestamp field")
)

// converts a duration, truncating below millisecond precision
func FromDuration(d time.Duration) Timestamp {
	if d <= 0 {
		return 0
	}
	return Timestamp(d / time.Millisecond)
}

func (t Timestamp) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

func (t Timestamp) String() string {
	return Format(t)
}

// Parse converts subtitle or clock text to a Timestamp.
//
// Accepted forms are HH:MM:SS,mmm, HH:MM:SS.mmm, HH:MM:SS and MM:SS.
// Anything else yields 0 without an error; use ParseStrict to learn why.
func Parse(text string) Timestamp {
	t, err := ParseStrict(text)
	if err != nil {
		return 0
	}
	return t
}

// ParseStrict is Parse with the fallback reason reported.
func ParseStrict(text string) (Timestamp, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmpty
	}

	hms, millis := text, "0"
	if i := strings.IndexAny(text, ",."); i >= 0 {
		hms, millis = text[:i], text[i+1:]
		if strings.ContainsAny(millis, ",.") {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPart, text)
		}
	}

	fields := strings.Split(hms, ":")
	var h, m, s int64
	var err error
	switch len(fields) {
	case 3:
		if h, err = parseField(fields[0]); err != nil {
			return 0, err
		}
		if m, err = parseField(fields[1]); err != nil {
			return 0, err
		}
		if s, err = parseField(fields[2]); err != nil {
			return 0, err
		}
	case 2:
		if m, err = parseField(fields[0]); err != nil {
			return 0, err
		}
		if s, err = parseField(fields[1]); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrFieldCount, text)
	}

	ms, err := parseField(millis)
	if err != nil {
		return 0, err
	}

	return Timestamp(h)*Hour +
		Timestamp(m)*Minute +
		Timestamp(s)*Second +
		Timestamp(ms), nil
}

func parseField(field string) (int64, error) {
	field = strings.TrimSpace(field)
	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPart, field)
	}
	return v, nil
}

// Format renders HH:MM:SS,mmm; hours are not wrapped at 24.
func Format(t Timestamp) string {
	h, m, s, ms := split(t)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatClock renders HH:MM:SS, dropping milliseconds.
func FormatClock(t Timestamp) string {
	h, m, s, _ := split(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func split(t Timestamp) (h, m, s, ms int64) {
	if t < 0 {
		t = 0
	}
	total := int64(t)
	ms = total % 1000
	seconds := total / 1000
	s = seconds % 60
	m = (seconds / 60) % 60
	h = seconds / 3600
	return h, m, s, ms
}
