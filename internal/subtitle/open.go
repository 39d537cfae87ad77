package subtitle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrUnsupportedFormat = errors.New("unsupported subtitle format")

// parsed subtitle file that can be edited in place and written back
type File interface {
	Track() Track
	Diagnostics() []Diagnostic
	SetText(index int, text string) error
	Write(path string) error
}

// Open reads an .srt file. Other formats are rejected.
func Open(path string) (File, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".srt" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	track, diags := ParseWithDiagnostics(text)
	return &SRTFile{track: track, diags: diags}, nil
}

// ReadFile returns the file contents as UTF-8 text. UTF-16 input is
// accepted when it carries a byte order mark.
func ReadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode subtitle file: %w", err)
	}
	if bytes.IndexByte(decoded, 0) >= 0 {
		return "", fmt.Errorf("failed to decode subtitle file: NUL bytes found (UTF-16 without BOM?)")
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("failed to decode subtitle file: not valid UTF-8")
	}
	return string(decoded), nil
}

// WriteFile serializes the track, creating parent directories as needed.
func WriteFile(path string, track Track) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(Serialize(track)), 0644); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// derives a sibling path: "talk.srt" + "_corrected" -> "talk_corrected.srt"
func SiblingPath(path, suffix, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if ext == "" {
		ext = filepath.Ext(path)
	}
	return base + suffix + ext
}
