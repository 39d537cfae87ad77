package cutlist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Payload is a decoded cut-range payload together with the mode it implies.
type Payload struct {
	Mode   Mode
	Ranges []RawRange
}

var fenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// DecodePayload extracts a cut-range payload from text. It accepts a bare
// array of {start,end} objects, {"ranges_to_delete": [...]} and
// {"ranges_to_keep": [...]}, tolerating markdown fences and prose around
// the JSON.
func DecodePayload(text string) (*Payload, error) {
	text = strings.TrimSpace(fenceRegex.ReplaceAllString(text, ""))

	var fallback *Payload
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		payload, explicit := classify(raw)
		if payload == nil {
			continue
		}
		if explicit {
			return finish(payload)
		}
		if fallback == nil {
			fallback = payload
		}
		// skip past the decoded value so nested arrays are not revisited
		i += int(decoder.InputOffset()) - 1
	}

	if fallback == nil {
		return nil, ErrNoPayload
	}
	return finish(fallback)
}

func finish(p *Payload) (*Payload, error) {
	if len(p.Ranges) == 0 {
		return p, ErrNoRanges
	}
	return p, nil
}

// classify reports the payload held by raw, if any, and whether it was
// named by one of the explicit keys.
func classify(raw json.RawMessage) (*Payload, bool) {
	if ranges, ok := decodeRanges(raw); ok {
		return &Payload{Mode: ModeRemove, Ranges: ranges}, false
	}

	fields, ok := objectFields(raw)
	if !ok {
		return nil, false
	}

	for _, explicit := range []struct {
		key  string
		mode Mode
	}{{"ranges_to_delete", ModeRemove}, {"ranges_to_keep", ModeKeep}} {
		for _, f := range fields {
			if f.key != explicit.key {
				continue
			}
			if ranges, ok := decodeRanges(f.value); ok {
				return &Payload{Mode: explicit.mode, Ranges: ranges}, true
			}
		}
	}

	for _, f := range fields {
		if ranges, ok := decodeRanges(f.value); ok && len(ranges) > 0 {
			return &Payload{Mode: ModeRemove, Ranges: ranges}, false
		}
	}
	return nil, false
}

type objectField struct {
	key   string
	value json.RawMessage
}

// objectFields lists the members of a JSON object in document order.
func objectFields(raw json.RawMessage) ([]objectField, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := decoder.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}

	var fields []objectField
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, false
		}
		fields = append(fields, objectField{key: key, value: value})
	}
	return fields, true
}

// decodeRanges accepts a JSON array whose elements all carry a start or end
// field.
func decodeRanges(raw json.RawMessage) ([]RawRange, bool) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}

	ranges := make([]RawRange, 0, len(items))
	for _, item := range items {
		_, hasStart := item["start"]
		_, hasEnd := item["end"]
		if !hasStart && !hasEnd {
			return nil, false
		}
		ranges = append(ranges, RawRange{
			Start:  field(item["start"]),
			End:    field(item["end"]),
			Reason: field(item["reason"]),
		})
	}
	return ranges, true
}

// field returns a string value verbatim and any other JSON scalar as text.
func field(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// LoadFile reads a cut-range payload from disk.
func LoadFile(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cut list: %w", err)
	}
	payload, err := DecodePayload(string(data))
	if err != nil {
		return payload, fmt.Errorf("%s: %w", path, err)
	}
	return payload, nil
}

// WriteFile stores the list as a bare JSON array of start/end timestamps.
func WriteFile(path string, list List) error {
	out := make([]RawRange, 0, len(list))
	for _, r := range list {
		out = append(out, RawRange{Start: r.Start.String(), End: r.End.String()})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cut list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write cut list: %w", err)
	}
	return nil
}

// WriteRawFile stores raw ranges, reasons included, as the payload a
// cut-range source proposed.
func WriteRawFile(path string, payload *Payload) error {
	key := "ranges_to_delete"
	if payload.Mode == ModeKeep {
		key = "ranges_to_keep"
	}
	ranges := payload.Ranges
	if ranges == nil {
		ranges = []RawRange{}
	}

	data, err := json.MarshalIndent(map[string][]RawRange{key: ranges}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cut list: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write cut list: %w", err)
	}
	return nil
}
